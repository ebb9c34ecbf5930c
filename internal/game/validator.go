package game

import (
	"gomoku/internal/models"
	apperrors "gomoku/internal/platform/errors"
)

// check is everything a rule may look at. Rules never mutate it.
type check struct {
	room     *models.Room
	codeLive bool
	session  models.Session
	playerID string
	// color is the seat the actor holds, or the open seat it would take
	// while the session is WAITING. NoColor means no seat is available.
	color   models.Color
	request models.ActionRequest
}

type rule func(*check) error

// roomRules run before the session is loaded.
var roomRules = []rule{
	roomExists,
	roomCodeLive,
}

// actionRules run against the loaded session.
var actionRules = []rule{
	finishedAllowsRestartOnly,
	membership,
	typeSpecific,
}

func runRules(c *check, rules []rule) error {
	for _, r := range rules {
		if err := r(c); err != nil {
			return err
		}
	}
	return nil
}

func invalid(msg string) error {
	return apperrors.New(apperrors.CodeInvalidGameAction, msg)
}

func roomExists(c *check) error {
	if c.room == nil {
		return apperrors.New(apperrors.CodeNotFound, "room not found")
	}
	return nil
}

func roomCodeLive(c *check) error {
	if c.room.Code == "" || !c.codeLive {
		return invalid("room expired")
	}
	return nil
}

// finishedAllowsRestartOnly trusts a FINISHED directory row only while the
// session has not been reset; a restart whose status sync failed leaves the
// row stale but the session WAITING.
func finishedAllowsRestartOnly(c *check) error {
	finished := c.session.Status == models.StatusFinished ||
		(c.room != nil && c.room.Status == models.RoomFinished && c.session.Status != models.StatusWaiting)
	if finished && !c.request.Type.IsRestart() {
		return invalid("game is finished")
	}
	return nil
}

func membership(c *check) error {
	if c.color != models.NoColor {
		return nil
	}
	if c.session.Full() {
		return invalid("room is full")
	}
	return invalid("player is not in this game")
}

func typeSpecific(c *check) error {
	s := c.session
	switch c.request.Type {
	case models.ActionReady:
		if s.Status != models.StatusWaiting {
			return invalid("game already started")
		}
		if s.Ready(c.color) {
			return invalid("player already ready")
		}
	case models.ActionMove:
		return validateMove(c)
	case models.ActionSurrender:
		if s.Status == models.StatusFinished {
			return invalid("game is finished")
		}
	case models.ActionDraw:
		if s.Status != models.StatusPlaying {
			return invalid("game is not in progress")
		}
		if s.HasProposal() {
			return invalid("a proposal is already pending")
		}
	case models.ActionDrawAgree, models.ActionDrawDisagree:
		if s.Status != models.StatusPlaying {
			return invalid("game is not in progress")
		}
		return respondable(s.DrawProposer, c.color, "draw")
	case models.ActionUndo:
		if s.Status != models.StatusPlaying {
			return invalid("game is not in progress")
		}
		if s.HasProposal() {
			return invalid("a proposal is already pending")
		}
		if _, ok := undoCount(s, c.color); !ok {
			return invalid("nothing to undo")
		}
	case models.ActionUndoAgree:
		if s.Status != models.StatusPlaying {
			return invalid("game is not in progress")
		}
		if err := respondable(s.UndoProposer, c.color, "undo"); err != nil {
			return err
		}
		if _, ok := undoCount(s, s.UndoProposer); !ok {
			return invalid("nothing to undo")
		}
	case models.ActionUndoDisagree:
		if s.Status != models.StatusPlaying {
			return invalid("game is not in progress")
		}
		return respondable(s.UndoProposer, c.color, "undo")
	case models.ActionRestart:
		if s.Status != models.StatusFinished {
			return invalid("game is not finished")
		}
		if s.HasProposal() {
			return invalid("a proposal is already pending")
		}
	case models.ActionRestartAgree, models.ActionRestartDisagree:
		if s.Status != models.StatusFinished {
			return invalid("game is not finished")
		}
		return respondable(s.RestartProposer, c.color, "restart")
	case models.ActionTimeout:
		return invalid("timeout cannot be submitted by a player")
	default:
		return invalid("unknown action type")
	}
	return nil
}

func validateMove(c *check) error {
	s := c.session
	if s.Status != models.StatusPlaying {
		return invalid("game is not in progress")
	}
	if s.CurrentTurn != c.color {
		return invalid("not your turn")
	}
	p := c.request.Position
	if p == nil {
		return invalid("position is required")
	}
	if !p.InBounds(s.Board.Size()) {
		return invalid("position out of bounds")
	}
	if s.Board.At(*p) != models.Empty {
		return invalid("position already taken")
	}
	return nil
}

// respondable requires an outstanding proposal made by the other side.
func respondable(proposer, responder models.Color, kind string) error {
	if proposer == models.NoColor {
		return invalid("no " + kind + " proposal pending")
	}
	if proposer == responder {
		return invalid("cannot answer your own " + kind + " proposal")
	}
	return nil
}
