package game

import (
	"fmt"
	"time"

	"gomoku/internal/models"
	apperrors "gomoku/internal/platform/errors"
)

// Apply returns the session produced by a validated action. The input is not
// modified. A non-nil record is returned when the action closed out a game
// and must be archived together with the new session.
func Apply(session models.Session, action models.Action, now time.Time) (models.Session, *models.HistoryRecord, error) {
	s := session.Clone()
	var record *models.HistoryRecord

	switch action.Type {
	case models.ActionReady:
		applyReady(&s, action)
	case models.ActionMove:
		if err := applyMove(&s, action); err != nil {
			return models.Session{}, nil, err
		}
	case models.ActionSurrender:
		finish(&s, models.WinnerOf(action.Color.Opponent()), models.EndReasonSurrender)
	case models.ActionDraw:
		proposeDraw(&s, action)
	case models.ActionDrawAgree:
		agreeDraw(&s)
	case models.ActionDrawDisagree:
		disagreeDraw(&s)
	case models.ActionUndo:
		proposeUndo(&s, action)
	case models.ActionUndoAgree:
		agreeUndo(&s)
	case models.ActionUndoDisagree:
		disagreeUndo(&s)
	case models.ActionRestart:
		proposeRestart(&s, action)
	case models.ActionRestartAgree:
		rec := agreeRestart(&s, now)
		record = &rec
	case models.ActionRestartDisagree:
		disagreeRestart(&s)
	case models.ActionTimeout:
		return models.Session{}, nil, apperrors.New(apperrors.CodeInvalidGameAction, "timeout is not supported")
	default:
		return models.Session{}, nil, apperrors.New(apperrors.CodeInvalidGameAction, fmt.Sprintf("unsupported action %q", action.Type))
	}

	recorded := action
	if action.Type != models.ActionRestartAgree {
		s.ActionHistory = append(s.ActionHistory, recorded)
	}
	s.LastAction = &recorded
	s.UpdatedAt = now
	return s, record, nil
}

func applyReady(s *models.Session, a models.Action) {
	switch a.Color {
	case models.Black:
		if s.BlackPlayerID == "" {
			s.BlackPlayerID = a.PlayerID
		}
		s.BlackReady = true
	case models.White:
		if s.WhitePlayerID == "" {
			s.WhitePlayerID = a.PlayerID
		}
		s.WhiteReady = true
	}
	if s.BlackReady && s.WhiteReady {
		s.Status = models.StatusPlaying
		s.CurrentTurn = models.Black
	}
}

func applyMove(s *models.Session, a models.Action) error {
	if a.Position == nil || !a.Position.InBounds(s.Board.Size()) {
		return apperrors.New(apperrors.CodeInvalidGameAction, "position out of bounds")
	}
	p := *a.Position
	if s.Board.At(p) != models.Empty {
		return apperrors.New(apperrors.CodeInvalidGameAction, "position already taken")
	}
	s.Board.Set(p, a.Color.Cell())
	s.TotalMoves++
	// a move answers any pending draw or undo proposal with a refusal
	s.DrawProposer = models.NoColor
	s.UndoProposer = models.NoColor

	switch {
	case CheckWin(s.Board, p):
		finish(s, models.WinnerOf(a.Color), models.EndReasonWin)
	case s.Board.Full():
		finish(s, models.WinnerDraw, models.EndReasonDraw)
	default:
		s.CurrentTurn = a.Color.Opponent()
	}
	return nil
}

func finish(s *models.Session, winner models.Winner, reason models.EndReason) {
	s.Status = models.StatusFinished
	s.Winner = winner
	s.EndReason = reason
	s.DrawProposer = models.NoColor
	s.UndoProposer = models.NoColor
}
