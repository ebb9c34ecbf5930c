package htmx

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"gomoku/internal/models"

	"github.com/a-h/templ"
)

// View is what a board render needs. State is nil until the room's session
// exists.
type View struct {
	RoomID string
	Player string
	State  *models.Snapshot
	Notice string
}

// GameWrapper renders the SSE-connected container with the initial content.
func GameWrapper(v View) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w,
			`<div hx-ext="sse" sse-connect="/htmx/sse/%s?player=%s" sse-swap="game-update" hx-swap="innerHTML" data-room-id="%s"><div id="game-content">`,
			templ.EscapeString(url.PathEscape(v.RoomID)),
			templ.EscapeString(url.QueryEscape(v.Player)),
			templ.EscapeString(v.RoomID),
		)
		if err != nil {
			return err
		}
		if err := GameContent(v).Render(ctx, w); err != nil {
			return err
		}
		_, err = io.WriteString(w, `</div></div>`)
		return err
	})
}

// GameContent renders the status line, the board and the action buttons.
func GameContent(v View) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<div class="status" id="status">` + templ.EscapeString(statusLine(v)) + `</div>`)
		if v.Notice != "" {
			b.WriteString(`<div class="notice" id="notice">&gt; error: ` + templ.EscapeString(v.Notice) + `</div>`)
		}
		if v.State != nil {
			writeBoard(&b, v)
		}
		writeButtons(&b, v)
		b.WriteString(`<div class="game-id" id="roomId">room: ` + templ.EscapeString(v.RoomID) + `</div>`)
		_, err := io.WriteString(w, b.String())
		return err
	})
}

// ErrorStatus renders a standalone error line.
func ErrorStatus(msg string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, `<div class="status" id="status">&gt; error: `+templ.EscapeString(msg)+`</div>`)
		return err
	})
}

func statusLine(v View) string {
	s := v.State
	if s == nil {
		return "> waiting for players"
	}
	mine := colorOf(s, v.Player)
	switch s.Status {
	case models.StatusWaiting:
		if (mine == models.Black && s.BlackReady) || (mine == models.White && s.WhiteReady) {
			return "> ready, waiting for opponent"
		}
		return "> waiting for players"
	case models.StatusFinished:
		if s.Winner == models.WinnerDraw {
			return "> result: draw"
		}
		return fmt.Sprintf("> winner: %s (%s)", s.Winner, strings.ToLower(string(s.EndReason)))
	}
	if mine != models.NoColor && s.CurrentTurn == mine {
		return "> your_turn"
	}
	return fmt.Sprintf("> waiting: %s...", s.CurrentTurn)
}

func writeBoard(b *strings.Builder, v View) {
	s := v.State
	playable := s.Status == models.StatusPlaying && s.CurrentTurn == colorOf(s, v.Player) && s.CurrentTurn != models.NoColor
	size := s.Board.Size()
	fmt.Fprintf(b, `<div class="board" id="board" style="--size:%d">`, size)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			cell := s.Board.At(models.Position{X: x, Y: y})
			class := "cell"
			switch cell {
			case models.BlackStone:
				class += " black"
			case models.WhiteStone:
				class += " white"
			}
			if cell != models.Empty || !playable {
				b.WriteString(`<div class="` + class + ` disabled"></div>`)
				continue
			}
			fmt.Fprintf(b, `<div class="%s" hx-post="%s" hx-target="#game-container" hx-swap="innerHTML"></div>`,
				class, templ.EscapeString(moveURL(v, x, y)))
		}
	}
	b.WriteString(`</div>`)
}

func writeButtons(b *strings.Builder, v View) {
	for _, t := range availableActions(v) {
		fmt.Fprintf(b, `<button class="btn" hx-post="%s" hx-target="#game-container" hx-swap="innerHTML">[%s]</button>`,
			templ.EscapeString(actionURL(v, t)),
			templ.EscapeString(strings.ToLower(string(t))),
		)
	}
}

// availableActions lists the buttons worth offering; the engine still
// validates every submission.
func availableActions(v View) []models.ActionType {
	s := v.State
	if s == nil {
		return []models.ActionType{models.ActionReady}
	}
	mine := colorOf(s, v.Player)
	switch s.Status {
	case models.StatusWaiting:
		return []models.ActionType{models.ActionReady}
	case models.StatusPlaying:
		if mine == models.NoColor {
			return nil
		}
		actions := []models.ActionType{models.ActionSurrender}
		switch {
		case s.DrawProposer != models.NoColor && s.DrawProposer != mine:
			actions = append(actions, models.ActionDrawAgree, models.ActionDrawDisagree)
		case s.UndoProposer != models.NoColor && s.UndoProposer != mine:
			actions = append(actions, models.ActionUndoAgree, models.ActionUndoDisagree)
		case s.DrawProposer == models.NoColor && s.UndoProposer == models.NoColor:
			actions = append(actions, models.ActionDraw, models.ActionUndo)
		}
		return actions
	case models.StatusFinished:
		if mine == models.NoColor {
			return nil
		}
		switch s.RestartProposer {
		case models.NoColor:
			return []models.ActionType{models.ActionRestart}
		case mine:
			return nil
		}
		return []models.ActionType{models.ActionRestartAgree, models.ActionRestartDisagree}
	}
	return nil
}

func colorOf(s *models.Snapshot, player string) models.Color {
	switch {
	case player == "":
		return models.NoColor
	case s.BlackPlayerID == player:
		return models.Black
	case s.WhitePlayerID == player:
		return models.White
	}
	return models.NoColor
}

func moveURL(v View, x, y int) string {
	return fmt.Sprintf("/htmx/rooms/%s/move/%d/%d?player=%s", url.PathEscape(v.RoomID), x, y, url.QueryEscape(v.Player))
}

func actionURL(v View, t models.ActionType) string {
	return fmt.Sprintf("/htmx/rooms/%s/action/%s?player=%s", url.PathEscape(v.RoomID), url.PathEscape(string(t)), url.QueryEscape(v.Player))
}
