package game

import (
	"time"

	"gomoku/internal/models"
)

func proposeRestart(s *models.Session, a models.Action) {
	s.RestartProposer = a.Color
}

func disagreeRestart(s *models.Session) {
	s.RestartProposer = models.NoColor
}

// agreeRestart archives the finished game and resets the session in place
// with colors swapped.
func agreeRestart(s *models.Session, now time.Time) models.HistoryRecord {
	record := models.ArchiveSession(*s, s.GameCount, endReasonOf(*s), now)

	s.BlackPlayerID, s.WhitePlayerID = s.WhitePlayerID, s.BlackPlayerID
	s.BlackReady = false
	s.WhiteReady = false
	s.Board = models.NewBoard(s.Board.Size())
	s.ActionHistory = nil
	s.TotalMoves = 0
	s.Winner = models.WinnerNone
	s.EndReason = models.EndReasonNone
	s.DrawProposer = models.NoColor
	s.UndoProposer = models.NoColor
	s.RestartProposer = models.NoColor
	s.CurrentTurn = models.Black
	s.Status = models.StatusWaiting
	s.GameCount++
	s.StartedAt = now
	return record
}

// endReasonOf classifies a finished game. Sessions written before the end
// reason was stored fall back to the winner and last non-negotiation action.
func endReasonOf(s models.Session) models.EndReason {
	if s.EndReason != models.EndReasonNone {
		return s.EndReason
	}
	if s.Winner == models.WinnerDraw {
		return models.EndReasonDraw
	}
	for i := len(s.ActionHistory) - 1; i >= 0; i-- {
		switch s.ActionHistory[i].Type {
		case models.ActionSurrender:
			return models.EndReasonSurrender
		case models.ActionMove:
			return models.EndReasonWin
		}
	}
	return models.EndReasonWin
}
