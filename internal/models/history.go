package models

import (
	"time"

	"github.com/google/uuid"
)

// HistoryRecord is the write-once archive of one completed game
type HistoryRecord struct {
	ID            string    `json:"id"`
	RoomID        string    `json:"roomId"`
	GameNumber    int       `json:"gameNumber"`
	BlackPlayerID string    `json:"blackPlayerId"`
	WhitePlayerID string    `json:"whitePlayerId"`
	WinnerID      string    `json:"winnerId,omitempty"`
	Winner        Winner    `json:"winner"`
	EndReason     EndReason `json:"endReason"`
	TotalMoves    int       `json:"totalMoves"`
	Board         Board     `json:"board"`
	Actions       []Action  `json:"actions"`
	StartedAt     time.Time `json:"startedAt"`
	EndedAt       time.Time `json:"endedAt"`
}

// ArchiveSession captures the terminal state of s as game number gameNumber.
func ArchiveSession(s Session, gameNumber int, reason EndReason, now time.Time) HistoryRecord {
	c := s.Clone()
	rec := HistoryRecord{
		ID:            uuid.NewString(),
		RoomID:        c.RoomID,
		GameNumber:    gameNumber,
		BlackPlayerID: c.BlackPlayerID,
		WhitePlayerID: c.WhitePlayerID,
		Winner:        c.Winner,
		EndReason:     reason,
		TotalMoves:    c.TotalMoves,
		Board:         c.Board,
		Actions:       c.ActionHistory,
		StartedAt:     c.StartedAt,
		EndedAt:       now,
	}
	switch c.Winner {
	case WinnerBlack:
		rec.WinnerID = c.PlayerOf(Black)
	case WinnerWhite:
		rec.WinnerID = c.PlayerOf(White)
	}
	if rec.Actions == nil {
		rec.Actions = []Action{}
	}
	return rec
}

// Duration is how long the archived game lasted
func (r HistoryRecord) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.EndedAt.IsZero() {
		return 0
	}
	return r.EndedAt.Sub(r.StartedAt)
}
