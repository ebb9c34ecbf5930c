package models

import "time"

// Session is the long-lived game aggregate of one room. It is reset in place
// between games and never deleted.
type Session struct {
	RoomID          string
	BlackPlayerID   string
	WhitePlayerID   string
	BlackReady      bool
	WhiteReady      bool
	Status          Status
	Board           Board
	CurrentTurn     Color
	Winner          Winner
	EndReason       EndReason
	TotalMoves      int
	ActionHistory   []Action
	LastAction      *Action
	DrawProposer    Color
	UndoProposer    Color
	RestartProposer Color
	GameCount       int
	Version         int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
	// StartedAt is when the current game began: creation or the last restart.
	StartedAt time.Time
}

// NewSession creates the first game of a room
func NewSession(roomID string, boardSize int, now time.Time) Session {
	return Session{
		RoomID:      roomID,
		Status:      StatusWaiting,
		Board:       NewBoard(boardSize),
		CurrentTurn: Black,
		Winner:      WinnerNone,
		GameCount:   1,
		CreatedAt:   now,
		UpdatedAt:   now,
		StartedAt:   now,
	}
}

// Clone returns a deep copy so callers can mutate it freely
func (s Session) Clone() Session {
	out := s
	out.Board = s.Board.Clone()
	if s.ActionHistory != nil {
		out.ActionHistory = make([]Action, len(s.ActionHistory))
		for i, a := range s.ActionHistory {
			out.ActionHistory[i] = a.clone()
		}
	}
	if s.LastAction != nil {
		last := s.LastAction.clone()
		out.LastAction = &last
	}
	return out
}

// ColorOf returns the seat occupied by playerID, or NoColor
func (s Session) ColorOf(playerID string) Color {
	switch {
	case playerID == "":
		return NoColor
	case playerID == s.BlackPlayerID:
		return Black
	case playerID == s.WhitePlayerID:
		return White
	}
	return NoColor
}

// PlayerOf returns the player seated at c
func (s Session) PlayerOf(c Color) string {
	switch c {
	case Black:
		return s.BlackPlayerID
	case White:
		return s.WhitePlayerID
	}
	return ""
}

// OpenSeat returns the first unassigned color, black first
func (s Session) OpenSeat() Color {
	if s.BlackPlayerID == "" {
		return Black
	}
	if s.WhitePlayerID == "" {
		return White
	}
	return NoColor
}

// Full reports whether both seats are assigned
func (s Session) Full() bool {
	return s.BlackPlayerID != "" && s.WhitePlayerID != ""
}

// Ready reports the ready flag of c
func (s Session) Ready(c Color) bool {
	switch c {
	case Black:
		return s.BlackReady
	case White:
		return s.WhiteReady
	}
	return false
}

// HasProposal reports whether any negotiation is outstanding
func (s Session) HasProposal() bool {
	return s.DrawProposer != NoColor || s.UndoProposer != NoColor || s.RestartProposer != NoColor
}

// Moves returns the MOVE entries of the history in order
func (s Session) Moves() []Action {
	var moves []Action
	for _, a := range s.ActionHistory {
		if a.Type == ActionMove {
			moves = append(moves, a)
		}
	}
	return moves
}

// Snapshot projects the session into the read-only view returned to callers
func (s Session) Snapshot() Snapshot {
	c := s.Clone()
	return Snapshot{
		RoomID:          c.RoomID,
		Status:          c.Status,
		Board:           c.Board,
		CurrentTurn:     c.CurrentTurn,
		Winner:          c.Winner,
		EndReason:       c.EndReason,
		BlackReady:      c.BlackReady,
		WhiteReady:      c.WhiteReady,
		BlackPlayerID:   c.BlackPlayerID,
		WhitePlayerID:   c.WhitePlayerID,
		TotalMoves:      c.TotalMoves,
		LastAction:      c.LastAction,
		DrawProposer:    c.DrawProposer,
		UndoProposer:    c.UndoProposer,
		RestartProposer: c.RestartProposer,
		GameCount:       c.GameCount,
		Version:         c.Version,
	}
}

// Snapshot is the state view sent to players
type Snapshot struct {
	RoomID          string    `json:"roomId"`
	Status          Status    `json:"status"`
	Board           Board     `json:"board"`
	CurrentTurn     Color     `json:"currentTurn"`
	Winner          Winner    `json:"winner"`
	EndReason       EndReason `json:"endReason,omitempty"`
	BlackReady      bool      `json:"blackReady"`
	WhiteReady      bool      `json:"whiteReady"`
	BlackPlayerID   string    `json:"blackPlayerId,omitempty"`
	WhitePlayerID   string    `json:"whitePlayerId,omitempty"`
	TotalMoves      int       `json:"totalMoves"`
	LastAction      *Action   `json:"lastAction,omitempty"`
	DrawProposer    Color     `json:"drawProposer,omitempty"`
	UndoProposer    Color     `json:"undoProposer,omitempty"`
	RestartProposer Color     `json:"restartProposer,omitempty"`
	GameCount       int       `json:"gameCount"`
	Version         int64     `json:"version"`
}

// VisibleTo reports whether playerID may read the snapshot. Anyone may
// watch a WAITING session; after that only the seated players can.
func (s Snapshot) VisibleTo(playerID string) bool {
	if s.Status == StatusWaiting {
		return true
	}
	return playerID != "" && (playerID == s.BlackPlayerID || playerID == s.WhitePlayerID)
}
