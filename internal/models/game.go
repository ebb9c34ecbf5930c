package models

import "time"

// Color represents a side of the board
type Color string

const (
	Black   Color = "BLACK"
	White   Color = "WHITE"
	NoColor Color = ""
)

// Opponent returns the other side
func (c Color) Opponent() Color {
	switch c {
	case Black:
		return White
	case White:
		return Black
	}
	return NoColor
}

// Cell returns the stone value this color places on the board
func (c Color) Cell() Cell {
	switch c {
	case Black:
		return BlackStone
	case White:
		return WhiteStone
	}
	return Empty
}

// Status is the lifecycle state of a game inside a room
type Status string

const (
	StatusWaiting  Status = "WAITING"
	StatusPlaying  Status = "PLAYING"
	StatusFinished Status = "FINISHED"
)

// Winner is the outcome of a finished game. WinnerNone means the game has not ended.
type Winner string

const (
	WinnerNone  Winner = "NONE"
	WinnerBlack Winner = "BLACK"
	WinnerWhite Winner = "WHITE"
	WinnerDraw  Winner = "DRAW"
)

// WinnerOf maps a color to the matching winner value
func WinnerOf(c Color) Winner {
	switch c {
	case Black:
		return WinnerBlack
	case White:
		return WinnerWhite
	}
	return WinnerNone
}

// EndReason classifies how a game ended
type EndReason string

const (
	EndReasonNone      EndReason = ""
	EndReasonWin       EndReason = "WIN"
	EndReasonDraw      EndReason = "DRAW"
	EndReasonSurrender EndReason = "SURRENDER"
)

// ActionType enumerates everything a player can ask the engine to do
type ActionType string

const (
	ActionReady           ActionType = "READY"
	ActionMove            ActionType = "MOVE"
	ActionSurrender       ActionType = "SURRENDER"
	ActionDraw            ActionType = "DRAW"
	ActionDrawAgree       ActionType = "DRAW_AGREE"
	ActionDrawDisagree    ActionType = "DRAW_DISAGREE"
	ActionUndo            ActionType = "UNDO"
	ActionUndoAgree       ActionType = "UNDO_AGREE"
	ActionUndoDisagree    ActionType = "UNDO_DISAGREE"
	ActionRestart         ActionType = "RESTART"
	ActionRestartAgree    ActionType = "RESTART_AGREE"
	ActionRestartDisagree ActionType = "RESTART_DISAGREE"
	// ActionTimeout is raised by the system only and is rejected from players.
	ActionTimeout ActionType = "TIMEOUT"
)

// Valid reports whether t is a known action type
func (t ActionType) Valid() bool {
	switch t {
	case ActionReady, ActionMove, ActionSurrender,
		ActionDraw, ActionDrawAgree, ActionDrawDisagree,
		ActionUndo, ActionUndoAgree, ActionUndoDisagree,
		ActionRestart, ActionRestartAgree, ActionRestartDisagree,
		ActionTimeout:
		return true
	}
	return false
}

// IsRestart reports whether t belongs to the restart negotiation
func (t ActionType) IsRestart() bool {
	return t == ActionRestart || t == ActionRestartAgree || t == ActionRestartDisagree
}

// Position is a board coordinate
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// InBounds reports whether p lies on a size×size board
func (p Position) InBounds(size int) bool {
	return p.X >= 0 && p.X < size && p.Y >= 0 && p.Y < size
}

// ActionRequest is what a client submits
type ActionRequest struct {
	Type     ActionType `json:"type"`
	Position *Position  `json:"position,omitempty"`
}

// Action is a request enriched with the actor and the time it was applied
type Action struct {
	Type      ActionType `json:"type"`
	PlayerID  string     `json:"playerId"`
	Color     Color      `json:"color,omitempty"`
	Position  *Position  `json:"position,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

func (a Action) clone() Action {
	if a.Position != nil {
		p := *a.Position
		a.Position = &p
	}
	return a
}
