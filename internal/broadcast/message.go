package broadcast

import (
	"gomoku/internal/models"
	apperrors "gomoku/internal/platform/errors"
)

// Message types pushed to WebSocket clients.
const (
	TypeState = "state"
	TypeError = "error"
)

// Message is the envelope of every frame sent to a WebSocket client.
type Message struct {
	Type  string           `json:"type"`
	State *models.Snapshot `json:"state,omitempty"`
	Error *apperrors.Body  `json:"error,omitempty"`
}

// StateMessage wraps a snapshot.
func StateMessage(s models.Snapshot) Message {
	return Message{Type: TypeState, State: &s}
}

// ErrorMessage wraps the client-facing form of err.
func ErrorMessage(err error) Message {
	body := apperrors.BodyOf(err)
	return Message{Type: TypeError, Error: &body}
}
