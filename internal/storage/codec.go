package storage

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gomoku/internal/models"
)

// SessionRow is the flat column layout shared by the relational backends.
type SessionRow struct {
	RoomID          string
	BlackPlayerID   string
	WhitePlayerID   string
	BlackReady      bool
	WhiteReady      bool
	Status          string
	BoardSize       int
	BoardJSON       string
	CurrentTurn     string
	Winner          string
	EndReason       string
	TotalMoves      int
	HistoryJSON     string
	LastActionJSON  string
	DrawProposer    string
	UndoProposer    string
	RestartProposer string
	GameCount       int
	Version         int64
	CreatedAt       int64
	UpdatedAt       int64
	StartedAt       int64
}

// HistoryRow is the flat column layout of an archived game.
type HistoryRow struct {
	ID            string
	RoomID        string
	GameNumber    int
	BlackPlayerID string
	WhitePlayerID string
	WinnerID      string
	Winner        string
	EndReason     string
	TotalMoves    int
	BoardJSON     string
	ActionsJSON   string
	StartedAt     int64
	EndedAt       int64
}

// RoomRow is the flat column layout of a room.
type RoomRow struct {
	ID          string
	Code        string
	Status      string
	Type        string
	PlayersJSON string
	CreatedAt   int64
	UpdatedAt   int64
}

// ToMillis stores times as UTC unix milliseconds.
func ToMillis(value time.Time) int64 {
	if value.IsZero() {
		return 0
	}
	return value.UTC().UnixMilli()
}

// FromMillis is the inverse of ToMillis.
func FromMillis(value int64) time.Time {
	if value == 0 {
		return time.Time{}
	}
	return time.UnixMilli(value).UTC()
}

// EncodeSession flattens a session for storage.
func EncodeSession(s models.Session) (SessionRow, error) {
	if strings.TrimSpace(s.RoomID) == "" {
		return SessionRow{}, fmt.Errorf("room id is required")
	}
	board, err := json.Marshal(s.Board)
	if err != nil {
		return SessionRow{}, fmt.Errorf("encode board: %w", err)
	}
	history := s.ActionHistory
	if history == nil {
		history = []models.Action{}
	}
	actions, err := json.Marshal(history)
	if err != nil {
		return SessionRow{}, fmt.Errorf("encode history: %w", err)
	}
	var last string
	if s.LastAction != nil {
		raw, err := json.Marshal(s.LastAction)
		if err != nil {
			return SessionRow{}, fmt.Errorf("encode last action: %w", err)
		}
		last = string(raw)
	}
	return SessionRow{
		RoomID:          s.RoomID,
		BlackPlayerID:   s.BlackPlayerID,
		WhitePlayerID:   s.WhitePlayerID,
		BlackReady:      s.BlackReady,
		WhiteReady:      s.WhiteReady,
		Status:          string(s.Status),
		BoardSize:       s.Board.Size(),
		BoardJSON:       string(board),
		CurrentTurn:     string(s.CurrentTurn),
		Winner:          string(s.Winner),
		EndReason:       string(s.EndReason),
		TotalMoves:      s.TotalMoves,
		HistoryJSON:     string(actions),
		LastActionJSON:  last,
		DrawProposer:    string(s.DrawProposer),
		UndoProposer:    string(s.UndoProposer),
		RestartProposer: string(s.RestartProposer),
		GameCount:       s.GameCount,
		Version:         s.Version,
		CreatedAt:       ToMillis(s.CreatedAt),
		UpdatedAt:       ToMillis(s.UpdatedAt),
		StartedAt:       ToMillis(s.StartedAt),
	}, nil
}

// Decode rebuilds the session.
func (r SessionRow) Decode() (models.Session, error) {
	s := models.Session{
		RoomID:          r.RoomID,
		BlackPlayerID:   r.BlackPlayerID,
		WhitePlayerID:   r.WhitePlayerID,
		BlackReady:      r.BlackReady,
		WhiteReady:      r.WhiteReady,
		Status:          models.Status(r.Status),
		CurrentTurn:     models.Color(r.CurrentTurn),
		Winner:          models.Winner(r.Winner),
		EndReason:       models.EndReason(r.EndReason),
		TotalMoves:      r.TotalMoves,
		DrawProposer:    models.Color(r.DrawProposer),
		UndoProposer:    models.Color(r.UndoProposer),
		RestartProposer: models.Color(r.RestartProposer),
		GameCount:       r.GameCount,
		Version:         r.Version,
		CreatedAt:       FromMillis(r.CreatedAt),
		UpdatedAt:       FromMillis(r.UpdatedAt),
		StartedAt:       FromMillis(r.StartedAt),
	}
	if err := json.Unmarshal([]byte(r.BoardJSON), &s.Board); err != nil {
		return models.Session{}, fmt.Errorf("decode board: %w", err)
	}
	if s.Board.Size() != r.BoardSize {
		return models.Session{}, fmt.Errorf("decode board: size %d, want %d", s.Board.Size(), r.BoardSize)
	}
	if err := json.Unmarshal([]byte(r.HistoryJSON), &s.ActionHistory); err != nil {
		return models.Session{}, fmt.Errorf("decode history: %w", err)
	}
	if r.LastActionJSON != "" {
		var last models.Action
		if err := json.Unmarshal([]byte(r.LastActionJSON), &last); err != nil {
			return models.Session{}, fmt.Errorf("decode last action: %w", err)
		}
		s.LastAction = &last
	}
	return s, nil
}

// EncodeHistory flattens an archive record for storage.
func EncodeHistory(rec models.HistoryRecord) (HistoryRow, error) {
	if strings.TrimSpace(rec.RoomID) == "" {
		return HistoryRow{}, fmt.Errorf("room id is required")
	}
	if rec.GameNumber <= 0 {
		return HistoryRow{}, fmt.Errorf("game number must be greater than zero")
	}
	board, err := json.Marshal(rec.Board)
	if err != nil {
		return HistoryRow{}, fmt.Errorf("encode board: %w", err)
	}
	list := rec.Actions
	if list == nil {
		list = []models.Action{}
	}
	actions, err := json.Marshal(list)
	if err != nil {
		return HistoryRow{}, fmt.Errorf("encode actions: %w", err)
	}
	return HistoryRow{
		ID:            rec.ID,
		RoomID:        rec.RoomID,
		GameNumber:    rec.GameNumber,
		BlackPlayerID: rec.BlackPlayerID,
		WhitePlayerID: rec.WhitePlayerID,
		WinnerID:      rec.WinnerID,
		Winner:        string(rec.Winner),
		EndReason:     string(rec.EndReason),
		TotalMoves:    rec.TotalMoves,
		BoardJSON:     string(board),
		ActionsJSON:   string(actions),
		StartedAt:     ToMillis(rec.StartedAt),
		EndedAt:       ToMillis(rec.EndedAt),
	}, nil
}

// Decode rebuilds the archive record.
func (r HistoryRow) Decode() (models.HistoryRecord, error) {
	rec := models.HistoryRecord{
		ID:            r.ID,
		RoomID:        r.RoomID,
		GameNumber:    r.GameNumber,
		BlackPlayerID: r.BlackPlayerID,
		WhitePlayerID: r.WhitePlayerID,
		WinnerID:      r.WinnerID,
		Winner:        models.Winner(r.Winner),
		EndReason:     models.EndReason(r.EndReason),
		TotalMoves:    r.TotalMoves,
		StartedAt:     FromMillis(r.StartedAt),
		EndedAt:       FromMillis(r.EndedAt),
	}
	if err := json.Unmarshal([]byte(r.BoardJSON), &rec.Board); err != nil {
		return models.HistoryRecord{}, fmt.Errorf("decode board: %w", err)
	}
	if err := json.Unmarshal([]byte(r.ActionsJSON), &rec.Actions); err != nil {
		return models.HistoryRecord{}, fmt.Errorf("decode actions: %w", err)
	}
	return rec, nil
}

// EncodeRoom flattens a room for storage.
func EncodeRoom(room models.Room) (RoomRow, error) {
	if strings.TrimSpace(room.ID) == "" {
		return RoomRow{}, fmt.Errorf("room id is required")
	}
	players := room.Players
	if players == nil {
		players = []string{}
	}
	raw, err := json.Marshal(players)
	if err != nil {
		return RoomRow{}, fmt.Errorf("encode players: %w", err)
	}
	status := room.Status
	if status == "" {
		status = models.RoomWaiting
	}
	roomType := room.Type
	if roomType == "" {
		roomType = models.RoomCasual
	}
	return RoomRow{
		ID:          room.ID,
		Code:        room.Code,
		Status:      string(status),
		Type:        string(roomType),
		PlayersJSON: string(raw),
		CreatedAt:   ToMillis(room.CreatedAt),
		UpdatedAt:   ToMillis(room.UpdatedAt),
	}, nil
}

// Decode rebuilds the room.
func (r RoomRow) Decode() (models.Room, error) {
	room := models.Room{
		ID:        r.ID,
		Code:      r.Code,
		Status:    models.RoomStatus(r.Status),
		Type:      models.RoomType(r.Type),
		CreatedAt: FromMillis(r.CreatedAt),
		UpdatedAt: FromMillis(r.UpdatedAt),
	}
	if err := json.Unmarshal([]byte(r.PlayersJSON), &room.Players); err != nil {
		return models.Room{}, fmt.Errorf("decode players: %w", err)
	}
	return room, nil
}
