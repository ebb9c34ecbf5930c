// Package storage defines persistence contracts for rooms, sessions and game history.
package storage

import (
	"context"
	"errors"

	"gomoku/internal/models"
)

var (
	// ErrNotFound indicates a requested record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists indicates a uniqueness-constrained record already exists.
	ErrAlreadyExists = errors.New("record already exists")
	// ErrConflict indicates the stored version no longer matches the expected one.
	ErrConflict = errors.New("version conflict")
)

// SessionStore persists one session per room under optimistic versioning.
type SessionStore interface {
	GetSession(ctx context.Context, roomID string) (models.Session, error)
	// CreateSession inserts the first session of a room and returns
	// ErrAlreadyExists when another writer created it first.
	CreateSession(ctx context.Context, session models.Session) error
	// UpdateSession overwrites the session only when the stored version equals
	// expectedVersion; session.Version must be expectedVersion+1. A non-nil
	// archive is inserted in the same atomic write. Returns ErrConflict otherwise.
	UpdateSession(ctx context.Context, session models.Session, expectedVersion int64, archive *models.HistoryRecord) error
}

// HistoryStore persists write-once archives of finished games.
type HistoryStore interface {
	// ArchiveGame returns ErrAlreadyExists when the game number was archived before.
	ArchiveGame(ctx context.Context, record models.HistoryRecord) error
	// ListHistory returns the archives of a room ordered by game number.
	ListHistory(ctx context.Context, roomID string) ([]models.HistoryRecord, error)
	GetHistory(ctx context.Context, roomID string, gameNumber int) (models.HistoryRecord, error)
}

// RoomDirectory is the relational view of rooms.
type RoomDirectory interface {
	CreateRoom(ctx context.Context, room models.Room) error
	FindRoom(ctx context.Context, roomID string) (models.Room, error)
	UpdateRoomStatus(ctx context.Context, roomID string, status models.RoomStatus) error
}

// Store is a full backend.
type Store interface {
	SessionStore
	HistoryStore
	RoomDirectory
	Close() error
}
