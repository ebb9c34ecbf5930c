// Package memory is an in-process storage backend used by tests and the
// memory storage driver.
package memory

import (
	"context"
	"sort"
	"sync"

	"gomoku/internal/models"
	"gomoku/internal/storage"
)

type historyKey struct {
	roomID     string
	gameNumber int
}

// Store keeps every record in maps guarded by one mutex, so a session update
// and its archive become visible together.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]models.Session
	history  map[historyKey]models.HistoryRecord
	rooms    map[string]models.Room
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]models.Session),
		history:  make(map[historyKey]models.HistoryRecord),
		rooms:    make(map[string]models.Room),
	}
}

var _ storage.Store = (*Store)(nil)

func (s *Store) GetSession(ctx context.Context, roomID string) (models.Session, error) {
	if err := ctx.Err(); err != nil {
		return models.Session{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[roomID]
	if !ok {
		return models.Session{}, storage.ErrNotFound
	}
	return session.Clone(), nil
}

func (s *Store) CreateSession(ctx context.Context, session models.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session.RoomID]; ok {
		return storage.ErrAlreadyExists
	}
	s.sessions[session.RoomID] = session.Clone()
	return nil
}

func (s *Store) UpdateSession(ctx context.Context, session models.Session, expectedVersion int64, archive *models.HistoryRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.sessions[session.RoomID]
	if !ok {
		return storage.ErrNotFound
	}
	if current.Version != expectedVersion || session.Version != expectedVersion+1 {
		return storage.ErrConflict
	}
	if archive != nil {
		key := historyKey{roomID: archive.RoomID, gameNumber: archive.GameNumber}
		if _, exists := s.history[key]; exists {
			return storage.ErrAlreadyExists
		}
		s.history[key] = cloneRecord(*archive)
	}
	s.sessions[session.RoomID] = session.Clone()
	return nil
}

func (s *Store) ArchiveGame(ctx context.Context, record models.HistoryRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := historyKey{roomID: record.RoomID, gameNumber: record.GameNumber}
	if _, exists := s.history[key]; exists {
		return storage.ErrAlreadyExists
	}
	s.history[key] = cloneRecord(record)
	return nil
}

func (s *Store) ListHistory(ctx context.Context, roomID string) ([]models.HistoryRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.HistoryRecord, 0)
	for key, rec := range s.history {
		if key.roomID == roomID {
			out = append(out, cloneRecord(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GameNumber < out[j].GameNumber })
	return out, nil
}

func (s *Store) GetHistory(ctx context.Context, roomID string, gameNumber int) (models.HistoryRecord, error) {
	if err := ctx.Err(); err != nil {
		return models.HistoryRecord{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.history[historyKey{roomID: roomID, gameNumber: gameNumber}]
	if !ok {
		return models.HistoryRecord{}, storage.ErrNotFound
	}
	return cloneRecord(rec), nil
}

func (s *Store) CreateRoom(ctx context.Context, room models.Room) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[room.ID]; ok {
		return storage.ErrAlreadyExists
	}
	if room.Status == "" {
		room.Status = models.RoomWaiting
	}
	if room.Type == "" {
		room.Type = models.RoomCasual
	}
	room.Players = append([]string(nil), room.Players...)
	s.rooms[room.ID] = room
	return nil
}

func (s *Store) FindRoom(ctx context.Context, roomID string) (models.Room, error) {
	if err := ctx.Err(); err != nil {
		return models.Room{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[roomID]
	if !ok {
		return models.Room{}, storage.ErrNotFound
	}
	room.Players = append([]string(nil), room.Players...)
	return room, nil
}

func (s *Store) UpdateRoomStatus(ctx context.Context, roomID string, status models.RoomStatus) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[roomID]
	if !ok {
		return storage.ErrNotFound
	}
	room.Status = status
	s.rooms[roomID] = room
	return nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

func cloneRecord(rec models.HistoryRecord) models.HistoryRecord {
	out := rec
	out.Board = rec.Board.Clone()
	if rec.Actions != nil {
		tmp := models.Session{ActionHistory: rec.Actions}.Clone()
		out.Actions = tmp.ActionHistory
	}
	return out
}
