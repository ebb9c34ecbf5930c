package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gomoku/internal/models"
	"gomoku/internal/storage"
)

// CreateRoom inserts a room directory entry.
func (s *Store) CreateRoom(ctx context.Context, room models.Room) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if room.CreatedAt.IsZero() {
		room.CreatedAt = time.Now().UTC()
	}
	if room.UpdatedAt.IsZero() {
		room.UpdatedAt = room.CreatedAt
	}
	row, err := storage.EncodeRoom(room)
	if err != nil {
		return err
	}
	_, err = s.sqlDB.ExecContext(ctx,
		`INSERT INTO rooms (id, code, status, room_type, players_json, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		row.ID, row.Code, row.Status, row.Type, row.PlayersJSON, row.CreatedAt, row.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("create room: %w", err)
	}
	return nil
}

// FindRoom returns a room by id.
func (s *Store) FindRoom(ctx context.Context, roomID string) (models.Room, error) {
	if err := s.ready(ctx); err != nil {
		return models.Room{}, err
	}
	var r storage.RoomRow
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT id, code, status, room_type, players_json, created_at, updated_at FROM rooms WHERE id = ?`, roomID,
	).Scan(&r.ID, &r.Code, &r.Status, &r.Type, &r.PlayersJSON, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Room{}, storage.ErrNotFound
		}
		return models.Room{}, fmt.Errorf("find room: %w", err)
	}
	return r.Decode()
}

// UpdateRoomStatus records the room-level status.
func (s *Store) UpdateRoomStatus(ctx context.Context, roomID string, status models.RoomStatus) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	res, err := s.sqlDB.ExecContext(ctx,
		`UPDATE rooms SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), storage.ToMillis(time.Now()), roomID,
	)
	if err != nil {
		return fmt.Errorf("update room status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update room status rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}
