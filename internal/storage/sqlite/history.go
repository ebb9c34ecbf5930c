package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gomoku/internal/models"
	"gomoku/internal/storage"
)

const historyColumns = `id, room_id, game_number, black_player_id, white_player_id, winner_id,
	winner, end_reason, total_moves, board_json, actions_json, started_at, ended_at`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// ArchiveGame inserts a finished game record.
func (s *Store) ArchiveGame(ctx context.Context, record models.HistoryRecord) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return insertHistory(ctx, s.sqlDB, record)
}

// ListHistory returns the archives of a room by game number.
func (s *Store) ListHistory(ctx context.Context, roomID string) ([]models.HistoryRecord, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT `+historyColumns+` FROM game_history WHERE room_id = ? ORDER BY game_number ASC`, roomID)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	out := make([]models.HistoryRecord, 0)
	for rows.Next() {
		rec, err := scanHistory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return out, nil
}

// GetHistory returns one archived game.
func (s *Store) GetHistory(ctx context.Context, roomID string, gameNumber int) (models.HistoryRecord, error) {
	if err := s.ready(ctx); err != nil {
		return models.HistoryRecord{}, err
	}
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT `+historyColumns+` FROM game_history WHERE room_id = ? AND game_number = ?`, roomID, gameNumber)
	rec, err := scanHistory(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.HistoryRecord{}, storage.ErrNotFound
		}
		return models.HistoryRecord{}, fmt.Errorf("get history: %w", err)
	}
	return rec, nil
}

func insertHistory(ctx context.Context, db execer, record models.HistoryRecord) error {
	row, err := storage.EncodeHistory(record)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx,
		`INSERT INTO game_history (`+historyColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		row.ID, row.RoomID, row.GameNumber, row.BlackPlayerID, row.WhitePlayerID, row.WinnerID,
		row.Winner, row.EndReason, row.TotalMoves, row.BoardJSON, row.ActionsJSON, row.StartedAt, row.EndedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("archive game: %w", err)
	}
	return nil
}

func scanHistory(row rowScanner) (models.HistoryRecord, error) {
	var r storage.HistoryRow
	if err := row.Scan(
		&r.ID, &r.RoomID, &r.GameNumber, &r.BlackPlayerID, &r.WhitePlayerID, &r.WinnerID,
		&r.Winner, &r.EndReason, &r.TotalMoves, &r.BoardJSON, &r.ActionsJSON, &r.StartedAt, &r.EndedAt,
	); err != nil {
		return models.HistoryRecord{}, err
	}
	return r.Decode()
}
