package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gomoku/internal/models"
	"gomoku/internal/storage"
)

const sessionColumns = `room_id, black_player_id, white_player_id, black_ready, white_ready,
	status, board_size, board_json, current_turn, winner, end_reason, total_moves,
	history_json, last_action_json, draw_proposer, undo_proposer, restart_proposer,
	game_count, version, created_at, updated_at, started_at`

// GetSession returns the session of a room.
func (s *Store) GetSession(ctx context.Context, roomID string) (models.Session, error) {
	if err := s.ready(ctx); err != nil {
		return models.Session{}, err
	}
	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM game_sessions WHERE room_id = ?`, roomID)
	session, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Session{}, storage.ErrNotFound
		}
		return models.Session{}, fmt.Errorf("get session: %w", err)
	}
	return session, nil
}

// CreateSession inserts the first session of a room.
func (s *Store) CreateSession(ctx context.Context, session models.Session) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	row, err := storage.EncodeSession(session)
	if err != nil {
		return err
	}
	_, err = s.sqlDB.ExecContext(ctx,
		`INSERT INTO game_sessions (`+sessionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		row.RoomID, row.BlackPlayerID, row.WhitePlayerID, row.BlackReady, row.WhiteReady,
		row.Status, row.BoardSize, row.BoardJSON, row.CurrentTurn, row.Winner, row.EndReason, row.TotalMoves,
		row.HistoryJSON, row.LastActionJSON, row.DrawProposer, row.UndoProposer, row.RestartProposer,
		row.GameCount, row.Version, row.CreatedAt, row.UpdatedAt, row.StartedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// UpdateSession performs the versioned write, inserting archive in the same transaction.
func (s *Store) UpdateSession(ctx context.Context, session models.Session, expectedVersion int64, archive *models.HistoryRecord) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if session.Version != expectedVersion+1 {
		return storage.ErrConflict
	}
	row, err := storage.EncodeSession(session)
	if err != nil {
		return err
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin session update: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `UPDATE game_sessions SET
		black_player_id = ?, white_player_id = ?, black_ready = ?, white_ready = ?,
		status = ?, board_size = ?, board_json = ?, current_turn = ?, winner = ?, end_reason = ?,
		total_moves = ?, history_json = ?, last_action_json = ?, draw_proposer = ?,
		undo_proposer = ?, restart_proposer = ?, game_count = ?, version = ?,
		updated_at = ?, started_at = ?
		WHERE room_id = ? AND version = ?`,
		row.BlackPlayerID, row.WhitePlayerID, row.BlackReady, row.WhiteReady,
		row.Status, row.BoardSize, row.BoardJSON, row.CurrentTurn, row.Winner, row.EndReason,
		row.TotalMoves, row.HistoryJSON, row.LastActionJSON, row.DrawProposer,
		row.UndoProposer, row.RestartProposer, row.GameCount, row.Version,
		row.UpdatedAt, row.StartedAt,
		row.RoomID, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update session rows affected: %w", err)
	}
	if affected == 0 {
		return s.missingOrConflict(ctx, tx, row.RoomID)
	}

	if archive != nil {
		if err := insertHistory(ctx, tx, *archive); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit session update: %w", err)
	}
	return nil
}

func (s *Store) missingOrConflict(ctx context.Context, tx *sql.Tx, roomID string) error {
	var found int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM game_sessions WHERE room_id = ?`, roomID).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("check session: %w", err)
	}
	return storage.ErrConflict
}

func scanSession(row rowScanner) (models.Session, error) {
	var r storage.SessionRow
	if err := row.Scan(
		&r.RoomID, &r.BlackPlayerID, &r.WhitePlayerID, &r.BlackReady, &r.WhiteReady,
		&r.Status, &r.BoardSize, &r.BoardJSON, &r.CurrentTurn, &r.Winner, &r.EndReason, &r.TotalMoves,
		&r.HistoryJSON, &r.LastActionJSON, &r.DrawProposer, &r.UndoProposer, &r.RestartProposer,
		&r.GameCount, &r.Version, &r.CreatedAt, &r.UpdatedAt, &r.StartedAt,
	); err != nil {
		return models.Session{}, err
	}
	return r.Decode()
}
