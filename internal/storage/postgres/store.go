// Package postgres provides the PostgreSQL-backed game storage.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"gomoku/internal/models"
	"gomoku/internal/storage"
)

//go:embed schema.sql
var schema string

const uniqueViolation = "23505"

// DB wraps the connection pool.
type DB struct {
	Pool *pgxpool.Pool
}

// Store persists rooms, sessions and history in PostgreSQL.
type Store struct {
	db *DB
}

var _ storage.Store = (*Store)(nil)

// Open connects to dsn and ensures the schema exists.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: &DB{Pool: pool}}, nil
}

// Close releases the pool.
func (s *Store) Close() error {
	if s != nil && s.db != nil && s.db.Pool != nil {
		s.db.Pool.Close()
	}
	return nil
}

const sessionColumns = `room_id, black_player_id, white_player_id, black_ready, white_ready,
	status, board_size, board_json, current_turn, winner, end_reason, total_moves,
	history_json, last_action_json, draw_proposer, undo_proposer, restart_proposer,
	game_count, version, created_at, updated_at, started_at`

const historyColumns = `id, room_id, game_number, black_player_id, white_player_id, winner_id,
	winner, end_reason, total_moves, board_json, actions_json, started_at, ended_at`

func (s *Store) GetSession(ctx context.Context, roomID string) (models.Session, error) {
	var r storage.SessionRow
	err := s.db.Pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM game_sessions WHERE room_id = $1`, roomID,
	).Scan(
		&r.RoomID, &r.BlackPlayerID, &r.WhitePlayerID, &r.BlackReady, &r.WhiteReady,
		&r.Status, &r.BoardSize, &r.BoardJSON, &r.CurrentTurn, &r.Winner, &r.EndReason, &r.TotalMoves,
		&r.HistoryJSON, &r.LastActionJSON, &r.DrawProposer, &r.UndoProposer, &r.RestartProposer,
		&r.GameCount, &r.Version, &r.CreatedAt, &r.UpdatedAt, &r.StartedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Session{}, storage.ErrNotFound
		}
		return models.Session{}, fmt.Errorf("get session: %w", err)
	}
	return r.Decode()
}

func (s *Store) CreateSession(ctx context.Context, session models.Session) error {
	r, err := storage.EncodeSession(session)
	if err != nil {
		return err
	}
	_, err = s.db.Pool.Exec(ctx,
		`INSERT INTO game_sessions (`+sessionColumns+`) VALUES
		($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)`,
		r.RoomID, r.BlackPlayerID, r.WhitePlayerID, r.BlackReady, r.WhiteReady,
		r.Status, r.BoardSize, r.BoardJSON, r.CurrentTurn, r.Winner, r.EndReason, r.TotalMoves,
		r.HistoryJSON, r.LastActionJSON, r.DrawProposer, r.UndoProposer, r.RestartProposer,
		r.GameCount, r.Version, r.CreatedAt, r.UpdatedAt, r.StartedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (s *Store) UpdateSession(ctx context.Context, session models.Session, expectedVersion int64, archive *models.HistoryRecord) error {
	if session.Version != expectedVersion+1 {
		return storage.ErrConflict
	}
	r, err := storage.EncodeSession(session)
	if err != nil {
		return err
	}

	tx, err := s.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin session update: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `UPDATE game_sessions SET
		black_player_id = $1, white_player_id = $2, black_ready = $3, white_ready = $4,
		status = $5, board_size = $6, board_json = $7, current_turn = $8, winner = $9, end_reason = $10,
		total_moves = $11, history_json = $12, last_action_json = $13, draw_proposer = $14,
		undo_proposer = $15, restart_proposer = $16, game_count = $17, version = $18,
		updated_at = $19, started_at = $20
		WHERE room_id = $21 AND version = $22`,
		r.BlackPlayerID, r.WhitePlayerID, r.BlackReady, r.WhiteReady,
		r.Status, r.BoardSize, r.BoardJSON, r.CurrentTurn, r.Winner, r.EndReason,
		r.TotalMoves, r.HistoryJSON, r.LastActionJSON, r.DrawProposer,
		r.UndoProposer, r.RestartProposer, r.GameCount, r.Version,
		r.UpdatedAt, r.StartedAt,
		r.RoomID, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var found int
		err := tx.QueryRow(ctx, `SELECT 1 FROM game_sessions WHERE room_id = $1`, r.RoomID).Scan(&found)
		if errors.Is(err, pgx.ErrNoRows) {
			return storage.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("check session: %w", err)
		}
		return storage.ErrConflict
	}
	if archive != nil {
		if err := insertHistory(ctx, tx, *archive); err != nil {
			return err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit session update: %w", err)
	}
	return nil
}

type execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

func (s *Store) ArchiveGame(ctx context.Context, record models.HistoryRecord) error {
	return insertHistory(ctx, s.db.Pool, record)
}

func insertHistory(ctx context.Context, db execer, record models.HistoryRecord) error {
	r, err := storage.EncodeHistory(record)
	if err != nil {
		return err
	}
	_, err = db.Exec(ctx,
		`INSERT INTO game_history (`+historyColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		r.ID, r.RoomID, r.GameNumber, r.BlackPlayerID, r.WhitePlayerID, r.WinnerID,
		r.Winner, r.EndReason, r.TotalMoves, r.BoardJSON, r.ActionsJSON, r.StartedAt, r.EndedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("archive game: %w", err)
	}
	return nil
}

func (s *Store) ListHistory(ctx context.Context, roomID string) ([]models.HistoryRecord, error) {
	rows, err := s.db.Pool.Query(ctx,
		`SELECT `+historyColumns+` FROM game_history WHERE room_id = $1 ORDER BY game_number ASC`, roomID)
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

func (s *Store) GetHistory(ctx context.Context, roomID string, gameNumber int) (models.HistoryRecord, error) {
	rec, err := scanHistory(s.db.Pool.QueryRow(ctx,
		`SELECT `+historyColumns+` FROM game_history WHERE room_id = $1 AND game_number = $2`, roomID, gameNumber))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.HistoryRecord{}, storage.ErrNotFound
		}
		return models.HistoryRecord{}, fmt.Errorf("get history: %w", err)
	}
	return rec, nil
}

func scanHistory(row pgx.Row) (models.HistoryRecord, error) {
	var r storage.HistoryRow
	if err := row.Scan(
		&r.ID, &r.RoomID, &r.GameNumber, &r.BlackPlayerID, &r.WhitePlayerID, &r.WinnerID,
		&r.Winner, &r.EndReason, &r.TotalMoves, &r.BoardJSON, &r.ActionsJSON, &r.StartedAt, &r.EndedAt,
	); err != nil {
		return models.HistoryRecord{}, err
	}
	return r.Decode()
}

func (s *Store) CreateRoom(ctx context.Context, room models.Room) error {
	if room.CreatedAt.IsZero() {
		room.CreatedAt = time.Now().UTC()
	}
	if room.UpdatedAt.IsZero() {
		room.UpdatedAt = room.CreatedAt
	}
	r, err := storage.EncodeRoom(room)
	if err != nil {
		return err
	}
	_, err = s.db.Pool.Exec(ctx,
		`INSERT INTO rooms (id, code, status, room_type, players_json, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		r.ID, r.Code, r.Status, r.Type, r.PlayersJSON, r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("create room: %w", err)
	}
	return nil
}

func (s *Store) FindRoom(ctx context.Context, roomID string) (models.Room, error) {
	var r storage.RoomRow
	err := s.db.Pool.QueryRow(ctx,
		`SELECT id, code, status, room_type, players_json, created_at, updated_at FROM rooms WHERE id = $1`, roomID,
	).Scan(&r.ID, &r.Code, &r.Status, &r.Type, &r.PlayersJSON, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Room{}, storage.ErrNotFound
		}
		return models.Room{}, fmt.Errorf("find room: %w", err)
	}
	return r.Decode()
}

func (s *Store) UpdateRoomStatus(ctx context.Context, roomID string, status models.RoomStatus) error {
	tag, err := s.db.Pool.Exec(ctx,
		`UPDATE rooms SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), storage.ToMillis(time.Now()), roomID,
	)
	if err != nil {
		return fmt.Errorf("update room status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
