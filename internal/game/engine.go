// Package game runs the per-room Gomoku state machine: it validates player
// actions, applies them and persists the result under optimistic versioning.
package game

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"gomoku/internal/models"
	apperrors "gomoku/internal/platform/errors"
	"gomoku/internal/platform/random"
	"gomoku/internal/roomcache"
	"gomoku/internal/storage"
)

const tracerName = "gomoku/internal/game"

// Publisher receives the snapshot of every committed action.
type Publisher interface {
	Publish(roomID string, snapshot models.Snapshot)
}

// Config holds immutable engine settings.
type Config struct {
	BoardSize int
	RoomTTL   time.Duration
}

// Dependencies are the collaborators of an Engine. Publisher, Logger, Clock
// and CoinFlip are optional.
type Dependencies struct {
	Rooms     storage.RoomDirectory
	Sessions  storage.SessionStore
	History   storage.HistoryStore
	Cache     roomcache.Cache
	Publisher Publisher
	Logger    *zap.Logger
	Clock     func() time.Time
	// CoinFlip decides seat assignment for new sessions.
	CoinFlip func() bool
}

// Engine is stateless between calls; every call loads, mutates a copy, and
// writes back with a version check.
type Engine struct {
	cfg       Config
	rooms     storage.RoomDirectory
	sessions  storage.SessionStore
	history   storage.HistoryStore
	cache     roomcache.Cache
	publisher Publisher
	logger    *zap.Logger
	clock     func() time.Time
	coin      func() bool
	tracer    trace.Tracer
}

// NewEngine validates deps and applies defaults.
func NewEngine(cfg Config, deps Dependencies) (*Engine, error) {
	switch {
	case deps.Rooms == nil:
		return nil, fmt.Errorf("room directory is required")
	case deps.Sessions == nil:
		return nil, fmt.Errorf("session store is required")
	case deps.History == nil:
		return nil, fmt.Errorf("history store is required")
	case deps.Cache == nil:
		return nil, fmt.Errorf("room code cache is required")
	}
	if cfg.BoardSize <= 0 {
		cfg.BoardSize = models.DefaultBoardSize
	}
	if cfg.RoomTTL <= 0 {
		cfg.RoomTTL = roomcache.DefaultTTL
	}
	e := &Engine{
		cfg:       cfg,
		rooms:     deps.Rooms,
		sessions:  deps.Sessions,
		history:   deps.History,
		cache:     deps.Cache,
		publisher: deps.Publisher,
		logger:    deps.Logger,
		clock:     deps.Clock,
		coin:      deps.CoinFlip,
		tracer:    otel.Tracer(tracerName),
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	if e.clock == nil {
		e.clock = time.Now
	}
	if e.coin == nil {
		seed, err := random.NewSeed()
		if err != nil {
			return nil, err
		}
		e.coin = random.NewCoinFlip(seed)
	}
	return e, nil
}

// ExecuteAction validates and applies one player action and returns the new snapshot.
func (e *Engine) ExecuteAction(ctx context.Context, roomID, playerID string, req models.ActionRequest) (models.Snapshot, error) {
	ctx, span := e.tracer.Start(ctx, "game.ExecuteAction", trace.WithAttributes(
		attribute.String("room.id", roomID),
		attribute.String("player.id", playerID),
		attribute.String("action.type", string(req.Type)),
	))
	defer span.End()

	snap, err := e.execute(ctx, roomID, playerID, req)
	if err != nil {
		e.fail(span, err, "execute action",
			zap.String("room_id", roomID),
			zap.String("player_id", playerID),
			zap.String("action", string(req.Type)),
		)
		return models.Snapshot{}, err
	}
	span.SetAttributes(attribute.Int64("session.version", snap.Version))
	return snap, nil
}

// GetState returns the current snapshot. Anyone may read a WAITING session;
// afterwards only seated players may.
func (e *Engine) GetState(ctx context.Context, roomID, playerID string) (models.Snapshot, error) {
	ctx, span := e.tracer.Start(ctx, "game.GetState", trace.WithAttributes(
		attribute.String("room.id", roomID),
		attribute.String("player.id", playerID),
	))
	defer span.End()

	session, err := e.sessions.GetSession(ctx, roomID)
	if err != nil {
		err = storageError(err, "load session")
		e.fail(span, err, "get state", zap.String("room_id", roomID))
		return models.Snapshot{}, err
	}
	snap := session.Snapshot()
	if !snap.VisibleTo(playerID) {
		err := invalid("player is not in this game")
		e.fail(span, err, "get state", zap.String("room_id", roomID), zap.String("player_id", playerID))
		return models.Snapshot{}, err
	}
	return snap, nil
}

// ListHistory returns the archived games of a room ordered by game number.
func (e *Engine) ListHistory(ctx context.Context, roomID string) ([]models.HistoryRecord, error) {
	records, err := e.history.ListHistory(ctx, roomID)
	if err != nil {
		return nil, storageError(err, "list history")
	}
	return records, nil
}

// GetHistory returns one archived game.
func (e *Engine) GetHistory(ctx context.Context, roomID string, gameNumber int) (models.HistoryRecord, error) {
	record, err := e.history.GetHistory(ctx, roomID, gameNumber)
	if err != nil {
		return models.HistoryRecord{}, storageError(err, "get history")
	}
	return record, nil
}

func (e *Engine) execute(ctx context.Context, roomID, playerID string, req models.ActionRequest) (models.Snapshot, error) {
	if strings.TrimSpace(playerID) == "" {
		return models.Snapshot{}, invalid("player id is required")
	}
	room, err := e.findRoom(ctx, roomID)
	if err != nil {
		return models.Snapshot{}, err
	}
	c := &check{room: room, playerID: playerID, request: req}

	if req.Type == models.ActionSurrender {
		return e.surrender(ctx, c)
	}

	if room != nil && room.Code != "" {
		live, err := e.cache.Exists(ctx, room.Code)
		if err != nil {
			return models.Snapshot{}, apperrors.Wrap(apperrors.CodeUnknown, "check room code", err)
		}
		c.codeLive = live
	}
	if err := runRules(c, roomRules); err != nil {
		return models.Snapshot{}, err
	}
	e.refreshTTL(ctx, room.Code)

	session, err := e.loadOrCreate(ctx, *room, playerID)
	if err != nil {
		return models.Snapshot{}, err
	}
	c.session = session
	c.color = seatFor(session, playerID)
	if err := runRules(c, actionRules); err != nil {
		return models.Snapshot{}, err
	}
	return e.commit(ctx, c)
}

// surrender skips the rule chain: the actor must be seated and the game not over.
func (e *Engine) surrender(ctx context.Context, c *check) (models.Snapshot, error) {
	if err := roomExists(c); err != nil {
		return models.Snapshot{}, err
	}
	session, err := e.sessions.GetSession(ctx, c.room.ID)
	if err != nil {
		return models.Snapshot{}, storageError(err, "load session")
	}
	c.session = session
	c.color = session.ColorOf(c.playerID)
	if c.color == models.NoColor {
		return models.Snapshot{}, invalid("player is not in this game")
	}
	if session.Status == models.StatusFinished {
		return models.Snapshot{}, invalid("game is finished")
	}
	return e.commit(ctx, c)
}

func (e *Engine) commit(ctx context.Context, c *check) (models.Snapshot, error) {
	now := e.clock()
	action := models.Action{
		Type:      c.request.Type,
		PlayerID:  c.playerID,
		Color:     c.color,
		Timestamp: now,
	}
	if c.request.Position != nil {
		p := *c.request.Position
		action.Position = &p
	}

	next, record, err := Apply(c.session, action, now)
	if err != nil {
		return models.Snapshot{}, err
	}
	next.Version = c.session.Version + 1
	if err := e.sessions.UpdateSession(ctx, next, c.session.Version, record); err != nil {
		return models.Snapshot{}, storageError(err, "save session")
	}

	e.logger.Debug("action applied",
		zap.String("room_id", next.RoomID),
		zap.String("player_id", c.playerID),
		zap.String("action", string(action.Type)),
		zap.String("status", string(next.Status)),
		zap.Int64("version", next.Version),
	)
	if record != nil {
		e.logger.Info("game archived",
			zap.String("room_id", record.RoomID),
			zap.Int("game_number", record.GameNumber),
			zap.String("end_reason", string(record.EndReason)),
			zap.Duration("duration", record.Duration()),
		)
	}
	e.afterCommit(ctx, c, next)

	snap := next.Snapshot()
	if e.publisher != nil {
		e.publisher.Publish(next.RoomID, snap)
	}
	return snap, nil
}

// loadOrCreate returns the room's session, creating it on first use. Losing
// the creation race falls back to one re-read.
func (e *Engine) loadOrCreate(ctx context.Context, room models.Room, playerID string) (models.Session, error) {
	session, err := e.sessions.GetSession(ctx, room.ID)
	if err == nil {
		return session, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return models.Session{}, apperrors.Wrap(apperrors.CodeUnknown, "load session", err)
	}

	fresh := e.newSession(ctx, room, playerID)
	err = e.sessions.CreateSession(ctx, fresh)
	switch {
	case err == nil:
		e.logger.Info("session created",
			zap.String("room_id", room.ID),
			zap.String("black_player_id", fresh.BlackPlayerID),
			zap.String("white_player_id", fresh.WhitePlayerID),
		)
		return fresh, nil
	case errors.Is(err, storage.ErrAlreadyExists):
		e.logger.Debug("session creation race lost", zap.String("room_id", room.ID))
	default:
		return models.Session{}, apperrors.Wrap(apperrors.CodeUnknown, "create session", err)
	}

	session, err = e.sessions.GetSession(ctx, room.ID)
	switch {
	case err == nil:
		return session, nil
	case errors.Is(err, storage.ErrNotFound):
		return models.Session{}, apperrors.WithMetadata(apperrors.CodeUnknown,
			"session missing after creation conflict", map[string]string{"room_id": room.ID})
	default:
		return models.Session{}, apperrors.Wrap(apperrors.CodeUnknown, "reload session", err)
	}
}

// newSession seats the room's two participants in random order, or the actor
// alone in a random seat.
func (e *Engine) newSession(ctx context.Context, room models.Room, playerID string) models.Session {
	s := models.NewSession(room.ID, e.cfg.BoardSize, e.clock())
	players := participants(room.Players)
	if len(players) < 2 && room.Code != "" {
		cached, err := e.cache.Players(ctx, room.Code)
		if err != nil {
			e.logger.Warn("read room players", zap.String("room_id", room.ID), zap.Error(err))
		} else {
			players = participants(append(players, cached...))
		}
	}

	if len(players) >= 2 {
		black, white := players[0], players[1]
		if e.coin() {
			black, white = white, black
		}
		s.BlackPlayerID, s.WhitePlayerID = black, white
		return s
	}
	if e.coin() {
		s.BlackPlayerID = playerID
	} else {
		s.WhitePlayerID = playerID
	}
	return s
}

func (e *Engine) afterCommit(ctx context.Context, c *check, next models.Session) {
	prev := c.session
	if c.room == nil {
		return
	}
	if c.room.Code != "" && c.request.Type == models.ActionReady {
		if err := e.cache.AddPlayer(ctx, c.room.Code, c.playerID); err != nil {
			e.logger.Warn("record room player", zap.String("room_id", c.room.ID), zap.Error(err))
		}
	}

	var status models.RoomStatus
	switch {
	case c.request.Type == models.ActionRestartAgree:
		status = models.RoomMatched
	case prev.Status != models.StatusPlaying && next.Status == models.StatusPlaying:
		status = models.RoomPlaying
	case prev.Status != models.StatusFinished && next.Status == models.StatusFinished:
		status = models.RoomFinished
	}
	if status == "" {
		return
	}
	if err := e.rooms.UpdateRoomStatus(ctx, c.room.ID, status); err != nil {
		e.logger.Warn("sync room status",
			zap.String("room_id", c.room.ID),
			zap.String("status", string(status)),
			zap.Error(err),
		)
	}
}

func (e *Engine) findRoom(ctx context.Context, roomID string) (*models.Room, error) {
	room, err := e.rooms.FindRoom(ctx, roomID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeUnknown, "find room", err)
	}
	return &room, nil
}

func (e *Engine) refreshTTL(ctx context.Context, code string) {
	if err := e.cache.UpdateTTL(ctx, code, e.cfg.RoomTTL); err != nil {
		e.logger.Warn("refresh room ttl", zap.String("room_code", code), zap.Error(err))
	}
}

func (e *Engine) fail(span trace.Span, err error, msg string, fields ...zap.Field) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	code := apperrors.CodeOf(err)
	fields = append(fields, zap.String("code", string(code)), zap.Error(err))
	if code == apperrors.CodeUnknown {
		e.logger.Error(msg, fields...)
		return
	}
	e.logger.Debug(msg, fields...)
}

// seatFor resolves the actor's color; unseated actors get the open seat
// while the session is WAITING.
func seatFor(s models.Session, playerID string) models.Color {
	if c := s.ColorOf(playerID); c != models.NoColor {
		return c
	}
	if s.Status == models.StatusWaiting {
		return s.OpenSeat()
	}
	return models.NoColor
}

func participants(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func storageError(err error, op string) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return apperrors.Wrap(apperrors.CodeNotFound, op, err)
	case errors.Is(err, storage.ErrConflict), errors.Is(err, storage.ErrAlreadyExists):
		return apperrors.Wrap(apperrors.CodeConflict, op+": session was modified concurrently", err)
	}
	return apperrors.Wrap(apperrors.CodeUnknown, op, err)
}
