package game

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gomoku/internal/models"
	apperrors "gomoku/internal/platform/errors"
	"gomoku/internal/roomcache"
	"gomoku/internal/storage"
	"gomoku/internal/storage/memory"
)

const (
	testRoom = "room-1"
	testCode = "CODE01"
)

type recordingPublisher struct {
	mu    sync.Mutex
	snaps []models.Snapshot
}

func (p *recordingPublisher) Publish(_ string, snap models.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snaps = append(p.snaps, snap)
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.snaps)
}

type fixture struct {
	engine *Engine
	store  *memory.Store
	cache  *roomcache.Memory
	pub    *recordingPublisher
	now    time.Time
}

type fixtureOption func(*Config, *Dependencies)

func withBoardSize(n int) fixtureOption {
	return func(cfg *Config, _ *Dependencies) { cfg.BoardSize = n }
}

func withSessions(wrap func(*memory.Store) storage.SessionStore) fixtureOption {
	return func(_ *Config, deps *Dependencies) { deps.Sessions = wrap(deps.Sessions.(*memory.Store)) }
}

func withRooms(wrap func(*memory.Store) storage.RoomDirectory) fixtureOption {
	return func(_ *Config, deps *Dependencies) { deps.Rooms = wrap(deps.Rooms.(*memory.Store)) }
}

// matchedSyncFails rejects the MATCHED transition a restart records.
type matchedSyncFails struct {
	storage.RoomDirectory
}

func (r matchedSyncFails) UpdateRoomStatus(ctx context.Context, roomID string, status models.RoomStatus) error {
	if status == models.RoomMatched {
		return errors.New("directory unavailable")
	}
	return r.RoomDirectory.UpdateRoomStatus(ctx, roomID, status)
}

// newFixture opens testRoom with the given participants. The coin always
// lands false, so the first participant plays black.
func newFixture(t *testing.T, players []string, opts ...fixtureOption) *fixture {
	t.Helper()

	f := &fixture{
		store: memory.NewStore(),
		pub:   &recordingPublisher{},
		now:   t0,
	}
	f.cache = roomcache.NewMemory(f.clock)
	ctx := context.Background()
	require.NoError(t, f.store.CreateRoom(ctx, models.Room{ID: testRoom, Code: testCode, Status: models.RoomWaiting, Players: players}))
	require.NoError(t, f.cache.CreateRoomCode(ctx, testCode, roomcache.DefaultTTL))

	cfg := Config{BoardSize: 15, RoomTTL: roomcache.DefaultTTL}
	deps := Dependencies{
		Rooms:     f.store,
		Sessions:  f.store,
		History:   f.store,
		Cache:     f.cache,
		Publisher: f.pub,
		Clock:     f.clock,
		CoinFlip:  func() bool { return false },
	}
	for _, opt := range opts {
		opt(&cfg, &deps)
	}
	engine, err := NewEngine(cfg, deps)
	require.NoError(t, err)
	f.engine = engine
	return f
}

func (f *fixture) clock() time.Time { return f.now }

func (f *fixture) do(player string, typ models.ActionType, pos ...int) (models.Snapshot, error) {
	req := models.ActionRequest{Type: typ}
	if len(pos) == 2 {
		req.Position = &models.Position{X: pos[0], Y: pos[1]}
	}
	return f.engine.ExecuteAction(context.Background(), testRoom, player, req)
}

func (f *fixture) must(t *testing.T, player string, typ models.ActionType, pos ...int) models.Snapshot {
	t.Helper()

	snap, err := f.do(player, typ, pos...)
	require.NoError(t, err, "%s %s", player, typ)
	return snap
}

func (f *fixture) session(t *testing.T) models.Session {
	t.Helper()

	s, err := f.store.GetSession(context.Background(), testRoom)
	require.NoError(t, err)
	return s
}

func (f *fixture) roomStatus(t *testing.T) models.RoomStatus {
	t.Helper()

	room, err := f.store.FindRoom(context.Background(), testRoom)
	require.NoError(t, err)
	return room.Status
}

// start seats alice as black and bob as white and readies both.
func (f *fixture) start(t *testing.T) models.Snapshot {
	t.Helper()

	f.must(t, "alice", models.ActionReady)
	return f.must(t, "bob", models.ActionReady)
}

func requireCode(t *testing.T, err error, code apperrors.Code) {
	t.Helper()

	require.Error(t, err)
	assert.Equal(t, code, apperrors.CodeOf(err), err.Error())
}

func TestNewEngineRequiresDependencies(t *testing.T) {
	t.Parallel()

	_, err := NewEngine(Config{}, Dependencies{})
	assert.Error(t, err)
}

func TestReadyStartsGame(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []string{"alice", "bob"})
	snap := f.must(t, "alice", models.ActionReady)
	assert.Equal(t, models.StatusWaiting, snap.Status)
	assert.Equal(t, "alice", snap.BlackPlayerID)
	assert.Equal(t, "bob", snap.WhitePlayerID)
	assert.True(t, snap.BlackReady)
	assert.Equal(t, int64(1), snap.Version)

	snap = f.must(t, "bob", models.ActionReady)
	assert.Equal(t, models.StatusPlaying, snap.Status)
	assert.Equal(t, models.Black, snap.CurrentTurn)
	assert.Equal(t, int64(2), snap.Version)
	assert.Equal(t, models.RoomPlaying, f.roomStatus(t))
	assert.Equal(t, 2, f.pub.count())
}

func TestCoinFlipSwapsParticipants(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []string{"alice", "bob"}, func(_ *Config, deps *Dependencies) {
		deps.CoinFlip = func() bool { return true }
	})
	snap := f.must(t, "alice", models.ActionReady)
	assert.Equal(t, "bob", snap.BlackPlayerID)
	assert.Equal(t, "alice", snap.WhitePlayerID)
	assert.True(t, snap.WhiteReady)
}

func TestDuplicateReadyIsRejected(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []string{"alice", "bob"})
	f.must(t, "alice", models.ActionReady)
	before := f.session(t)

	_, err := f.do("alice", models.ActionReady)
	requireCode(t, err, apperrors.CodeInvalidGameAction)
	assert.Equal(t, before, f.session(t))
}

func TestJoinOnAction(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	snap := f.must(t, "alice", models.ActionReady)
	assert.Equal(t, "alice", snap.WhitePlayerID, "coin false seats a lone actor as white")
	assert.Empty(t, snap.BlackPlayerID)

	snap = f.must(t, "bob", models.ActionReady)
	assert.Equal(t, "bob", snap.BlackPlayerID)
	assert.Equal(t, models.StatusPlaying, snap.Status)

	_, err := f.do("carol", models.ActionReady)
	requireCode(t, err, apperrors.CodeInvalidGameAction)

	players, err := f.cache.Players(context.Background(), testCode)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alice", "bob"}, players)
}

func TestThirdPlayerCannotJoinFullRoom(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []string{"alice", "bob"})
	f.must(t, "alice", models.ActionReady)

	_, err := f.do("carol", models.ActionReady)
	requireCode(t, err, apperrors.CodeInvalidGameAction)
}

func TestRoomChecks(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []string{"alice", "bob"})
	_, err := f.engine.ExecuteAction(context.Background(), "nope", "alice", models.ActionRequest{Type: models.ActionReady})
	requireCode(t, err, apperrors.CodeNotFound)

	_, err = f.do("", models.ActionReady)
	requireCode(t, err, apperrors.CodeInvalidGameAction)

	require.NoError(t, f.cache.DeleteRoom(context.Background(), testCode))
	_, err = f.do("alice", models.ActionReady)
	requireCode(t, err, apperrors.CodeInvalidGameAction)

	_, err = f.store.GetSession(context.Background(), testRoom)
	assert.ErrorIs(t, err, storage.ErrNotFound, "rejected actions create nothing")
}

func TestActionsRefreshRoomCode(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []string{"alice", "bob"})
	f.now = f.now.Add(15 * time.Minute)
	f.must(t, "alice", models.ActionReady)
	f.now = f.now.Add(15 * time.Minute)
	f.must(t, "bob", models.ActionReady)

	live, err := f.cache.Exists(context.Background(), testCode)
	require.NoError(t, err)
	assert.True(t, live)

	f.now = f.now.Add(roomcache.DefaultTTL)
	_, err = f.do("alice", models.ActionMove, 7, 7)
	requireCode(t, err, apperrors.CodeInvalidGameAction)
}

func TestMovesAlternateAndWin(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []string{"alice", "bob"})
	f.start(t)

	var snap models.Snapshot
	for i := 0; i < 5; i++ {
		snap = f.must(t, "alice", models.ActionMove, 7, 7+i)
		if i == 4 {
			break
		}
		assert.Equal(t, models.White, snap.CurrentTurn)
		assert.Equal(t, models.StatusPlaying, snap.Status)

		_, err := f.do("alice", models.ActionMove, 1, 1+i)
		requireCode(t, err, apperrors.CodeInvalidGameAction)

		snap = f.must(t, "bob", models.ActionMove, 0, i)
		assert.Equal(t, models.Black, snap.CurrentTurn)
	}

	assert.Equal(t, models.StatusFinished, snap.Status)
	assert.Equal(t, models.WinnerBlack, snap.Winner)
	assert.Equal(t, models.EndReasonWin, snap.EndReason)
	assert.Equal(t, 9, snap.TotalMoves)
	require.NotNil(t, snap.LastAction)
	assert.Equal(t, models.Position{X: 7, Y: 11}, *snap.LastAction.Position)
	assert.Equal(t, models.RoomFinished, f.roomStatus(t))

	_, err := f.do("bob", models.ActionMove, 3, 3)
	requireCode(t, err, apperrors.CodeInvalidGameAction)
}

func TestMoveOntoOccupiedCell(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []string{"alice", "bob"})
	f.start(t)
	f.must(t, "alice", models.ActionMove, 7, 7)
	before := f.session(t)

	_, err := f.do("bob", models.ActionMove, 7, 7)
	requireCode(t, err, apperrors.CodeInvalidGameAction)
	_, err = f.do("bob", models.ActionMove, 15, 0)
	requireCode(t, err, apperrors.CodeInvalidGameAction)
	assert.Equal(t, before, f.session(t))
}

func TestFullBoardIsDraw(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []string{"alice", "bob"}, withBoardSize(4))
	f.start(t)

	players := map[models.Color]string{models.Black: "alice", models.White: "bob"}
	turn := models.Black
	var snap models.Snapshot
	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			snap = f.must(t, players[turn], models.ActionMove, x, y)
			turn = turn.Opponent()
		}
	}
	assert.Equal(t, models.StatusFinished, snap.Status)
	assert.Equal(t, models.WinnerDraw, snap.Winner)
	assert.Equal(t, models.EndReasonDraw, snap.EndReason)
}

func TestUndoRevertsOneMoveWhenProposerMovedLast(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []string{"alice", "bob"})
	f.start(t)
	f.must(t, "alice", models.ActionMove, 7, 7)
	f.must(t, "bob", models.ActionMove, 8, 8)
	f.must(t, "alice", models.ActionMove, 7, 8)

	snap := f.must(t, "alice", models.ActionUndo)
	assert.Equal(t, models.Black, snap.UndoProposer)

	_, err := f.do("alice", models.ActionUndoAgree)
	requireCode(t, err, apperrors.CodeInvalidGameAction)

	snap = f.must(t, "bob", models.ActionUndoAgree)
	assert.Equal(t, 2, snap.TotalMoves)
	assert.Equal(t, models.Black, snap.CurrentTurn)
	assert.Equal(t, models.NoColor, snap.UndoProposer)
	assert.Equal(t, models.Empty, snap.Board.At(models.Position{X: 7, Y: 8}))
	assert.Equal(t, models.WhiteStone, snap.Board.At(models.Position{X: 8, Y: 8}))
	assert.Len(t, f.session(t).Moves(), 2)
}

func TestUndoRevertsTwoMovesWhenOpponentMovedLast(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []string{"alice", "bob"})
	f.start(t)
	f.must(t, "alice", models.ActionMove, 7, 7)
	f.must(t, "bob", models.ActionMove, 8, 8)

	f.must(t, "alice", models.ActionUndo)
	snap := f.must(t, "bob", models.ActionUndoAgree)
	assert.Equal(t, 0, snap.TotalMoves)
	assert.Equal(t, models.Black, snap.CurrentTurn)
	assert.Equal(t, models.Empty, snap.Board.At(models.Position{X: 7, Y: 7}))
	assert.Equal(t, models.Empty, snap.Board.At(models.Position{X: 8, Y: 8}))
	assert.Empty(t, f.session(t).Moves())
}

func TestUndoNeedsEnoughMoves(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []string{"alice", "bob"})
	f.start(t)

	_, err := f.do("alice", models.ActionUndo)
	requireCode(t, err, apperrors.CodeInvalidGameAction)

	f.must(t, "alice", models.ActionMove, 7, 7)
	_, err = f.do("bob", models.ActionUndo)
	requireCode(t, err, apperrors.CodeInvalidGameAction)
}

func TestUndoDisagreeKeepsBoard(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []string{"alice", "bob"})
	f.start(t)
	f.must(t, "alice", models.ActionMove, 7, 7)
	f.must(t, "alice", models.ActionUndo)

	snap := f.must(t, "bob", models.ActionUndoDisagree)
	assert.Equal(t, models.NoColor, snap.UndoProposer)
	assert.Equal(t, 1, snap.TotalMoves)
	assert.Equal(t, models.White, snap.CurrentTurn)
}

func TestDrawNegotiation(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []string{"alice", "bob"})
	f.start(t)
	f.must(t, "alice", models.ActionMove, 7, 7)

	snap := f.must(t, "alice", models.ActionDraw)
	assert.Equal(t, models.Black, snap.DrawProposer)

	_, err := f.do("alice", models.ActionDrawAgree)
	requireCode(t, err, apperrors.CodeInvalidGameAction)
	_, err = f.do("bob", models.ActionUndo)
	requireCode(t, err, apperrors.CodeInvalidGameAction)
	_, err = f.do("bob", models.ActionDraw)
	requireCode(t, err, apperrors.CodeInvalidGameAction)

	snap = f.must(t, "bob", models.ActionDrawDisagree)
	assert.Equal(t, models.NoColor, snap.DrawProposer)
	assert.Equal(t, models.StatusPlaying, snap.Status)

	f.must(t, "bob", models.ActionDraw)
	snap = f.must(t, "alice", models.ActionDrawAgree)
	assert.Equal(t, models.StatusFinished, snap.Status)
	assert.Equal(t, models.WinnerDraw, snap.Winner)
	assert.Equal(t, models.EndReasonDraw, snap.EndReason)
	assert.Equal(t, models.NoColor, snap.DrawProposer)
}

func TestMoveImplicitlyRejectsProposals(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []string{"alice", "bob"})
	f.start(t)
	f.must(t, "alice", models.ActionMove, 7, 7)

	f.must(t, "alice", models.ActionDraw)
	snap := f.must(t, "bob", models.ActionMove, 8, 8)
	assert.Equal(t, models.NoColor, snap.DrawProposer)
	assert.Equal(t, models.BlackStone, snap.Board.At(models.Position{X: 7, Y: 7}))

	f.must(t, "bob", models.ActionUndo)
	snap = f.must(t, "alice", models.ActionMove, 9, 9)
	assert.Equal(t, models.NoColor, snap.UndoProposer)
	assert.Equal(t, 3, snap.TotalMoves)
	assert.Equal(t, models.WhiteStone, snap.Board.At(models.Position{X: 8, Y: 8}))
}

func TestSurrender(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []string{"alice", "bob"})
	_, err := f.do("alice", models.ActionSurrender)
	requireCode(t, err, apperrors.CodeNotFound)

	f.start(t)
	_, err = f.do("carol", models.ActionSurrender)
	requireCode(t, err, apperrors.CodeInvalidGameAction)

	// surrender bypasses the room code check
	require.NoError(t, f.cache.DeleteRoom(context.Background(), testCode))
	snap := f.must(t, "bob", models.ActionSurrender)
	assert.Equal(t, models.StatusFinished, snap.Status)
	assert.Equal(t, models.WinnerBlack, snap.Winner)
	assert.Equal(t, models.EndReasonSurrender, snap.EndReason)
	assert.Equal(t, models.RoomFinished, f.roomStatus(t))

	_, err = f.do("alice", models.ActionSurrender)
	requireCode(t, err, apperrors.CodeInvalidGameAction)
}

func TestRestartAgreeArchivesAndSwaps(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []string{"alice", "bob"})
	f.start(t)
	f.must(t, "alice", models.ActionMove, 7, 7)
	f.must(t, "bob", models.ActionSurrender)

	snap := f.must(t, "bob", models.ActionRestart)
	assert.Equal(t, models.White, snap.RestartProposer)
	_, err := f.do("alice", models.ActionRestart)
	requireCode(t, err, apperrors.CodeInvalidGameAction)

	f.now = f.now.Add(time.Minute)
	snap = f.must(t, "alice", models.ActionRestartAgree)
	assert.Equal(t, models.StatusWaiting, snap.Status)
	assert.Equal(t, "bob", snap.BlackPlayerID)
	assert.Equal(t, "alice", snap.WhitePlayerID)
	assert.False(t, snap.BlackReady)
	assert.False(t, snap.WhiteReady)
	assert.Equal(t, models.WinnerNone, snap.Winner)
	assert.Equal(t, models.NoColor, snap.DrawProposer)
	assert.Equal(t, models.NoColor, snap.UndoProposer)
	assert.Equal(t, models.NoColor, snap.RestartProposer)
	assert.Equal(t, 0, snap.TotalMoves)
	assert.Equal(t, 2, snap.GameCount)
	assert.Equal(t, models.NewBoard(15), snap.Board)
	assert.Empty(t, f.session(t).ActionHistory)
	assert.Equal(t, models.RoomMatched, f.roomStatus(t))

	records, err := f.engine.ListHistory(context.Background(), testRoom)
	require.NoError(t, err)
	require.Len(t, records, 1)
	rec := records[0]
	assert.Equal(t, 1, rec.GameNumber)
	assert.Equal(t, "alice", rec.WinnerID)
	assert.Equal(t, models.WinnerBlack, rec.Winner)
	assert.Equal(t, models.EndReasonSurrender, rec.EndReason)
	assert.Equal(t, 1, rec.TotalMoves)
	assert.Equal(t, models.BlackStone, rec.Board.At(models.Position{X: 7, Y: 7}))
	assert.Equal(t, time.Minute, rec.Duration())

	// second game with colors swapped
	f.must(t, "bob", models.ActionReady)
	snap = f.must(t, "alice", models.ActionReady)
	assert.Equal(t, models.StatusPlaying, snap.Status)
	f.must(t, "bob", models.ActionMove, 0, 0)
	f.must(t, "alice", models.ActionDraw)
	f.must(t, "bob", models.ActionDrawAgree)
	f.must(t, "alice", models.ActionRestart)
	f.must(t, "bob", models.ActionRestartAgree)

	records, err = f.engine.ListHistory(context.Background(), testRoom)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 2, records[1].GameNumber)
	assert.Equal(t, models.EndReasonDraw, records[1].EndReason)
	assert.Empty(t, records[1].WinnerID)

	rec, err = f.engine.GetHistory(context.Background(), testRoom, 2)
	require.NoError(t, err)
	assert.Equal(t, "bob", rec.BlackPlayerID)

	_, err = f.engine.GetHistory(context.Background(), testRoom, 3)
	requireCode(t, err, apperrors.CodeNotFound)
}

func TestRestartDisagree(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []string{"alice", "bob"})
	f.start(t)
	f.must(t, "alice", models.ActionSurrender)
	f.must(t, "alice", models.ActionRestart)

	snap := f.must(t, "bob", models.ActionRestartDisagree)
	assert.Equal(t, models.StatusFinished, snap.Status)
	assert.Equal(t, 1, snap.GameCount)
	assert.Equal(t, models.NoColor, snap.RestartProposer)

	records, err := f.engine.ListHistory(context.Background(), testRoom)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestTimeoutIsRejected(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []string{"alice", "bob"})
	f.start(t)
	_, err := f.do("alice", models.ActionTimeout)
	requireCode(t, err, apperrors.CodeInvalidGameAction)
}

func TestGetState(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []string{"alice", "bob"})
	ctx := context.Background()
	_, err := f.engine.GetState(ctx, testRoom, "alice")
	requireCode(t, err, apperrors.CodeNotFound)

	f.must(t, "alice", models.ActionReady)
	snap, err := f.engine.GetState(ctx, testRoom, "carol")
	require.NoError(t, err, "anyone may watch a waiting room")
	assert.Equal(t, models.StatusWaiting, snap.Status)

	f.must(t, "bob", models.ActionReady)
	_, err = f.engine.GetState(ctx, testRoom, "carol")
	requireCode(t, err, apperrors.CodeInvalidGameAction)

	snap, err = f.engine.GetState(ctx, testRoom, "bob")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPlaying, snap.Status)
}

// racingStore reports no session on the first read while a rival creates it.
type racingStore struct {
	*memory.Store
	mu    sync.Mutex
	reads int
	rival func(ctx context.Context) error
}

func (s *racingStore) GetSession(ctx context.Context, roomID string) (models.Session, error) {
	s.mu.Lock()
	s.reads++
	first := s.reads == 1
	s.mu.Unlock()
	if first {
		if err := s.rival(ctx); err != nil {
			return models.Session{}, err
		}
		return models.Session{}, storage.ErrNotFound
	}
	return s.Store.GetSession(ctx, roomID)
}

func TestCreationRaceRecovers(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []string{"alice", "bob"}, withSessions(func(m *memory.Store) storage.SessionStore {
		return &racingStore{Store: m, rival: func(ctx context.Context) error {
			s := models.NewSession(testRoom, 15, t0)
			s.BlackPlayerID, s.WhitePlayerID = "bob", "alice"
			return m.CreateSession(ctx, s)
		}}
	}))

	snap := f.must(t, "alice", models.ActionReady)
	assert.Equal(t, "bob", snap.BlackPlayerID, "the rival's session wins")
	assert.True(t, snap.WhiteReady)
	assert.Equal(t, int64(1), snap.Version)
}

// vanishingStore never returns a session yet refuses every create.
type vanishingStore struct {
	*memory.Store
}

func (vanishingStore) GetSession(context.Context, string) (models.Session, error) {
	return models.Session{}, storage.ErrNotFound
}

func (vanishingStore) CreateSession(context.Context, models.Session) error {
	return storage.ErrAlreadyExists
}

func TestCreationRaceWithoutSessionIsFatal(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []string{"alice", "bob"}, withSessions(func(m *memory.Store) storage.SessionStore {
		return vanishingStore{Store: m}
	}))
	_, err := f.do("alice", models.ActionReady)
	requireCode(t, err, apperrors.CodeUnknown)
	assert.False(t, apperrors.CodeOf(err).Retryable())
}

// interferingStore lets a rival write land between the engine's read and write.
type interferingStore struct {
	*memory.Store
	once sync.Once
}

func (s *interferingStore) UpdateSession(ctx context.Context, session models.Session, expected int64, archive *models.HistoryRecord) error {
	s.once.Do(func() {
		current, err := s.Store.GetSession(ctx, session.RoomID)
		if err != nil {
			return
		}
		rival := current.Clone()
		rival.Version = expected + 1
		rival.WhiteReady = true
		_ = s.Store.UpdateSession(ctx, rival, expected, nil)
	})
	return s.Store.UpdateSession(ctx, session, expected, archive)
}

func TestConcurrentWriteSurfacesConflict(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []string{"alice", "bob"}, withSessions(func(m *memory.Store) storage.SessionStore {
		return &interferingStore{Store: m}
	}))

	_, err := f.do("alice", models.ActionReady)
	requireCode(t, err, apperrors.CodeConflict)
	assert.True(t, apperrors.CodeOf(err).Retryable())
	assert.Equal(t, 0, f.pub.count())

	s := f.session(t)
	assert.Equal(t, int64(1), s.Version)
	assert.False(t, s.BlackReady, "the losing write is not applied")
	assert.True(t, s.WhiteReady)

	snap := f.must(t, "alice", models.ActionReady)
	assert.Equal(t, int64(2), snap.Version, "a retry after reload succeeds")
}

func TestParallelWritersOneWinsPerVersion(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []string{"alice", "bob"})
	s := models.NewSession(testRoom, 15, t0)
	s.BlackPlayerID, s.WhitePlayerID = "alice", "bob"
	require.NoError(t, f.store.CreateSession(context.Background(), s))

	const writers = 12
	errs := make([]error, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.do("alice", models.ActionReady)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		code := apperrors.CodeOf(err)
		assert.Contains(t, []apperrors.Code{apperrors.CodeConflict, apperrors.CodeInvalidGameAction}, code)
	}
	assert.Equal(t, 1, wins)
	got := f.session(t)
	assert.Equal(t, int64(1), got.Version)
	assert.True(t, got.BlackReady)
}

func TestRestartSurvivesFailedStatusSync(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []string{"alice", "bob"}, withRooms(func(s *memory.Store) storage.RoomDirectory {
		return matchedSyncFails{s}
	}))
	f.start(t)
	f.must(t, "alice", models.ActionSurrender)
	f.must(t, "bob", models.ActionRestart)
	snap := f.must(t, "alice", models.ActionRestartAgree)
	assert.Equal(t, models.StatusWaiting, snap.Status)
	assert.Equal(t, models.RoomFinished, f.roomStatus(t), "matched sync was rejected")

	f.must(t, "bob", models.ActionReady)
	snap = f.must(t, "alice", models.ActionReady)
	assert.Equal(t, models.StatusPlaying, snap.Status)
	assert.Equal(t, models.RoomPlaying, f.roomStatus(t))
}
