package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gomoku/internal/models"
	"gomoku/internal/storage"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	dsn := os.Getenv("GOMOKU_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("GOMOKU_TEST_POSTGRES_DSN not set")
	}
	store, err := Open(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOpenRequiresDSN(t *testing.T) {
	_, err := Open(context.Background(), " ")
	assert.Error(t, err)
}

func TestSessionLifecycle(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)
	roomID := uuid.NewString()

	session := models.NewSession(roomID, 15, now)
	session.BlackPlayerID = "alice"
	require.NoError(t, store.CreateSession(ctx, session))
	assert.ErrorIs(t, store.CreateSession(ctx, session), storage.ErrAlreadyExists)

	got, err := store.GetSession(ctx, roomID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.BlackPlayerID)
	assert.Equal(t, int64(0), got.Version)

	next := got.Clone()
	next.Version = 1
	next.WhitePlayerID = "bob"
	require.NoError(t, store.UpdateSession(ctx, next, 0, nil))

	stale := got.Clone()
	stale.Version = 1
	assert.ErrorIs(t, store.UpdateSession(ctx, stale, 0, nil), storage.ErrConflict)

	archive := models.ArchiveSession(next, 1, models.EndReasonDraw, now)
	reset := next.Clone()
	reset.Version = 2
	reset.GameCount = 2
	require.NoError(t, store.UpdateSession(ctx, reset, 1, &archive))

	list, err := store.ListHistory(ctx, roomID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, archive.ID, list[0].ID)

	_, err = store.GetHistory(ctx, roomID, 2)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRoomDirectory(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	roomID := uuid.NewString()

	require.NoError(t, store.CreateRoom(ctx, models.Room{ID: roomID, Code: "ZX81AB", Players: []string{"alice"}}))
	assert.ErrorIs(t, store.CreateRoom(ctx, models.Room{ID: roomID}), storage.ErrAlreadyExists)

	require.NoError(t, store.UpdateRoomStatus(ctx, roomID, models.RoomPlaying))
	room, err := store.FindRoom(ctx, roomID)
	require.NoError(t, err)
	assert.Equal(t, models.RoomPlaying, room.Status)
	assert.Equal(t, []string{"alice"}, room.Players)

	assert.ErrorIs(t, store.UpdateRoomStatus(ctx, uuid.NewString(), models.RoomPlaying), storage.ErrNotFound)
}
