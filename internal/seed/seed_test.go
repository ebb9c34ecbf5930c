package seed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gomoku/internal/models"
	"gomoku/internal/roomcache"
	"gomoku/internal/storage"
	"gomoku/internal/storage/memory"
)

func TestRoomGeneratesIdentity(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := memory.NewStore()
	cache := roomcache.NewMemory(func() time.Time { return now })

	room, err := Room(ctx, store, cache, Options{Players: []string{"alice", " "}}, now)
	require.NoError(t, err)
	assert.NotEmpty(t, room.ID)
	assert.Len(t, room.Code, CodeLength)
	assert.Equal(t, models.RoomCasual, room.Type)
	assert.Equal(t, []string{"alice"}, room.Players)

	stored, err := store.FindRoom(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoomWaiting, stored.Status)

	live, err := cache.Exists(ctx, room.Code)
	require.NoError(t, err)
	assert.True(t, live)
	players, err := cache.Players(ctx, room.Code)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, players)
}

func TestRoomKeepsGivenIdentity(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Now()
	store := memory.NewStore()
	cache := roomcache.NewMemory(time.Now)

	opts := Options{ID: "room-9", Code: "ABC123", Type: models.RoomRanked, Players: []string{"alice", "bob"}}
	room, err := Room(ctx, store, cache, opts, now)
	require.NoError(t, err)
	assert.Equal(t, "room-9", room.ID)
	assert.Equal(t, "ABC123", room.Code)

	_, err = Room(ctx, store, cache, opts, now)
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)
}

func TestRoomRejectsBadOptions(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	cache := roomcache.NewMemory(time.Now)

	_, err := Room(context.Background(), store, cache, Options{Type: "TOURNAMENT"}, time.Now())
	assert.Error(t, err)
	_, err = Room(context.Background(), store, cache, Options{Players: []string{"a", "b", "c"}}, time.Now())
	assert.Error(t, err)
}
