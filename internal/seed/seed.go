// Package seed registers rooms directly in the room directory and the room
// code cache for local play and tests.
package seed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"gomoku/internal/models"
	"gomoku/internal/platform/random"
	"gomoku/internal/roomcache"
	"gomoku/internal/storage"
)

// CodeLength is the length of generated room codes.
const CodeLength = 6

// Options describes a room to register. Empty ID and Code are generated.
type Options struct {
	ID      string
	Code    string
	Type    models.RoomType
	Players []string
	TTL     time.Duration
}

// Room stores a WAITING room and makes its code live. Listed players are
// recorded in the cache so the first action can seat both of them.
func Room(ctx context.Context, rooms storage.RoomDirectory, cache roomcache.Cache, opts Options, now time.Time) (models.Room, error) {
	room := models.Room{
		ID:        strings.TrimSpace(opts.ID),
		Code:      strings.TrimSpace(opts.Code),
		Status:    models.RoomWaiting,
		Type:      opts.Type,
		CreatedAt: now,
		UpdatedAt: now,
	}
	switch room.Type {
	case "":
		room.Type = models.RoomCasual
	case models.RoomCasual, models.RoomRanked, models.RoomPrivate:
	default:
		return models.Room{}, fmt.Errorf("unknown room type %q", opts.Type)
	}
	for _, p := range opts.Players {
		if p = strings.TrimSpace(p); p != "" {
			room.Players = append(room.Players, p)
		}
	}
	if len(room.Players) > 2 {
		return models.Room{}, fmt.Errorf("a room seats two players, got %d", len(room.Players))
	}
	if room.ID == "" {
		room.ID = uuid.NewString()
	}
	if room.Code == "" {
		code, err := random.NewRoomCode(CodeLength)
		if err != nil {
			return models.Room{}, err
		}
		room.Code = code
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = roomcache.DefaultTTL
	}

	if err := rooms.CreateRoom(ctx, room); err != nil {
		return models.Room{}, fmt.Errorf("create room %s: %w", room.ID, err)
	}
	if err := cache.CreateRoomCode(ctx, room.Code, ttl); err != nil {
		return models.Room{}, fmt.Errorf("create room code: %w", err)
	}
	for _, p := range room.Players {
		if err := cache.AddPlayer(ctx, room.Code, p); err != nil {
			return models.Room{}, fmt.Errorf("add room player: %w", err)
		}
	}
	return room, nil
}
