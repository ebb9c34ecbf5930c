// Package roomcache tracks room codes as TTL-backed liveness tokens.
package roomcache

import (
	"context"
	"time"
)

// DefaultTTL is how long a room code stays live without activity.
const DefaultTTL = 20 * time.Minute

// Cache is the room code store. A code that is not live means the room expired.
type Cache interface {
	Exists(ctx context.Context, code string) (bool, error)
	CreateRoomCode(ctx context.Context, code string, ttl time.Duration) error
	UpdateTTL(ctx context.Context, code string, ttl time.Duration) error
	AddPlayer(ctx context.Context, code, playerID string) error
	Players(ctx context.Context, code string) ([]string, error)
	DeleteRoom(ctx context.Context, code string) error
}

const (
	keyPrefix     = "room:"
	statusSuffix  = ":status"
	playersSuffix = ":players"

	statusWaiting = "waiting"
	activeValue   = "active"
)

func roomKey(code string) string    { return keyPrefix + code }
func statusKey(code string) string  { return keyPrefix + code + statusSuffix }
func playersKey(code string) string { return keyPrefix + code + playersSuffix }
