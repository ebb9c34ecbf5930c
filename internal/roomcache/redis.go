package roomcache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis stores room codes as expiring redis keys.
type Redis struct {
	rdb *redis.Client
}

var _ Cache = (*Redis)(nil)

// NewRedis connects to the redis server at redisURL.
func NewRedis(ctx context.Context, redisURL string) (*Redis, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("redis url is required")
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Redis{rdb: rdb}, nil
}

// Close closes the client.
func (r *Redis) Close() error {
	if r == nil || r.rdb == nil {
		return nil
	}
	return r.rdb.Close()
}

func (r *Redis) Exists(ctx context.Context, code string) (bool, error) {
	n, err := r.rdb.Exists(ctx, roomKey(code)).Result()
	if err != nil {
		return false, fmt.Errorf("room code exists: %w", err)
	}
	return n > 0, nil
}

func (r *Redis) CreateRoomCode(ctx context.Context, code string, ttl time.Duration) error {
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, statusKey(code), statusWaiting, ttl)
		pipe.Set(ctx, roomKey(code), activeValue, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("create room code: %w", err)
	}
	return nil
}

func (r *Redis) UpdateTTL(ctx context.Context, code string, ttl time.Duration) error {
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Expire(ctx, roomKey(code), ttl)
		pipe.Expire(ctx, playersKey(code), ttl)
		pipe.Expire(ctx, statusKey(code), ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("update room ttl: %w", err)
	}
	return nil
}

func (r *Redis) AddPlayer(ctx context.Context, code, playerID string) error {
	ttl, err := r.rdb.TTL(ctx, roomKey(code)).Result()
	if err != nil {
		return fmt.Errorf("room ttl: %w", err)
	}
	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LRem(ctx, playersKey(code), 0, playerID)
		pipe.RPush(ctx, playersKey(code), playerID)
		if ttl > 0 {
			pipe.Expire(ctx, playersKey(code), ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("add room player: %w", err)
	}
	return nil
}

func (r *Redis) Players(ctx context.Context, code string) ([]string, error) {
	players, err := r.rdb.LRange(ctx, playersKey(code), 0, -1).Result()
	if err == redis.Nil {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("room players: %w", err)
	}
	return players, nil
}

func (r *Redis) DeleteRoom(ctx context.Context, code string) error {
	if err := r.rdb.Del(ctx, roomKey(code), playersKey(code), statusKey(code)).Err(); err != nil {
		return fmt.Errorf("delete room code: %w", err)
	}
	return nil
}
