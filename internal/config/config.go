// Package config parses server configuration from the environment and flags.
package config

import (
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	platformconfig "gomoku/internal/platform/config"
)

// Storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds server configuration.
type Config struct {
	HTTPAddr       string        `env:"GOMOKU_HTTP_ADDR" envDefault:":8080"`
	StaticDir      string        `env:"GOMOKU_STATIC_DIR" envDefault:"web"`
	StorageDriver  string        `env:"GOMOKU_STORAGE_DRIVER" envDefault:"sqlite"`
	SQLitePath     string        `env:"GOMOKU_SQLITE_PATH" envDefault:"data/gomoku.db"`
	PostgresDSN    string        `env:"GOMOKU_POSTGRES_DSN"`
	RedisURL       string        `env:"GOMOKU_REDIS_URL"`
	RoomTTL        time.Duration `env:"GOMOKU_ROOM_TTL" envDefault:"20m"`
	BoardSize      int           `env:"GOMOKU_BOARD_SIZE" envDefault:"15"`
	LogDevelopment bool          `env:"GOMOKU_LOG_DEVELOPMENT"`
	OTelEndpoint   string        `env:"GOMOKU_OTEL_ENDPOINT"`
	OTelEnabled    bool          `env:"GOMOKU_OTEL_ENABLED"`
	ShutdownWait   time.Duration `env:"GOMOKU_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	SeedRoom       bool          `env:"GOMOKU_SEED_ROOM"`
	SeedPlayers    []string      `env:"GOMOKU_SEED_PLAYERS" envSeparator:","`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := platformconfig.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.HTTPAddr, "addr", cfg.HTTPAddr, "HTTP listen address")
	fs.StringVar(&cfg.StaticDir, "static", cfg.StaticDir, "Directory of static web assets (empty disables)")
	fs.StringVar(&cfg.StorageDriver, "storage", cfg.StorageDriver, "Storage driver: sqlite, postgres or memory")
	fs.StringVar(&cfg.SQLitePath, "sqlite-path", cfg.SQLitePath, "SQLite database path")
	fs.StringVar(&cfg.PostgresDSN, "postgres-dsn", cfg.PostgresDSN, "PostgreSQL connection string")
	fs.StringVar(&cfg.RedisURL, "redis-url", cfg.RedisURL, "Redis URL for the room code cache (empty uses memory)")
	fs.DurationVar(&cfg.RoomTTL, "room-ttl", cfg.RoomTTL, "Room code lifetime without activity")
	fs.IntVar(&cfg.BoardSize, "board-size", cfg.BoardSize, "Board dimension")
	fs.BoolVar(&cfg.LogDevelopment, "dev", cfg.LogDevelopment, "Use the development logger")
	fs.BoolVar(&cfg.SeedRoom, "seed-room", cfg.SeedRoom, "Register a playable room at startup and log its id")
	if err := fs.Parse(args); err != nil {
		return Config{}, fmt.Errorf("parse flags: %w", err)
	}
	cfg.StorageDriver = strings.ToLower(strings.TrimSpace(cfg.StorageDriver))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first inconsistent setting.
func (c Config) Validate() error {
	switch c.StorageDriver {
	case DriverSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return errors.New("sqlite path is required")
		}
	case DriverPostgres:
		if strings.TrimSpace(c.PostgresDSN) == "" {
			return errors.New("postgres dsn is required")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown storage driver %q", c.StorageDriver)
	}
	if c.BoardSize < 5 {
		return fmt.Errorf("board size must be at least 5, got %d", c.BoardSize)
	}
	if c.RoomTTL <= 0 {
		return fmt.Errorf("room ttl must be positive, got %s", c.RoomTTL)
	}
	if len(c.SeedPlayers) > 2 {
		return fmt.Errorf("at most two seed players, got %d", len(c.SeedPlayers))
	}
	if c.ShutdownWait <= 0 {
		return fmt.Errorf("shutdown timeout must be positive, got %s", c.ShutdownWait)
	}
	return nil
}
