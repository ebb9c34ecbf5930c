package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"gomoku/internal/api"
	"gomoku/internal/broadcast"
	"gomoku/internal/config"
	"gomoku/internal/game"
	"gomoku/internal/htmx"
	"gomoku/internal/platform/otel"
	"gomoku/internal/roomcache"
	"gomoku/internal/seed"
	"gomoku/internal/storage"
	"gomoku/internal/storage/memory"
	"gomoku/internal/storage/postgres"
	"gomoku/internal/storage/sqlite"
	"gomoku/internal/ws"

	"go.uber.org/zap"
)

const serviceName = "gomoku"

func main() {
	cfg, err := config.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := newLogger(cfg.LogDevelopment)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func newLogger(development bool) (*zap.Logger, error) {
	if development {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	shutdownTracing, err := otel.Setup(ctx, serviceName, otel.Settings{
		Endpoint: cfg.OTelEndpoint,
		Enabled:  cfg.OTelEnabled,
	})
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("flush traces", zap.Error(err))
		}
	}()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeQuietly(logger, "store", store)

	cache, err := openCache(ctx, cfg)
	if err != nil {
		return err
	}
	if c, ok := cache.(io.Closer); ok {
		defer closeQuietly(logger, "room cache", c)
	}

	// Initialize layers
	hub := broadcast.NewHub(logger.Named("broadcast"))
	engine, err := game.NewEngine(game.Config{
		BoardSize: cfg.BoardSize,
		RoomTTL:   cfg.RoomTTL,
	}, game.Dependencies{
		Rooms:     store,
		Sessions:  store,
		History:   store,
		Cache:     cache,
		Publisher: hub,
		Logger:    logger.Named("game"),
	})
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}

	if cfg.SeedRoom {
		room, err := seed.Room(ctx, store, cache, seed.Options{Players: cfg.SeedPlayers, TTL: cfg.RoomTTL}, time.Now())
		if err != nil {
			return fmt.Errorf("seed room: %w", err)
		}
		logger.Info("room seeded",
			zap.String("room_id", room.ID),
			zap.String("room_code", room.Code),
			zap.Strings("players", room.Players),
		)
	}

	// Setup routes
	mux := http.NewServeMux()
	api.NewHandler(engine, logger.Named("api")).RegisterRoutes(mux)
	ws.NewHandler(engine, hub, logger.Named("ws")).RegisterRoutes(mux)
	htmx.NewHandler(engine, hub, logger.Named("htmx")).RegisterRoutes(mux)
	if cfg.StaticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(cfg.StaticDir)))
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.CORSMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	// Shutdown does not wait on hijacked sockets or cancel streaming
	// handlers; closing the hub ends both.
	srv.RegisterOnShutdown(hub.Close)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("addr", cfg.HTTPAddr),
			zap.String("storage", cfg.StorageDriver),
			zap.Bool("redis", cfg.RedisURL != ""),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownWait)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		if !errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("shutdown: %w", err)
		}
		logger.Warn("shutdown timed out", zap.Duration("wait", cfg.ShutdownWait))
		_ = srv.Close()
	}
	return nil
}

func openStore(ctx context.Context, cfg config.Config) (storage.Store, error) {
	switch cfg.StorageDriver {
	case config.DriverPostgres:
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return store, nil
	case config.DriverMemory:
		return memory.NewStore(), nil
	default:
		if dir := filepath.Dir(cfg.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create data dir: %w", err)
			}
		}
		store, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		return store, nil
	}
}

func openCache(ctx context.Context, cfg config.Config) (roomcache.Cache, error) {
	if cfg.RedisURL == "" {
		return roomcache.NewMemory(time.Now), nil
	}
	cache, err := roomcache.NewRedis(ctx, cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("open redis: %w", err)
	}
	return cache, nil
}

func closeQuietly(logger *zap.Logger, name string, c io.Closer) {
	if err := c.Close(); err != nil {
		logger.Warn("close "+name, zap.Error(err))
	}
}
