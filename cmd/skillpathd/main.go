package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skillpath/skillpath/internal/api"
	"github.com/skillpath/skillpath/internal/auth"
	"github.com/skillpath/skillpath/internal/config"
	"github.com/skillpath/skillpath/internal/events"
	"github.com/skillpath/skillpath/internal/queue"
	"github.com/skillpath/skillpath/internal/storage/sqlite"
)

func main() {
	if err := run(); err != nil {
		slog.Error("daemon error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	setupLogging(cfg.Debug)

	repo, ready, cleanup, err := openRepository(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	bus := events.NewBus()
	service := auth.NewService(repo, bus, time.Duration(cfg.SessionMaxAge)*time.Second)

	// Optional fan-out of session events to other instances
	if cfg.AMQPEnabled {
		conn, err := queue.NewConnection(cfg.AMQPURL)
		if err != nil {
			return fmt.Errorf("connect to AMQP: %w", err)
		}
		defer conn.Close()

		publisher := queue.NewPublisher(conn, bus)
		if err := publisher.Start(context.Background()); err != nil {
			return fmt.Errorf("start event publisher: %w", err)
		}
		defer publisher.Stop()
	}

	// Expired sessions are swept in the background
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go sweepSessions(sweepCtx, service)

	handler := api.NewRouter(cfg, service, bus, ready)
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // SSE streams stay open
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh

		slog.Info("received signal, shutting down", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
		close(done)
	}()

	slog.Info("daemon listening", "port", cfg.Port, "backend", cfg.StorageBackend)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	<-done
	slog.Info("daemon stopped")
	return nil
}

// openRepository selects the storage backend from configuration.
func openRepository(cfg *config.Config) (auth.Repository, api.ReadyCheck, func(), error) {
	switch cfg.StorageBackend {
	case "postgres":
		pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		return auth.NewPostgresRepository(pool), pool.Ping, func() { pool.Close() }, nil

	default:
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		if err := db.Migrate(); err != nil {
			db.Close()
			return nil, nil, nil, fmt.Errorf("migrate: %w", err)
		}
		return sqlite.NewStore(db), db.PingContext, func() { db.Close() }, nil
	}
}

func sweepSessions(ctx context.Context, service *auth.Service) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := service.CleanupExpiredSessions(ctx); err != nil {
				slog.Warn("expired session sweep failed", "error", err)
			}
		}
	}
}

func setupLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	var handler slog.Handler
	if debug {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(handler))
}
