package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gefiproj/gefiproj/internal/api"
	"github.com/gefiproj/gefiproj/internal/auth"
	"github.com/gefiproj/gefiproj/internal/config"
	"github.com/gefiproj/gefiproj/internal/logging"
	"github.com/gefiproj/gefiproj/internal/session"
	"github.com/gefiproj/gefiproj/internal/web"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"api_url", cfg.API.BaseURL,
		"session_db", cfg.Session.DBPath,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	// Open the session store
	if dir := filepath.Dir(cfg.Session.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			slog.Error("failed to create session directory", "error", err)
			os.Exit(1)
		}
	}
	ctx := context.Background()
	store, err := session.Open(ctx, cfg.Session.DBPath)
	if err != nil {
		slog.Error("failed to open session store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	// Drop sessions that outlived their max age
	if n, err := store.PurgeOlderThan(ctx, time.Now().Add(-cfg.Session.MaxAge)); err != nil {
		slog.Warn("session purge failed", "error", err)
	} else if n > 0 {
		slog.Info("purged stale sessions", "count", n)
	}

	// Wire the auth layer against the backend
	authClient := api.NewAuthClient(cfg.API.BaseURL)
	manager := auth.NewManager(store, authClient, slog.Default())

	// Create server with config
	server := web.NewServer(cfg, manager, slog.Default())

	// Periodic purge of expired sessions, in the store and in memory
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-jobCtx.Done():
				return
			case <-ticker.C:
				if _, err := store.PurgeOlderThan(jobCtx, time.Now().Add(-cfg.Session.MaxAge)); err != nil {
					slog.Warn("session purge failed", "error", err)
				}
				server.PruneSessions(jobCtx)
			}
		}
	}()

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	// Start server (uses addr from config internally)
	if err := server.Start(); err != nil {
		slog.Info("server stopped", "error", err)
	}
}
