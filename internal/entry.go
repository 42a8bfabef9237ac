// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/mindadmin/internal/aggregate"
	"github.com/starford/mindadmin/internal/api"
	"github.com/starford/mindadmin/internal/audit"
	"github.com/starford/mindadmin/internal/export"
	"github.com/starford/mindadmin/internal/integrity"
	"github.com/starford/mindadmin/internal/mcpserver"
	"github.com/starford/mindadmin/internal/settings"
	"github.com/starford/mindadmin/internal/sse"
	"github.com/starford/mindadmin/internal/storage"
	"github.com/starford/mindadmin/internal/store"
	"github.com/starford/mindadmin/internal/watch"
)

// Run starts the admin server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("data_path", cfg.Data.Path),
		slog.String("audit_path", cfg.Audit.Path),
		slog.String("admin_email", cfg.Admin.Email),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure the data directory exists.
	if err := os.MkdirAll(cfg.Data.Path, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	st, coord, stats, exp, gate, err := buildCore(cfg, logger)
	if err != nil {
		return err
	}

	// Audit trail for destructive admin actions.
	auditLog, err := audit.Open(cfg.Audit.Path)
	if err != nil {
		return fmt.Errorf("init audit log: %w", err)
	}
	defer auditLog.Close()

	// Stamp stable ids onto posts that predate the id scheme. A failure here
	// only degrades single-post deletion, so it is logged, not fatal.
	if stamped, err := coord.EnsurePostIDs(); err != nil {
		logger.Warn("post id migration failed", slog.String("error", err.Error()))
	} else if stamped > 0 {
		logger.Info("post id migration complete", slog.Int("stamped", stamped))
	}

	// SSE broker for live dashboard refresh.
	broker := sse.NewBroker(2 * time.Second)

	// Build API router.
	apiRouter := api.NewRouter(st, coord, stats, exp, gate, auditLog,
		cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Watch the data directory so dashboards refresh on external writes.
	g.Go(func() error {
		if err := watch.Watch(gCtx, cfg.Data.Path, logger, func(collection string) {
			broker.PublishCollectionEvent(collection)
		}); err != nil {
			logger.Warn("watcher exited", slog.String("error", err.Error()))
		}
		return nil
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	broker.Close()
	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the read-only admin tools over stdio. Logs go to stderr
// because stdout carries the protocol stream.
func RunMCP(cfg *Config) error {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	if err := os.MkdirAll(cfg.Data.Path, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	st, _, stats, exp, _, err := buildCore(cfg, logger)
	if err != nil {
		return err
	}

	logger.Info("Starting MCP server on stdio", slog.String("data_path", cfg.Data.Path))
	return mcpserver.New(st, stats, exp).ServeStdio()
}

// buildCore wires the storage-backed services shared by both entrypoints.
func buildCore(cfg *Config, logger *slog.Logger) (*store.Store, *integrity.Coordinator, *aggregate.Aggregator, *export.Builder, *settings.Gate, error) {
	files, err := storage.NewFS(cfg.Data.Path)
	if err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("init storage: %w", err)
	}
	st := store.New(files, logger)
	coord := integrity.New(st, cfg.Admin.Email)
	stats := aggregate.New(st)
	exp := export.New(st)
	gate := settings.New(st)
	return st, coord, stats, exp, gate, nil
}
