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
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/nisabo/internal/api"
	"github.com/starford/nisabo/internal/importer"
	"github.com/starford/nisabo/internal/noteservice"
	"github.com/starford/nisabo/internal/sse"
	"github.com/starford/nisabo/internal/store"
)

var errConfigRequired = errors.New("config is required")

// openArchive opens (and on first use creates) the configured archive.
func openArchive(cfg *Config, logger *slog.Logger) (*store.Store, error) {
	if dir := filepath.Dir(cfg.Archive.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create archive dir: %w", err)
		}
	}
	st, err := store.Open(cfg.Archive.Path,
		store.WithDriver(cfg.SQLite.Driver),
		store.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	return st, nil
}

// archiveOpener opens a fresh connection to the configured archive on
// every call. One-shot commands hand it to the importer and exporter so
// no idle foreground connection is held alongside the job's own.
func archiveOpener(cfg *Config, logger *slog.Logger) func() (store.NoteStore, error) {
	return func() (store.NoteStore, error) {
		st, err := openArchive(cfg, logger)
		if err != nil {
			return nil, err
		}
		return st, nil
	}
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := app.logger()

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("archive_path", cfg.Archive.Path),
		slog.String("sqlite_driver", cfg.SQLite.Driver),
		slog.String("inbox", cfg.Import.Inbox),
		slog.String("log_level", cfg.App.LogLevel.String()))

	st, err := openArchive(cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	svc := noteservice.NewService(st, broker, logger)
	imp := importer.New(func() (store.NoteStore, error) { return st.Reopen() }, logger)
	apiRouter := api.NewRouter(svc, imp, broker, cfg.Auth.AuthEnabled(), cfg.Auth.Token, logger)

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
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := st.Ping(r.Context()); err != nil {
			logger.Error("readiness check failed", slog.String("error", err.Error()))
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	g, gCtx := errgroup.WithContext(ctx)

	if cfg.Import.Inbox != "" {
		g.Go(func() error {
			return imp.Watch(gCtx, cfg.Import.Inbox, func(res *importer.Result) {
				for _, n := range res.Notes {
					broker.PublishNoteEvent(sse.NoteCreated, n.NoteID)
				}
			})
		})
	}

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
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group so the inbox watcher stops with the server.
var errShutdown = errors.New("shutdown")
