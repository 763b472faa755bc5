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

	"github.com/sellis/critterdex/internal/api"
	"github.com/sellis/critterdex/internal/catalog"
	"github.com/sellis/critterdex/internal/deck"
	"github.com/sellis/critterdex/internal/dexservice"
	"github.com/sellis/critterdex/internal/mcpserver"
	"github.com/sellis/critterdex/internal/query"
	"github.com/sellis/critterdex/internal/sse"
	"github.com/sellis/critterdex/internal/storage"
)

// Run starts the application with the given options.
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
		slog.String("deck_path", cfg.Deck.Path),
		slog.String("catalog_base_url", cfg.Catalog.BaseURL),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Initialize the deck slot and store.
	slot, err := storage.NewFile(cfg.Deck.Path)
	if err != nil {
		return fmt.Errorf("init deck slot: %w", err)
	}
	store, err := deck.New(slot, cfg.Deck.MaxSize, logger)
	if err != nil {
		return fmt.Errorf("init deck store: %w", err)
	}

	// Initialize the catalog client with its response cache.
	cache, err := catalog.OpenCache(cfg.Catalog.CachePath, cfg.Catalog.CacheTTL())
	if err != nil {
		return fmt.Errorf("init catalog cache: %w", err)
	}
	defer cache.Close()

	client, err := catalog.NewClient(cfg.Catalog.BaseURL, cache, cfg.Catalog.PageSize, logger)
	if err != nil {
		return fmt.Errorf("init catalog client: %w", err)
	}

	svc := dexservice.NewService(client, store, query.DefaultPresets())

	// MCP stdio mode replaces the HTTP surface entirely.
	if app.mcp {
		logger.Info("Starting MCP server on stdio")
		return mcpserver.New(svc).ServeStdio()
	}

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	// Build API router.
	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker, broker, cfg.Catalog.SpriteDir)

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

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Watch the deck slot for external modification.
	g.Go(func() error {
		if err := deck.Watch(gCtx, store, slot, logger, func() {
			broker.PublishDeckEvent(sse.KindImported, 0)
		}); err != nil {
			logger.Warn("deck watcher exited", slog.String("error", err.Error()))
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

	logger.Info("Server stopped successfully")
	return nil
}
