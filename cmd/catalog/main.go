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

	"golang.org/x/sync/errgroup"

	"github.com/pauljones0/gallery-price-sync/internal/api"
	"github.com/pauljones0/gallery-price-sync/internal/config"
	"github.com/pauljones0/gallery-price-sync/internal/storage"
)

type store interface {
	api.Store
	Close() error
}

func main() {
	slog.Info("Starting catalog service...")
	cfg, err := config.LoadCatalog()
	if err != nil {
		slog.Error("Critical error loading configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	s, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("Critical error initializing product store", "backend", cfg.Backend, "error", err)
		os.Exit(1)
	}
	defer s.Close()

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      api.NewServer(s, cfg.APIKey).Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Listening on port", "port", cfg.Port, "backend", cfg.Backend)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("failed to listen and serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("Catalog service stopped with error", "error", err)
		s.Close()
		os.Exit(1)
	}
	slog.Info("Server stopped.")
}

func openStore(ctx context.Context, cfg *config.CatalogConfig) (store, error) {
	switch cfg.Backend {
	case config.BackendFirestore:
		return storage.NewFirestore(ctx, cfg.ProjectID)
	case config.BackendPostgres:
		return storage.NewPostgres(ctx, cfg.DatabaseURL)
	default:
		return storage.NewMemory(), nil
	}
}
