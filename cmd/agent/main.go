package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pauljones0/gallery-price-sync/internal/agent"
	"github.com/pauljones0/gallery-price-sync/internal/annotator"
	"github.com/pauljones0/gallery-price-sync/internal/catalog"
	"github.com/pauljones0/gallery-price-sync/internal/config"
	"github.com/pauljones0/gallery-price-sync/internal/extractor"
	"github.com/pauljones0/gallery-price-sync/internal/notifier"
	"github.com/pauljones0/gallery-price-sync/internal/page"
	"github.com/pauljones0/gallery-price-sync/internal/processor"
	"github.com/pauljones0/gallery-price-sync/internal/reconciler"
	"github.com/pauljones0/gallery-price-sync/internal/watcher"
)

const shutdownTimeout = 30 * time.Second

func main() {
	snapshot := flag.String("snapshot", "", "run one pass against a saved gallery HTML file instead of a browser")
	out := flag.String("out", "", "write the annotated snapshot here (default stdout)")
	flag.Parse()

	slog.Info("Starting gallery price sync agent...")
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Critical error loading configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	selectors := extractor.LoadConfig(cfg.SelectorsConfigPath)
	client := catalog.NewClient(cfg.CatalogBaseURL, cfg.CatalogAPIKey, cfg.CatalogRateLimit)
	n := notifier.New(cfg.DiscordWebhookURL)
	opts := processor.Options{
		MarketplaceBaseURL: cfg.MarketplaceBaseURL,
		AffiliateTag:       cfg.MarketplaceAffiliateTag,
	}

	if *snapshot != "" {
		if err := runSnapshot(ctx, cfg, selectors, client, n, opts, *snapshot, *out); err != nil {
			slog.Error("Snapshot pass failed", "error", err)
			os.Exit(1)
		}
		return
	}

	if err := run(ctx, cfg, selectors, client, n, opts); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("Agent stopped with error", "error", err)
		os.Exit(1)
	}
	slog.Info("Agent stopped.")
}

func run(ctx context.Context, cfg *config.Config, selectors extractor.SelectorConfig, client *catalog.Client, n *notifier.Client, opts processor.Options) error {
	chrome, err := page.NewChrome(ctx, page.ChromeOptions{Headless: cfg.Headless, Selectors: selectors})
	if err != nil {
		return err
	}
	defer chrome.Close()

	if err := chrome.Navigate(ctx, cfg.GalleryURL); err != nil {
		return fmt.Errorf("failed to open gallery: %w", err)
	}

	engine := processor.New(client, annotator.New(chrome), reconciler.New(chrome, cfg.ControlPolicy), n, opts)
	w := watcher.New(cfg.QuietPeriod)
	defer w.Stop()
	a := agent.New(chrome, engine, extractor.New(selectors), w)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      agent.ControlHandler(w, engine.Cache(), client),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.Run(gctx)
	})
	g.Go(func() error {
		slog.Info("Control endpoint listening", "port", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("control endpoint: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// runSnapshot syncs a saved gallery page and writes the annotated HTML.
func runSnapshot(ctx context.Context, cfg *config.Config, selectors extractor.SelectorConfig, client *catalog.Client, n *notifier.Client, opts processor.Options, path, out string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	doc, err := page.NewDocument(f, selectors)
	f.Close()
	if err != nil {
		return err
	}

	engine := processor.New(client, annotator.New(doc), reconciler.New(doc, cfg.ControlPolicy), n, opts)
	a := agent.New(doc, engine, extractor.New(selectors), watcher.New(cfg.QuietPeriod))
	if _, err := a.SyncOnce(ctx); err != nil {
		return err
	}

	html, err := doc.HTML(ctx)
	if err != nil {
		return err
	}
	if out == "" {
		_, err = fmt.Fprintln(os.Stdout, html)
		return err
	}
	if err := os.WriteFile(out, []byte(html), 0o644); err != nil {
		return err
	}
	slog.Info("Annotated snapshot written", "path", out)
	return nil
}
