package agent

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pauljones0/gallery-price-sync/internal/models"
)

// SyncRequester queues a sync pass without blocking.
type SyncRequester interface {
	Trigger()
}

// CacheSnapshotter returns the products of the latest pass.
type CacheSnapshotter interface {
	Snapshot() map[string]models.ProductRecord
}

// CatalogLister lists every product the catalog holds.
type CatalogLister interface {
	ListAll(ctx context.Context) (map[string]models.ProductRecord, error)
}

// ControlHandler serves the agent's local control endpoint.
func ControlHandler(sync SyncRequester, cache CacheSnapshotter, catalog CatalogLister) http.Handler {
	router := chi.NewRouter()
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	router.Post("/sync", func(w http.ResponseWriter, r *http.Request) {
		sync.Trigger()
		writeJSON(w, http.StatusAccepted, map[string]string{"message": "Sync pass queued."})
	})
	router.Get("/products", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("all") != "1" {
			writeJSON(w, http.StatusOK, map[string]any{"products": cache.Snapshot()})
			return
		}
		products, err := catalog.ListAll(r.Context())
		if err != nil {
			slog.Warn("Failed to list catalog", "error", err)
			writeJSON(w, http.StatusBadGateway, map[string]string{"message": "Catalog unavailable."})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"products": products})
	})
	return router
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed to write response", "error", err)
	}
}
