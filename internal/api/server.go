// Package api serves the product catalog over HTTP.
package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pauljones0/gallery-price-sync/internal/models"
	"github.com/pauljones0/gallery-price-sync/internal/validator"
)

const maxBodyBytes = 1 << 20

// Store is the persistence the catalog service needs. Implementations return
// models.ErrProductNotFound and models.ErrProductExists for the matching cases.
type Store interface {
	List(ctx context.Context, ids []string) (map[string]models.ProductRecord, error)
	Get(ctx context.Context, id string) (models.ProductRecord, error)
	Create(ctx context.Context, p models.ProductRecord) (models.ProductRecord, error)
	Update(ctx context.Context, id string, u models.ProductUpdate) (models.ProductRecord, error)
	Put(ctx context.Context, p models.ProductRecord) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

type Server struct {
	store     Store
	validator *validator.Validator
	apiKey    string
}

// NewServer returns a catalog server. An empty apiKey disables the key check.
func NewServer(store Store, apiKey string) *Server {
	return &Server{store: store, validator: validator.New(), apiKey: apiKey}
}

// Handler returns the routed handler with CORS, key check and request logging applied.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(logRequests, cors, s.requireAPIKey)
	r.Get("/health", s.handleHealth)
	s.Routes(r)
	return r
}

// Routes registers the product endpoints against r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/products", s.handleList)
	r.Post("/products", s.handleCreate)
	r.Route("/products/{id}", func(r chi.Router) {
		r.Get("/", s.handleGet)
		r.Patch("/", s.handleUpdate)
		r.Put("/", s.handlePut)
		r.Delete("/", s.handleDelete)
	})
}

type message struct {
	Message string `json:"message"`
}

type productEnvelope struct {
	Message string                `json:"message,omitempty"`
	Product *models.ProductRecord `json:"product"`
}

type productsEnvelope struct {
	Products map[string]models.ProductRecord `json:"products"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed to write response", "error", err)
	}
}

func writeInternalError(w http.ResponseWriter, op string, err error) {
	slog.Error("Catalog request failed", "operation", op, "error", err)
	writeJSON(w, http.StatusInternalServerError, message{"Internal server error."})
}

// readBody reads the request body, returning nil for an empty one.
func readBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	return io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	count, err := s.store.Count(r.Context())
	if err != nil {
		slog.Warn("Health check could not count products", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "products": count})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, message{"Failed to read request body."})
		return
	}
	var req struct {
		ProductIDs []string `json:"product_ids"`
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, message{"Request body is not valid JSON."})
			return
		}
	}

	products, err := s.store.List(r.Context(), req.ProductIDs)
	if err != nil {
		writeInternalError(w, "list", err)
		return
	}
	slog.Info("Found products to return", "requested", len(req.ProductIDs), "count", len(products))
	writeJSON(w, http.StatusOK, productsEnvelope{Products: products})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil || len(body) == 0 {
		writeJSON(w, http.StatusBadRequest, message{"Request body is required."})
		return
	}
	var req struct {
		Product *struct {
			ID             string `json:"id"`
			Title          string `json:"title"`
			OriginalNumber string `json:"original_number"`
		} `json:"product"`
	}
	if err := json.Unmarshal(body, &req); err != nil || req.Product == nil {
		writeJSON(w, http.StatusBadRequest, message{"Request body must contain a product."})
		return
	}

	record := models.ProductRecord{ID: req.Product.ID, Title: req.Product.Title, OriginalNumber: req.Product.OriginalNumber}
	if err := s.validator.ValidateStruct(record); err != nil {
		writeJSON(w, http.StatusBadRequest, message{err.Error()})
		return
	}

	created, err := s.store.Create(r.Context(), record)
	if errors.Is(err, models.ErrProductExists) {
		slog.Info("Product already exists", "id", record.ID)
		writeJSON(w, http.StatusConflict, message{"Product already exists."})
		return
	}
	if err != nil {
		writeInternalError(w, "create", err)
		return
	}
	slog.Info("Inserted product", "id", created.ID)
	writeJSON(w, http.StatusOK, productEnvelope{Message: "Successfully inserted product.", Product: &created})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, err := s.store.Get(r.Context(), id)
	if errors.Is(err, models.ErrProductNotFound) {
		writeJSON(w, http.StatusNotFound, message{"Product not found."})
		return
	}
	if err != nil {
		writeInternalError(w, "get", err)
		return
	}
	writeJSON(w, http.StatusOK, productEnvelope{Product: &p})
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	body, err := readBody(r)
	if err != nil || len(body) == 0 {
		writeJSON(w, http.StatusBadRequest, message{"Request body is required."})
		return
	}
	// unknown keys are ignored, only the updatable columns are decoded
	var update models.ProductUpdate
	if err := json.Unmarshal(body, &update); err != nil {
		writeJSON(w, http.StatusBadRequest, message{"Request body is not a valid product update."})
		return
	}
	if err := s.validator.ValidateStruct(update); err != nil {
		writeJSON(w, http.StatusBadRequest, message{err.Error()})
		return
	}

	p, err := s.store.Update(r.Context(), id, update)
	if errors.Is(err, models.ErrProductNotFound) {
		writeJSON(w, http.StatusNotFound, message{"Product not found."})
		return
	}
	if err != nil {
		writeInternalError(w, "update", err)
		return
	}
	slog.Info("Updated product", "id", id)
	writeJSON(w, http.StatusOK, productEnvelope{Message: "Product updated successfully.", Product: &p})
}

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	body, err := readBody(r)
	if err != nil || len(body) == 0 {
		writeJSON(w, http.StatusBadRequest, message{"Request body is required."})
		return
	}
	var req struct {
		Product *models.ProductRecord `json:"product"`
	}
	if err := json.Unmarshal(body, &req); err != nil || req.Product == nil {
		writeJSON(w, http.StatusBadRequest, message{"Request body must contain a product."})
		return
	}
	if req.Product.ID == "" {
		req.Product.ID = id
	}
	if req.Product.ID != id {
		writeJSON(w, http.StatusBadRequest, message{"Product id does not match the path."})
		return
	}
	if err := s.validator.ValidateStruct(req.Product); err != nil {
		writeJSON(w, http.StatusBadRequest, message{err.Error()})
		return
	}

	if err := s.store.Put(r.Context(), *req.Product); err != nil {
		writeInternalError(w, "put", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.Delete(r.Context(), id); err != nil {
		writeInternalError(w, "delete", err)
		return
	}
	writeJSON(w, http.StatusOK, message{"Product deleted successfully, if it existed."})
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Headers", "Content-Type, X-Api-Key, Authorization")
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Credentials", "true")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey == "" || r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}
		if subtle.ConstantTimeCompare([]byte(r.Header.Get("x-api-key")), []byte(s.apiKey)) != 1 {
			writeJSON(w, http.StatusForbidden, message{"Forbidden"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		slog.Debug("Handled request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "duration", time.Since(start))
	})
}
