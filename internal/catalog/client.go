// Package catalog is the HTTP client of the product catalog service.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/pauljones0/gallery-price-sync/internal/models"
)

const maxErrorBody = 512

// Client talks to the catalog's /products API.
type Client struct {
	baseURL     string
	apiKey      string
	httpClient  *http.Client
	rateLimiter *rate.Limiter
}

// NewClient creates a client for baseURL, which must not end in a slash. An empty
// apiKey sends an empty x-api-key header. requestsPerSecond bounds the request rate.
func NewClient(baseURL, apiKey string, requestsPerSecond float64) *Client {
	burst := int(requestsPerSecond)
	if burst < 1 {
		burst = 1
	}
	return &Client{
		baseURL:     baseURL,
		apiKey:      apiKey,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		rateLimiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
	}
}

type productsRequest struct {
	ProductIDs []string `json:"product_ids"`
}

type productsResponse struct {
	Products map[string]models.ProductRecord `json:"products"`
}

type createRequest struct {
	Product newProduct `json:"product"`
}

type newProduct struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	OriginalNumber string `json:"original_number"`
}

type productResponse struct {
	Product *models.ProductRecord `json:"product"`
}

// ListByIDs fetches the records of ids in one request. Ids unknown to the catalog
// are absent from the result.
func (c *Client) ListByIDs(ctx context.Context, ids []string) (map[string]models.ProductRecord, error) {
	if len(ids) == 0 {
		// an empty id list means "everything" to the catalog
		return map[string]models.ProductRecord{}, nil
	}
	var resp productsResponse
	if err := c.do(ctx, http.MethodGet, "/products", productsRequest{ProductIDs: ids}, &resp); err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	if resp.Products == nil {
		resp.Products = map[string]models.ProductRecord{}
	}
	return resp.Products, nil
}

// ListAll fetches every record in the catalog.
func (c *Client) ListAll(ctx context.Context) (map[string]models.ProductRecord, error) {
	var resp productsResponse
	if err := c.do(ctx, http.MethodGet, "/products", nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to list all products: %w", err)
	}
	if resp.Products == nil {
		resp.Products = map[string]models.ProductRecord{}
	}
	return resp.Products, nil
}

// Create stores a new record for listing. It returns models.ErrProductExists if
// the identity is already stored.
func (c *Client) Create(ctx context.Context, listing models.Listing) (models.ProductRecord, error) {
	body := createRequest{Product: newProduct{ID: listing.ID, Title: listing.Title, OriginalNumber: listing.OriginalNumber}}
	var resp productResponse
	if err := c.do(ctx, http.MethodPost, "/products", body, &resp); err != nil {
		return models.ProductRecord{}, fmt.Errorf("failed to create product %s: %w", listing.ID, err)
	}
	return resp.record(listing.ID)
}

// Get fetches one record. It returns models.ErrProductNotFound if there is none.
func (c *Client) Get(ctx context.Context, id string) (models.ProductRecord, error) {
	var resp productResponse
	if err := c.do(ctx, http.MethodGet, "/products/"+url.PathEscape(id), nil, &resp); err != nil {
		return models.ProductRecord{}, fmt.Errorf("failed to get product %s: %w", id, err)
	}
	return resp.record(id)
}

// Update applies a partial update and returns the stored record.
func (c *Client) Update(ctx context.Context, id string, update models.ProductUpdate) (models.ProductRecord, error) {
	var resp productResponse
	if err := c.do(ctx, http.MethodPatch, "/products/"+url.PathEscape(id), update, &resp); err != nil {
		return models.ProductRecord{}, fmt.Errorf("failed to update product %s: %w", id, err)
	}
	return resp.record(id)
}

func (r productResponse) record(id string) (models.ProductRecord, error) {
	if r.Product == nil {
		return models.ProductRecord{}, fmt.Errorf("response for %s has no product: %w", id, models.ErrTransport)
	}
	return *r.Product, nil
}

// do sends a JSON request and decodes a 2xx JSON response into out. Every failure
// wraps models.ErrTransport; 404 and 409 also wrap the matching catalog error.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter error: %w", err)
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", models.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		statusErr := fmt.Errorf("%w: status %s, body: %s", models.ErrTransport, resp.Status, bytes.TrimSpace(snippet))
		switch resp.StatusCode {
		case http.StatusNotFound:
			return fmt.Errorf("%w: %w", models.ErrProductNotFound, statusErr)
		case http.StatusConflict:
			return fmt.Errorf("%w: %w", models.ErrProductExists, statusErr)
		}
		return statusErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", models.ErrTransport, err)
	}
	return nil
}
