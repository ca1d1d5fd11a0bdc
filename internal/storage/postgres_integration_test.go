//go:build integration

package storage

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/pauljones0/gallery-price-sync/internal/models"
)

func TestPostgres_RoundTrip(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	s, err := NewPostgres(ctx, dsn)
	if err != nil {
		t.Fatalf("NewPostgres() error = %v", err)
	}
	defer s.Close()
	t.Cleanup(func() { s.Delete(ctx, "it-1") })

	if _, err := s.Create(ctx, models.ProductRecord{ID: "it-1", Title: "Integration", OriginalNumber: "X-1"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := s.Create(ctx, models.ProductRecord{ID: "it-1"}); !errors.Is(err, models.ErrProductExists) {
		t.Errorf("Expected ErrProductExists, got %v", err)
	}

	p, err := s.Update(ctx, "it-1", models.ProductUpdate{VisynetMaxPrice: ptr(19.99)})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if p.Threshold() != 19.99 || p.OriginalNumber != "X-1" {
		t.Errorf("Unexpected record %+v", p)
	}

	got, err := s.List(ctx, []string{"it-1", "it-missing"})
	if err != nil || len(got) != 1 {
		t.Errorf("List() = %v, %v", got, err)
	}
	if _, err := s.Update(ctx, "it-missing", models.ProductUpdate{Title: ptr("x")}); !errors.Is(err, models.ErrProductNotFound) {
		t.Errorf("Expected ErrProductNotFound, got %v", err)
	}
}
