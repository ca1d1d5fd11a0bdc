package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/firestore/apiv1/firestorepb"

	"github.com/pauljones0/gallery-price-sync/internal/models"
)

func ptr[T any](v T) *T { return &v }

func TestMemory(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if _, err := m.Create(ctx, models.ProductRecord{ID: "a", Title: "A"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := m.Create(ctx, models.ProductRecord{ID: "a"}); !errors.Is(err, models.ErrProductExists) {
		t.Errorf("Expected ErrProductExists, got %v", err)
	}
	if err := m.Put(ctx, models.ProductRecord{ID: "b", Title: "B"}); err != nil {
		t.Fatal(err)
	}

	got, err := m.List(ctx, []string{"a", "missing"})
	if err != nil || len(got) != 1 || got["a"].Title != "A" {
		t.Errorf("List(a, missing) = %v, %v", got, err)
	}
	all, _ := m.List(ctx, nil)
	if len(all) != 2 {
		t.Errorf("Expected 2 products in full list, got %d", len(all))
	}

	updated, err := m.Update(ctx, "a", models.ProductUpdate{ASIN: ptr("B000000001"), VisynetMaxPrice: ptr(12.5)})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.ASIN != "B000000001" || updated.Threshold() != 12.5 || updated.Title != "A" {
		t.Errorf("Unexpected update result %+v", updated)
	}
	if _, err := m.Update(ctx, "missing", models.ProductUpdate{}); !errors.Is(err, models.ErrProductNotFound) {
		t.Errorf("Expected ErrProductNotFound, got %v", err)
	}

	if err := m.Delete(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if err := m.Delete(ctx, "a"); err != nil {
		t.Errorf("Deleting a missing product should succeed, got %v", err)
	}
	if _, err := m.Get(ctx, "a"); !errors.Is(err, models.ErrProductNotFound) {
		t.Errorf("Expected ErrProductNotFound after delete, got %v", err)
	}
	if n, _ := m.Count(ctx); n != 1 {
		t.Errorf("Count() = %d, want 1", n)
	}
}

func TestUpdateClause(t *testing.T) {
	observed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clause, args := updateClause(models.ProductUpdate{
		ASIN:                        ptr("B000000001"),
		VisynetMaxPrice:             ptr(20.0),
		CurrentAmazonPrice:          ptr(18.0),
		CurrentAmazonPriceTimestamp: &observed,
	})

	want := "asin = $1, visynet_max_price = $2, current_amazon_price = $3, current_amazon_price_timestamp = $4"
	if clause != want {
		t.Errorf("clause = %q, want %q", clause, want)
	}
	if len(args) != 4 || args[0] != "B000000001" || args[3] != observed {
		t.Errorf("Unexpected args %v", args)
	}

	if clause, args := updateClause(models.ProductUpdate{}); clause != "" || len(args) != 0 {
		t.Errorf("Expected empty clause for empty update, got %q %v", clause, args)
	}
}

func TestFirestoreUpdates(t *testing.T) {
	updates := firestoreUpdates(models.ProductUpdate{Title: ptr("T"), BrandID: ptr(int64(3))})
	if len(updates) != 2 {
		t.Fatalf("Expected 2 updates, got %d", len(updates))
	}
	if updates[0].Path != "title" || updates[0].Value != "T" {
		t.Errorf("Unexpected update %+v", updates[0])
	}
	if updates[1].Path != "brand_id" || updates[1].Value != int64(3) {
		t.Errorf("Unexpected update %+v", updates[1])
	}
}

func TestAggregateCount(t *testing.T) {
	tests := []struct {
		name     string
		value    interface{}
		want     int
		wantFail bool
	}{
		{name: "int64 direct", value: int64(42), want: 42},
		{
			name:  "firestorepb.Value integer",
			value: &firestorepb.Value{ValueType: &firestorepb.Value_IntegerValue{IntegerValue: 100}},
			want:  100,
		},
		{name: "unexpected type", value: "not a number", wantFail: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := aggregateCount(tt.value)
			if (err != nil) != tt.wantFail {
				t.Fatalf("aggregateCount() error = %v, wantFail %v", err, tt.wantFail)
			}
			if got != tt.want {
				t.Errorf("aggregateCount() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPingWithRetry(t *testing.T) {
	down := errors.New("connection refused")

	t.Run("Recovers", func(t *testing.T) {
		calls := 0
		err := pingWithRetry(context.Background(), func(context.Context) error {
			calls++
			if calls < 3 {
				return down
			}
			return nil
		}, 4, time.Millisecond)
		if err != nil {
			t.Fatalf("pingWithRetry() error = %v", err)
		}
		if calls != 3 {
			t.Errorf("Expected 3 pings, got %d", calls)
		}
	})

	t.Run("Gives up without a trailing wait", func(t *testing.T) {
		calls := 0
		start := time.Now()
		err := pingWithRetry(context.Background(), func(context.Context) error {
			calls++
			return down
		}, 1, 300*time.Millisecond)
		elapsed := time.Since(start)

		if !errors.Is(err, down) {
			t.Fatalf("Expected wrapped ping error, got %v", err)
		}
		if calls != 2 {
			t.Errorf("Expected 2 pings, got %d", calls)
		}
		if elapsed >= 600*time.Millisecond {
			t.Errorf("Expected a single 300ms wait, took %v", elapsed)
		}
	})
}
