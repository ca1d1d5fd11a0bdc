// Package annotator colors a listing's rendered price against its threshold.
package annotator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pauljones0/gallery-price-sync/internal/models"
	"github.com/pauljones0/gallery-price-sync/internal/util"
)

// Page is the part of the page DOM the annotator reads and writes.
type Page interface {
	// PriceFragments returns the text of each text or element child node of the
	// listing's price element. It returns models.ErrNotFound if there is none.
	PriceFragments(ctx context.Context, listingID string) ([]string, error)
	SetPriceColor(ctx context.Context, listingID, color string) error
}

// Result is the outcome of annotating one listing.
type Result struct {
	State models.VisualState
	Price float64 // effective price, zero when State is StateUnset
}

type Annotator struct {
	page Page
}

func New(page Page) *Annotator {
	return &Annotator{page: page}
}

// Classify maps an effective price and threshold to a visual state.
// A zero threshold means none is configured.
func Classify(price, threshold float64) models.VisualState {
	if threshold == 0 {
		return models.StateNeutral
	}
	if price < threshold {
		return models.StateFavorable
	}
	return models.StateUnfavorable
}

// EffectivePrice returns the last amount found across the price fragments.
// Pages render a struck-through price before the current one.
func EffectivePrice(fragments []string) (float64, error) {
	var (
		price float64
		found bool
	)
	for _, fragment := range fragments {
		if tokens := util.PriceTokens(fragment); len(tokens) > 0 {
			price = tokens[len(tokens)-1]
			found = true
		}
	}
	if !found {
		return 0, models.ErrParse
	}
	return price, nil
}

// Annotate reads the listing's rendered price, classifies it against threshold and
// colors the price element. Unparsable prices and missing price elements are logged
// and leave the element untouched with StateUnset; only page failures are returned.
func (a *Annotator) Annotate(ctx context.Context, listingID string, threshold float64) (Result, error) {
	fragments, err := a.page.PriceFragments(ctx, listingID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			slog.Warn("Price element not found", "listing_id", listingID)
			return Result{}, nil
		}
		return Result{}, fmt.Errorf("failed to read price for %s: %w", listingID, err)
	}

	price, err := EffectivePrice(fragments)
	if err != nil {
		slog.Warn("Failed to parse price", "listing_id", listingID, "fragments", fragments, "error", err)
		return Result{}, nil
	}

	state := Classify(price, threshold)
	if err := a.page.SetPriceColor(ctx, listingID, state.Color()); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			slog.Warn("Price element disappeared before coloring", "listing_id", listingID)
			return Result{}, nil
		}
		return Result{}, fmt.Errorf("failed to color price for %s: %w", listingID, err)
	}
	return Result{State: state, Price: price}, nil
}
