package processor

import (
	"context"

	"github.com/pauljones0/gallery-price-sync/internal/annotator"
	"github.com/pauljones0/gallery-price-sync/internal/models"
)

// CatalogStore abstracts the remote product catalog.
type CatalogStore interface {
	// ListByIDs fetches the records of exactly ids in one request. Unknown ids are absent from the result.
	ListByIDs(ctx context.Context, ids []string) (map[string]models.ProductRecord, error)
	Create(ctx context.Context, listing models.Listing) (models.ProductRecord, error)
	Get(ctx context.Context, id string) (models.ProductRecord, error)
	Update(ctx context.Context, id string, update models.ProductUpdate) (models.ProductRecord, error)
}

// PriceAnnotator colors a listing's price against a threshold.
type PriceAnnotator interface {
	Annotate(ctx context.Context, listingID string, threshold float64) (annotator.Result, error)
}

// ControlReconciler makes a listing display a control set.
type ControlReconciler interface {
	Reconcile(ctx context.Context, listingID string, controls models.ControlSet) error
}

// PriceNotifier announces favorable prices.
type PriceNotifier interface {
	PriceAlert(ctx context.Context, alert models.PriceAlert) error
}
