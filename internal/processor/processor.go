package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pauljones0/gallery-price-sync/internal/annotator"
	"github.com/pauljones0/gallery-price-sync/internal/models"
	"github.com/pauljones0/gallery-price-sync/internal/util"
	"github.com/pauljones0/gallery-price-sync/internal/validator"
)

const (
	linkControlStyle = "orange"
	editControlStyle = "grey"
)

// Options configures the controls derived for each record.
type Options struct {
	MarketplaceBaseURL string
	AffiliateTag       string
}

// Report summarizes one sync pass.
type Report struct {
	Listings  int
	Created   int
	Rendered  int
	Favorable int
	Failed    []string // identities skipped for the rest of the pass
	Duration  time.Duration
}

// Engine reconciles the visible listings against the catalog and keeps their
// annotations and controls current.
type Engine struct {
	store      CatalogStore
	annotator  PriceAnnotator
	reconciler ControlReconciler
	notifier   PriceNotifier
	validator  *validator.Validator
	opts       Options
	cache      *Cache

	busy atomic.Bool

	statesMu sync.Mutex
	states   map[string]models.VisualState // last rendered state per identity

	now func() time.Time
}

// New builds an engine. notifier may be nil.
func New(store CatalogStore, a PriceAnnotator, r ControlReconciler, n PriceNotifier, opts Options) *Engine {
	return &Engine{
		store:      store,
		annotator:  a,
		reconciler: r,
		notifier:   n,
		validator:  validator.New(),
		opts:       opts,
		cache:      NewCache(),
		states:     make(map[string]models.VisualState),
		now:        time.Now,
	}
}

// Cache exposes the engine's per-pass product cache.
func (e *Engine) Cache() *Cache {
	return e.cache
}

// Product returns the cached record for id.
func (e *Engine) Product(id string) (models.ProductRecord, bool) {
	return e.cache.Get(id)
}

// Sync runs one pass over listings, which must be in page order. Only a failed
// batch fetch fails the pass; every other failure is confined to its listing
// and recorded in the report. Overlapping calls get models.ErrSyncInProgress.
func (e *Engine) Sync(ctx context.Context, listings []models.Listing) (Report, error) {
	if !e.busy.CompareAndSwap(false, true) {
		return Report{}, models.ErrSyncInProgress
	}
	defer e.busy.Store(false)

	start := e.now()
	report := Report{Listings: len(listings)}

	ids := make([]string, len(listings))
	for i, l := range listings {
		ids[i] = l.ID
	}

	fetched, err := e.store.ListByIDs(ctx, ids)
	if err != nil {
		return report, fmt.Errorf("failed to fetch products: %w", err)
	}
	e.cache.Replace(fetched)

	for _, listing := range listings {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}

		record, ok := e.cache.Get(listing.ID)
		if !ok {
			record, err = e.create(ctx, listing)
			if err != nil {
				slog.Warn("Failed to create product, skipping listing", "listing_id", listing.ID, "error", err)
				report.Failed = append(report.Failed, listing.ID)
				continue
			}
			e.cache.Put(record)
			report.Created++
		}

		state, err := e.render(ctx, record)
		if err != nil {
			slog.Warn("Failed to render listing", "listing_id", listing.ID, "error", err)
			report.Failed = append(report.Failed, listing.ID)
			continue
		}
		report.Rendered++
		if state == models.StateFavorable {
			report.Favorable++
		}
	}

	report.Duration = e.now().Sub(start)
	slog.Info("Sync pass finished",
		"listings", report.Listings,
		"created", report.Created,
		"rendered", report.Rendered,
		"favorable", report.Favorable,
		"failed", len(report.Failed),
		"duration", report.Duration)
	return report, nil
}

// create stores a never-seen listing. If another writer created it first, the
// stored record is used instead.
func (e *Engine) create(ctx context.Context, listing models.Listing) (models.ProductRecord, error) {
	record, err := e.store.Create(ctx, listing)
	if err == nil {
		slog.Info("New product added", "listing_id", listing.ID, "title", listing.Title)
		return record, nil
	}
	if !errors.Is(err, models.ErrProductExists) {
		return models.ProductRecord{}, err
	}

	record, err = e.store.Get(ctx, listing.ID)
	if err != nil {
		return models.ProductRecord{}, fmt.Errorf("error recovering existing product %s: %w", listing.ID, err)
	}
	return record, nil
}

// render annotates the listing's price and reconciles its controls. Annotation
// failures are logged and do not stop the controls from being rendered.
func (e *Engine) render(ctx context.Context, record models.ProductRecord) (models.VisualState, error) {
	result, err := e.annotator.Annotate(ctx, record.ID, record.Threshold())
	if err != nil {
		slog.Warn("Failed to annotate price", "listing_id", record.ID, "error", err)
	}

	controls := e.DeriveControls(record)
	if err := e.reconciler.Reconcile(ctx, record.ID, controls); err != nil {
		return result.State, err
	}

	e.observe(ctx, record, result, controls[0].Link)
	return result.State, nil
}

// observe records the listing's state and alerts when it turns favorable.
func (e *Engine) observe(ctx context.Context, record models.ProductRecord, result annotator.Result, link string) {
	if result.State == models.StateUnset {
		return
	}

	e.statesMu.Lock()
	previous := e.states[record.ID]
	e.states[record.ID] = result.State
	e.statesMu.Unlock()

	if result.State != models.StateFavorable || previous == models.StateFavorable || e.notifier == nil {
		return
	}
	alert := models.PriceAlert{Product: record, Price: result.Price, Link: link}
	if err := e.notifier.PriceAlert(ctx, alert); err != nil {
		slog.Warn("Failed to send price alert", "listing_id", record.ID, "error", err)
	}
}

// DeriveControls returns the marketplace link and edit controls for record.
// The link points at the product page when an ASIN is known, otherwise at a
// marketplace search for the original number.
func (e *Engine) DeriveControls(record models.ProductRecord) models.ControlSet {
	link := util.MarketplaceLink(e.opts.MarketplaceBaseURL, record.ASIN, record.OriginalNumber)
	if tagged, ok := util.AppendAffiliateTag(link, e.opts.AffiliateTag); ok {
		link = tagged
	}
	return models.ControlSet{
		{Style: linkControlStyle, Link: link},
		{Style: editControlStyle, Action: models.ActionEdit},
	}
}

// SaveEdit writes an operator edit of one product, stamped with the current time
// as the marketplace price observation. On success only that listing's cache
// entry, annotation and controls change. On failure nothing changes.
func (e *Engine) SaveEdit(ctx context.Context, id string, update models.ProductUpdate) (models.ProductRecord, error) {
	if err := e.validator.ValidateStruct(update); err != nil {
		return models.ProductRecord{}, err
	}
	observed := e.now().UTC()
	update.CurrentAmazonPriceTimestamp = &observed

	record, err := e.store.Update(ctx, id, update)
	if err != nil {
		return models.ProductRecord{}, fmt.Errorf("failed to save product %s: %w", id, err)
	}
	e.cache.Put(record)
	slog.Info("Product saved", "listing_id", id, "asin", record.ASIN, "threshold", record.Threshold())

	if _, err := e.render(ctx, record); err != nil {
		slog.Warn("Failed to render saved listing", "listing_id", id, "error", err)
	}
	return record, nil
}
