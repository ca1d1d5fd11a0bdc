// Package agent runs the gallery event loop. Page changes, operator actions and
// sync requests are all handled on the goroutine that calls Run, so a save is
// never applied while a pass is in flight.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pauljones0/gallery-price-sync/internal/extractor"
	"github.com/pauljones0/gallery-price-sync/internal/models"
	"github.com/pauljones0/gallery-price-sync/internal/processor"
	"github.com/pauljones0/gallery-price-sync/internal/util"
)

// Page is the gallery tab the agent drives.
type Page interface {
	HTML(ctx context.Context) (string, error)
	EnsureStylesheet(ctx context.Context) error
	OpenEditor(ctx context.Context, record models.ProductRecord) error
	Alert(ctx context.Context, message string) error
	Events() <-chan models.PageEvent
}

// Engine is the part of the sync engine the agent drives.
type Engine interface {
	Sync(ctx context.Context, listings []models.Listing) (processor.Report, error)
	Product(id string) (models.ProductRecord, bool)
	SaveEdit(ctx context.Context, id string, update models.ProductUpdate) (models.ProductRecord, error)
}

// Trigger debounces change notifications into sync requests. Notify is called
// from a goroutine other than the loop's.
type Trigger interface {
	Notify()
	Fired() <-chan struct{}
}

const actionBufferSize = 16

type Agent struct {
	page      Page
	engine    Engine
	extractor *extractor.Extractor
	trigger   Trigger
}

func New(page Page, engine Engine, ex *extractor.Extractor, trigger Trigger) *Agent {
	return &Agent{page: page, engine: engine, extractor: ex, trigger: trigger}
}

// Run handles page events and sync requests until ctx is done. The first pass
// runs immediately. Change events restart the quiet period even while a pass
// is running; edits and saves wait for the pass to finish.
func (a *Agent) Run(ctx context.Context) error {
	slog.Info("Agent started")
	actions := make(chan models.PageEvent, actionBufferSize)
	go a.forward(ctx, a.page.Events(), actions)

	a.syncOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			slog.Info("Agent stopped")
			return ctx.Err()
		case <-a.trigger.Fired():
			a.syncOnce(ctx)
		case ev, ok := <-actions:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return errors.New("page event stream closed")
			}
			a.HandleEvent(ctx, ev)
		}
	}
}

// forward passes change events straight to the trigger and queues every other
// event for the loop. actions is closed when events is.
func (a *Agent) forward(ctx context.Context, events <-chan models.PageEvent, actions chan<- models.PageEvent) {
	defer close(actions)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Kind == models.EventChange {
				a.trigger.Notify()
				continue
			}
			select {
			case actions <- ev:
			case <-ctx.Done():
				return
			}
		}
	}
}

// SyncOnce runs a single pass over the current page.
func (a *Agent) SyncOnce(ctx context.Context) (processor.Report, error) {
	if err := a.page.EnsureStylesheet(ctx); err != nil {
		slog.Warn("Failed to inject stylesheet", "error", err)
	}

	html, err := a.page.HTML(ctx)
	if err != nil {
		return processor.Report{}, fmt.Errorf("failed to read page: %w", err)
	}
	listings, err := a.extractor.LatestListings(html)
	if err != nil {
		return processor.Report{}, err
	}
	return a.engine.Sync(ctx, listings)
}

func (a *Agent) syncOnce(ctx context.Context) {
	if _, err := a.SyncOnce(ctx); err != nil && ctx.Err() == nil {
		slog.Warn("Sync pass failed", "error", err)
	}
}

// HandleEvent dispatches one page event.
func (a *Agent) HandleEvent(ctx context.Context, ev models.PageEvent) {
	switch ev.Kind {
	case models.EventChange:
		a.trigger.Notify()
	case models.EventAction:
		a.handleAction(ctx, ev)
	case models.EventSave:
		a.handleSave(ctx, ev)
	default:
		slog.Warn("Unknown page event", "kind", ev.Kind)
	}
}

func (a *Agent) handleAction(ctx context.Context, ev models.PageEvent) {
	if ev.Action != models.ActionEdit {
		slog.Warn("Unknown control action", "action", ev.Action, "listing_id", ev.ListingID)
		return
	}
	record, ok := a.engine.Product(ev.ListingID)
	if !ok {
		slog.Warn("Edit requested for listing not in cache", "listing_id", ev.ListingID)
		return
	}
	if err := a.page.OpenEditor(ctx, record); err != nil {
		slog.Warn("Failed to open editor", "listing_id", ev.ListingID, "error", err)
	}
}

// handleSave is the only path whose failures reach the operator.
func (a *Agent) handleSave(ctx context.Context, ev models.PageEvent) {
	update, err := ParseEdit(ev)
	if err == nil {
		_, err = a.engine.SaveEdit(ctx, ev.ListingID, update)
	}
	if err == nil {
		return
	}

	slog.Warn("Failed to save product", "listing_id", ev.ListingID, "error", err)
	if alertErr := a.page.Alert(ctx, "Fehler beim Speichern: "+err.Error()); alertErr != nil {
		slog.Warn("Failed to show alert", "listing_id", ev.ListingID, "error", alertErr)
	}
}

// ParseEdit turns raw edit form values into an update. The form is prefilled,
// so an emptied ASIN clears it and an emptied threshold resets it to 0 (no
// threshold). An empty marketplace price leaves the stored one. Prices accept a
// comma or period decimal separator.
func ParseEdit(ev models.PageEvent) (models.ProductUpdate, error) {
	var update models.ProductUpdate
	if ev.ListingID == "" {
		return update, errors.New("save event has no listing identity")
	}

	asin := strings.ToUpper(strings.TrimSpace(ev.ASIN))
	update.ASIN = &asin

	var err error
	if update.CurrentAmazonPrice, err = parsePriceField("current_amazon_price", ev.CurrentAmazonPrice); err != nil {
		return update, err
	}
	if update.VisynetMaxPrice, err = parsePriceField("visynet_max_price", ev.VisynetMaxPrice); err != nil {
		return update, err
	}
	if update.VisynetMaxPrice == nil {
		none := 0.0
		update.VisynetMaxPrice = &none
	}
	return update, nil
}

func parsePriceField(name, raw string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, ok := util.ParseAmount(raw)
	if !ok {
		return nil, fmt.Errorf("invalid %s %q: %w", name, raw, models.ErrParse)
	}
	return &v, nil
}
