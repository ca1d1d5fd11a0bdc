package page

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	cdppage "github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/pauljones0/gallery-price-sync/internal/extractor"
	"github.com/pauljones0/gallery-price-sync/internal/models"
	"github.com/pauljones0/gallery-price-sync/internal/util"
)

const (
	eventBufferSize    = 64
	navigateRetries    = 3
	navigateRetryDelay = 2 * time.Second
)

// ChromeOptions configures the browser the agent drives.
type ChromeOptions struct {
	Headless  bool
	Selectors extractor.SelectorConfig
}

// Chrome is a live gallery tab. Operator interaction and layout changes arrive on Events.
type Chrome struct {
	tabCtx      context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc

	selectors scriptSelectors
	events    chan models.PageEvent
}

// NewChrome starts a browser and prepares a tab: the event binding is exposed and
// the change observer is registered for every document the tab loads.
func NewChrome(ctx context.Context, opts ChromeOptions) (*Chrome, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(1400, 1000),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)

	c := &Chrome{
		tabCtx:      tabCtx,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
		selectors: scriptSelectors{
			Section:  opts.Selectors.Gallery.Section,
			Item:     opts.Selectors.Gallery.Item,
			Identity: opts.Selectors.Listing.IdentityAnchor,
			Price:    opts.Selectors.Listing.Price,
		},
		events: make(chan models.PageEvent, eventBufferSize),
	}

	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		if called, ok := ev.(*runtime.EventBindingCalled); ok && called.Name == bindingName {
			c.dispatch(called.Payload)
		}
	})

	err := chromedp.Run(tabCtx,
		runtime.AddBinding(bindingName),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := cdppage.AddScriptToEvaluateOnNewDocument(changeObserverScript).Do(ctx)
			return err
		}),
	)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to prepare browser tab: %w", err)
	}
	return c, nil
}

// dispatch runs on the chromedp event goroutine and must not block.
func (c *Chrome) dispatch(payload string) {
	var ev models.PageEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		slog.Warn("Ignoring malformed page event", "payload", payload, "error", err)
		return
	}
	select {
	case c.events <- ev:
	default:
		if ev.Kind != models.EventChange {
			slog.Warn("Page event dropped, agent is behind", "kind", ev.Kind, "listing_id", ev.ListingID)
		}
	}
}

// Events delivers change notifications and operator actions from the page.
func (c *Chrome) Events() <-chan models.PageEvent {
	return c.events
}

// Close shuts down the tab and the browser.
func (c *Chrome) Close() {
	c.cancelTab()
	c.cancelAlloc()
}

// run executes actions on the tab, bounded by ctx.
func (c *Chrome) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(c.tabCtx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

func (c *Chrome) evaluate(ctx context.Context, args any, body string, res any) error {
	js, err := script(c.selectors, args, body)
	if err != nil {
		return fmt.Errorf("failed to build page script: %w", err)
	}
	return c.run(ctx, chromedp.Evaluate(js, res))
}

// Navigate opens url and waits for the body to be ready.
func (c *Chrome) Navigate(ctx context.Context, url string) error {
	return util.RetryWithBackoff(ctx, navigateRetries, navigateRetryDelay, func(attempt int) error {
		slog.Info("Opening gallery", "url", url, "attempt", attempt+1)
		return c.run(ctx,
			chromedp.Navigate(url),
			chromedp.WaitReady("body", chromedp.ByQuery),
		)
	})
}

func (c *Chrome) HTML(ctx context.Context) (string, error) {
	var html string
	if err := c.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("failed to read page HTML: %w", err)
	}
	return html, nil
}

func (c *Chrome) PriceFragments(ctx context.Context, listingID string) ([]string, error) {
	var res struct {
		Found     bool     `json:"found"`
		Fragments []string `json:"fragments"`
	}
	if err := c.evaluate(ctx, map[string]string{"id": listingID}, priceFragmentsBody, &res); err != nil {
		return nil, err
	}
	if !res.Found {
		return nil, fmt.Errorf("price of %s: %w", listingID, models.ErrNotFound)
	}
	return res.Fragments, nil
}

func (c *Chrome) SetPriceColor(ctx context.Context, listingID, color string) error {
	var found bool
	args := map[string]string{"id": listingID, "color": color}
	if err := c.evaluate(ctx, args, setPriceColorBody, &found); err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("price of %s: %w", listingID, models.ErrNotFound)
	}
	return nil
}

func (c *Chrome) HasContainer(ctx context.Context, listingID, containerID string) (bool, error) {
	var res struct {
		Found  bool `json:"found"`
		Exists bool `json:"exists"`
	}
	args := map[string]string{"id": listingID, "container": containerID}
	if err := c.evaluate(ctx, args, hasContainerBody, &res); err != nil {
		return false, err
	}
	if !res.Found {
		return false, fmt.Errorf("listing %s: %w", listingID, models.ErrNotFound)
	}
	return res.Exists, nil
}

func (c *Chrome) RenderContainer(ctx context.Context, listingID, containerID string, controls models.ControlSet) error {
	var found bool
	args := struct {
		ID        string            `json:"id"`
		Container string            `json:"container"`
		Controls  models.ControlSet `json:"controls"`
	}{listingID, containerID, controls}
	if err := c.evaluate(ctx, args, renderContainerBody, &found); err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("listing %s: %w", listingID, models.ErrNotFound)
	}
	return nil
}

// EnsureStylesheet inserts the container stylesheet unless the document has it.
func (c *Chrome) EnsureStylesheet(ctx context.Context) error {
	var inserted bool
	if err := c.evaluate(ctx, map[string]string{"css": stylesheet}, ensureStylesheetBody, &inserted); err != nil {
		return fmt.Errorf("failed to insert stylesheet: %w", err)
	}
	if inserted {
		slog.Debug("Inserted stylesheet")
	}
	return nil
}

// OpenEditor shows the edit popup for record. Saving it emits a "save" event.
func (c *Chrome) OpenEditor(ctx context.Context, record models.ProductRecord) error {
	var ok bool
	if err := c.evaluate(ctx, map[string]any{"product": record}, openEditorBody, &ok); err != nil {
		return fmt.Errorf("failed to open editor for %s: %w", record.ID, err)
	}
	return nil
}

func (c *Chrome) Alert(ctx context.Context, message string) error {
	var ok bool
	return c.evaluate(ctx, map[string]string{"message": message}, alertBody, &ok)
}
