package page

import (
	"context"
	"fmt"
	"html"
	"io"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	xhtml "golang.org/x/net/html"

	"github.com/pauljones0/gallery-price-sync/internal/extractor"
	"github.com/pauljones0/gallery-price-sync/internal/models"
)

// Document is an in-memory gallery page. It has no operator, so editor and
// alert requests are only recorded.
type Document struct {
	doc       *goquery.Document
	selectors extractor.SelectorConfig

	Editors []string // listing ids an editor was opened for
	Alerts  []string
}

func NewDocument(r io.Reader, selectors extractor.SelectorConfig) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	return &Document{doc: doc, selectors: selectors}, nil
}

// HTML renders the current document.
func (d *Document) HTML(_ context.Context) (string, error) {
	return d.doc.Html()
}

// listing returns the item of the latest gallery section whose identity is id.
func (d *Document) listing(id string) *goquery.Selection {
	sections := d.doc.Find(d.selectors.Gallery.Section)
	if sections.Length() == 0 {
		return nil
	}
	var match *goquery.Selection
	sections.Last().Find(d.selectors.Gallery.Item).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if v, _ := s.Find(d.selectors.Listing.IdentityAnchor).First().Attr("id"); v == id {
			match = s
			return false
		}
		return true
	})
	return match
}

func (d *Document) priceElement(id string) (*goquery.Selection, error) {
	item := d.listing(id)
	if item == nil {
		return nil, fmt.Errorf("listing %s: %w", id, models.ErrNotFound)
	}
	price := item.Find(d.selectors.Listing.Price).First()
	if price.Length() == 0 {
		return nil, fmt.Errorf("price of %s: %w", id, models.ErrNotFound)
	}
	return price, nil
}

func (d *Document) PriceFragments(_ context.Context, listingID string) ([]string, error) {
	price, err := d.priceElement(listingID)
	if err != nil {
		return nil, err
	}
	var fragments []string
	price.Contents().Each(func(_ int, s *goquery.Selection) {
		n := s.Get(0)
		if n.Type == xhtml.TextNode || n.Type == xhtml.ElementNode {
			fragments = append(fragments, s.Text())
		}
	})
	return fragments, nil
}

func (d *Document) SetPriceColor(_ context.Context, listingID, color string) error {
	price, err := d.priceElement(listingID)
	if err != nil {
		return err
	}
	style, _ := price.Attr("style")
	style = setStyleProperty(style, "color", color)
	if style == "" {
		price.RemoveAttr("style")
	} else {
		price.SetAttr("style", style)
	}
	return nil
}

// PriceColor returns the color set on the listing's price element.
func (d *Document) PriceColor(listingID string) string {
	price, err := d.priceElement(listingID)
	if err != nil {
		return ""
	}
	style, _ := price.Attr("style")
	for _, decl := range strings.Split(style, ";") {
		if name, value, ok := strings.Cut(decl, ":"); ok && strings.TrimSpace(name) == "color" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

func (d *Document) HasContainer(_ context.Context, listingID, containerID string) (bool, error) {
	item := d.listing(listingID)
	if item == nil {
		return false, fmt.Errorf("listing %s: %w", listingID, models.ErrNotFound)
	}
	return item.Find(idSelector(containerID)).Length() > 0, nil
}

func (d *Document) RenderContainer(_ context.Context, listingID, containerID string, controls models.ControlSet) error {
	item := d.listing(listingID)
	if item == nil {
		return fmt.Errorf("listing %s: %w", listingID, models.ErrNotFound)
	}
	markup := containerMarkup(listingID, containerID, controls)
	if existing := item.Find(idSelector(containerID)); existing.Length() > 0 {
		existing.First().ReplaceWithHtml(markup)
		return nil
	}
	item.AppendHtml(markup)
	return nil
}

// Containers returns the ids of every control container the listing holds.
func (d *Document) Containers(listingID string) []string {
	item := d.listing(listingID)
	if item == nil {
		return nil
	}
	var ids []string
	item.Find("." + ContainerClass).Each(func(_ int, s *goquery.Selection) {
		id, _ := s.Attr("id")
		ids = append(ids, id)
	})
	return ids
}

// Controls returns the control targets rendered in the listing's container.
func (d *Document) Controls(listingID, containerID string) []models.Control {
	item := d.listing(listingID)
	if item == nil {
		return nil
	}
	var controls []models.Control
	item.Find(idSelector(containerID)).First().Find("button").Each(func(_ int, s *goquery.Selection) {
		c := models.Control{}
		c.Style, _ = s.Attr("data-style")
		c.Link, _ = s.Attr("data-link")
		c.Action, _ = s.Attr("data-action")
		controls = append(controls, c)
	})
	return controls
}

func (d *Document) EnsureStylesheet(_ context.Context) error {
	if d.doc.Find(idSelector(StyleElementID)).Length() > 0 {
		return nil
	}
	markup := fmt.Sprintf(`<style id="%s">%s</style>`, StyleElementID, stylesheet)
	if head := d.doc.Find("head"); head.Length() > 0 {
		head.First().AppendHtml(markup)
		return nil
	}
	d.doc.Find("body").First().PrependHtml(markup)
	return nil
}

func (d *Document) OpenEditor(_ context.Context, record models.ProductRecord) error {
	d.Editors = append(d.Editors, record.ID)
	slog.Info("Editor requested on offline document", "listing_id", record.ID)
	return nil
}

// Events returns nil. A static document produces no events.
func (d *Document) Events() <-chan models.PageEvent {
	return nil
}

func (d *Document) Alert(_ context.Context, message string) error {
	d.Alerts = append(d.Alerts, message)
	slog.Warn("Page alert", "message", message)
	return nil
}

func idSelector(id string) string {
	return fmt.Sprintf(`[id="%s"]`, strings.ReplaceAll(id, `"`, `\"`))
}

// containerMarkup renders the static form of a control container. Chrome builds
// the same structure with live click handlers.
func containerMarkup(listingID, containerID string, controls models.ControlSet) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<div id="%s" class="%s">`, html.EscapeString(containerID), ContainerClass)
	for _, c := range controls {
		fmt.Fprintf(&b, `<button type="button" style="background-color: %s" data-style="%s"`,
			html.EscapeString(c.Style), html.EscapeString(c.Style))
		if c.Link != "" {
			fmt.Fprintf(&b, ` data-link="%s"`, html.EscapeString(c.Link))
		}
		if c.Action != "" {
			fmt.Fprintf(&b, ` data-action="%s" data-listing="%s"`, html.EscapeString(c.Action), html.EscapeString(listingID))
		}
		b.WriteString(`></button>`)
	}
	b.WriteString(`</div>`)
	return b.String()
}

// setStyleProperty sets or, for an empty value, removes one declaration in an
// inline style attribute.
func setStyleProperty(style, property, value string) string {
	var decls []string
	for _, decl := range strings.Split(style, ";") {
		decl = strings.TrimSpace(decl)
		if decl == "" {
			continue
		}
		if name, _, ok := strings.Cut(decl, ":"); ok && strings.TrimSpace(name) == property {
			continue
		}
		decls = append(decls, decl)
	}
	if value != "" {
		decls = append(decls, property+": "+value)
	}
	return strings.Join(decls, "; ")
}
