package extractor

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pauljones0/gallery-price-sync/internal/models"
)

// Extractor reads listings out of a gallery page snapshot.
type Extractor struct {
	selectors SelectorConfig
}

func New(selectors SelectorConfig) *Extractor {
	return &Extractor{selectors: selectors}
}

// Selectors returns the selector configuration the extractor was built with.
func (e *Extractor) Selectors() SelectorConfig {
	return e.selectors
}

// LatestListings parses an HTML snapshot and returns the listings of the most
// recently added gallery section, in document order.
func (e *Extractor) LatestListings(html string) ([]models.Listing, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page snapshot: %w", err)
	}
	return e.ListingsFromDocument(doc), nil
}

// ListingsFromDocument returns the listings of the last gallery section in doc.
// Earlier sections are ignored. Listings without an identity are skipped, and an
// identity seen twice is only reported once.
func (e *Extractor) ListingsFromDocument(doc *goquery.Document) []models.Listing {
	sections := doc.Find(e.selectors.Gallery.Section)
	if sections.Length() == 0 {
		slog.Debug("No gallery section on page", "selector", e.selectors.Gallery.Section)
		return nil
	}

	var listings []models.Listing
	seen := make(map[string]bool)
	sections.Last().Find(e.selectors.Gallery.Item).Each(func(i int, s *goquery.Selection) {
		listing, err := e.ExtractListing(s)
		if err != nil {
			slog.Warn("Skipping listing", "index", i, "error", err)
			return
		}
		if seen[listing.ID] {
			return
		}
		seen[listing.ID] = true
		listings = append(listings, listing)
	})
	return listings
}

// ExtractListing reads identity, title and original number from one listing element.
func (e *Extractor) ExtractListing(s *goquery.Selection) (models.Listing, error) {
	id, _ := s.Find(e.selectors.Listing.IdentityAnchor).First().Attr("id")
	id = strings.TrimSpace(id)
	if id == "" {
		return models.Listing{}, models.ErrMissingIdentity
	}

	title, _ := s.Find(e.selectors.Listing.TitleAnchor).First().Attr("title")

	var fragments []string
	s.Find(e.selectors.Listing.Fragments).Each(func(_ int, f *goquery.Selection) {
		fragments = append(fragments, f.Text())
	})

	return models.Listing{
		ID:             id,
		Title:          strings.TrimSpace(title),
		OriginalNumber: e.ExtractOriginalNumber(fragments),
	}, nil
}

// ExtractOriginalNumber returns the second whitespace-delimited token of the first
// fragment containing an original-number marker, or "" if no fragment matches.
func (e *Extractor) ExtractOriginalNumber(fragments []string) string {
	for _, fragment := range fragments {
		if !e.hasOriginalMarker(fragment) {
			continue
		}
		tokens := strings.Fields(fragment)
		if len(tokens) < 2 {
			return ""
		}
		return tokens[1]
	}
	return ""
}

func (e *Extractor) hasOriginalMarker(fragment string) bool {
	for _, marker := range e.selectors.OriginalMarkers {
		if strings.Contains(fragment, marker) {
			return true
		}
	}
	return false
}

// IDs returns the identities of listings in order.
func IDs(listings []models.Listing) []string {
	ids := make([]string, len(listings))
	for i, l := range listings {
		ids[i] = l.ID
	}
	return ids
}
