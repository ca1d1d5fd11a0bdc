package extractor

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"github.com/pauljones0/gallery-price-sync/internal/models"
)

const galleryHTML = `<!DOCTYPE html>
<html><body>
<div class="gallery-c">
	<ul>
		<li class="zindex draggable"><a id="old-1" title="Old Listing"></a></li>
	</ul>
</div>
<div class="gallery-c">
	<ul>
		<li class="zindex draggable">
			<a id="p-100" title="Bremsscheibe vorne"></a>
			<ul><li>Art. 1234</li><li>ORIGINAL 5678-A</li></ul>
			<span class="price">24,99 €</span>
		</li>
		<li class="zindex draggable">
			<a title="No identity here"></a>
		</li>
		<li class="zindex draggable">
			<a id="p-200" title="Luftfilter"></a>
			<ul><li>ORIG. 99-B Luftfilter</li></ul>
		</li>
		<li class="zindex draggable">
			<a id="p-100" title="Duplicate"></a>
		</li>
	</ul>
</div>
</body></html>`

func TestLatestListings(t *testing.T) {
	e := New(DefaultSelectors())

	listings, err := e.LatestListings(galleryHTML)
	if err != nil {
		t.Fatalf("LatestListings() error = %v", err)
	}

	want := []models.Listing{
		{ID: "p-100", Title: "Bremsscheibe vorne", OriginalNumber: "5678-A"},
		{ID: "p-200", Title: "Luftfilter", OriginalNumber: "99-B"},
	}
	if len(listings) != len(want) {
		t.Fatalf("Expected %d listings, got %d: %+v", len(want), len(listings), listings)
	}
	for i := range want {
		if listings[i] != want[i] {
			t.Errorf("listing[%d] = %+v, want %+v", i, listings[i], want[i])
		}
	}

	ids := IDs(listings)
	if strings.Join(ids, ",") != "p-100,p-200" {
		t.Errorf("IDs() = %v", ids)
	}
}

func TestLatestListings_NoGallery(t *testing.T) {
	e := New(DefaultSelectors())

	listings, err := e.LatestListings(`<html><body><p>loading</p></body></html>`)
	if err != nil {
		t.Fatalf("LatestListings() error = %v", err)
	}
	if len(listings) != 0 {
		t.Errorf("Expected no listings, got %d", len(listings))
	}
}

func TestExtractListing_MissingIdentity(t *testing.T) {
	e := New(DefaultSelectors())
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<li class="zindex draggable"><a title="x"></a></li>`))
	if err != nil {
		t.Fatal(err)
	}

	_, err = e.ExtractListing(doc.Find("li").First())
	if !errors.Is(err, models.ErrMissingIdentity) {
		t.Errorf("ExtractListing() error = %v, want ErrMissingIdentity", err)
	}
}

func TestExtractOriginalNumber(t *testing.T) {
	e := New(DefaultSelectors())

	tests := []struct {
		name      string
		fragments []string
		want      string
	}{
		{name: "Uppercase marker", fragments: []string{"Art. 1234", "ORIGINAL 5678-A"}, want: "5678-A"},
		{name: "Abbreviated marker", fragments: []string{"ORIG. 11-22"}, want: "11-22"},
		{name: "Mixed case marker", fragments: []string{"Original 3344 passend"}, want: "3344"},
		{name: "Italian marker", fragments: []string{"Originale 7788"}, want: "7788"},
		{name: "First match wins", fragments: []string{"ORIGINAL 1", "ORIGINAL 2"}, want: "1"},
		{name: "No marker", fragments: []string{"Art. 1234", "Neu"}, want: ""},
		{name: "Marker without number", fragments: []string{"ORIGINAL"}, want: ""},
		{name: "No fragments", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := e.ExtractOriginalNumber(tt.fragments); got != tt.want {
				t.Errorf("ExtractOriginalNumber() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoadSelectorsFromBytes(t *testing.T) {
	sel, err := LoadSelectorsFromBytes([]byte(`{"gallery": {"section": ".grid", "item": ".card"}}`))
	if err != nil {
		t.Fatalf("LoadSelectorsFromBytes() error = %v", err)
	}
	if sel.Gallery.Section != ".grid" || sel.Gallery.Item != ".card" {
		t.Errorf("Gallery selectors not overridden: %+v", sel.Gallery)
	}
	if sel.Listing.Price != ".price" {
		t.Errorf("Expected default price selector to be kept, got %q", sel.Listing.Price)
	}

	if _, err := LoadSelectorsFromBytes([]byte(`{`)); err == nil {
		t.Error("Expected error for malformed JSON")
	}
	if _, err := LoadSelectorsFromBytes([]byte(`{"gallery": {"section": ""}}`)); err == nil {
		t.Error("Expected error for empty gallery section selector")
	}
}

func TestLoadConfig_FileOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "selectors.json")
	if err := os.WriteFile(path, []byte(`{"gallery": {"section": ".grid", "item": ".card"}}`), 0o600); err != nil {
		t.Fatal(err)
	}

	if sel := LoadConfig(path); sel.Gallery.Section != ".grid" {
		t.Errorf("Expected file selectors, got %+v", sel.Gallery)
	}
	if sel := LoadConfig(filepath.Join(t.TempDir(), "missing.json")); sel.Gallery.Section != ".gallery-c" {
		t.Errorf("Expected embedded selectors, got %+v", sel.Gallery)
	}
}
