package page

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/pauljones0/gallery-price-sync/internal/extractor"
	"github.com/pauljones0/gallery-price-sync/internal/models"
)

const testGallery = `<html><head><title>Galerie</title></head><body>
<div class="gallery-c"><ul>
	<li class="zindex draggable"><a id="a1" title="Old"></a><span class="price">5,00 €</span></li>
</ul></div>
<div class="gallery-c"><ul>
	<li class="zindex draggable"><a id="a1" title="Bremsscheibe"></a><span class="price" style="font-weight: bold"><s>29,99 €</s> 24,99 €<!-- promo --></span></li>
	<li class="zindex draggable"><a id="a2" title="Kein Preis"></a></li>
</ul></div>
</body></html>`

func newTestDocument(t *testing.T) *Document {
	t.Helper()
	doc, err := NewDocument(strings.NewReader(testGallery), extractor.DefaultSelectors())
	if err != nil {
		t.Fatalf("NewDocument() error = %v", err)
	}
	return doc
}

func TestDocument_PriceFragments(t *testing.T) {
	doc := newTestDocument(t)
	ctx := context.Background()

	frags, err := doc.PriceFragments(ctx, "a1")
	if err != nil {
		t.Fatalf("PriceFragments() error = %v", err)
	}
	// the comment node is not a text or element node
	if len(frags) != 2 || frags[0] != "29,99 €" || strings.TrimSpace(frags[1]) != "24,99 €" {
		t.Errorf("PriceFragments() = %q", frags)
	}

	if _, err := doc.PriceFragments(ctx, "a2"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for listing without price, got %v", err)
	}
	if _, err := doc.PriceFragments(ctx, "zz"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unknown listing, got %v", err)
	}
}

func TestDocument_SetPriceColor(t *testing.T) {
	doc := newTestDocument(t)
	ctx := context.Background()

	if err := doc.SetPriceColor(ctx, "a1", "green"); err != nil {
		t.Fatalf("SetPriceColor() error = %v", err)
	}
	if err := doc.SetPriceColor(ctx, "a1", "red"); err != nil {
		t.Fatalf("SetPriceColor() error = %v", err)
	}
	if got := doc.PriceColor("a1"); got != "red" {
		t.Errorf("PriceColor() = %q, want red", got)
	}

	html, _ := doc.HTML(ctx)
	if !strings.Contains(html, `style="font-weight: bold; color: red"`) {
		t.Errorf("Expected existing declarations to be kept, got %s", html)
	}
	if strings.Contains(html, "color: green") {
		t.Error("Expected previous color to be replaced")
	}
}

func TestDocument_RenderContainer(t *testing.T) {
	doc := newTestDocument(t)
	ctx := context.Background()
	controls := models.ControlSet{
		{Style: "orange", Link: "https://www.amazon.de/dp/B000000001"},
		{Style: "grey", Action: models.ActionEdit},
	}

	if err := doc.RenderContainer(ctx, "a1", "buttons-container", controls); err != nil {
		t.Fatalf("RenderContainer() error = %v", err)
	}
	if err := doc.RenderContainer(ctx, "a1", "buttons-container", controls[:1]); err != nil {
		t.Fatalf("RenderContainer() error = %v", err)
	}

	if got := doc.Containers("a1"); len(got) != 1 {
		t.Fatalf("Expected one container, got %v", got)
	}
	rendered := doc.Controls("a1", "buttons-container")
	if len(rendered) != 1 || rendered[0] != controls[0] {
		t.Errorf("Controls() = %+v", rendered)
	}

	exists, err := doc.HasContainer(ctx, "a1", "buttons-container")
	if err != nil || !exists {
		t.Errorf("HasContainer() = %v, %v", exists, err)
	}
	if err := doc.RenderContainer(ctx, "zz", "buttons-container", controls); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestDocument_EnsureStylesheet(t *testing.T) {
	doc := newTestDocument(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := doc.EnsureStylesheet(ctx); err != nil {
			t.Fatalf("EnsureStylesheet() error = %v", err)
		}
	}
	html, _ := doc.HTML(ctx)
	if n := strings.Count(html, `id="`+StyleElementID+`"`); n != 1 {
		t.Errorf("Expected one stylesheet, found %d", n)
	}
}

func TestSetStyleProperty(t *testing.T) {
	tests := []struct {
		style, value, want string
	}{
		{"", "red", "color: red"},
		{"color: green", "red", "color: red"},
		{"background-color: grey; color: green;", "black", "background-color: grey; color: black"},
		{"color: green", "", ""},
	}
	for _, tt := range tests {
		if got := setStyleProperty(tt.style, "color", tt.value); got != tt.want {
			t.Errorf("setStyleProperty(%q, %q) = %q, want %q", tt.style, tt.value, got, tt.want)
		}
	}
}

func TestScript(t *testing.T) {
	js, err := script(scriptSelectors{Section: ".gallery-c", Item: ".zindex.draggable", Identity: "a[id]", Price: ".price"},
		map[string]string{"id": `x"; alert(1); "`}, priceFragmentsBody)
	if err != nil {
		t.Fatalf("script() error = %v", err)
	}
	if !strings.Contains(js, `"id":"x\"; alert(1); \""`) {
		t.Errorf("Expected arguments to be JSON-encoded, got %s", js)
	}
	if !strings.HasPrefix(js, "(() => {") || !strings.HasSuffix(js, "})()") {
		t.Error("Expected script to be wrapped in an IIFE")
	}
}
