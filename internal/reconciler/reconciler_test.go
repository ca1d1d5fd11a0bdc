package reconciler

import (
	"context"
	"strings"
	"testing"

	"github.com/pauljones0/gallery-price-sync/internal/config"
	"github.com/pauljones0/gallery-price-sync/internal/extractor"
	"github.com/pauljones0/gallery-price-sync/internal/models"
	"github.com/pauljones0/gallery-price-sync/internal/page"
)

const gallery = `<html><body><div class="gallery-c"><ul>
<li class="zindex draggable"><a id="p1" title="One"></a><span class="price">10,00</span></li>
<li class="zindex draggable"><a id="p2" title="Two"></a><span class="price">20,00</span></li>
</ul></div></body></html>`

func newDocument(t *testing.T) *page.Document {
	t.Helper()
	doc, err := page.NewDocument(strings.NewReader(gallery), extractor.DefaultSelectors())
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

var (
	searchControls = models.ControlSet{
		{Style: "orange", Link: "https://www.amazon.de/s?k=5678-A"},
		{Style: "grey", Action: models.ActionEdit},
	}
	productControls = models.ControlSet{
		{Style: "orange", Link: "https://www.amazon.de/dp/B000000001"},
		{Style: "grey", Action: models.ActionEdit},
	}
)

func TestReconcile_ReplaceIsIdempotent(t *testing.T) {
	doc := newDocument(t)
	r := New(doc, config.PolicyReplace)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := r.Reconcile(ctx, "p1", searchControls); err != nil {
			t.Fatalf("Reconcile() error = %v", err)
		}
	}

	if got := doc.Containers("p1"); len(got) != 1 || got[0] != FixedContainerID {
		t.Errorf("Expected exactly one %q container, got %v", FixedContainerID, got)
	}
	if got := doc.Containers("p2"); len(got) != 0 {
		t.Errorf("Expected other listing untouched, got %v", got)
	}
}

func TestReconcile_ReplaceSwapsContents(t *testing.T) {
	doc := newDocument(t)
	r := New(doc, config.PolicyReplace)
	ctx := context.Background()

	if err := r.Reconcile(ctx, "p1", searchControls); err != nil {
		t.Fatal(err)
	}
	if err := r.Reconcile(ctx, "p1", productControls); err != nil {
		t.Fatal(err)
	}

	if got := doc.Containers("p1"); len(got) != 1 {
		t.Fatalf("Expected one container after change, got %v", got)
	}
	rendered := doc.Controls("p1", FixedContainerID)
	if len(rendered) != 2 || rendered[0].Link != productControls[0].Link {
		t.Errorf("Expected new control set, got %+v", rendered)
	}
}

func TestReconcile_FingerprintAccumulates(t *testing.T) {
	doc := newDocument(t)
	r := New(doc, config.PolicyFingerprint)
	ctx := context.Background()

	for _, set := range []models.ControlSet{searchControls, searchControls, productControls} {
		if err := r.Reconcile(ctx, "p1", set); err != nil {
			t.Fatalf("Reconcile() error = %v", err)
		}
	}

	got := doc.Containers("p1")
	if len(got) != 2 {
		t.Fatalf("Expected one container per distinct control set, got %v", got)
	}
	if got[0] != FixedContainerID+"-"+Fingerprint(searchControls) {
		t.Errorf("Unexpected container id %q", got[0])
	}
}

func TestReconcile_MissingListing(t *testing.T) {
	doc := newDocument(t)
	for _, policy := range []string{config.PolicyReplace, config.PolicyFingerprint} {
		if err := New(doc, policy).Reconcile(context.Background(), "nope", searchControls); err == nil {
			t.Errorf("policy %s: expected error for missing listing", policy)
		}
	}
}

func TestNew_UnknownPolicy(t *testing.T) {
	if p := New(nil, "append").Policy(); p != config.PolicyReplace {
		t.Errorf("Policy() = %q, want %q", p, config.PolicyReplace)
	}
}

func TestFingerprint(t *testing.T) {
	// "ab": 97*31 + 98
	if got := Fingerprint(models.ControlSet{{Style: "a", Action: "b"}}); got != "00000c21" {
		t.Errorf("Fingerprint() = %q, want 00000c21", got)
	}
	if Fingerprint(searchControls) == Fingerprint(productControls) {
		t.Error("Expected different control sets to have different fingerprints")
	}
	if Fingerprint(searchControls) != Fingerprint(append(models.ControlSet(nil), searchControls...)) {
		t.Error("Expected equal control sets to have equal fingerprints")
	}
	if got := Fingerprint(nil); got != "00000000" {
		t.Errorf("Fingerprint(nil) = %q", got)
	}
}
