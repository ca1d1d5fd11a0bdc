// Package reconciler keeps each listing's control container in line with its
// desired control set.
package reconciler

import (
	"context"
	"fmt"
	"strings"

	"github.com/pauljones0/gallery-price-sync/internal/config"
	"github.com/pauljones0/gallery-price-sync/internal/models"
)

// FixedContainerID is the container identifier used by the replace policy.
const FixedContainerID = "buttons-container"

// Page is the part of the page DOM the reconciler reads and writes.
type Page interface {
	// HasContainer reports whether the listing already holds a container with containerID.
	HasContainer(ctx context.Context, listingID, containerID string) (bool, error)
	// RenderContainer builds a container for controls and replaces the listing's
	// container with containerID, or appends it when there is none.
	RenderContainer(ctx context.Context, listingID, containerID string, controls models.ControlSet) error
}

type Reconciler struct {
	page   Page
	policy string
}

// New returns a reconciler using policy, config.PolicyReplace or config.PolicyFingerprint.
// Unknown policies fall back to config.PolicyReplace.
func New(page Page, policy string) *Reconciler {
	if policy != config.PolicyFingerprint {
		policy = config.PolicyReplace
	}
	return &Reconciler{page: page, policy: policy}
}

func (r *Reconciler) Policy() string {
	return r.policy
}

// Reconcile makes the listing display controls.
//
// With the replace policy the listing always has exactly one container, whose
// contents are rewritten on every call. With the fingerprint policy the container
// is named after the control set and only inserted when absent, so containers
// for earlier control sets are left in place.
func (r *Reconciler) Reconcile(ctx context.Context, listingID string, controls models.ControlSet) error {
	containerID := FixedContainerID
	if r.policy == config.PolicyFingerprint {
		containerID = FixedContainerID + "-" + Fingerprint(controls)

		exists, err := r.page.HasContainer(ctx, listingID, containerID)
		if err != nil {
			return fmt.Errorf("failed to look up controls of %s: %w", listingID, err)
		}
		if exists {
			return nil
		}
	}

	if err := r.page.RenderContainer(ctx, listingID, containerID, controls); err != nil {
		return fmt.Errorf("failed to render controls of %s: %w", listingID, err)
	}
	return nil
}

// Fingerprint hashes the style and target of every control with a 32-bit
// rolling hash (h = h*31 + c over UTF-16 code units) and returns it as hex.
func Fingerprint(controls models.ControlSet) string {
	var b strings.Builder
	for _, c := range controls {
		b.WriteString(c.Style)
		b.WriteString(c.Target())
	}

	var h int32
	for _, r := range b.String() {
		if r >= 0x10000 {
			// surrogate pair
			r -= 0x10000
			h = h*31 + int32(0xD800+(r>>10))
			h = h*31 + int32(0xDC00+(r&0x3FF))
			continue
		}
		h = h*31 + int32(r)
	}
	return fmt.Sprintf("%08x", uint32(h))
}
