package extractor

import (
	"encoding/json"
	"fmt"
	"os"
)

type SelectorConfig struct {
	Gallery GallerySelectors `json:"gallery"`
	Listing ListingSelectors `json:"listing"`
	// OriginalMarkers are the spellings that mark a fragment as carrying the original number.
	OriginalMarkers []string `json:"original_markers"`
}

type GallerySelectors struct {
	Section string `json:"section"` // e.g., ".gallery-c"
	Item    string `json:"item"`    // e.g., ".zindex.draggable"
}

type ListingSelectors struct {
	IdentityAnchor string `json:"identity_anchor"` // anchor carrying the listing id
	TitleAnchor    string `json:"title_anchor"`    // anchor carrying the title attribute
	Fragments      string `json:"fragments"`       // descriptive text fragments
	Price          string `json:"price"`
}

// LoadSelectors loads the selector configuration from the specified JSON file.
func LoadSelectors(path string) (SelectorConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SelectorConfig{}, fmt.Errorf("failed to read selector config file: %w", err)
	}

	return LoadSelectorsFromBytes(data)
}

// LoadSelectorsFromBytes parses selector configuration from raw JSON bytes.
// Fields missing from the JSON keep their default values.
func LoadSelectorsFromBytes(data []byte) (SelectorConfig, error) {
	config := DefaultSelectors()
	if err := json.Unmarshal(data, &config); err != nil {
		return SelectorConfig{}, fmt.Errorf("failed to parse selector config JSON: %w", err)
	}
	if config.Gallery.Section == "" || config.Gallery.Item == "" || config.Listing.IdentityAnchor == "" {
		return SelectorConfig{}, fmt.Errorf("selector config is missing gallery or identity selectors")
	}

	return config, nil
}

// DefaultSelectors returns the fallback configuration if no JSON file is loaded.
func DefaultSelectors() SelectorConfig {
	return SelectorConfig{
		Gallery: GallerySelectors{
			Section: ".gallery-c",
			Item:    ".zindex.draggable",
		},
		Listing: ListingSelectors{
			IdentityAnchor: "a[id]",
			TitleAnchor:    "a[title]",
			Fragments:      "ul li",
			Price:          ".price",
		},
		OriginalMarkers: []string{"ORIG.", "Original", "Originale", "ORIGINAL"},
	}
}
