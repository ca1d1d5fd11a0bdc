package models

import (
	"errors"
	"time"
)

var (
	// ErrMissingIdentity is returned when a listing element has no identity anchor.
	ErrMissingIdentity = errors.New("listing has no identity")
	// ErrTransport wraps every network or non-2xx failure talking to the catalog.
	ErrTransport = errors.New("catalog transport failure")
	// ErrParse is returned when a rendered price holds no numeric token.
	ErrParse = errors.New("price text unparsable")
	// ErrNotFound is returned when a referenced page element is absent.
	ErrNotFound = errors.New("page element not found")
	// ErrProductExists is returned when creating a product whose identity is already stored.
	ErrProductExists = errors.New("product already exists")
	// ErrProductNotFound is returned when the catalog has no record for an identity.
	ErrProductNotFound = errors.New("product not found")
	// ErrSyncInProgress is returned when a sync pass is requested while another one runs.
	ErrSyncInProgress = errors.New("sync pass already in progress")
)

// Listing is a product entry as rendered in the newest gallery section.
type Listing struct {
	ID             string
	Title          string
	OriginalNumber string // empty when no marker fragment was found
}

// ProductRecord is the catalog's persisted representation of a listing.
type ProductRecord struct {
	ID                          string     `json:"id" firestore:"id" validate:"required"`
	Title                       string     `json:"title" firestore:"title"`
	OriginalNumber              string     `json:"original_number" firestore:"original_number"`
	ASIN                        string     `json:"asin" firestore:"asin"`
	BrandID                     *int64     `json:"brand_id" firestore:"brand_id"`
	CurrentAmazonPrice          *float64   `json:"current_amazon_price" firestore:"current_amazon_price" validate:"omitempty,gte=0"`
	CurrentAmazonPriceTimestamp *time.Time `json:"current_amazon_price_timestamp" firestore:"current_amazon_price_timestamp"`
	VisynetMaxPrice             *float64   `json:"visynet_max_price" firestore:"visynet_max_price" validate:"omitempty,gte=0"`
}

// Threshold returns the operator-set threshold price, 0 when none is configured.
func (p ProductRecord) Threshold() float64 {
	if p.VisynetMaxPrice == nil {
		return 0
	}
	return *p.VisynetMaxPrice
}

// ProductUpdate is the PATCH body for a single product. Nil fields are left untouched.
type ProductUpdate struct {
	Title                       *string    `json:"title,omitempty"`
	OriginalNumber              *string    `json:"original_number,omitempty"`
	ASIN                        *string    `json:"asin,omitempty" validate:"omitempty,asin"`
	BrandID                     *int64     `json:"brand_id,omitempty"`
	CurrentAmazonPrice          *float64   `json:"current_amazon_price,omitempty" validate:"omitempty,gte=0"`
	CurrentAmazonPriceTimestamp *time.Time `json:"current_amazon_price_timestamp,omitempty"`
	VisynetMaxPrice             *float64   `json:"visynet_max_price,omitempty" validate:"omitempty,gte=0"`
}

// Apply copies every set field of u onto p.
func (u ProductUpdate) Apply(p *ProductRecord) {
	if u.Title != nil {
		p.Title = *u.Title
	}
	if u.OriginalNumber != nil {
		p.OriginalNumber = *u.OriginalNumber
	}
	if u.ASIN != nil {
		p.ASIN = *u.ASIN
	}
	if u.BrandID != nil {
		p.BrandID = u.BrandID
	}
	if u.CurrentAmazonPrice != nil {
		p.CurrentAmazonPrice = u.CurrentAmazonPrice
	}
	if u.CurrentAmazonPriceTimestamp != nil {
		p.CurrentAmazonPriceTimestamp = u.CurrentAmazonPriceTimestamp
	}
	if u.VisynetMaxPrice != nil {
		p.VisynetMaxPrice = u.VisynetMaxPrice
	}
}
