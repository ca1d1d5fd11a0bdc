package models

// PriceAlert announces that a listing's effective price dropped below its threshold.
type PriceAlert struct {
	Product ProductRecord
	Price   float64 // effective price rendered on the gallery
	Link    string  // marketplace link of the listing
}
