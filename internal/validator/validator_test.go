package validator

import (
	"testing"

	"github.com/pauljones0/gallery-price-sync/internal/models"
)

func ptr[T any](v T) *T { return &v }

func TestValidator_ValidateStruct(t *testing.T) {
	v := New()

	tests := []struct {
		name    string
		value   interface{}
		wantErr bool
	}{
		{
			name:  "Valid record",
			value: models.ProductRecord{ID: "p-1", Title: "Bremsscheibe", VisynetMaxPrice: ptr(19.5)},
		},
		{
			name:    "Missing ID",
			value:   models.ProductRecord{Title: "Bremsscheibe"},
			wantErr: true,
		},
		{
			name:    "Negative threshold",
			value:   models.ProductRecord{ID: "p-1", VisynetMaxPrice: ptr(-1.0)},
			wantErr: true,
		},
		{
			name:  "Update with ASIN",
			value: models.ProductUpdate{ASIN: ptr("B00TEST123"), CurrentAmazonPrice: ptr(12.0)},
		},
		{
			name:  "Update clearing ASIN",
			value: models.ProductUpdate{ASIN: ptr("")},
		},
		{
			name:  "Update clearing ASIN and threshold",
			value: &models.ProductUpdate{ASIN: ptr(""), VisynetMaxPrice: ptr(0.0)},
		},
		{
			name:    "Update with short ASIN",
			value:   models.ProductUpdate{ASIN: ptr("B00")},
			wantErr: true,
		},
		{
			name:    "Update with lowercase ASIN",
			value:   models.ProductUpdate{ASIN: ptr("b00test123")},
			wantErr: true,
		},
		{
			name:    "Update with negative price",
			value:   models.ProductUpdate{CurrentAmazonPrice: ptr(-3.0)},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := v.ValidateStruct(tt.value); (err != nil) != tt.wantErr {
				t.Errorf("ValidateStruct() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
