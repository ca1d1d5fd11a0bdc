// Package validator checks catalog records and edits against their struct tags.
package validator

import (
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
)

var asinRegex = regexp.MustCompile(`^[A-Z0-9]{10}$`)

type Validator struct {
	validate *validator.Validate
}

// New registers the "asin" tag: ten uppercase alphanumerics, or empty to
// clear a product's marketplace identifier.
func New() *Validator {
	v := validator.New()
	_ = v.RegisterValidation("asin", validASIN)
	return &Validator{validate: v}
}

func validASIN(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	return s == "" || asinRegex.MatchString(s)
}

// ValidateStruct returns the failed field constraints of s, if any.
func (v *Validator) ValidateStruct(s any) error {
	if err := v.validate.Struct(s); err != nil {
		return fmt.Errorf("invalid %T: %w", s, err)
	}
	return nil
}
