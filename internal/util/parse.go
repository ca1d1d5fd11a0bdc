package util

import (
	"regexp"
	"strconv"
	"strings"
)

var nonPriceRegex = regexp.MustCompile(`[^\d.,]`)

var separatorRemover = strings.NewReplacer(".", "", ",", "")

// ParseAmount parses a single price token such as "24,99", "€19.90" or "1.299,00".
// The last comma or period is taken as the decimal separator; any earlier ones are
// treated as thousands separators.
func ParseAmount(s string) (float64, bool) {
	cleaned := strings.Trim(nonPriceRegex.ReplaceAllString(s, ""), ".,")
	if cleaned == "" {
		return 0, false
	}
	if last := strings.LastIndexAny(cleaned, ".,"); last >= 0 {
		cleaned = separatorRemover.Replace(cleaned[:last]) + "." + cleaned[last+1:]
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// PriceTokens returns every amount found in s, in order of appearance.
// Tokens are whitespace-delimited; tokens without digits are skipped.
func PriceTokens(s string) []float64 {
	var amounts []float64
	for _, field := range strings.Fields(s) {
		if v, ok := ParseAmount(field); ok {
			amounts = append(amounts, v)
		}
	}
	return amounts
}
