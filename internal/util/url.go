package util

import (
	"fmt"
	"net/url"
	"strings"
)

// NormalizeBaseURL validates an http(s) base URL and strips a trailing slash.
func NormalizeBaseURL(rawURL string) (string, error) {
	parsedURL, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return rawURL, err
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return rawURL, fmt.Errorf("invalid URL scheme %q: only http and https allowed", parsedURL.Scheme)
	}
	if parsedURL.Host == "" {
		return rawURL, fmt.Errorf("URL %q has no host", rawURL)
	}
	parsedURL.Path = strings.TrimRight(parsedURL.Path, "/")
	parsedURL.RawPath = ""
	return parsedURL.String(), nil
}

// MarketplaceLink returns the product page for asin, or a marketplace search for
// originalNumber when no ASIN is known.
func MarketplaceLink(baseURL, asin, originalNumber string) string {
	if asin != "" {
		return baseURL + "/dp/" + url.PathEscape(asin)
	}
	return baseURL + "/s?k=" + url.QueryEscape(originalNumber)
}
