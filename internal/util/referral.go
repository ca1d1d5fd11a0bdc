package util

import (
	"net/url"
	"strings"
)

// AppendAffiliateTag sets the marketplace "tag" query parameter on Amazon links.
// It returns the resulting URL and whether it was changed.
func AppendAffiliateTag(rawURL, tag string) (string, bool) {
	if tag == "" {
		return rawURL, false
	}
	parsedURL, err := url.Parse(rawURL)
	if err != nil || !strings.Contains(parsedURL.Host, "amazon.") {
		return rawURL, false
	}

	queryParams := parsedURL.Query()
	if queryParams.Get("tag") == tag {
		return rawURL, false
	}
	queryParams.Set("tag", tag)
	parsedURL.RawQuery = queryParams.Encode()
	return parsedURL.String(), true
}
