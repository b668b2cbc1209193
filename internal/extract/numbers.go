package extract

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	asinPattern   = regexp.MustCompile(`/dp/([A-Z0-9]{10})`)
	numberPattern = regexp.MustCompile(`\d+(?:[.,]\d+)?`)
	countPattern  = regexp.MustCompile(`[\d,.]+`)
)

// ASINFromURL recovers the stable product identifier from a product URL, or
// "" when the URL does not carry one. Recovery is best effort: listing dedup
// only holds for cards whose identifier is recoverable.
func ASINFromURL(url string) string {
	matches := asinPattern.FindStringSubmatch(url)
	if len(matches) < 2 {
		return ""
	}
	return matches[1]
}

// ParsePrice reads a price out of free text such as "$49.99" or "$1,299.00",
// assuming US-style separators as rendered by the default amazon.com storefront.
// Returns false when no numeric value is present; never fabricates a zero.
func ParsePrice(text string) (float64, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, false
	}

	// Strip currency symbols and thousands separators before matching.
	cleaned := strings.NewReplacer("$", "", "€", "", "£", "", ",", "", " ", " ").Replace(text)

	match := numberPattern.FindString(cleaned)
	if match == "" {
		return 0, false
	}

	v, err := strconv.ParseFloat(strings.ReplaceAll(match, ",", "."), 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

// ParseRating reads a star rating from text like "4.5 out of 5 stars" or
// "4,6 von 5 Sternen". Values outside (0,5] are rejected.
func ParseRating(text string) (float64, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, false
	}

	match := numberPattern.FindString(text)
	if match == "" {
		return 0, false
	}

	v, err := strconv.ParseFloat(strings.ReplaceAll(match, ",", "."), 64)
	if err != nil || v <= 0 || v > 5 {
		return 0, false
	}
	return v, true
}

// ParseCount reads an integer count from text like "1,234" or "12.456 ratings".
func ParseCount(text string) (int, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, false
	}

	match := countPattern.FindString(text)
	if match == "" {
		return 0, false
	}

	match = strings.NewReplacer(",", "", ".", "").Replace(match)
	v, err := strconv.Atoi(match)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}
