package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
		ok       bool
	}{
		{"$49.99", 49.99, true},
		{" $1,299.00 ", 1299.00, true},
		{"€19.95", 19.95, true},
		{"49", 49, true},
		{"", 0, false},
		{"Currently unavailable", 0, false},
		{"$0.00", 0, false},
	}

	for _, tt := range tests {
		v, ok := ParsePrice(tt.input)
		assert.Equal(t, tt.ok, ok, "input %q", tt.input)
		if tt.ok {
			assert.Equal(t, tt.expected, v, "input %q", tt.input)
		}
	}
}

func TestParseRating(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
		ok       bool
	}{
		{"4.5 out of 5 stars", 4.5, true},
		{"4,6 von 5 Sternen", 4.6, true},
		{"5.0 out of 5 stars", 5.0, true},
		{"", 0, false},
		{"no stars here", 0, false},
		{"9.9 out of 5 stars", 0, false},
	}

	for _, tt := range tests {
		v, ok := ParseRating(tt.input)
		assert.Equal(t, tt.ok, ok, "input %q", tt.input)
		if tt.ok {
			assert.Equal(t, tt.expected, v, "input %q", tt.input)
		}
	}
}

func TestParseCount(t *testing.T) {
	tests := []struct {
		input    string
		expected int
		ok       bool
	}{
		{"1,234", 1234, true},
		{"12,345 ratings", 12345, true},
		{"7", 7, true},
		{"", 0, false},
		{"no ratings", 0, false},
	}

	for _, tt := range tests {
		v, ok := ParseCount(tt.input)
		assert.Equal(t, tt.ok, ok, "input %q", tt.input)
		if tt.ok {
			assert.Equal(t, tt.expected, v, "input %q", tt.input)
		}
	}
}

func TestASINFromURL(t *testing.T) {
	tests := []struct {
		url      string
		expected string
	}{
		{"https://www.amazon.com/dp/B0TESTASIN", "B0TESTASIN"},
		{"https://www.amazon.com/Some-Name/dp/B0FROMURL1/ref=sr_1_1?keywords=x", "B0FROMURL1"},
		{"/dp/B0RELATIVE", "B0RELATIVE"},
		{"https://www.amazon.com/gp/help", ""},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, ASINFromURL(tt.url), "url %q", tt.url)
	}
}
