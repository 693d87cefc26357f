package core

import (
	"strings"
	"unicode/utf8"
)

// Field length limits applied by LaunchRequest.Validate.
const (
	MaxProductNameLen    = 200
	MaxTargetMarketLen   = 200
	MaxProductDetailsLen = 4000
)

// disallowedTerms is matched against the space-padded, lower-cased request blob.
var disallowedTerms = []string{" malware ", " ransomware ", " exploit ", " bomb "}

// LaunchRequest is the user input for one launch plan. Treat it as immutable
// once Validate has accepted it.
type LaunchRequest struct {
	ProductName    string `json:"product_name"`
	ProductDetails string `json:"product_details"`
	TargetMarket   string `json:"target_market"`
}

// Sanitized returns a copy with surrounding whitespace removed from every field.
func (r LaunchRequest) Sanitized() LaunchRequest {
	return LaunchRequest{
		ProductName:    strings.TrimSpace(r.ProductName),
		ProductDetails: strings.TrimSpace(r.ProductDetails),
		TargetMarket:   strings.TrimSpace(r.TargetMarket),
	}
}

// Validate checks that all fields are present, bounded and free of disallowed
// content. It returns a *ValidationError describing the first violation.
func (r LaunchRequest) Validate() error {
	fields := []struct {
		name  string
		value string
		max   int
	}{
		{"product_name", r.ProductName, MaxProductNameLen},
		{"product_details", r.ProductDetails, MaxProductDetailsLen},
		{"target_market", r.TargetMarket, MaxTargetMarketLen},
	}

	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return NewValidationError(f.name, "is required")
		}

		if utf8.RuneCountInString(f.value) > f.max {
			return NewValidationError(f.name, "exceeds maximum length")
		}
	}

	blob := " " + strings.ToLower(r.ProductName+" "+r.ProductDetails+" "+r.TargetMarket) + " "
	for _, term := range disallowedTerms {
		if strings.Contains(blob, term) {
			return NewValidationError("request", "appears to contain disallowed content")
		}
	}

	return nil
}
