package store

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// productPathRegex matches the product identifier (ASIN) segment of a product page path.
var productPathRegex = regexp.MustCompile(`/(?:dp|gp/product)/([A-Z0-9]{10})(?:[/?]|$)`)

type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// ValidateURL checks that raw looks like a product page: http(s) scheme, a host
// and a /dp/<ASIN> or /gp/product/<ASIN> segment.
func ValidateURL(raw string) error {
	if _, err := ProductID(raw); err != nil {
		return err
	}
	return nil
}

// ProductID returns the ASIN of a product page URL.
func ProductID(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", &ValidationError{Field: "url", Value: raw, Reason: "not a URL"}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", &ValidationError{Field: "url", Value: raw, Reason: "scheme must be http or https"}
	}
	if u.Host == "" {
		return "", &ValidationError{Field: "url", Value: raw, Reason: "missing host"}
	}
	m := productPathRegex.FindStringSubmatch(u.Path)
	if m == nil {
		return "", &ValidationError{Field: "url", Value: raw, Reason: "no product identifier in path"}
	}
	return m[1], nil
}

// ShortURL trims a product URL down to https://<host>/dp/<ASIN> for display.
// URLs that do not parse are returned unchanged.
func ShortURL(raw string) string {
	id, err := ProductID(raw)
	if err != nil {
		return raw
	}
	u, _ := url.Parse(strings.TrimSpace(raw))
	return "https://" + u.Host + "/dp/" + id
}

// ValidateTargetPrice accepts positive amounts with at most two decimal places,
// which is what the product file stores.
func ValidateTargetPrice(p decimal.Decimal) error {
	if !p.IsPositive() {
		return &ValidationError{Field: "target price", Value: p.String(), Reason: "must be positive"}
	}
	if !p.Equal(p.Round(2)) {
		return &ValidationError{Field: "target price", Value: p.String(), Reason: "at most two decimal places"}
	}
	return nil
}

// ParseTargetPrice parses interface input such as "19.99" or "1,299".
func ParseTargetPrice(s string) (decimal.Decimal, error) {
	clean := strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	p, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, &ValidationError{Field: "target price", Value: s, Reason: "not a decimal number"}
	}
	if err := ValidateTargetPrice(p); err != nil {
		return decimal.Zero, err
	}
	return p, nil
}
