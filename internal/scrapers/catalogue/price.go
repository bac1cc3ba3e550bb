package catalogue

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	nonNumeric = regexp.MustCompile(`[^\d.]`)
	// plainNumber excludes signs and exponents, decimal.NewFromString accepts both.
	plainNumber = regexp.MustCompile(`^(\d+\.?\d*|\.\d+)$`)
	exponent    = regexp.MustCompile(`\d\s*[eE]\s*[+-]?\d`)
)

// PriceCleaner turns the text of a price element into a decimal.
type PriceCleaner struct {
	// Strip holds the currency symbol followed by every known encoding artifact.
	Strip []string
}

func NewPriceCleaner(currencySymbol string, artifacts []string) PriceCleaner {
	strip := []string{}
	if currencySymbol != "" {
		strip = append(strip, currencySymbol)
	}
	for _, a := range artifacts {
		if a != "" {
			strip = append(strip, a)
		}
	}
	return PriceCleaner{Strip: strip}
}

// Parse strips the currency symbol and artifacts, then parses what is left. When
// that fails every character that is not a digit or '.' is removed and the
// result is parsed again. Prices written with an exponent are rejected.
func (c PriceCleaner) Parse(raw string) (decimal.Decimal, error) {
	cleaned := raw
	for _, s := range c.Strip {
		cleaned = strings.ReplaceAll(cleaned, s, "")
	}
	cleaned = strings.TrimSpace(cleaned)
	if exponent.MatchString(cleaned) {
		return decimal.Decimal{}, fmt.Errorf("unparseable price %q: exponent notation", raw)
	}

	if plainNumber.MatchString(cleaned) {
		price, err := decimal.NewFromString(cleaned)
		if err == nil {
			return price, nil
		}
	}

	digits := nonNumeric.ReplaceAllString(cleaned, "")
	if !plainNumber.MatchString(digits) {
		return decimal.Decimal{}, fmt.Errorf("unparseable price %q", raw)
	}
	price, err := decimal.NewFromString(digits)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("unparseable price %q: %w", raw, err)
	}
	return price, nil
}
