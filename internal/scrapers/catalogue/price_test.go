package catalogue

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestPriceCleanerParse(t *testing.T) {
	cleaner := NewPriceCleaner("£", []string{"Â"})

	testCases := []struct {
		raw      string
		expected string
	}{
		{raw: "£54.23", expected: "54.23"},
		{raw: "Â£54.23", expected: "54.23"},
		{raw: "  £ 54.23\n", expected: "54.23"},
		{raw: "54", expected: "54"},
		{raw: "£1,299.00", expected: "1299"},
		{raw: "£44.34 GBP", expected: "44.34"},
		{raw: "�13.99", expected: "13.99"},
		{raw: "£12.00 each", expected: "12"},
	}

	for _, test := range testCases {
		price, err := cleaner.Parse(test.raw)
		require.NoError(t, err, test.raw)
		require.True(
			t,
			decimal.RequireFromString(test.expected).Equal(price),
			"%q: expected %s, got %s", test.raw, test.expected, price,
		)
	}
}

func TestPriceCleanerRejectsNoDigits(t *testing.T) {
	cleaner := NewPriceCleaner("£", []string{"Â"})

	for _, raw := range []string{
		"", "£", "price on request", "Â£.", "£1.2.3",
		"£1e9000000", "£1E5", "£2.5e-3", "£ 7e+2 GBP",
	} {
		_, err := cleaner.Parse(raw)
		require.Error(t, err, raw)
	}
}
