package catalogue

import "github.com/shopspring/decimal"

// RawListing is a single product entry as it appears on the listing page,
// the price is in the catalogue's own currency.
type RawListing struct {
	Title string
	Price decimal.Decimal
}
