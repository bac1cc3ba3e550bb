package pipeline

import (
	"bookprice-pipeline/internal/scrapers/catalogue"
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Extractor interface {
	FetchListings(ctx context.Context, sourceURL string, headers map[string]string) []catalogue.RawListing
}

type RateProvider interface {
	GetRate(ctx context.Context, base, quote string) decimal.Decimal
}

type Encrypter interface {
	Encrypt(value any) (*string, error)
}

// RunRecorder persists the outcome of every run, it is optional.
type RunRecorder interface {
	RecordRun(ctx context.Context, result Result) error
}

// ProcessedRecord is a single entry of the output artifact.
type ProcessedRecord struct {
	BookTitle      string          `json:"book_title"`
	RetailPriceUSD decimal.Decimal `json:"retail_price_usd"`
	// WholesaleCostSecret is an encrypted token of the wholesale cost, it
	// is nil if there was no value to encrypt.
	WholesaleCostSecret *string `json:"wholesale_cost_secret"`
}

// MarshalJSON writes the retail price as a JSON number instead of a string.
func (r ProcessedRecord) MarshalJSON() ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	encoder := json.NewEncoder(buf)
	encoder.SetEscapeHTML(false)
	err := encoder.Encode(struct {
		BookTitle           string      `json:"book_title"`
		RetailPriceUSD      json.Number `json:"retail_price_usd"`
		WholesaleCostSecret *string     `json:"wholesale_cost_secret"`
	}{
		BookTitle:           r.BookTitle,
		RetailPriceUSD:      json.Number(r.RetailPriceUSD.String()),
		WholesaleCostSecret: r.WholesaleCostSecret,
	})
	if err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

type Status string

const (
	StatusCompleted Status = "completed"
	// StatusEmpty means the catalogue yielded no listings, nothing was written.
	StatusEmpty  Status = "empty"
	StatusFailed Status = "failed"
)

type Result struct {
	ID         uuid.UUID
	StartedAt  time.Time
	FinishedAt time.Time
	Status     Status
	// Rate is zero if the run never reached the rate stage.
	Rate       decimal.Decimal
	Listings   int
	// Records is only set once the artifact holding them has been written.
	Records    []ProcessedRecord
	OutputFile string
	Error      string
}
