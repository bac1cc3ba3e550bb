// Package rates fetches a live currency conversion rate, substituting a fixed
// fallback whenever the rate service cannot be used.
package rates

import (
	"bookprice-pipeline/internal/components/assert"
	"bookprice-pipeline/internal/components/telemetry"
	"bookprice-pipeline/lib/restyutil"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

const (
	report_client_get_rate = "client.get-rate"
	report_client_fallback = "client.fallback"
)

type Options struct {
	// URL may contain a `{base}` placeholder, it is replaced with the base currency.
	URL      string
	Timeout  time.Duration
	Fallback decimal.Decimal
	Dump     restyutil.InstrumentOutput
}

// Client queries an exchangerate-api style service, the response is expected
// to look like `{"base": "GBP", "rates": {"USD": 1.27, ...}}`.
type Client struct {
	http     *resty.Client
	url      string
	fallback decimal.Decimal
	tel      telemetry.API
}

func NewClient(opts Options, tel telemetry.API) Client {
	assert.NotNil(tel, "telemetry")
	assert.NotEmptyStr(opts.URL, "rates url")
	if !opts.Fallback.IsPositive() {
		panic(fmt.Sprintf("rates fallback must be positive, got %s", opts.Fallback))
	}
	tel = telemetry.NewScopedAPI("rates_api", tel)

	httpClient := resty.New()
	if opts.Timeout > 0 {
		httpClient.SetTimeout(opts.Timeout)
	}
	httpClient.SetHeader("Accept", "application/json")
	restyutil.InstrumentClient(httpClient, nil, opts.Dump)
	telemetry.InstrumentResty(httpClient, tel)

	return Client{
		http:     httpClient,
		url:      opts.URL,
		fallback: opts.Fallback,
		tel:      tel,
	}
}

// rates are kept raw, only the quote currency is decoded
type latestResponse struct {
	Base  string                     `json:"base"`
	Rates map[string]json.RawMessage `json:"rates"`
}

// GetRate returns how many units of quote one unit of base is worth.
//
// It always returns a usable rate: any failure is reported and the configured
// fallback is returned instead.
func (c Client) GetRate(ctx context.Context, base, quote string) decimal.Decimal {
	rate, err := c.fetchRate(ctx, base, quote)
	if err != nil {
		c.tel.ReportBroken(report_client_get_rate, err, base, quote)
		c.tel.ReportWarning(report_client_fallback, c.fallback.String())
		return c.fallback
	}
	c.tel.ReportDebug("fetched rate", base, quote, rate.String())
	return rate
}

func (c Client) fetchRate(ctx context.Context, base, quote string) (decimal.Decimal, error) {
	res, err := c.http.R().
		SetContext(ctx).
		SetPathParam("base", strings.ToUpper(base)).
		Get(c.url)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("fetch: %w", err)
	}
	if res.IsError() {
		return decimal.Decimal{}, fmt.Errorf("unexpected status: %s", res.Status())
	}

	var parsed latestResponse
	err = json.Unmarshal(res.Body(), &parsed)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("malformed response: %w", err)
	}
	if parsed.Rates == nil {
		return decimal.Decimal{}, fmt.Errorf("malformed response: no rates")
	}

	rawRate, ok := parsed.Rates[strings.ToUpper(quote)]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("missing rate for %s", quote)
	}
	var rate decimal.Decimal
	err = json.Unmarshal(rawRate, &rate)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("malformed rate for %s: %w", quote, err)
	}
	if !rate.IsPositive() {
		return decimal.Decimal{}, fmt.Errorf("non-positive rate for %s: %s", quote, rate)
	}
	return rate, nil
}
