// Package config holds the explicit configuration of a pipeline run, every
// component receives its own section at construction.
package config

import (
	"bookprice-pipeline/lib/configutil"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

type CatalogueConfig struct {
	URL       string `json:"url"`
	UserAgent string `json:"user_agent"`
	Timeout   string `json:"timeout"`
	// CurrencySymbol is stripped from every price before parsing.
	CurrencySymbol string `json:"currency_symbol"`
	// Artifacts are mis-decoded byte sequences that show up next to the
	// currency symbol when the page encoding is misread upstream.
	Artifacts        []string `json:"artifacts"`
	CloudflareBypass bool     `json:"cloudflare_bypass"`
}

type RatesConfig struct {
	// URL may contain a `{base}` placeholder.
	URL      string  `json:"url"`
	Base     string  `json:"base"`
	Quote    string  `json:"quote"`
	Timeout  string  `json:"timeout"`
	Fallback float64 `json:"fallback"`
}

type CryptoConfig struct {
	KeyFile string `json:"key_file"`
}

type OutputConfig struct {
	File string `json:"file"`
}

type PricingConfig struct {
	WholesaleRatio float64 `json:"wholesale_ratio"`
}

type LogConfig struct {
	File    string `json:"file"`
	Verbose bool   `json:"verbose"`
	// RestyDump is a directory full HTTP exchanges are dumped to in verbose mode.
	RestyDump string `json:"resty_dump"`
}

type HistoryConfig struct {
	// Database is a sqlite file runs are recorded to, empty disables history.
	Database string `json:"database"`
}

type Config struct {
	Catalogue CatalogueConfig `json:"catalogue"`
	Rates     RatesConfig     `json:"rates"`
	Crypto    CryptoConfig    `json:"crypto"`
	Output    OutputConfig    `json:"output"`
	Pricing   PricingConfig   `json:"pricing"`
	Log       LogConfig       `json:"log"`
	History   HistoryConfig   `json:"history"`
}

// Defaults returns the configuration used for every field a config file leaves unset.
func Defaults() Config {
	return Config{
		Catalogue: CatalogueConfig{
			URL:            "http://books.toscrape.com/catalogue/category/books/travel_2/index.html",
			UserAgent:      DefaultUserAgent,
			Timeout:        "10s",
			CurrencySymbol: "£",
			Artifacts:      []string{"Â"},
		},
		Rates: RatesConfig{
			URL:      "https://api.exchangerate-api.com/v4/latest/{base}",
			Base:     "GBP",
			Quote:    "USD",
			Timeout:  "5s",
			Fallback: 1.25,
		},
		Crypto: CryptoConfig{
			KeyFile: "secret.key",
		},
		Output: OutputConfig{
			File: "data/processed_books.json",
		},
		Pricing: PricingConfig{
			WholesaleRatio: 0.60,
		},
		Log: LogConfig{
			File:      "logs/pipeline.log",
			RestyDump: ".dev/resty",
		},
	}
}

// Load reads `name` (and its .local override) on top of Defaults.
func Load(name string) (Config, error) {
	cfg, err := configutil.ReadWithDefaults(name, Defaults())
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	err = cfg.Validate()
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Catalogue.URL == "" {
		return fmt.Errorf("catalogue.url is required")
	}
	if c.Rates.URL == "" {
		return fmt.Errorf("rates.url is required")
	}
	if c.Rates.Fallback <= 0 {
		return fmt.Errorf("rates.fallback must be positive, got %v", c.Rates.Fallback)
	}
	if c.Pricing.WholesaleRatio <= 0 {
		return fmt.Errorf("pricing.wholesale_ratio must be positive, got %v", c.Pricing.WholesaleRatio)
	}
	if c.Crypto.KeyFile == "" {
		return fmt.Errorf("crypto.key_file is required")
	}
	if c.Output.File == "" {
		return fmt.Errorf("output.file is required")
	}
	for name, value := range map[string]string{
		"catalogue.timeout": c.Catalogue.Timeout,
		"rates.timeout":     c.Rates.Timeout,
	} {
		_, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// ParseDuration parses d, falling back to `fallback` when d is empty or invalid.
func ParseDuration(d string, fallback time.Duration) time.Duration {
	if d == "" {
		return fallback
	}
	duration, err := time.ParseDuration(d)
	if err != nil {
		return fallback
	}
	return duration
}

func (c RatesConfig) FallbackRate() decimal.Decimal {
	return decimal.NewFromFloat(c.Fallback)
}

func (c PricingConfig) Ratio() decimal.Decimal {
	return decimal.NewFromFloat(c.WholesaleRatio)
}
