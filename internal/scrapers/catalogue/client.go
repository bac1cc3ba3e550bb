package catalogue

import (
	"bookprice-pipeline/internal/components/assert"
	"bookprice-pipeline/internal/components/telemetry"
	"bookprice-pipeline/lib/htmlutil"
	"bookprice-pipeline/lib/restyutil"
	"bytes"
	"context"
	"fmt"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
)

const (
	report_client_fetch_listings = "client.fetch-listings"
	report_client_parse_listing  = "client.parse-listing"
	report_client_drop_listing   = "client.drop-listing"
)

const (
	selectorProduct = "article.product_pod"
	selectorTitle   = "h3 a"
	selectorPrice   = "p.price_color"
)

type Options struct {
	Timeout          time.Duration
	CurrencySymbol   string
	Artifacts        []string
	CloudflareBypass bool
	// Dump receives every HTTP exchange in verbose mode, it can be nil.
	Dump restyutil.InstrumentOutput
}

// Client scrapes a single catalogue listing page.
type Client struct {
	http    *resty.Client
	cleaner PriceCleaner
	tel     telemetry.API
}

func NewClient(opts Options, tel telemetry.API) Client {
	assert.NotNil(tel, "telemetry")
	tel = telemetry.NewScopedAPI("catalogue_scraper", tel)

	httpClient := resty.New()
	if opts.CloudflareBypass {
		httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	}
	if opts.Timeout > 0 {
		httpClient.SetTimeout(opts.Timeout)
	}
	restyutil.InstrumentClient(httpClient, nil, opts.Dump)
	telemetry.InstrumentResty(httpClient, tel)

	return Client{
		http:    httpClient,
		cleaner: NewPriceCleaner(opts.CurrencySymbol, opts.Artifacts),
		tel:     tel,
	}
}

// FetchListings downloads sourceURL and parses every listing on it, in document order.
//
// It never fails: a network error, a non-2xx status or an unparseable document are
// reported and result in an empty slice, listings that cannot be parsed are dropped
// one at a time.
func (c Client) FetchListings(ctx context.Context, sourceURL string, headers map[string]string) []RawListing {
	c.tel.ReportDebug("connecting to catalogue", sourceURL)

	res, err := c.http.R().
		SetContext(ctx).
		SetHeaders(headers).
		Get(sourceURL)
	if err != nil {
		c.tel.ReportBroken(
			report_client_fetch_listings,
			fmt.Errorf("fetch: %w", err),
			sourceURL,
		)
		return nil
	}
	if res.IsError() {
		c.tel.ReportBroken(
			report_client_fetch_listings,
			fmt.Errorf("unexpected status: %s", res.Status()),
			sourceURL,
		)
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		c.tel.ReportBroken(
			report_client_fetch_listings,
			fmt.Errorf("parse html: %w", err),
			sourceURL,
		)
		return nil
	}

	listings := c.ParseListings(doc)
	c.tel.ReportCount(report_client_fetch_listings, int64(len(listings)))
	return listings
}

// ParseListings extracts every listing in doc, containers are handled independently.
func (c Client) ParseListings(doc *goquery.Document) []RawListing {
	var listings []RawListing
	doc.Find(selectorProduct).Each(func(i int, article *goquery.Selection) {
		priceTag := article.Find(selectorPrice).First()
		if priceTag.Length() == 0 {
			c.tel.ReportDebug("listing has no price, skipping", i)
			return
		}

		title, ok := article.Find(selectorTitle).First().Attr("title")
		if !ok {
			c.tel.ReportWarning(
				report_client_parse_listing,
				fmt.Errorf("listing %d has no title anchor", i),
			)
			return
		}
		title = htmlutil.CleanText(title)

		rawPrice := htmlutil.SelectionText(priceTag)
		price, err := c.cleaner.Parse(rawPrice)
		if err != nil {
			c.tel.ReportWarning(report_client_drop_listing, err, title)
			return
		}

		listings = append(listings, RawListing{
			Title: title,
			Price: price,
		})
	})
	return listings
}
