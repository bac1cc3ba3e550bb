// Package pipeline runs a single extract, convert, encrypt and persist pass
// over a catalogue page.
package pipeline

import (
	"bookprice-pipeline/internal/components/assert"
	"bookprice-pipeline/internal/components/chrono"
	"bookprice-pipeline/internal/components/telemetry"
	"bookprice-pipeline/internal/scrapers/catalogue"
	libtelemetry "bookprice-pipeline/lib/telemetry"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

const (
	report_pipeline_extract   = "pipeline.extract"
	report_pipeline_rate      = "pipeline.rate"
	report_pipeline_transform = "pipeline.transform"
	report_pipeline_persist   = "pipeline.persist"
	report_pipeline_record    = "pipeline.record"
)

const instrumentationName = "bookprice-pipeline/internal/pipeline"

type Options struct {
	SourceURL string
	Headers   map[string]string
	Base      string
	Quote     string
	// WholesaleRatio is the share of the retail price that is the wholesale cost.
	WholesaleRatio decimal.Decimal
	OutputFile     string
}

type Pipeline struct {
	opts      Options
	extractor Extractor
	rates     RateProvider
	box       Encrypter
	recorder  RunRecorder
	clock     chrono.API
	tel       telemetry.API

	tracer  trace.Tracer
	runs    metric.Int64Counter
	records metric.Int64Counter
}

func New(opts Options, extractor Extractor, rates RateProvider, box Encrypter, tel telemetry.API) *Pipeline {
	assert.NotNil(extractor, "extractor")
	assert.NotNil(rates, "rate provider")
	assert.NotNil(box, "encrypter")
	assert.NotNil(tel, "telemetry")
	assert.NotEmptyStr(opts.OutputFile, "output file")
	if !opts.WholesaleRatio.IsPositive() {
		panic(fmt.Sprintf("wholesale ratio must be positive, got %s", opts.WholesaleRatio))
	}
	tel = telemetry.NewScopedAPI("pipeline", tel)

	meter := libtelemetry.Meter(instrumentationName)
	runs, err := meter.Int64Counter(
		"bookprice.runs",
		metric.WithDescription("Pipeline runs by final status."),
	)
	if err != nil {
		tel.ReportBroken("pipeline.new", err)
		runs = noop.Int64Counter{}
	}
	records, err := meter.Int64Counter(
		"bookprice.records_written",
		metric.WithDescription("Records written to the output artifact."),
	)
	if err != nil {
		tel.ReportBroken("pipeline.new", err)
		records = noop.Int64Counter{}
	}

	return &Pipeline{
		opts:      opts,
		extractor: extractor,
		rates:     rates,
		box:       box,
		clock:     chrono.NewStandardImpl(),
		tel:       tel,
		tracer:    libtelemetry.Tracer(instrumentationName),
		runs:      runs,
		records:   records,
	}
}

// WithRecorder makes every run be recorded to r.
func (p *Pipeline) WithRecorder(r RunRecorder) *Pipeline {
	p.recorder = r
	return p
}

func (p *Pipeline) WithClock(clock chrono.API) *Pipeline {
	p.clock = clock
	return p
}

// Run executes one pass of the pipeline.
//
// A catalogue with no listings ends the run early with StatusEmpty and a nil error,
// the only failures returned are encryption and persistence errors.
func (p *Pipeline) Run(ctx context.Context) (Result, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.Run")
	defer span.End()

	result := Result{
		ID:         uuid.New(),
		StartedAt:  p.clock.Now(),
		OutputFile: p.opts.OutputFile,
	}
	span.SetAttributes(attribute.String("run.id", result.ID.String()))

	err := p.run(ctx, &result)
	result.FinishedAt = p.clock.Now()
	if err != nil {
		result.Status = StatusFailed
		result.Error = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, "run failed")
	}

	p.runs.Add(ctx, 1, metric.WithAttributes(attribute.String("status", string(result.Status))))
	p.record(ctx, result)
	return result, err
}

func (p *Pipeline) run(ctx context.Context, result *Result) error {
	listings := p.extract(ctx)
	result.Listings = len(listings)
	if len(listings) == 0 {
		p.tel.ReportWarning(report_pipeline_extract, "no listings extracted, nothing to write", p.opts.SourceURL)
		result.Status = StatusEmpty
		return nil
	}

	rate := p.rate(ctx)
	result.Rate = rate

	records, err := p.transform(ctx, listings, rate)
	if err != nil {
		p.tel.ReportBroken(report_pipeline_transform, err)
		return err
	}

	err = p.persist(ctx, records)
	if err != nil {
		p.tel.ReportBroken(report_pipeline_persist, err, p.opts.OutputFile)
		return err
	}
	result.Records = records
	p.records.Add(ctx, int64(len(records)))
	p.tel.ReportCount(report_pipeline_persist, int64(len(records)))

	result.Status = StatusCompleted
	return nil
}

func (p *Pipeline) extract(ctx context.Context) []catalogue.RawListing {
	ctx, span := p.tracer.Start(ctx, "pipeline.extract")
	defer span.End()

	listings := p.extractor.FetchListings(ctx, p.opts.SourceURL, p.opts.Headers)
	span.SetAttributes(attribute.Int("listings", len(listings)))
	return listings
}

func (p *Pipeline) rate(ctx context.Context) decimal.Decimal {
	ctx, span := p.tracer.Start(ctx, "pipeline.rate")
	defer span.End()

	rate := p.rates.GetRate(ctx, p.opts.Base, p.opts.Quote)
	span.SetAttributes(attribute.String("rate", rate.String()))
	p.tel.ReportDebug(report_pipeline_rate, p.opts.Base, p.opts.Quote, rate.String())
	return rate
}

// Convert returns the retail price in the quote currency and the wholesale cost
// derived from it, each rounded half away from zero to 2 places.
func Convert(price, rate, wholesaleRatio decimal.Decimal) (retail, wholesale decimal.Decimal) {
	retail = price.Mul(rate).Round(2)
	wholesale = retail.Mul(wholesaleRatio).Round(2)
	return retail, wholesale
}

func (p *Pipeline) transform(ctx context.Context, listings []catalogue.RawListing, rate decimal.Decimal) ([]ProcessedRecord, error) {
	_, span := p.tracer.Start(ctx, "pipeline.transform")
	defer span.End()

	records := make([]ProcessedRecord, 0, len(listings))
	for _, listing := range listings {
		retail, wholesale := Convert(listing.Price, rate, p.opts.WholesaleRatio)
		secret, err := p.box.Encrypt(wholesale)
		if err != nil {
			return nil, fmt.Errorf("encrypt wholesale cost of %q: %w", listing.Title, err)
		}
		records = append(records, ProcessedRecord{
			BookTitle:           listing.Title,
			RetailPriceUSD:      retail,
			WholesaleCostSecret: secret,
		})
	}
	return records, nil
}

// EncodeRecords serializes records the way they are written to the output artifact.
func EncodeRecords(records []ProcessedRecord) ([]byte, error) {
	if records == nil {
		records = []ProcessedRecord{}
	}
	buf := bytes.NewBuffer(nil)
	encoder := json.NewEncoder(buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "    ")
	err := encoder.Encode(records)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (p *Pipeline) persist(ctx context.Context, records []ProcessedRecord) error {
	_, span := p.tracer.Start(ctx, "pipeline.persist")
	defer span.End()

	contents, err := EncodeRecords(records)
	if err != nil {
		return fmt.Errorf("encode records: %w", err)
	}
	err = os.MkdirAll(filepath.Dir(p.opts.OutputFile), 0o755)
	if err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	err = renameio.WriteFile(p.opts.OutputFile, contents, 0o644)
	if err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	p.tel.ReportDebug("wrote output artifact", p.opts.OutputFile, len(records))
	return nil
}

func (p *Pipeline) record(ctx context.Context, result Result) {
	if p.recorder == nil {
		return
	}
	err := p.recorder.RecordRun(ctx, result)
	if err != nil {
		p.tel.ReportWarning(report_pipeline_record, err, result.ID.String())
	}
}

// ReadArtifact reads an output artifact written by Run.
func ReadArtifact(path string) ([]ProcessedRecord, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var records []ProcessedRecord
	err = json.Unmarshal(contents, &records)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return records, nil
}
