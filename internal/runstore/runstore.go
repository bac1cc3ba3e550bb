// Package runstore keeps a history of pipeline runs and the records they wrote
// in a sqlite database.
package runstore

import (
	"bookprice-pipeline/internal/pipeline"
	"bookprice-pipeline/lib/sqliteutil"
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

//go:embed schema.sql
var Schema string

// Run is a summary of a recorded run.
type Run struct {
	ID          uuid.UUID
	StartedAt   time.Time
	FinishedAt  time.Time
	Status      pipeline.Status
	Rate        decimal.Decimal
	Listings    int
	RecordCount int
	OutputFile  string
	Error       string
}

type Store struct {
	db     *sql.DB
	makeTx sqliteutil.MakeTx
}

// Open opens the database at path and makes sure the schema exists.
func Open(path string) (Store, error) {
	db, err := sqliteutil.OpenDB(path)
	if err != nil {
		return Store{}, fmt.Errorf("open run history: %w", err)
	}
	store, err := New(db)
	if err != nil {
		db.Close()
		return Store{}, err
	}
	return store, nil
}

func New(db *sql.DB) (Store, error) {
	_, err := db.Exec(Schema)
	if err != nil {
		return Store{}, fmt.Errorf("create run history schema: %w", err)
	}
	return Store{db: db, makeTx: sqliteutil.NewMakeTx(db)}, nil
}

func (s Store) Close() error {
	return s.db.Close()
}

func (s Store) RecordRun(ctx context.Context, result pipeline.Result) error {
	tx, discard, commit, err := s.makeTx()
	if err != nil {
		return err
	}
	defer discard()

	rate := ""
	if !result.Rate.IsZero() {
		rate = result.Rate.String()
	}

	_, err = tx.ExecContext(
		ctx,
		`insert into run (id, started_at, finished_at, status, rate, listings, record_count, output_file, error)
		values (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		result.ID.String(),
		result.StartedAt.UnixMilli(),
		result.FinishedAt.UnixMilli(),
		string(result.Status),
		rate,
		result.Listings,
		len(result.Records),
		result.OutputFile,
		result.Error,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for i, record := range result.Records {
		var secret sql.NullString
		if record.WholesaleCostSecret != nil {
			secret = sql.NullString{String: *record.WholesaleCostSecret, Valid: true}
		}
		_, err = tx.ExecContext(
			ctx,
			`insert into record (run_id, position, book_title, retail_price_usd, wholesale_cost_secret)
			values (?, ?, ?, ?, ?)`,
			result.ID.String(),
			i,
			record.BookTitle,
			record.RetailPriceUSD.String(),
			secret,
		)
		if err != nil {
			return fmt.Errorf("insert record %d: %w", i, err)
		}
	}

	return commit()
}

// ListRuns returns the most recent runs first, limit <= 0 returns every run.
func (s Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(
		ctx,
		`select id, started_at, finished_at, status, rate, listings, record_count, output_file, error
		from run order by started_at desc, rowid desc limit ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			id                    string
			startedAt, finishedAt int64
			status, rate          string
			run                   Run
		)
		err = rows.Scan(
			&id,
			&startedAt,
			&finishedAt,
			&status,
			&rate,
			&run.Listings,
			&run.RecordCount,
			&run.OutputFile,
			&run.Error,
		)
		if err != nil {
			return nil, err
		}

		run.ID, err = uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("run id %q: %w", id, err)
		}
		run.StartedAt = time.UnixMilli(startedAt).UTC()
		run.FinishedAt = time.UnixMilli(finishedAt).UTC()
		run.Status = pipeline.Status(status)
		if rate != "" {
			run.Rate, err = decimal.NewFromString(rate)
			if err != nil {
				return nil, fmt.Errorf("run %s rate: %w", id, err)
			}
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRecords returns the records written by a run in their original order.
func (s Store) GetRecords(ctx context.Context, runID uuid.UUID) ([]pipeline.ProcessedRecord, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`select book_title, retail_price_usd, wholesale_cost_secret
		from record where run_id = ? order by position`,
		runID.String(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []pipeline.ProcessedRecord
	for rows.Next() {
		var (
			record pipeline.ProcessedRecord
			retail string
			secret sql.NullString
		)
		err = rows.Scan(&record.BookTitle, &retail, &secret)
		if err != nil {
			return nil, err
		}
		record.RetailPriceUSD, err = decimal.NewFromString(retail)
		if err != nil {
			return nil, fmt.Errorf("retail price of %q: %w", record.BookTitle, err)
		}
		if secret.Valid {
			record.WholesaleCostSecret = &secret.String
		}
		records = append(records, record)
	}
	return records, rows.Err()
}
