package runstore

import (
	"bookprice-pipeline/internal/pipeline"
	"bookprice-pipeline/lib/sqliteutil"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func setup(t testing.TB) Store {
	store, err := Open(sqliteutil.Memory)
	require.NoError(t, err)
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

func ptr(s string) *string {
	return &s
}

func completedRun(start time.Time) pipeline.Result {
	return pipeline.Result{
		ID:         uuid.New(),
		StartedAt:  start,
		FinishedAt: start.Add(time.Second * 2),
		Status:     pipeline.StatusCompleted,
		Rate:       decimal.RequireFromString("1.25"),
		Listings:   2,
		OutputFile: "data/processed_books.json",
		Records: []pipeline.ProcessedRecord{
			{
				BookTitle:           "A Light in the Attic",
				RetailPriceUSD:      decimal.RequireFromString("62.5"),
				WholesaleCostSecret: ptr("gAAAAAB-token-1"),
			},
			{
				BookTitle:      "Tipping the Velvet",
				RetailPriceUSD: decimal.RequireFromString("67.18"),
			},
		},
	}
}

func TestRecordRun(t *testing.T) {
	store := setup(t)
	ctx := context.Background()

	start := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	completed := completedRun(start)
	require.NoError(t, store.RecordRun(ctx, completed))

	empty := pipeline.Result{
		ID:         uuid.New(),
		StartedAt:  start.Add(time.Hour),
		FinishedAt: start.Add(time.Hour),
		Status:     pipeline.StatusEmpty,
		OutputFile: "data/processed_books.json",
	}
	require.NoError(t, store.RecordRun(ctx, empty))

	runs, err := store.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	require.Equal(t, empty.ID, runs[0].ID)
	require.Equal(t, pipeline.StatusEmpty, runs[0].Status)
	require.True(t, runs[0].Rate.IsZero())
	require.Equal(t, 0, runs[0].RecordCount)

	require.Equal(t, completed.ID, runs[1].ID)
	require.Equal(t, pipeline.StatusCompleted, runs[1].Status)
	require.True(t, decimal.RequireFromString("1.25").Equal(runs[1].Rate))
	require.Equal(t, 2, runs[1].Listings)
	require.Equal(t, 2, runs[1].RecordCount)
	require.Equal(t, start, runs[1].StartedAt)
	require.Equal(t, start.Add(time.Second*2), runs[1].FinishedAt)

	limited, err := store.ListRuns(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	require.Equal(t, empty.ID, limited[0].ID)

	records, err := store.GetRecords(ctx, completed.ID)
	require.NoError(t, err)
	if diff := cmp.Diff(
		completed.Records,
		records,
		cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) }),
	); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}

	none, err := store.GetRecords(ctx, empty.ID)
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestRecordRunDuplicate(t *testing.T) {
	store := setup(t)
	ctx := context.Background()

	run := completedRun(time.Now())
	require.NoError(t, store.RecordRun(ctx, run))
	require.Error(t, store.RecordRun(ctx, run))

	// the failed transaction must not leave partial records behind
	records, err := store.GetRecords(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, records, 2)
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history", "runs.db")
	ctx := context.Background()

	store, err := Open(path)
	require.NoError(t, err)
	run := completedRun(time.Now())
	require.NoError(t, store.RecordRun(ctx, run))
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	runs, err := reopened.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, run.ID, runs[0].ID)
}
