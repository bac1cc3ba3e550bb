package commands

import (
	"bookprice-pipeline/internal/runstore"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	historyLimit int
	historyRun   string
)

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "The number of runs to list, 0 lists every run.")
	historyCmd.Flags().StringVar(&historyRun, "run", "", "List the records written by a single run instead.")
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history [--limit <n>] [--run <id>]",
	Short: "Lists previous runs recorded in history.database.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.History.Database == "" {
			return fmt.Errorf("history.database is not configured")
		}
		store, err := runstore.Open(cfg.History.Database)
		if err != nil {
			return err
		}
		defer store.Close()

		if historyRun != "" {
			id, err := uuid.Parse(historyRun)
			if err != nil {
				return fmt.Errorf("invalid run id: %w", err)
			}
			records, err := store.GetRecords(cmd.Context(), id)
			if err != nil {
				return err
			}
			t := newTable(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"#", "Title", "Retail (USD)"})
			for i, record := range records {
				t.AppendRow(table.Row{i + 1, shorten(record.BookTitle, 48), record.RetailPriceUSD.StringFixed(2)})
			}
			t.Render()
			return nil
		}

		runs, err := store.ListRuns(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}
		t := newTable(cmd.OutOrStdout())
		t.AppendHeader(table.Row{"Run", "Started", "Status", "Rate", "Listings", "Records", "Error"})
		for _, run := range runs {
			rate := "-"
			if !run.Rate.IsZero() {
				rate = run.Rate.String()
			}
			t.AppendRow(table.Row{
				run.ID.String(),
				run.StartedAt.Local().Format(time.DateTime),
				string(run.Status),
				rate,
				run.Listings,
				run.RecordCount,
				shorten(run.Error, 40),
			})
		}
		t.Render()
		return nil
	},
}
