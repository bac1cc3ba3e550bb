package commands

import (
	"bookprice-pipeline/internal/apis/rates"
	"bookprice-pipeline/internal/components/telemetry"
	"bookprice-pipeline/internal/config"
	"bookprice-pipeline/internal/cryptobox"
	"bookprice-pipeline/internal/pipeline"
	"bookprice-pipeline/internal/runstore"
	"bookprice-pipeline/internal/scrapers/catalogue"
	"bookprice-pipeline/lib/restyutil"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(runCmd)
}

// restyDump returns where the HTTP exchanges of a component are dumped, nil
// unless verbose logging is enabled.
func restyDump(component string) restyutil.InstrumentOutput {
	if !cfg.Log.Verbose || cfg.Log.RestyDump == "" {
		return nil
	}
	out, err := restyutil.NewFilesystemOutput(filepath.Join(cfg.Log.RestyDump, component))
	if err != nil {
		slog.Warn("failed to create resty dump directory", "component", component, "err", err)
		return nil
	}
	return out
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Runs the pipeline once and writes the output artifact.",
	RunE: func(cmd *cobra.Command, args []string) error {
		tel := telemetry.SlogAPI{}

		box, err := cryptobox.Open(cfg.Crypto.KeyFile)
		if err != nil {
			return fmt.Errorf("load encryption key: %w", err)
		}

		extractor := catalogue.NewClient(catalogue.Options{
			Timeout:          config.ParseDuration(cfg.Catalogue.Timeout, time.Second*10),
			CurrencySymbol:   cfg.Catalogue.CurrencySymbol,
			Artifacts:        cfg.Catalogue.Artifacts,
			CloudflareBypass: cfg.Catalogue.CloudflareBypass,
			Dump:             restyDump("catalogue"),
		}, tel)

		rateClient := rates.NewClient(rates.Options{
			URL:      cfg.Rates.URL,
			Timeout:  config.ParseDuration(cfg.Rates.Timeout, time.Second*5),
			Fallback: cfg.Rates.FallbackRate(),
			Dump:     restyDump("rates"),
		}, tel)

		p := pipeline.New(pipeline.Options{
			SourceURL:      cfg.Catalogue.URL,
			Headers:        map[string]string{"User-Agent": cfg.Catalogue.UserAgent},
			Base:           cfg.Rates.Base,
			Quote:          cfg.Rates.Quote,
			WholesaleRatio: cfg.Pricing.Ratio(),
			OutputFile:     cfg.Output.File,
		}, extractor, rateClient, box, tel)

		if cfg.History.Database != "" {
			store, err := runstore.Open(cfg.History.Database)
			if err != nil {
				slog.Warn("run history is unavailable", "err", err)
			} else {
				defer store.Close()
				p.WithRecorder(store)
			}
		}

		slog.Info("starting pipeline", "source", cfg.Catalogue.URL)
		result, err := p.Run(cmd.Context())
		if err != nil {
			return fmt.Errorf("run %s failed: %w", result.ID, err)
		}

		switch result.Status {
		case pipeline.StatusEmpty:
			slog.Warn("pipeline finished without data", "run", result.ID)
		default:
			slog.Info(
				"pipeline finished",
				"run", result.ID,
				"records", len(result.Records),
				"rate", result.Rate.String(),
				"output", result.OutputFile,
				"took", result.FinishedAt.Sub(result.StartedAt).String(),
			)
		}
		return nil
	},
}
