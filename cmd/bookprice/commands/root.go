package commands

import (
	"bookprice-pipeline/internal/config"
	libtelemetry "bookprice-pipeline/lib/telemetry"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

const serviceName = "bookprice"

var (
	configPath string
	verbose    bool

	cfg      config.Config
	cleanups []func() error
)

var rootCmd = &cobra.Command{
	Use:   "bookprice",
	Short: "bookprice scrapes a book catalogue, converts its prices and stores them with an encrypted wholesale cost.",

	SilenceUsage:  true,
	SilenceErrors: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if verbose {
			cfg.Log.Verbose = true
		}

		closeLog, err := libtelemetry.InitSlog(libtelemetry.SlogOptions{
			Verbose: cfg.Log.Verbose,
			LogFile: cfg.Log.File,
			Console: cmd.OutOrStdout(),
		})
		if err != nil {
			return fmt.Errorf("init logging: %w", err)
		}
		cleanups = append(cleanups, closeLog)

		otel, err := libtelemetry.SetupFromEnv(cmd.Context(), serviceName)
		if err != nil {
			slog.Warn("failed to setup telemetry", "err", err)
			return nil
		}
		cleanups = append(cleanups, func() error {
			return otel.Shutdown(context.Background())
		})
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.json5", "The configuration file, a config.local.json5 next to it overrides it.")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging.")
}

func runCleanups() error {
	var errs []error
	for i := len(cleanups) - 1; i >= 0; i-- {
		err := cleanups[i]()
		if err != nil {
			errs = append(errs, err)
		}
	}
	cleanups = nil
	return errors.Join(errs...)
}

func execute(ctx context.Context, args []string, out io.Writer) error {
	rootCmd.SetArgs(args)
	if out != nil {
		rootCmd.SetOut(out)
	}
	err := rootCmd.ExecuteContext(ctx)
	return errors.Join(err, runCleanups())
}

func ExecuteContext(ctx context.Context) {
	if err := execute(ctx, os.Args[1:], nil); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
