package telemetry

import (
	"bookprice-pipeline/lib/configutil"
	"context"
	"log/slog"
	"os"
	"strings"
	"testing"
)

// SetupFromEnv searches up the filesystem from the cwd to find a file
// called telemetry.json5, once found it will then use it as a config to
// setup telemetry. No file means telemetry stays on the no-op providers.
func SetupFromEnv(ctx context.Context, serviceName string) (Telemetry, error) {
	config, err := configutil.ReadRecursively[Config]("telemetry.json5")
	if os.IsNotExist(err) {
		slog.Debug("no telemetry.json5 found, traces and metrics are disabled")
		return Telemetry{}, nil
	}
	if err != nil {
		return Telemetry{}, err
	}
	return Setup(ctx, serviceName, config)
}

type testWriter struct {
	t testing.TB
}

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

// SetupForTesting routes debug level logging into the test log for the
// duration of the test.
func SetupForTesting(t testing.TB) {
	previous := slog.Default()
	closer, err := InitSlog(SlogOptions{
		Verbose: true,
		Console: testWriter{t: t},
		NoColor: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		slog.SetDefault(previous)
		closer()
	})
}
