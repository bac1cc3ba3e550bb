package telemetry

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestOtlpConfig(t *testing.T) {
	require.False(t, OtlpConnConfig{}.configured())

	kind, endpoint := OtlpConnConfig{
		GrpcEndpoint: "http://localhost:4317",
		HttpEndpoint: "http://localhost:4318",
	}.transport()
	require.Equal(t, "grpc", kind)
	require.Equal(t, "http://localhost:4317", endpoint)

	kind, _ = OtlpConnConfig{HttpEndpoint: "http://localhost:4318"}.transport()
	require.Equal(t, "http", kind)

	require.Equal(t, time.Second*5, OtlpConfig{}.interval())
	require.Equal(t, time.Second*30, OtlpConfig{ExportInterval: "30s"}.interval())
	require.Equal(t, sdktrace.AlwaysSample().Description(), OtlpConfig{}.sampler().Description())
	require.NotEqual(t, sdktrace.AlwaysSample().Description(), OtlpConfig{SampleRatio: 0.5}.sampler().Description())
}

func TestSetupWithoutEndpoints(t *testing.T) {
	tel, err := Setup(context.Background(), "test", Config{})
	require.NoError(t, err)
	require.Nil(t, tel.TracerProvider)
	require.Nil(t, tel.MeterProvider)
	require.NoError(t, tel.Shutdown(context.Background()))
}

func TestInitSlogLogFile(t *testing.T) {
	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })

	logFile := filepath.Join(t.TempDir(), "logs", "pipeline.log")
	console := &strings.Builder{}
	closer, err := InitSlog(SlogOptions{
		LogFile: logFile,
		Console: console,
		NoColor: true,
	})
	require.NoError(t, err)

	slog.Info("pipeline finished", "records", 3)
	slog.Debug("hidden unless verbose")
	require.NoError(t, closer())

	contents, err := os.ReadFile(logFile)
	require.NoError(t, err)
	require.Contains(t, string(contents), "level=INFO")
	require.Contains(t, string(contents), "pipeline finished")
	require.NotContains(t, string(contents), "hidden unless verbose")

	require.Contains(t, console.String(), "INF")
	require.Contains(t, console.String(), "pipeline finished")
	require.Contains(t, console.String(), "records=3")
}
