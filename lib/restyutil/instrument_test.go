package restyutil

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
)

func withLevel(t *testing.T, level slog.Level) {
	previous := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: level})))
	t.Cleanup(func() { slog.SetDefault(previous) })
}

func newServer(t *testing.T) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Rate-Source", "test")
		w.Write([]byte(`{"rates": {"USD": 1.25}}`))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestInstrumentClientDumps(t *testing.T) {
	withLevel(t, slog.LevelDebug)
	server := newServer(t)

	dir := filepath.Join(t.TempDir(), "rates")
	output, err := NewFilesystemOutput(dir)
	require.NoError(t, err)

	client := resty.New()
	InstrumentClient(client, nil, output)

	_, err = client.R().SetHeader("User-Agent", "dump-test").Get(server.URL + "/latest/GBP")
	require.NoError(t, err)

	contents, err := os.ReadFile(filepath.Join(dir, "1"))
	require.NoError(t, err)
	dump := string(contents)
	require.Contains(t, dump, "---- REQUEST ----")
	require.Contains(t, dump, "GET "+server.URL+"/latest/GBP")
	require.Contains(t, dump, "User-Agent: dump-test")
	require.Contains(t, dump, "---- RESPONSE ----")
	require.Contains(t, dump, "200 ")
	require.Contains(t, dump, "X-Rate-Source: test")
	require.Contains(t, dump, `{"rates": {"USD": 1.25}}`)
}

func TestInstrumentClientDumpsErrors(t *testing.T) {
	withLevel(t, slog.LevelDebug)
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	dir := filepath.Join(t.TempDir(), "catalogue")
	output, err := NewFilesystemOutput(dir)
	require.NoError(t, err)

	client := resty.New()
	InstrumentClient(client, nil, output)

	_, err = client.R().Get(url)
	require.Error(t, err)

	contents, err := os.ReadFile(filepath.Join(dir, "1"))
	require.NoError(t, err)
	require.Contains(t, string(contents), "---- ERROR ----")
}

func TestInstrumentClientQuietWithoutDebug(t *testing.T) {
	withLevel(t, slog.LevelInfo)
	server := newServer(t)

	dir := filepath.Join(t.TempDir(), "rates")
	output, err := NewFilesystemOutput(dir)
	require.NoError(t, err)

	client := resty.New()
	InstrumentClient(client, nil, output)

	_, err = client.R().Get(server.URL)
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestNewFilesystemOutputClearsDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "dump")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stale"), []byte("old"), 0o644))

	_, err := NewFilesystemOutput(dir)
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}
