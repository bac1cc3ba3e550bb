package configutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Name    string   `json:"name"`
	Port    int      `json:"port"`
	Tags    []string `json:"tags"`
	Enabled bool     `json:"enabled"`
}

func write(t *testing.T, path, contents string) {
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
}

func TestLocalPath(t *testing.T) {
	require.Equal(t, filepath.Join("conf", "config.local.json5"), LocalPath(filepath.Join("conf", "config.json5")))
	require.Equal(t, "telemetry.local.json5", LocalPath("telemetry.json5"))
}

func TestReadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json5")

	_, err := ReadConfig[testConfig](path)
	require.ErrorIs(t, err, os.ErrNotExist)

	write(t, path, `{
		// comments and trailing commas are allowed
		name: "base",
		port: 8080,
	}`)
	cfg, err := ReadConfig[testConfig](path)
	require.NoError(t, err)
	require.Equal(t, testConfig{Name: "base", Port: 8080}, cfg)

	write(t, LocalPath(path), `{ port: 9090, tags: ["local"] }`)
	cfg, err = ReadConfig[testConfig](path)
	require.NoError(t, err)
	require.Equal(t, testConfig{Name: "base", Port: 9090, Tags: []string{"local"}}, cfg)
}

func TestReadConfigOnlyLocal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json5")
	write(t, LocalPath(path), `{ name: "local" }`)

	cfg, err := ReadConfig[testConfig](path)
	require.NoError(t, err)
	require.Equal(t, "local", cfg.Name)
}

func TestReadConfigInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json5")
	write(t, path, `{ name: `)

	_, err := ReadConfig[testConfig](path)
	require.Error(t, err)
	require.NotErrorIs(t, err, os.ErrNotExist)
}

func TestReadWithDefaults(t *testing.T) {
	defaults := testConfig{Name: "default", Port: 80, Tags: []string{"a", "b"}}

	missing := filepath.Join(t.TempDir(), "config.json5")
	cfg, err := ReadWithDefaults(missing, defaults)
	require.NoError(t, err)
	require.Equal(t, defaults, cfg)

	path := filepath.Join(t.TempDir(), "config.json5")
	write(t, path, `{ port: 3000, enabled: true }`)
	cfg, err = ReadWithDefaults(path, defaults)
	require.NoError(t, err)
	require.Equal(t, testConfig{Name: "default", Port: 3000, Tags: []string{"a", "b"}, Enabled: true}, cfg)
}

func TestReadRecursively(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	write(t, filepath.Join(root, "recursive-test.json5"), `{ name: "found" }`)

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(nested))
	t.Cleanup(func() {
		os.Chdir(wd)
	})

	cfg, err := ReadRecursively[testConfig]("recursive-test.json5")
	require.NoError(t, err)
	require.Equal(t, "found", cfg.Name)

	_, err = ReadRecursively[testConfig]("does-not-exist-anywhere.json5")
	require.ErrorIs(t, err, os.ErrNotExist)
}
