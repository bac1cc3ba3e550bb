package cryptobox

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fernet/fernet-go"
	"github.com/google/renameio/v2"
)

const keyFilePerm = 0o600

// ReadKey returns the contents of the key file at path, the contents are not validated.
func ReadKey(path string) ([]byte, error) {
	key, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}
	return key, nil
}

// LoadOrCreateKey returns the key stored at path, generating and persisting a new
// one if path does not exist yet.
//
// An existing file is returned as is, a corrupt key surfaces in New. Creation is
// create-if-absent: the key is fully written to a temporary file which is then
// hard linked into place, so concurrent first runs agree on a single key and
// never observe a partially written file.
func LoadOrCreateKey(path string) ([]byte, error) {
	key, err := os.ReadFile(path)
	if err == nil {
		return key, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read key file: %w", err)
	}

	var generated fernet.Key
	err = generated.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	encoded := []byte(generated.Encode())

	created, err := createExclusive(path, encoded)
	if err != nil {
		return nil, err
	}
	if !created {
		slog.Debug("key file created concurrently, using existing key", "path", path)
		return ReadKey(path)
	}

	slog.Info("generated new encryption key", "path", path)
	return encoded, nil
}

func createExclusive(path string, contents []byte) (bool, error) {
	dir := filepath.Dir(path)
	err := os.MkdirAll(dir, 0o755)
	if err != nil {
		return false, fmt.Errorf("create key directory: %w", err)
	}

	tmp, err := renameio.TempFile(dir, path)
	if err != nil {
		return false, fmt.Errorf("create temporary key file: %w", err)
	}
	defer tmp.Cleanup()

	err = tmp.Chmod(keyFilePerm)
	if err != nil {
		return false, fmt.Errorf("chmod temporary key file: %w", err)
	}
	_, err = tmp.Write(contents)
	if err != nil {
		return false, fmt.Errorf("write temporary key file: %w", err)
	}
	err = tmp.Sync()
	if err != nil {
		return false, fmt.Errorf("sync temporary key file: %w", err)
	}

	err = os.Link(tmp.Name(), path)
	if errors.Is(err, os.ErrExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("link key file: %w", err)
	}
	return true, nil
}
