package sqliteutil

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const Memory = ":memory:"

// OpenDB opens (creating it if necessary) the sqlite database at path,
// path can also be Memory.
func OpenDB(path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("a path was not specified")
	}

	if path != Memory {
		err := os.MkdirAll(filepath.Dir(path), 0o755)
		if err != nil {
			return nil, err
		}
		_, statErr := os.Stat(path)
		if os.IsNotExist(statErr) {
			f, err := os.Create(path)
			if err != nil {
				return nil, err
			}
			f.Close()
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// sqlite only supports a single writer, every connection of an in-memory
	// database is also a separate database.
	db.SetMaxOpenConns(1)
	if path == Memory {
		return db, nil
	}

	_, err = db.Exec("PRAGMA journal_mode=WAL")
	if err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// MakeTx is a function that creates a db transaction
type MakeTx = func() (tx *sql.Tx, discard, commit func() error, err error)

func NewMakeTx(db *sql.DB) MakeTx {
	return func() (tx *sql.Tx, discard, commit func() error, err error) {
		sqltx, err := db.Begin()
		if err != nil {
			return nil, nil, nil, err
		}
		return sqltx,
			func() error {
				return sqltx.Rollback()
			},
			func() error {
				return sqltx.Commit()
			},
			nil
	}
}
