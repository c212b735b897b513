// Package sqlitestore persists store values in a SQLite database, one row per
// key. Use ":memory:" for an in-memory database in tests.
package sqlitestore

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Medium is a SQLite-backed persistence medium.
type Medium struct {
	db *sql.DB
}

// Open creates or opens the database at path and ensures the schema exists.
func Open(path string) (*Medium, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: open: %w", err)
	}
	m := &Medium{db: db}
	if err := m.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlitestore: initialize schema: %w", err)
	}
	return m, nil
}

func (m *Medium) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);`
	_, err := m.db.Exec(schema)
	return err
}

func (m *Medium) Get(key string) (string, bool, error) {
	var value string
	err := m.db.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("sqlitestore: get %q: %w", key, err)
	}
	return value, true, nil
}

func (m *Medium) Set(key, value string) error {
	_, err := m.db.Exec(
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("sqlitestore: set %q: %w", key, err)
	}
	return nil
}

// Close releases the underlying database.
func (m *Medium) Close() error {
	return m.db.Close()
}
