// Package badgerstore persists store values in an embedded BadgerDB. It is
// the durable medium of choice when the host application already runs on the
// local filesystem and wants low-latency writes.
package badgerstore

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
)

// Config holds settings for the Badger-backed medium.
type Config struct {
	// Path is the directory for Badger files. Required unless InMemory.
	Path string
	// InMemory keeps everything in RAM, useful for tests.
	InMemory bool
	// SyncWrites makes every write durable before returning.
	SyncWrites bool
	// Logger receives Badger's internal logging. Nil disables it.
	Logger *slog.Logger
}

// Medium is a Badger-backed persistence medium.
type Medium struct {
	db *badger.DB
}

// Open creates or opens the database described by cfg.
func Open(cfg Config) (*Medium, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, fmt.Errorf("badgerstore: path is required for a persistent database")
	}
	options := badger.DefaultOptions(cfg.Path).
		WithInMemory(cfg.InMemory).
		WithSyncWrites(cfg.SyncWrites).
		WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		options = options.WithLogger(&slogAdapter{logger: cfg.Logger})
	} else {
		options = options.WithLogger(nil)
	}
	db, err := badger.Open(options)
	if err != nil {
		return nil, fmt.Errorf("badgerstore: open: %w", err)
	}
	return &Medium{db: db}, nil
}

func (m *Medium) Get(key string) (string, bool, error) {
	var value string
	err := m.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(data []byte) error {
			value = string(data)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("badgerstore: get %q: %w", key, err)
	}
	return value, true, nil
}

func (m *Medium) Set(key, value string) error {
	err := m.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), []byte(value))
	})
	if err != nil {
		return fmt.Errorf("badgerstore: set %q: %w", key, err)
	}
	return nil
}

// Close releases the underlying database.
func (m *Medium) Close() error {
	return m.db.Close()
}

// slogAdapter bridges slog to Badger's logger interface.
type slogAdapter struct {
	logger *slog.Logger
}

func (l *slogAdapter) Errorf(format string, args ...any) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *slogAdapter) Warningf(format string, args ...any) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *slogAdapter) Infof(format string, args ...any) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *slogAdapter) Debugf(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
