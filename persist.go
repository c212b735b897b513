package state

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// KeyMapping binds a path prefix to an external medium key.
type KeyMapping struct {
	Prefix string
	Key    string
}

// KeyTable resolves medium keys from paths. The table is ordered; the first
// mapping whose prefix covers the path wins. A prefix covers the path itself,
// any dotted descendant, and any indexed element below it, so "system.x"
// covers "system.x[2]".
type KeyTable []KeyMapping

// Resolve returns the key and the matching prefix for path, or empty strings
// when no mapping covers it.
func (t KeyTable) Resolve(path string) (key, prefix string) {
	for _, mapping := range t {
		if path == mapping.Prefix ||
			strings.HasPrefix(path, mapping.Prefix+".") ||
			strings.HasPrefix(path, mapping.Prefix+"[") {
			return mapping.Key, mapping.Prefix
		}
	}
	return "", ""
}

// envelope wraps persisted values with provenance metadata.
type envelope struct {
	SnapshotID string    `json:"snapshot_id" yaml:"snapshot_id"`
	UpdatedAt  time.Time `json:"updated_at" yaml:"updated_at"`
	Value      any       `json:"value" yaml:"value"`
}

// Persist serializes the current value at path under key in the external
// medium. Every failure, including a panicking medium, is logged and
// absorbed; the in-memory snapshot is never affected.
func (s *Store) Persist(key, path string) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Log(LogEvent{Op: "persist", Path: path, Key: key, Err: fmt.Errorf("state: medium panicked: %v", r)})
		}
	}()
	if s.medium == nil {
		s.logger.Log(LogEvent{Op: "persist", Path: path, Key: key, Err: ErrNoMedium})
		return
	}
	value, _ := s.Get(path)
	payload, err := s.codec.Marshal(envelope{
		SnapshotID: uuid.NewString(),
		UpdatedAt:  time.Now().UTC(),
		Value:      value,
	})
	if err != nil {
		s.logger.Log(LogEvent{Op: "persist", Path: path, Key: key, Err: err})
		return
	}
	if err := s.medium.Set(key, string(payload)); err != nil {
		s.logger.Log(LogEvent{Op: "persist", Path: path, Key: key, Err: err})
	}
}

// Restore reads key from the medium and writes the decoded value at path,
// notifying as a normal Set would. On a missing key or any failure, def is
// written and returned when provided; otherwise Restore returns nil without
// mutating.
func (s *Store) Restore(key, path string, def any) any {
	restored, ok := s.load(key, path)
	if ok {
		if err := s.Set(path, restored); err != nil {
			s.logger.Log(LogEvent{Op: "restore", Path: path, Key: key, Err: err})
		}
		return restored
	}
	if def != nil {
		value := Clone(def)
		if err := s.Set(path, value); err != nil {
			s.logger.Log(LogEvent{Op: "restore", Path: path, Key: key, Err: err})
		}
		return value
	}
	return nil
}

// load reads and decodes key, reporting ok=false on any failure.
func (s *Store) load(key, path string) (value any, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Log(LogEvent{Op: "restore", Path: path, Key: key, Err: fmt.Errorf("state: medium panicked: %v", r)})
			value, ok = nil, false
		}
	}()
	if s.medium == nil {
		s.logger.Log(LogEvent{Op: "restore", Path: path, Key: key, Err: ErrNoMedium})
		return nil, false
	}
	raw, found, err := s.medium.Get(key)
	if err != nil {
		s.logger.Log(LogEvent{Op: "restore", Path: path, Key: key, Err: err})
		return nil, false
	}
	if !found {
		return nil, false
	}
	var env envelope
	if err := s.codec.Unmarshal([]byte(raw), &env); err != nil {
		s.logger.Log(LogEvent{Op: "restore", Path: path, Key: key, Err: err})
		return nil, false
	}
	return env.Value, true
}

// persistPath persists a single written path, resolving the key from the
// explicit override or the key table.
func (s *Store) persistPath(path, explicitKey string) {
	key := explicitKey
	if key == "" {
		key, _ = s.keys.Resolve(path)
	}
	if key == "" {
		s.logger.Log(LogEvent{Op: "persist", Path: path, Err: ErrNoPersistenceKey})
		return
	}
	s.Persist(key, path)
}

// persistBatch persists once per distinct inferred key so a batch spanning
// several paths under one mapping drops none of them: inferred keys persist
// their mapped prefix subtree. An explicit key persists each updated path in
// order under that key; callers passing one should batch a single logical
// subtree.
func (s *Store) persistBatch(updates []Update, explicitKey string) {
	seen := make(map[string]struct{}, len(updates))
	for _, update := range updates {
		if explicitKey != "" {
			s.Persist(explicitKey, update.Path)
			continue
		}
		key, prefix := s.keys.Resolve(update.Path)
		if key == "" {
			s.logger.Log(LogEvent{Op: "persist", Path: update.Path, Err: ErrNoPersistenceKey})
			continue
		}
		if _, done := seen[key]; done {
			continue
		}
		seen[key] = struct{}{}
		s.Persist(key, prefix)
	}
}
