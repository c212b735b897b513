package state

import (
	"fmt"
	"sort"
	"sync"

	"github.com/goliatone/go-state/pkg/medium"
)

const defaultMaxNotifyDepth = 64

// Store owns the current snapshot and coordinates validation, copy-on-write
// commits, subscriber notification and best-effort persistence. Construct one
// explicitly with New and hand it to the components that need it; there is no
// package-level instance.
//
// Published snapshots are never mutated in place: every write produces a new
// root whose untouched subtrees are shared with the previous one, so any
// reference obtained through Get or State stays valid and merely becomes
// stale.
type Store struct {
	mu   sync.RWMutex
	root any

	subs       subscriptions
	validators validators

	logger   Logger
	medium   medium.Medium
	codec    Codec
	keys     KeyTable
	maxDepth int

	notifyDepth int
}

// Option configures a Store at construction time.
type Option func(*Store)

// WithLogger attaches a logger for locally recovered failures.
func WithLogger(logger Logger) Option {
	return func(s *Store) {
		if logger == nil {
			s.logger = noopLogger{}
			return
		}
		s.logger = logger
	}
}

// WithValidator registers a predicate for an exact path. Validators only run
// for calls that opt in through WithValidation.
func WithValidator(path string, v Validator) Option {
	return func(s *Store) {
		s.validators[path] = v
	}
}

// WithMedium attaches the external persistence medium.
func WithMedium(m medium.Medium) Option {
	return func(s *Store) {
		s.medium = m
	}
}

// WithCodec selects the serialization used by the persistence bridge. The
// default is JSON.
func WithCodec(c Codec) Option {
	return func(s *Store) {
		if c != nil {
			s.codec = c
		}
	}
}

// WithKeyTable installs the ordered path-prefix to medium-key table used to
// infer persistence keys.
func WithKeyTable(table KeyTable) Option {
	return func(s *Store) {
		s.keys = append(KeyTable(nil), table...)
	}
}

// WithMaxNotifyDepth bounds re-entrant notification. Changes committed past
// the bound still apply; their notifications are dropped and logged.
func WithMaxNotifyDepth(depth int) Option {
	return func(s *Store) {
		if depth > 0 {
			s.maxDepth = depth
		}
	}
}

// WithInitialState seeds the snapshot with a deep copy of value.
func WithInitialState(value map[string]any) Option {
	return func(s *Store) {
		if cloned, ok := Clone(value).(map[string]any); ok && cloned != nil {
			s.root = cloned
		}
	}
}

// New constructs a Store holding an empty snapshot.
func New(opts ...Option) *Store {
	s := &Store{
		root:       map[string]any{},
		validators: validators{},
		logger:     noopLogger{},
		codec:      JSONCodec{},
		maxDepth:   defaultMaxNotifyDepth,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

type setConfig struct {
	validate   bool
	persist    bool
	persistKey string
	silent     bool
}

// SetOption configures a single Set, Batch or Reset call.
type SetOption func(*setConfig)

// WithValidation runs the registered validator for each written path before
// anything mutates.
func WithValidation() SetOption {
	return func(cfg *setConfig) {
		cfg.validate = true
	}
}

// WithPersistence asks the bridge to write the affected paths after the
// commit. key may be empty, in which case it is inferred from the key table;
// when neither yields a key the request is a logged no-op.
func WithPersistence(key string) SetOption {
	return func(cfg *setConfig) {
		cfg.persist = true
		cfg.persistKey = key
	}
}

// Silently suppresses subscriber notification for the call.
func Silently() SetOption {
	return func(cfg *setConfig) {
		cfg.silent = true
	}
}

func applySetOptions(opts []SetOption) setConfig {
	cfg := setConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// Get resolves path against the current snapshot. Absent locations and
// malformed paths both report ok=false; Get never fails and has no side
// effects.
func (s *Store) Get(path string) (any, bool) {
	segs, err := ParsePath(path)
	if err != nil {
		return nil, false
	}
	s.mu.RLock()
	root := s.root
	s.mu.RUnlock()
	return readPath(root, segs)
}

// State returns the current snapshot by reference. Callers must treat it as
// read-only; later writes replace the root instead of mutating it, so the
// returned value is stable forever.
func (s *Store) State() any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.root
}

// Set writes value at path and commits the result as the new snapshot. The
// commit is all-or-nothing: a concurrent or re-entrant Get observes either
// the old snapshot or the new one, never a half-written tree. Unless the call
// is silent, matching subscribers are notified synchronously before Set
// returns.
func (s *Store) Set(path string, value any, opts ...SetOption) error {
	cfg := applySetOptions(opts)
	segs, err := ParsePath(path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if cfg.validate {
		if err := s.validators.check(path, value, s.root); err != nil {
			s.mu.Unlock()
			return err
		}
	}
	previous, _ := readPath(s.root, segs)
	s.root = writeCopy(s.root, segs, value)
	s.mu.Unlock()

	if !cfg.silent {
		s.notify(Change{Path: path, Value: value, Previous: previous})
	}
	if cfg.persist {
		s.persistPath(path, cfg.persistKey)
	}
	return nil
}

// Update pairs a path with its new value. Batch applies updates in order, so
// a later update observes the effect of an earlier one.
type Update struct {
	Path  string
	Value any
}

// Batch applies every update to a single working root and commits it once:
// one snapshot transition, one notification per updated path. Each
// notification carries the old value the path had when its update was
// applied. A path or validation failure on any entry aborts the whole batch
// with no mutation and no notifications.
func (s *Store) Batch(updates []Update, opts ...SetOption) error {
	if len(updates) == 0 {
		return nil
	}
	cfg := applySetOptions(opts)

	type staged struct {
		update   Update
		previous any
	}

	s.mu.Lock()
	working := s.root
	applied := make([]staged, 0, len(updates))
	for _, update := range updates {
		segs, err := ParsePath(update.Path)
		if err != nil {
			s.mu.Unlock()
			return err
		}
		if cfg.validate {
			if err := s.validators.check(update.Path, update.Value, working); err != nil {
				s.mu.Unlock()
				return err
			}
		}
		previous, _ := readPath(working, segs)
		working = writeCopy(working, segs, update.Value)
		applied = append(applied, staged{update: update, previous: previous})
	}
	s.root = working
	s.mu.Unlock()

	if !cfg.silent {
		for _, entry := range applied {
			s.notify(Change{Path: entry.update.Path, Value: entry.update.Value, Previous: entry.previous})
		}
	}
	if cfg.persist {
		s.persistBatch(updates, cfg.persistKey)
	}
	return nil
}

// BatchMap is a convenience over Batch that orders updates by path for
// deterministic application and notification.
func (s *Store) BatchMap(updates map[string]any, opts ...SetOption) error {
	paths := make([]string, 0, len(updates))
	for path := range updates {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	ordered := make([]Update, 0, len(paths))
	for _, path := range paths {
		ordered = append(ordered, Update{Path: path, Value: updates[path]})
	}
	return s.Batch(ordered, opts...)
}

// Subscribe registers fn for every committed change matching pattern and
// returns an idempotent disposer. Delivery is synchronous: fn runs during the
// Set or Batch call that caused the change, after the new snapshot has been
// committed.
func (s *Store) Subscribe(pattern string, fn Subscriber) func() {
	s.mu.Lock()
	id := s.subs.add(pattern, fn)
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.subs.remove(id)
			s.mu.Unlock()
		})
	}
}

// Reset writes a deep copy of def at path with no validation, no persistence
// and no silencing; it always notifies.
func (s *Store) Reset(path string, def any) error {
	return s.Set(path, Clone(def))
}

// Dispose drops every subscription. The store remains usable for reads and
// writes afterwards.
func (s *Store) Dispose() {
	s.mu.Lock()
	s.subs.clear()
	s.mu.Unlock()
}

// notify fans out change to matching subscribers in registration order. A
// subscriber may call Set on the same store: the nested write commits and
// notifies before the outer loop continues to the next subscriber. Depth is
// bounded; notifications past the bound are dropped and logged, which is the
// backstop against a subscriber re-triggering its own path without a base
// case.
func (s *Store) notify(change Change) {
	s.mu.Lock()
	if s.notifyDepth >= s.maxDepth {
		s.mu.Unlock()
		s.logger.Log(LogEvent{
			Op:   "notify",
			Path: change.Path,
			Err:  fmt.Errorf("state: notification depth %d exceeded, dropping delivery", s.maxDepth),
		})
		return
	}
	s.notifyDepth++
	matched := s.subs.matching(change.Path)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.notifyDepth--
		s.mu.Unlock()
	}()

	for _, sub := range matched {
		s.deliver(sub, change)
	}
}

// deliver isolates subscriber failures: a panicking callback is recovered and
// logged so the remaining subscribers still receive the change.
func (s *Store) deliver(sub subscription, change Change) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Log(LogEvent{
				Op:   "notify",
				Path: change.Path,
				Err:  fmt.Errorf("state: subscriber %d panicked: %v", sub.id, r),
			})
		}
	}()
	sub.fn(change)
}
