package state

// Accessor provides a typed view over one fixed path, giving call sites
// compile-time safety while the dynamic path engine stays available for
// genuinely dynamic consumers such as wildcard subscribers.
type Accessor[T any] struct {
	store *Store
	path  string
}

// At binds a typed accessor to path on store.
func At[T any](store *Store, path string) Accessor[T] {
	return Accessor[T]{store: store, path: path}
}

// Path returns the bound path.
func (a Accessor[T]) Path() string {
	return a.path
}

// Get reads the bound path, reporting ok=false when the value is absent or
// not a T.
func (a Accessor[T]) Get() (T, bool) {
	var zero T
	value, ok := a.store.Get(a.path)
	if !ok {
		return zero, false
	}
	typed, ok := value.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}

// GetOr returns the value at the bound path, or fallback when it is absent or
// mistyped.
func (a Accessor[T]) GetOr(fallback T) T {
	if value, ok := a.Get(); ok {
		return value
	}
	return fallback
}

// Set writes value at the bound path.
func (a Accessor[T]) Set(value T, opts ...SetOption) error {
	return a.store.Set(a.path, value, opts...)
}

// Subscribe delivers typed changes for the bound path. Values that are not a
// T arrive as the zero value.
func (a Accessor[T]) Subscribe(fn func(value, previous T)) func() {
	return a.store.Subscribe(a.path, func(change Change) {
		value, _ := change.Value.(T)
		previous, _ := change.Previous.(T)
		fn(value, previous)
	})
}
