package state

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Func represents a helper callable from expression-backed validators.
type Func func(args ...any) (any, error)

// FuncRegistry stores custom helper functions keyed by name. One registry can
// be shared across every expression engine.
type FuncRegistry struct {
	mu    sync.RWMutex
	funcs map[string]Func
}

// NewFuncRegistry constructs an empty registry.
func NewFuncRegistry() *FuncRegistry {
	return &FuncRegistry{
		funcs: make(map[string]Func),
	}
}

// Register stores fn under name guarding against duplicates.
func (r *FuncRegistry) Register(name string, fn Func) error {
	if fn == nil {
		return fmt.Errorf("state: function %q is nil", name)
	}
	if name == "" {
		return fmt.Errorf("state: function name must not be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.funcs == nil {
		r.funcs = make(map[string]Func)
	}
	key := strings.ToLower(name)
	if _, exists := r.funcs[key]; exists {
		return fmt.Errorf("state: function %q already registered", name)
	}
	r.funcs[key] = fn
	return nil
}

// Clone returns a shallow copy of the registry.
func (r *FuncRegistry) Clone() *FuncRegistry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	clone := &FuncRegistry{
		funcs: make(map[string]Func, len(r.funcs)),
	}
	for name, fn := range r.funcs {
		clone.funcs[name] = fn
	}
	return clone
}

// Call executes the function registered for name.
func (r *FuncRegistry) Call(name string, args ...any) (any, error) {
	if r == nil {
		return nil, fmt.Errorf("state: function registry is nil")
	}
	r.mu.RLock()
	fn := r.funcs[strings.ToLower(name)]
	r.mu.RUnlock()
	if fn == nil {
		return nil, fmt.Errorf("state: function %q not registered", name)
	}
	return fn(args...)
}

// Names returns registered function names sorted alphabetically.
func (r *FuncRegistry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
