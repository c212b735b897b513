package state

import (
	"errors"
	"fmt"
)

// ErrNoMedium marks persistence requests on a store constructed without a
// medium. The request becomes a no-op.
var ErrNoMedium = errors.New("state: no persistence medium configured")

// ErrNoPersistenceKey marks persistence requests whose path matches no key
// table entry and that carry no explicit key. The request becomes a no-op.
var ErrNoPersistenceKey = errors.New("state: no persistence key for path")

// ValidationError reports a rejected candidate value. Whenever it is
// returned, the store's current snapshot is left exactly as it was before the
// call.
type ValidationError struct {
	Path   string
	Value  any
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Reason != "" {
		return fmt.Sprintf("state: validation failed at %q: %s", e.Path, e.Reason)
	}
	return fmt.Sprintf("state: validation failed at %q: %v", e.Path, e.Err)
}

func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// wrapValidationError normalizes validator errors so callers always observe a
// *ValidationError carrying the offending path and value.
func wrapValidationError(path string, value any, err error) error {
	if err == nil {
		return nil
	}
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		if vErr.Path == "" {
			vErr.Path = path
		}
		if vErr.Value == nil {
			vErr.Value = value
		}
		return vErr
	}
	return &ValidationError{Path: path, Value: value, Reason: err.Error(), Err: err}
}
