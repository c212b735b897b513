package state

// Validator inspects a candidate value for one exact path. state is the
// snapshot the candidate is judged against; implementations must treat it as
// read-only. A nil return accepts the candidate.
type Validator func(path string, value any, state any) error

// validators maps exact paths to predicates. Paths without a registered
// predicate pass automatically; validation is strictly opt-in.
type validators map[string]Validator

func (v validators) check(path string, value, state any) error {
	fn, ok := v[path]
	if !ok || fn == nil {
		return nil
	}
	return wrapValidationError(path, value, fn(path, value, state))
}

// Reject builds the ValidationError custom validators should return when a
// candidate fails.
func Reject(path string, value any, reason string) error {
	return &ValidationError{Path: path, Value: value, Reason: reason}
}
