// Package medium defines the external key/value contract the store persists
// through, plus a minimal in-memory implementation for tests and examples.
//
// A Medium is a plain string-keyed store: it may be browser-style local
// storage, an embedded database or a file. Implementations are allowed to
// fail on either call; the persistence bridge treats every failure as
// best-effort and never lets it reach the live store.
package medium

// Medium is a string-keyed external store.
type Medium interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
}
