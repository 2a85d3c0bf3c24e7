package storage

import "errors"

// ErrSizeUnsupported is returned by EstimateSize when the backing store
// cannot report usage numbers.
var ErrSizeUnsupported = errors.New("size estimate not supported")

// Usage is a best-effort view of how much of the durable store is consumed.
type Usage struct {
	Used  int64 `json:"used"`
	Total int64 `json:"total"`
}

// Store is the durable key-value adapter every per-identity store persists
// through. Operations are synchronous. Get reports a missing key via the
// second return value, never via an error; a value that later fails to decode
// is the caller's problem to discard (remove the key, proceed as absent).
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Remove(key string) error
	KeysWithPrefix(prefix string) ([]string, error)
	EstimateSize() (Usage, error)
}
