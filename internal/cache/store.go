package cache

import (
	"errors"
	"strings"

	"gallery-server/internal/logging"
	"gallery-server/internal/metrics"
)

// ErrNotFound is returned by Store.Get when no entry exists for a key.
var ErrNotFound = errors.New("cache: entry not found")

// Store is the backing persistence for a cache. Implementations are
// best-effort: entries are derivable from the source images at any time, so
// concurrent writers to the same key may race with last-write-wins.
type Store interface {
	Get(key string) ([]byte, error)
	Put(key string, data []byte) error
	Delete(key string) error
	Keys() ([]string, error)
}

// Status classifies the outcome of a cache load.
type Status int

const (
	// StatusHit means a persisted entry was found and decoded.
	StatusHit Status = iota
	// StatusMiss means no entry exists for the key.
	StatusMiss
	// StatusError means an entry exists but could not be read or decoded.
	// Callers treat this the same as a miss; tests can tell them apart.
	StatusError
)

// Result is the outcome of a cache load: a hit carrying a value, a miss, or
// an error that callers fold into a miss.
type Result[T any] struct {
	Status Status
	Value  T
	Err    error
}

// Hit wraps a decoded value.
func Hit[T any](value T) Result[T] {
	return Result[T]{Status: StatusHit, Value: value}
}

// Miss reports that no entry exists.
func Miss[T any]() Result[T] {
	return Result[T]{Status: StatusMiss}
}

// Fault reports an unreadable or undecodable entry.
func Fault[T any](err error) Result[T] {
	return Result[T]{Status: StatusError, Err: err}
}

// sweepStale deletes every entry whose key is not prefixed by the current
// fingerprint. This is the sole eviction mechanism: storage grows only by
// distinct fingerprints and is pruned whenever a fingerprint-aware call
// runs. Failures are logged and ignored.
func sweepStale(store Store, name, currentFingerprint string) {
	keys, err := store.Keys()
	if err != nil {
		logging.Warn("Cache %s: stale sweep listing failed: %v", name, err)
		metrics.CacheOperationsTotal.WithLabelValues(name, "sweep", "error").Inc()
		return
	}

	removed := 0
	for _, key := range keys {
		if strings.HasPrefix(key, currentFingerprint+"-") {
			continue
		}
		if err := store.Delete(key); err != nil {
			logging.Warn("Cache %s: failed to delete stale entry %s: %v", name, key, err)
			continue
		}
		removed++
	}

	if removed > 0 {
		logging.Debug("Cache %s: swept %d stale entries", name, removed)
		metrics.CacheEntriesSwept.WithLabelValues(name).Add(float64(removed))
	}
	metrics.CacheOperationsTotal.WithLabelValues(name, "sweep", "ok").Inc()
}
