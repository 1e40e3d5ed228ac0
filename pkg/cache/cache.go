// Package cache provides a generic, thread-safe LRU cache used to memoize embeddings.
//
// Statistics are always collected; prometheus export is optional via WithMetrics.
package cache

import (
	"fmt"

	"github.com/c360/graphrag/errors"
)

// Cache represents a generic cache keyed by string.
type Cache[V any] interface {
	// Get retrieves a value by key and reports whether it was present.
	Get(key string) (V, bool)

	// Set stores a value. Returns true if a new entry was created, false if updated.
	Set(key string, value V) (bool, error)

	// Delete removes an entry by key. Returns true if the key existed.
	Delete(key string) (bool, error)

	// Clear removes all entries.
	Clear() error

	Size() int

	// Keys returns all keys, most recently used first.
	Keys() []string

	Stats() *Statistics

	Close() error
}

// EvictCallback is called when an entry leaves the cache through eviction, Delete or Clear.
type EvictCallback[V any] func(key string, value V)

// NewLRU creates an LRU cache holding at most maxSize entries.
func NewLRU[V any](maxSize int, options ...Option[V]) (Cache[V], error) {
	if maxSize <= 0 {
		return nil, errors.WrapInvalid(
			fmt.Errorf("max size must be positive, got %d: %w", maxSize, errors.ErrOutOfRange),
			"cache", "NewLRU", "validate size")
	}
	c, err := newLRUCache(maxSize, applyOptions(options...))
	if err != nil {
		return nil, err
	}
	return c, nil
}

func validateKey(key string) error {
	if key == "" {
		return errors.WrapInvalid(errors.ErrInvalidData, "cache", "validateKey", "key cannot be empty")
	}
	return nil
}
