// Package cache provides pluggable byte-oriented caching for index
// metadata responses.
//
// Three backends are available:
//   - FileCache: directory of JSON entry files, the CLI default
//   - RedisCache: shared cache for hosts that already run Redis
//   - NullCache: disables caching entirely
//
// Entries carry a TTL; expired entries are treated as misses and removed
// lazily on read. Keys should be namespaced by the caller (e.g.
// "pypi:requests") to avoid collisions between data sources.
//
// Note this cache holds metadata documents only. Downloaded source
// archives are managed separately by the fetch package, which is
// append-only and keyed by package name and version.
package cache

import (
	"context"
	"time"
)

// Cache is the interface implemented by all cache backends.
type Cache interface {
	// Get retrieves a value. The second return value reports whether the
	// key was present and fresh.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value with the given TTL. A TTL of 0 means the entry
	// never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the backend.
	Close() error
}
