// Package cache provides the keyed store that holds built scheme tables.
// Supports in-process memory, local file and Redis backends.
package cache

import (
	"context"
	"time"

	"oembedfixes/internal/core"
)

// DefaultTTL is how long built scheme tables stay fresh (one week).
const DefaultTTL = 7 * 24 * time.Hour

// Tables maps an allow-list fingerprint to the scheme table built for it.
type Tables map[string]core.SchemeTable

// Store defines the interface for the scheme table cache.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get retrieves the tables stored under key.
	// Returns nil, false, nil if nothing is stored or the entry has expired.
	Get(ctx context.Context, key string) (Tables, bool, error)

	// Set stores tables under key for ttl. A zero ttl means DefaultTTL.
	Set(ctx context.Context, key string, tables Tables, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the cache.
	Close() error
}

func effectiveTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return DefaultTTL
	}
	return ttl
}
