package cache

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// MemoryStore implements Store in process memory.
// Stored maps are returned as-is, so a hit hands back the same table object.
type MemoryStore struct {
	cache *ttlcache.Cache[string, Tables]
}

// NewMemoryStore creates an in-process cache and starts its expiry loop.
func NewMemoryStore() *MemoryStore {
	c := ttlcache.New(
		ttlcache.WithTTL[string, Tables](DefaultTTL),
		ttlcache.WithDisableTouchOnHit[string, Tables](),
	)
	go c.Start()
	return &MemoryStore{cache: c}
}

// Get retrieves tables from memory.
func (s *MemoryStore) Get(_ context.Context, key string) (Tables, bool, error) {
	item := s.cache.Get(key)
	if item == nil || item.IsExpired() {
		return nil, false, nil
	}
	return item.Value(), true, nil
}

// Set stores tables in memory.
func (s *MemoryStore) Set(_ context.Context, key string, tables Tables, ttl time.Duration) error {
	s.cache.Set(key, tables, effectiveTTL(ttl))
	return nil
}

// Delete removes key from memory.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.cache.Delete(key)
	return nil
}

// Close stops the expiry loop.
func (s *MemoryStore) Close() error {
	s.cache.Stop()
	return nil
}
