package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// LocalStore implements Store using a JSON file in a directory, one file per key.
// This is suitable for single-instance deployments that want the cache to
// survive restarts.
type LocalStore struct {
	mu  sync.RWMutex
	dir string
	now func() time.Time
}

type localEntry struct {
	ExpiresAt time.Time `json:"expires_at"`
	Tables    Tables    `json:"tables"`
}

// NewLocalStore creates a new local file-based cache rooted at dir.
func NewLocalStore(dir string) *LocalStore {
	return &LocalStore{
		dir: dir,
		now: time.Now,
	}
}

func (s *LocalStore) path(key string) string {
	return filepath.Join(s.dir, fileName(key)+".json")
}

// fileName keeps cache file names to a safe character set.
func fileName(key string) string {
	out := make([]rune, 0, len(key))
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}

// Get retrieves tables from the local file.
func (s *LocalStore) Get(_ context.Context, key string) (Tables, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.dir == "" {
		return nil, false, nil
	}

	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil // No cache file yet, not an error
		}
		return nil, false, fmt.Errorf("failed to read cache file: %w", err)
	}

	var entry localEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false, fmt.Errorf("failed to parse cache file: %w", err)
	}
	if !s.now().Before(entry.ExpiresAt) {
		return nil, false, nil
	}

	return entry.Tables, true, nil
}

// Set stores tables to the local file.
func (s *LocalStore) Set(_ context.Context, key string, tables Tables, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dir == "" {
		return nil
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	data, err := json.Marshal(localEntry{
		ExpiresAt: s.now().Add(effectiveTTL(ttl)),
		Tables:    tables,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal cache: %w", err)
	}

	// Write atomically using temp file + rename
	target := s.path(key)
	tmpFile := target + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0o644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := os.Rename(tmpFile, target); err != nil {
		os.Remove(tmpFile)
		return fmt.Errorf("failed to rename cache file: %w", err)
	}

	return nil
}

// Delete removes the local file for key.
func (s *LocalStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dir == "" {
		return nil
	}
	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete cache file: %w", err)
	}
	return nil
}

// Close is a no-op for local cache.
func (s *LocalStore) Close() error {
	return nil
}
