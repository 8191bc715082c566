// Package storage persists the raw oEmbed provider list on durable storage.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ErrNotExist is returned by Read and Stat when no providers file has been written yet.
var ErrNotExist = errors.New("providers file does not exist")

// FileInfo describes the stored providers file.
type FileInfo struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// ProvidersFile stores a single JSON blob, overwritten wholesale on each write.
// Implementations must be safe for concurrent use.
type ProvidersFile interface {
	// Read returns the stored bytes, or ErrNotExist.
	Read(ctx context.Context) ([]byte, error)

	// Write replaces the stored bytes.
	Write(ctx context.Context, data []byte) error

	// Stat reports the stored file's metadata, or ErrNotExist.
	Stat(ctx context.Context) (FileInfo, error)

	// EnsureDir creates the parent directory if needed.
	EnsureDir(ctx context.Context) error
}

// LocalFile implements ProvidersFile on the local filesystem.
type LocalFile struct {
	mu   sync.RWMutex
	path string
}

// NewLocalFile creates a ProvidersFile at path.
func NewLocalFile(path string) *LocalFile {
	return &LocalFile{path: path}
}

// DefaultPath returns the providers file location under dataDir.
func DefaultPath(dataDir string) string {
	return filepath.Join(dataDir, "temp", "providers.json")
}

// Path returns the file location.
func (f *LocalFile) Path() string {
	return f.path
}

// Read returns the file contents.
func (f *LocalFile) Read(_ context.Context) ([]byte, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotExist
		}
		return nil, fmt.Errorf("failed to read providers file: %w", err)
	}
	return data, nil
}

// Write replaces the file contents atomically.
func (f *LocalFile) Write(_ context.Context, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("failed to create providers directory: %w", err)
	}

	tmpFile := f.path + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0o644); err != nil {
		return fmt.Errorf("failed to write providers file: %w", err)
	}
	if err := os.Rename(tmpFile, f.path); err != nil {
		os.Remove(tmpFile)
		return fmt.Errorf("failed to rename providers file: %w", err)
	}
	return nil
}

// Stat reports the file's size and modification time.
func (f *LocalFile) Stat(_ context.Context) (FileInfo, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	info, err := os.Stat(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileInfo{}, ErrNotExist
		}
		return FileInfo{}, fmt.Errorf("failed to stat providers file: %w", err)
	}
	return FileInfo{
		Path:    f.path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// EnsureDir creates the directory holding the file.
func (f *LocalFile) EnsureDir(_ context.Context) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("failed to create providers directory: %w", err)
	}
	return nil
}
