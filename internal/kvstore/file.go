package kvstore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"
)

// FileStore persists each key as one file under a directory. Writes go
// through a rename-based atomic write, so a crash mid-write leaves either the
// old value or the new one on disk.
type FileStore struct {
	dir string
}

// OpenFile opens a file-backed store rooted at dir, creating it if needed.
func OpenFile(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(key string) string {
	// Keys are internal constants, but guard against path separators anyway.
	safe := strings.ReplaceAll(key, string(os.PathSeparator), "_")
	return filepath.Join(s.dir, safe+".json")
}

// Get returns the value stored under key.
func (s *FileStore) Get(key string) (string, bool, error) {
	data, err := os.ReadFile(s.path(key))
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read key %q: %w", key, err)
	}
	return string(data), true, nil
}

// Set writes value under key atomically.
func (s *FileStore) Set(key, value string) error {
	if err := atomic.WriteFile(s.path(key), strings.NewReader(value)); err != nil {
		return fmt.Errorf("failed to write key %q: %w", key, err)
	}
	return nil
}

// Remove deletes key. Missing keys are ignored.
func (s *FileStore) Remove(key string) error {
	err := os.Remove(s.path(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove key %q: %w", key, err)
	}
	return nil
}

// Close is a no-op for the file store.
func (s *FileStore) Close() error {
	return nil
}
