package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// File stores each key as a file under a directory. Keys are flattened to
// safe file names, so distinct keys must not collide after flattening.
type File struct {
	mu       sync.Mutex
	dir      string
	maxValue int
}

// NewFile creates a file-backed store rooted at dir, creating the directory
// if needed. maxValue bounds the size in bytes of a single value; zero or
// negative means unlimited.
func NewFile(dir string, maxValue int) (*File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &File{dir: dir, maxValue: maxValue}, nil
}

func (f *File) path(key string) string {
	safe := strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(key)
	return filepath.Join(f.dir, safe+".json")
}

func (f *File) Get(key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := os.ReadFile(f.path(key))
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return string(data), true, nil
}

func (f *File) Set(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.maxValue > 0 && len(value) > f.maxValue {
		return ErrQuotaExceeded
	}
	return os.WriteFile(f.path(key), []byte(value), 0o644)
}

func (f *File) Delete(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	err := os.Remove(f.path(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
