package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const fileExt = ".json"

// FS implements Store with one file per key inside a directory.
type FS struct {
	root string // absolute path to the data directory
}

// NewFS creates an FS store rooted at dir, creating the directory if needed.
func NewFS(dir string) (*FS, error) {
	if dir == "" {
		return nil, fmt.Errorf("storage: fs path is empty")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

// Root returns the absolute data directory.
func (f *FS) Root() string { return f.root }

// PathFor returns the file that holds key.
func (f *FS) PathFor(key string) string {
	return filepath.Join(f.root, key+fileExt)
}

// KeyFor maps a file path back to its key. ok is false for foreign files.
func (f *FS) KeyFor(path string) (string, bool) {
	if filepath.Dir(path) != f.root || filepath.Ext(path) != fileExt {
		return "", false
	}
	key := filepath.Base(path)
	key = key[:len(key)-len(fileExt)]
	if validKey(key) != nil {
		return "", false
	}
	return key, true
}

// Get reads the file for key.
func (f *FS) Get(key string) (string, bool, error) {
	if err := validKey(key); err != nil {
		return "", false, err
	}
	data, err := os.ReadFile(f.PathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("storage: read %s: %w", key, err)
	}
	return string(data), true, nil
}

// Set atomically replaces the file for key: tmp file → fsync → rename.
func (f *FS) Set(key, value string) error {
	if err := validKey(key); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(f.root, ".tidenotes-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.WriteString(value); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(tmpName, f.PathFor(key)); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}

// Close is a no-op for the file store.
func (f *FS) Close() error { return nil }
