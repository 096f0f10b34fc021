// Package storage persists the note collection and session keys in a
// key-value store.
package storage

import (
	"fmt"
	"regexp"
)

// Keys used in the store.
const (
	KeyNotes     = "notes"
	KeySelection = "selectedId"
	KeyTheme     = "theme"
)

// Drivers.
const (
	DriverFS     = "fs"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
	DriverMemory = "memory"
)

// Store is a text key-value store.
type Store interface {
	// Get returns the value under key. ok is false when the key is absent.
	Get(key string) (value string, ok bool, err error)
	// Set overwrites the value under key.
	Set(key, value string) error
	// Close releases the underlying resources.
	Close() error
}

// Options selects and configures a Store driver.
type Options struct {
	Driver string
	// Path is the directory for fs and the database file for sqlite.
	Path  string
	Redis RedisOptions
}

// Open creates the store described by opts.
func Open(opts Options) (Store, error) {
	switch opts.Driver {
	case DriverFS, "":
		return NewFS(opts.Path)
	case DriverSQLite:
		return OpenSQLite(opts.Path)
	case DriverRedis:
		return NewRedis(opts.Redis)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("storage: unknown driver %q", opts.Driver)
	}
}

var keyRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

func validKey(key string) error {
	if !keyRe.MatchString(key) {
		return fmt.Errorf("storage: invalid key %q", key)
	}
	return nil
}
