// Package testutil provides shared test helpers for stores, clocks and services.
package testutil

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/starford/tidenotes/internal/noteservice"
	"github.com/starford/tidenotes/internal/notes"
	"github.com/starford/tidenotes/internal/storage"
)

// Epoch is the default start time of a test clock.
var Epoch = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

// Quiet returns a logger that discards everything.
func Quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Clock is a manually advanced clock with sequential ids.
type Clock struct {
	mu  sync.Mutex
	now time.Time
	seq int
}

// NewClock starts a clock at Epoch.
func NewClock() *Clock { return &Clock{now: Epoch} }

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// NewID returns "n1", "n2", ...
func (c *Clock) NewID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return fmt.Sprintf("n%d", c.seq)
}

// Generator wires the clock into a notes.Generator.
func (c *Clock) Generator() notes.Generator {
	return notes.Generator{Now: c.Now, NewID: c.NewID}
}

// FlakyStore wraps a Store and fails writes while failing is set.
type FlakyStore struct {
	storage.Store

	mu      sync.Mutex
	failing bool
	writes  int
}

// NewFlakyStore wraps an in-memory store.
func NewFlakyStore() *FlakyStore {
	return &FlakyStore{Store: storage.NewMemory()}
}

// SetFailing toggles write failures.
func (f *FlakyStore) SetFailing(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing = v
}

// Writes returns the number of successful writes.
func (f *FlakyStore) Writes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes
}

// Set fails with an error while failing is set.
func (f *FlakyStore) Set(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return errors.New("store unavailable")
	}
	f.writes++
	return f.Store.Set(key, value)
}

// TestService builds a Service over store with a fake clock and a quiet logger.
func TestService(t *testing.T, store storage.Store, opts ...noteservice.Option) (*noteservice.Service, *Clock) {
	t.Helper()
	clock := NewClock()
	base := []noteservice.Option{
		noteservice.WithGenerator(clock.Generator()),
		noteservice.WithLogger(Quiet()),
	}
	svc := noteservice.NewService(storage.NewAdapter(store, Quiet()), append(base, opts...)...)
	return svc, clock
}

// TestFSStore creates a file-backed store in a temporary directory.
func TestFSStore(t *testing.T) *storage.FS {
	t.Helper()
	store, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return store
}
