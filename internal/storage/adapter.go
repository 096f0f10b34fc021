package storage

import (
	"fmt"
	"log/slog"

	"github.com/starford/tidenotes/internal/apperr"
	"github.com/starford/tidenotes/internal/checksum"
	"github.com/starford/tidenotes/internal/models"
)

// Adapter reads and writes the application keys on top of a Store.
type Adapter struct {
	store  Store
	logger *slog.Logger
	notes  checksum.Tracker
}

// NewAdapter wraps store. A nil logger falls back to slog.Default.
func NewAdapter(store Store, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{store: store, logger: logger}
}

// Store returns the underlying key-value store.
func (a *Adapter) Store() Store { return a.store }

// LoadNotes reads the persisted collection. It never fails: an absent,
// unreadable or malformed blob yields an empty collection, and malformed
// records are dropped (see DecodeNotes).
func (a *Adapter) LoadNotes() []models.Note {
	blob, ok, err := a.store.Get(KeyNotes)
	if err != nil {
		a.logger.Warn("storage: read notes failed", slog.String("error", err.Error()))
		return []models.Note{}
	}
	if !ok {
		return []models.Note{}
	}
	a.notes.Remember(blob)

	coll, dropped, err := DecodeNotes(blob)
	if err != nil {
		a.logger.Warn("storage: notes blob unreadable, starting empty", slog.String("error", err.Error()))
		return []models.Note{}
	}
	for _, d := range dropped {
		a.logger.Warn("storage: dropped malformed note record",
			slog.Int("index", d.Index),
			slog.String("reason", d.Reason))
	}
	return coll
}

// PersistNotes overwrites the stored collection. Writing the same
// collection twice performs a single store write. A blob that matches our
// last write is still written when the stored copy was replaced by someone
// else, so drivers without a watcher converge too.
func (a *Adapter) PersistNotes(coll []models.Note) error {
	blob, err := EncodeNotes(coll)
	if err != nil {
		return fmt.Errorf("%w: %w", apperr.ErrPersist, err)
	}
	if !a.Changed(blob) {
		if cur, ok, err := a.store.Get(KeyNotes); err == nil && ok && cur == blob {
			return nil
		}
	}
	if err := a.store.Set(KeyNotes, blob); err != nil {
		return fmt.Errorf("%w: %w", apperr.ErrPersist, err)
	}
	a.notes.Remember(blob)
	return nil
}

// Changed reports whether blob differs from the notes blob this adapter
// last read or wrote.
func (a *Adapter) Changed(blob string) bool {
	return a.notes.Changed(blob)
}

// NotesChangedExternally re-reads the notes key and reports whether its
// content differs from what this adapter last read or wrote.
func (a *Adapter) NotesChangedExternally() (bool, error) {
	blob, ok, err := a.store.Get(KeyNotes)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	return a.Changed(blob), nil
}

// LoadSelection returns the last selected note id, or "" for none.
// Read failures are logged and treated as no selection.
func (a *Adapter) LoadSelection() string {
	v, ok, err := a.store.Get(KeySelection)
	if err != nil {
		a.logger.Warn("storage: read selection failed", slog.String("error", err.Error()))
		return ""
	}
	if !ok {
		return ""
	}
	return v
}

// PersistSelection stores the selected note id ("" clears it).
func (a *Adapter) PersistSelection(id string) error {
	if err := a.store.Set(KeySelection, id); err != nil {
		return fmt.Errorf("%w: %w", apperr.ErrPersist, err)
	}
	return nil
}

// LoadTheme returns the stored theme, defaulting to light.
func (a *Adapter) LoadTheme() models.Theme {
	v, ok, err := a.store.Get(KeyTheme)
	if err != nil {
		a.logger.Warn("storage: read theme failed", slog.String("error", err.Error()))
		return models.ThemeLight
	}
	if t := models.Theme(v); ok && t.Valid() {
		return t
	}
	return models.ThemeLight
}

// PersistTheme stores the theme preference.
func (a *Adapter) PersistTheme(theme models.Theme) error {
	if !theme.Valid() {
		return fmt.Errorf("%w: theme %q", apperr.ErrInvalid, theme)
	}
	if err := a.store.Set(KeyTheme, string(theme)); err != nil {
		return fmt.Errorf("%w: %w", apperr.ErrPersist, err)
	}
	return nil
}
