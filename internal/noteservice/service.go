// Package noteservice owns the live session. Every shell (HTTP, MCP, CLI)
// goes through one Service, which serializes mutations and persists the
// collection after each of them.
package noteservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/tidenotes/internal/apperr"
	"github.com/starford/tidenotes/internal/models"
	"github.com/starford/tidenotes/internal/notes"
	"github.com/starford/tidenotes/internal/parser"
	"github.com/starford/tidenotes/internal/query"
	"github.com/starford/tidenotes/internal/session"
	"github.com/starford/tidenotes/internal/storage"
)

// ChangeKind names what happened to the collection.
type ChangeKind string

const (
	ChangeCreated  ChangeKind = "created"
	ChangeUpdated  ChangeKind = "updated"
	ChangeDeleted  ChangeKind = "deleted"
	ChangePinned   ChangeKind = "pinned"
	ChangeReloaded ChangeKind = "reloaded"
)

// Change is reported to the OnChange callback after a mutation.
type Change struct {
	Kind ChangeKind
	ID   string
}

// Patch is a partial edit. Nil fields are left alone.
type Patch struct {
	Title   *string   `json:"title,omitempty"`
	Content *string   `json:"content,omitempty"`
	Tags    *[]string `json:"tags,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Title == nil && p.Content == nil && p.Tags == nil
}

// SessionInfo is the non-collection part of the session.
type SessionInfo struct {
	SelectedID string       `json:"selectedId"`
	ActiveTag  string       `json:"activeTag"`
	Search     string       `json:"search"`
	Theme      models.Theme `json:"theme"`
}

// Option configures a Service.
type Option func(*Service)

// WithGenerator overrides the clock and id source.
func WithGenerator(g notes.Generator) Option {
	return func(s *Service) { s.gen = g }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithOnChange registers a callback invoked after each mutation, outside the lock.
func WithOnChange(fn func(Change)) Option {
	return func(s *Service) { s.onChange = fn }
}

// Service is the single owner of the session state.
type Service struct {
	adapter  *storage.Adapter
	gen      notes.Generator
	logger   *slog.Logger
	onChange func(Change)

	mu    sync.Mutex
	state session.State
	dirty bool
}

// NewService loads the persisted session through adapter.
func NewService(adapter *storage.Adapter, opts ...Option) *Service {
	s := &Service{
		adapter: adapter,
		gen:     notes.DefaultGenerator(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.state = session.New(adapter.LoadNotes(), adapter.LoadSelection(), adapter.LoadTheme())
	s.logger.Info("notes loaded", slog.Int("count", len(s.state.Notes)))
	return s
}

// View returns the presentation view of the current session.
func (s *Service) View(_ context.Context) session.View {
	s.mu.Lock()
	st := s.state
	s.mu.Unlock()
	return st.View(s.gen.Timestamp())
}

// List filters the collection without touching the session filters.
func (s *Service) List(_ context.Context, q, tag string) []session.Item {
	s.mu.Lock()
	st := s.state
	s.mu.Unlock()
	return session.Items(query.FilterByQueryAndTag(st.Notes, q, tag), st.SelectedID, s.gen.Timestamp())
}

// Get returns the note with id.
func (s *Service) Get(_ context.Context, id string) (models.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := notes.Find(s.state.Notes, id)
	if !ok {
		return models.Note{}, apperr.ErrNotFound
	}
	return n, nil
}

// Tags returns the distinct tags in first-seen order.
func (s *Service) Tags(_ context.Context) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return query.UniqueTags(s.state.Notes)
}

// Session returns selection, filters and theme.
func (s *Service) Session(_ context.Context) SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.infoLocked()
}

// Dirty reports whether the last collection write failed and is still pending.
func (s *Service) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Create adds a note, applies p to it and selects it.
//
// An error wrapping apperr.ErrPersist comes with a valid note: the note
// exists in memory and the write is retried on the next mutation.
func (s *Service) Create(_ context.Context, p Patch) (models.Note, error) {
	s.mu.Lock()
	next, n := session.CreateNote(s.state, s.gen)
	if !p.Empty() {
		n = p.apply(n, n.CreatedAt)
		next = session.UpdateNote(next, n)
	}
	err := errors.Join(s.commitLocked(next), s.persistSelectionLocked())
	s.mu.Unlock()

	s.notify(ChangeCreated, n.ID)
	return n, err
}

// Update applies p to the note with id.
func (s *Service) Update(_ context.Context, id string, p Patch) (models.Note, error) {
	s.mu.Lock()
	n, ok := notes.Find(s.state.Notes, id)
	if !ok {
		s.mu.Unlock()
		return models.Note{}, apperr.ErrNotFound
	}
	if p.Empty() {
		s.mu.Unlock()
		return n, nil
	}
	n = p.apply(n, s.gen.Timestamp())
	err := s.commitLocked(session.UpdateNote(s.state, n))
	s.mu.Unlock()

	s.notify(ChangeUpdated, id)
	return n, err
}

// Delete removes the note with id, clearing the selection if it pointed there.
func (s *Service) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	if _, ok := notes.Find(s.state.Notes, id); !ok {
		s.mu.Unlock()
		return apperr.ErrNotFound
	}
	wasSelected := s.state.SelectedID == id
	err := s.commitLocked(session.DeleteNote(s.state, id))
	if wasSelected {
		err = errors.Join(err, s.persistSelectionLocked())
	}
	s.mu.Unlock()

	s.notify(ChangeDeleted, id)
	return err
}

// TogglePin flips the pin of the note with id.
func (s *Service) TogglePin(_ context.Context, id string) (models.Note, error) {
	s.mu.Lock()
	if _, ok := notes.Find(s.state.Notes, id); !ok {
		s.mu.Unlock()
		return models.Note{}, apperr.ErrNotFound
	}
	next := session.TogglePin(s.state, id, s.gen.Timestamp())
	n, _ := notes.Find(next.Notes, id)
	err := s.commitLocked(next)
	s.mu.Unlock()

	s.notify(ChangePinned, id)
	return n, err
}

// Select opens the note with id. An empty id clears the selection.
func (s *Service) Select(_ context.Context, id string) (SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id != "" {
		if _, ok := notes.Find(s.state.Notes, id); !ok {
			return s.infoLocked(), apperr.ErrNotFound
		}
	}
	s.state = session.Select(s.state, id)
	return s.infoLocked(), s.persistSelectionLocked()
}

// SetFilters replaces the text and tag filters.
func (s *Service) SetFilters(_ context.Context, q, tag string) SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = session.SetTag(session.SetSearch(s.state, q), tag)
	return s.infoLocked()
}

// ClearFilters resets the text and tag filters.
func (s *Service) ClearFilters(_ context.Context) SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = session.ClearFilters(s.state)
	return s.infoLocked()
}

// ToggleTheme switches between light and dark and persists the preference.
func (s *Service) ToggleTheme(_ context.Context) (models.Theme, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = session.ToggleTheme(s.state)
	if err := s.adapter.PersistTheme(s.state.Theme); err != nil {
		s.logger.Error("noteservice: persist theme failed", slog.String("error", err.Error()))
		return s.state.Theme, err
	}
	return s.state.Theme, nil
}

// Export renders the note with id as Markdown.
func (s *Service) Export(ctx context.Context, id string) ([]byte, error) {
	n, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return parser.Render(n)
}

// Import creates a note from a Markdown document. The selection is left alone.
func (s *Service) Import(_ context.Context, data []byte) (models.Note, error) {
	res, err := parser.Parse(data)
	if err != nil {
		return models.Note{}, fmt.Errorf("noteservice: import: %w", apperr.ErrInvalid)
	}

	s.mu.Lock()
	n := s.gen.CreateEmptyNote()
	n.Title = res.Title
	n.Content = res.Body
	n.Tags = notes.CleanTags(res.Tags)
	n.Pinned = res.Pinned
	err = s.commitLocked(session.UpdateNote(s.state, n))
	s.mu.Unlock()

	s.notify(ChangeCreated, n.ID)
	return n, err
}

// Reload re-reads the collection from the store after an external edit.
// Filters and theme are kept; a selection that no longer resolves is dropped.
//
// While an earlier write is still pending the in-memory collection wins:
// Reload re-attempts that write instead of reading, and returns its error.
func (s *Service) Reload(_ context.Context) error {
	s.mu.Lock()
	if s.dirty {
		err := s.commitLocked(s.state)
		s.mu.Unlock()
		if err != nil {
			s.logger.Warn("reload skipped, unpersisted changes", slog.String("error", err.Error()))
			return err
		}
		s.logger.Info("reload skipped, pending changes written")
		return nil
	}

	coll := s.adapter.LoadNotes()
	next := session.New(coll, s.state.SelectedID, s.state.Theme)
	next.ActiveTag = s.state.ActiveTag
	next.Search = s.state.Search
	s.state = next
	s.mu.Unlock()

	s.logger.Info("notes reloaded", slog.Int("count", len(coll)))
	s.notify(ChangeReloaded, "")
	return nil
}

// Flush writes the collection if an earlier write failed.
func (s *Service) Flush(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dirty {
		return nil
	}
	return s.commitLocked(s.state)
}

// commitLocked swaps in next and writes the full collection.
func (s *Service) commitLocked(next session.State) error {
	s.state = next
	if err := s.adapter.PersistNotes(next.Notes); err != nil {
		s.dirty = true
		s.logger.Error("noteservice: persist notes failed", slog.String("error", err.Error()))
		return err
	}
	s.dirty = false
	return nil
}

func (s *Service) persistSelectionLocked() error {
	if err := s.adapter.PersistSelection(s.state.SelectedID); err != nil {
		s.logger.Error("noteservice: persist selection failed", slog.String("error", err.Error()))
		return err
	}
	return nil
}

func (s *Service) infoLocked() SessionInfo {
	return SessionInfo{
		SelectedID: s.state.SelectedID,
		ActiveTag:  s.state.ActiveTag,
		Search:     s.state.Search,
		Theme:      s.state.Theme,
	}
}

func (s *Service) notify(kind ChangeKind, id string) {
	if s.onChange != nil {
		s.onChange(Change{Kind: kind, ID: id})
	}
}

func (p Patch) apply(n models.Note, now time.Time) models.Note {
	if p.Title != nil {
		n = notes.WithTitle(n, *p.Title, now)
	}
	if p.Content != nil {
		n = notes.WithContent(n, *p.Content, now)
	}
	if p.Tags != nil {
		n = notes.WithTags(n, *p.Tags, now)
	}
	return n
}
