// Package notes implements the note collection operations.
//
// Every function here is copy-on-write: the input collection is never
// modified and callers always get a fresh slice back, so a plain equality
// check on the returned value is enough to detect change.
package notes

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/starford/tidenotes/internal/models"
)

// Generator supplies identifiers and timestamps for new notes.
type Generator struct {
	Now   func() time.Time
	NewID func() string
}

// DefaultGenerator uses the wall clock and random UUIDs.
func DefaultGenerator() Generator {
	return Generator{
		Now:   time.Now,
		NewID: uuid.NewString,
	}
}

// Timestamp returns the current time truncated to the persisted precision.
func (g Generator) Timestamp() time.Time {
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	return Truncate(now())
}

// CreateEmptyNote returns a blank, unpinned note with a fresh id.
func (g Generator) CreateEmptyNote() models.Note {
	newID := uuid.NewString
	if g.NewID != nil {
		newID = g.NewID
	}
	ts := g.Timestamp()
	return models.Note{
		ID:        newID(),
		Tags:      []string{},
		CreatedAt: ts,
		UpdatedAt: ts,
	}
}

// Truncate drops sub-millisecond precision and the monotonic reading.
func Truncate(t time.Time) time.Time {
	return t.Truncate(time.Millisecond)
}

// Find returns the note with the given id.
func Find(coll []models.Note, id string) (models.Note, bool) {
	if i := indexOf(coll, id); i >= 0 {
		return coll[i].Clone(), true
	}
	return models.Note{}, false
}

// Upsert replaces the note with n.ID in place, or appends n when absent.
func Upsert(coll []models.Note, n models.Note) []models.Note {
	out := cloneAll(coll, len(coll)+1)
	if i := indexOf(out, n.ID); i >= 0 {
		out[i] = n.Clone()
		return out
	}
	return append(out, n.Clone())
}

// DeleteByID removes the note with id. An unknown id leaves the collection as is.
func DeleteByID(coll []models.Note, id string) []models.Note {
	out := make([]models.Note, 0, len(coll))
	for _, n := range coll {
		if n.ID == id {
			continue
		}
		out = append(out, n.Clone())
	}
	return out
}

// TogglePinByID flips the pin flag of the note with id and refreshes its
// updatedAt. An unknown id leaves the collection as is.
func TogglePinByID(coll []models.Note, id string, now time.Time) []models.Note {
	out := cloneAll(coll, len(coll))
	if i := indexOf(out, id); i >= 0 {
		n := out[i]
		n.Pinned = !n.Pinned
		out[i] = touch(n, now)
	}
	return out
}

// WithTitle returns a copy of n with a new title.
func WithTitle(n models.Note, title string, now time.Time) models.Note {
	c := n.Clone()
	c.Title = title
	return touch(c, now)
}

// WithContent returns a copy of n with a new body.
func WithContent(n models.Note, content string, now time.Time) models.Note {
	c := n.Clone()
	c.Content = content
	return touch(c, now)
}

// WithTags returns a copy of n carrying the cleaned tags.
func WithTags(n models.Note, tags []string, now time.Time) models.Note {
	c := n.Clone()
	c.Tags = CleanTags(tags)
	return touch(c, now)
}

// ParseTags splits comma-separated input into trimmed, non-empty tags.
func ParseTags(text string) []string {
	return CleanTags(strings.Split(text, ","))
}

// CleanTags trims every tag and drops the empty ones. Order and case are kept.
func CleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// touch sets updatedAt to now, never moving it backwards or before createdAt.
func touch(n models.Note, now time.Time) models.Note {
	now = Truncate(now)
	switch {
	case now.After(n.UpdatedAt):
		n.UpdatedAt = now
	case n.UpdatedAt.Before(n.CreatedAt):
		n.UpdatedAt = n.CreatedAt
	}
	return n
}

func indexOf(coll []models.Note, id string) int {
	for i, n := range coll {
		if n.ID == id {
			return i
		}
	}
	return -1
}

func cloneAll(coll []models.Note, capacity int) []models.Note {
	out := make([]models.Note, len(coll), capacity)
	for i, n := range coll {
		out[i] = n.Clone()
	}
	return out
}
