// Package models defines the domain types for tidenotes.
package models

import (
	"slices"
	"time"
)

// UntitledLabel is shown in place of an empty title.
const UntitledLabel = "Untitled"

// Note is one user-authored text with its metadata.
type Note struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags"`
	Pinned    bool      `json:"pinned"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DisplayTitle returns the title, or "Untitled" when it is empty.
func (n Note) DisplayTitle() string {
	if n.Title == "" {
		return UntitledLabel
	}
	return n.Title
}

// HasTag reports whether the note carries tag exactly (case-sensitive).
func (n Note) HasTag(tag string) bool {
	return slices.Contains(n.Tags, tag)
}

// Clone returns a copy that shares no slices with n.
func (n Note) Clone() Note {
	c := n
	if n.Tags != nil {
		c.Tags = slices.Clone(n.Tags)
	}
	return c
}

// Equal compares two notes field by field, timestamps by instant.
func (n Note) Equal(o Note) bool {
	return n.ID == o.ID &&
		n.Title == o.Title &&
		n.Content == o.Content &&
		n.Pinned == o.Pinned &&
		slices.Equal(n.Tags, o.Tags) &&
		n.CreatedAt.Equal(o.CreatedAt) &&
		n.UpdatedAt.Equal(o.UpdatedAt)
}
