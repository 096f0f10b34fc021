package storage

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/starford/tidenotes/internal/models"
	"github.com/starford/tidenotes/internal/notes"
)

// noteRecord is the persisted shape of a note. Timestamps are epoch milliseconds.
type noteRecord struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Content   string   `json:"content"`
	Tags      []string `json:"tags"`
	Pinned    bool     `json:"pinned"`
	CreatedAt int64    `json:"createdAt"`
	UpdatedAt int64    `json:"updatedAt"`
}

// looseRecord decodes a record while keeping track of which fields were present.
type looseRecord struct {
	ID        *string   `json:"id"`
	Title     *string   `json:"title"`
	Content   *string   `json:"content"`
	Tags      *[]string `json:"tags"`
	Pinned    *bool     `json:"pinned"`
	CreatedAt *float64  `json:"createdAt"`
	UpdatedAt *float64  `json:"updatedAt"`
}

// Dropped describes a persisted record that could not be recovered.
type Dropped struct {
	Index  int
	Reason string
}

// EncodeNotes serializes the collection in order.
func EncodeNotes(coll []models.Note) (string, error) {
	recs := make([]noteRecord, len(coll))
	for i, n := range coll {
		tags := n.Tags
		if tags == nil {
			tags = []string{}
		}
		recs[i] = noteRecord{
			ID:        n.ID,
			Title:     n.Title,
			Content:   n.Content,
			Tags:      tags,
			Pinned:    n.Pinned,
			CreatedAt: n.CreatedAt.UnixMilli(),
			UpdatedAt: n.UpdatedAt.UnixMilli(),
		}
	}
	data, err := json.Marshal(recs)
	if err != nil {
		return "", fmt.Errorf("storage: encode notes: %w", err)
	}
	return string(data), nil
}

// DecodeNotes parses a persisted collection.
//
// An error is returned only when blob is not a JSON array. Individual
// records are dropped when id is missing or empty, when createdAt or
// updatedAt is missing, when any field has the wrong type, or when the id
// repeats an earlier record. Missing title, content, tags and pinned take
// their zero values; tags are trimmed and empty ones removed; an updatedAt
// before createdAt is raised to createdAt.
func DecodeNotes(blob string) ([]models.Note, []Dropped, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal([]byte(blob), &raw); err != nil {
		return nil, nil, fmt.Errorf("storage: decode notes: %w", err)
	}

	out := make([]models.Note, 0, len(raw))
	var dropped []Dropped
	seen := make(map[string]struct{}, len(raw))
	for i, msg := range raw {
		n, reason := decodeRecord(msg)
		if reason == "" {
			if _, dup := seen[n.ID]; dup {
				reason = "duplicate id " + n.ID
			}
		}
		if reason != "" {
			dropped = append(dropped, Dropped{Index: i, Reason: reason})
			continue
		}
		seen[n.ID] = struct{}{}
		out = append(out, n)
	}
	return out, dropped, nil
}

func decodeRecord(msg json.RawMessage) (models.Note, string) {
	var r looseRecord
	if err := json.Unmarshal(msg, &r); err != nil {
		return models.Note{}, err.Error()
	}
	switch {
	case r.ID == nil || *r.ID == "":
		return models.Note{}, "missing id"
	case r.CreatedAt == nil:
		return models.Note{}, "missing createdAt"
	case r.UpdatedAt == nil:
		return models.Note{}, "missing updatedAt"
	case !validMillis(*r.CreatedAt):
		return models.Note{}, "createdAt out of range"
	case !validMillis(*r.UpdatedAt):
		return models.Note{}, "updatedAt out of range"
	}

	n := models.Note{
		ID:        *r.ID,
		Tags:      []string{},
		CreatedAt: time.UnixMilli(int64(*r.CreatedAt)).UTC(),
		UpdatedAt: time.UnixMilli(int64(*r.UpdatedAt)).UTC(),
	}
	if r.Title != nil {
		n.Title = *r.Title
	}
	if r.Content != nil {
		n.Content = *r.Content
	}
	if r.Pinned != nil {
		n.Pinned = *r.Pinned
	}
	if r.Tags != nil {
		n.Tags = notes.CleanTags(*r.Tags)
	}
	if n.UpdatedAt.Before(n.CreatedAt) {
		n.UpdatedAt = n.CreatedAt
	}
	return n, ""
}

// maxMillis is the largest epoch offset a JavaScript Date accepts (±100,000,000 days).
const maxMillis = 8.64e15

func validMillis(v float64) bool {
	return !math.IsNaN(v) && v >= -maxMillis && v <= maxMillis
}
