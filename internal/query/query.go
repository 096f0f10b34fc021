// Package query derives read-only views from a note collection.
package query

import (
	"strings"

	"github.com/starford/tidenotes/internal/models"
)

// AllTags is the tag filter value that matches every note.
const AllTags = "All"

// Groups splits a view into pinned and unpinned notes, each in collection order.
type Groups struct {
	Pinned []models.Note `json:"pinned"`
	Others []models.Note `json:"others"`
}

// FilterByQueryAndTag returns the notes that match both the tag and the
// text query, in collection order.
//
// The tag must match exactly; "All" or an empty tag matches everything.
// The query is matched case-insensitively as a substring of the title,
// the content or any tag. A blank query matches everything.
func FilterByQueryAndTag(coll []models.Note, query, tag string) []models.Note {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]models.Note, 0, len(coll))
	for _, n := range coll {
		if matchesTag(n, tag) && matchesText(n, q) {
			out = append(out, n.Clone())
		}
	}
	return out
}

// UniqueTags returns every distinct tag in first-seen order.
func UniqueTags(coll []models.Note) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, n := range coll {
		for _, t := range n.Tags {
			if _, dup := seen[t]; dup {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}

// TagOptions returns the tag filter choices: "All" followed by UniqueTags.
func TagOptions(coll []models.Note) []string {
	return append([]string{AllTags}, UniqueTags(coll)...)
}

// GroupByPin partitions notes for display. The collection itself is never reordered.
func GroupByPin(coll []models.Note) Groups {
	g := Groups{Pinned: []models.Note{}, Others: []models.Note{}}
	for _, n := range coll {
		if n.Pinned {
			g.Pinned = append(g.Pinned, n.Clone())
		} else {
			g.Others = append(g.Others, n.Clone())
		}
	}
	return g
}

func matchesTag(n models.Note, tag string) bool {
	if tag == "" || tag == AllTags {
		return true
	}
	return n.HasTag(tag)
}

// matchesText expects q already lower-cased.
func matchesText(n models.Note, q string) bool {
	if q == "" {
		return true
	}
	if strings.Contains(strings.ToLower(n.Title), q) || strings.Contains(strings.ToLower(n.Content), q) {
		return true
	}
	for _, t := range n.Tags {
		if strings.Contains(strings.ToLower(t), q) {
			return true
		}
	}
	return false
}
