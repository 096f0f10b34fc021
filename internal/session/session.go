// Package session models the state a presentation shell works with: the
// note collection plus selection, filters and theme.
//
// State is a value. Handlers take a State and return the next one; nothing
// here touches storage or shared memory.
package session

import (
	"time"

	"github.com/starford/tidenotes/internal/models"
	"github.com/starford/tidenotes/internal/notes"
	"github.com/starford/tidenotes/internal/query"
	"github.com/starford/tidenotes/internal/reltime"
)

// State is the whole session.
type State struct {
	Notes      []models.Note
	SelectedID string
	ActiveTag  string
	Search     string
	Theme      models.Theme
}

// New returns a session over coll. A selection that points at no note is dropped.
func New(coll []models.Note, selectedID string, theme models.Theme) State {
	if coll == nil {
		coll = []models.Note{}
	}
	if _, ok := notes.Find(coll, selectedID); !ok {
		selectedID = ""
	}
	if !theme.Valid() {
		theme = models.ThemeLight
	}
	return State{
		Notes:      coll,
		SelectedID: selectedID,
		ActiveTag:  query.AllTags,
		Theme:      theme,
	}
}

// CreateNote appends a fresh empty note and selects it.
func CreateNote(s State, g notes.Generator) (State, models.Note) {
	n := g.CreateEmptyNote()
	s.Notes = notes.Upsert(s.Notes, n)
	s.SelectedID = n.ID
	return s, n
}

// Select opens the note with id. Unknown ids clear the selection.
func Select(s State, id string) State {
	if _, ok := notes.Find(s.Notes, id); !ok {
		id = ""
	}
	s.SelectedID = id
	return s
}

// UpdateNote stores an edited note. The caller has already refreshed updatedAt.
func UpdateNote(s State, n models.Note) State {
	s.Notes = notes.Upsert(s.Notes, n)
	return s
}

// DeleteNote removes the note and clears the selection if it pointed there.
func DeleteNote(s State, id string) State {
	s.Notes = notes.DeleteByID(s.Notes, id)
	if s.SelectedID == id {
		s.SelectedID = ""
	}
	return s
}

// TogglePin flips the pin of the note with id.
func TogglePin(s State, id string, now time.Time) State {
	s.Notes = notes.TogglePinByID(s.Notes, id, now)
	return s
}

// SetSearch replaces the text filter.
func SetSearch(s State, q string) State {
	s.Search = q
	return s
}

// SetTag replaces the tag filter. An empty tag means all tags.
func SetTag(s State, tag string) State {
	if tag == "" {
		tag = query.AllTags
	}
	s.ActiveTag = tag
	return s
}

// ClearFilters resets the tag and text filters.
func ClearFilters(s State) State {
	s.ActiveTag = query.AllTags
	s.Search = ""
	return s
}

// ToggleTheme switches between light and dark.
func ToggleTheme(s State) State {
	s.Theme = s.Theme.Toggle()
	return s
}

// Item is a note as shown in a list.
type Item struct {
	models.Note
	DisplayTitle string `json:"displayTitle"`
	UpdatedAgo   string `json:"updatedAgo"`
	Selected     bool   `json:"selected"`
}

// View holds everything a shell renders. It is recomputed from State on every call.
type View struct {
	Notes     []Item       `json:"notes"`
	Pinned    []Item       `json:"pinned"`
	Others    []Item       `json:"others"`
	Total     int          `json:"total"`
	Tags      []string     `json:"tags"`
	Selected  *models.Note `json:"selected"`
	ActiveTag string       `json:"activeTag"`
	Search    string       `json:"search"`
	Theme     models.Theme `json:"theme"`
}

// View derives the filtered list, pin groups, tag options and selected note.
func (s State) View(now time.Time) View {
	filtered := query.FilterByQueryAndTag(s.Notes, s.Search, s.ActiveTag)
	groups := query.GroupByPin(filtered)

	v := View{
		Notes:     s.items(filtered, now),
		Pinned:    s.items(groups.Pinned, now),
		Others:    s.items(groups.Others, now),
		Total:     len(filtered),
		Tags:      query.TagOptions(s.Notes),
		ActiveTag: s.ActiveTag,
		Search:    s.Search,
		Theme:     s.Theme,
	}
	if n, ok := notes.Find(s.Notes, s.SelectedID); ok {
		v.Selected = &n
	}
	return v
}

func (s State) items(ns []models.Note, now time.Time) []Item {
	return Items(ns, s.SelectedID, now)
}

// Items decorates notes with their display title and relative update time.
func Items(ns []models.Note, selectedID string, now time.Time) []Item {
	out := make([]Item, len(ns))
	for i, n := range ns {
		out[i] = Item{
			Note:         n,
			DisplayTitle: n.DisplayTitle(),
			UpdatedAgo:   reltime.Ago(n.UpdatedAt, now),
			Selected:     selectedID != "" && n.ID == selectedID,
		}
	}
	return out
}
