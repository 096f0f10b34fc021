package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/tidenotes/internal/noteservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *noteservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Notes.
	r.Get("/notes", h.ListNotes)
	r.Post("/notes", h.CreateNote)
	r.Post("/notes/import", h.ImportNote)
	r.Get("/notes/{id}", h.GetNote)
	r.Patch("/notes/{id}", h.UpdateNote)
	r.Delete("/notes/{id}", h.DeleteNote)
	r.Post("/notes/{id}/pin", h.TogglePin)
	r.Get("/notes/{id}/markdown", h.ExportNote)

	r.Get("/tags", h.Tags)
	r.Get("/view", h.View)

	// Session.
	r.Get("/session", h.Session)
	r.Put("/session/selection", h.Select)
	r.Put("/session/filters", h.SetFilters)
	r.Delete("/session/filters", h.ClearFilters)
	r.Post("/session/theme/toggle", h.ToggleTheme)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
