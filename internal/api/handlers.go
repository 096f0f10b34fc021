package api

import (
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/tidenotes/internal/noteservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *noteservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *noteservice.Service) *Handler {
	return &Handler{svc: svc}
}

// ListNotes handles GET /api/notes.
//
//	@Summary		List notes filtered by text and tag
//	@Tags			notes
//	@Produce		json
//	@Param			q	query		string	false	"Case-insensitive text filter"
//	@Param			tag	query		string	false	"Exact tag, or All"
//	@Success		200	{object}	NoteListResponse
//	@Security		BearerAuth
//	@Router			/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items := h.svc.List(r.Context(), q.Get("q"), q.Get("tag"))
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: items, Total: len(items)})
}

// GetNote handles GET /api/notes/{id}.
//
//	@Summary		Get a single note
//	@Tags			notes
//	@Produce		json
//	@Param			id	path		string	true	"Note id"
//	@Success		200	{object}	models.Note
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get note", err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// CreateNote handles POST /api/notes. The body is optional.
//
//	@Summary		Create a note and select it
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		NoteRequest	false	"Initial fields"
//	@Success		201		{object}	models.Note
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req NoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	n, err := h.svc.Create(r.Context(), req.patch())
	if !applied(w, "create note", err) {
		return
	}
	writeJSON(w, http.StatusCreated, n)
}

// UpdateNote handles PATCH /api/notes/{id}.
//
//	@Summary		Edit title, content or tags
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string		true	"Note id"
//	@Param			body	body		NoteRequest	true	"Fields to change"
//	@Success		200		{object}	models.Note
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [patch]
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	var req NoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	n, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), req.patch())
	if !applied(w, "update note", err) {
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// DeleteNote handles DELETE /api/notes/{id}.
//
//	@Summary		Delete a note
//	@Tags			notes
//	@Param			id	path	string	true	"Note id"
//	@Success		204	"Note deleted"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [delete]
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	err := h.svc.Delete(r.Context(), chi.URLParam(r, "id"))
	if !applied(w, "delete note", err) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// TogglePin handles POST /api/notes/{id}/pin.
//
//	@Summary		Flip the pinned flag
//	@Tags			notes
//	@Produce		json
//	@Param			id	path		string	true	"Note id"
//	@Success		200	{object}	models.Note
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/pin [post]
func (h *Handler) TogglePin(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.TogglePin(r.Context(), chi.URLParam(r, "id"))
	if !applied(w, "toggle pin", err) {
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// ExportNote handles GET /api/notes/{id}/markdown.
//
//	@Summary		Export a note as Markdown with frontmatter
//	@Tags			notes
//	@Produce		text/markdown
//	@Param			id	path	string	true	"Note id"
//	@Success		200	{string}	string
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/markdown [get]
func (h *Handler) ExportNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	data, err := h.svc.Export(r.Context(), id)
	if err != nil {
		writeError(w, "export note", err)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.md"`, id))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// ImportNote handles POST /api/notes/import. The body is raw Markdown.
//
//	@Summary		Create a note from a Markdown document
//	@Tags			notes
//	@Accept			text/markdown
//	@Produce		json
//	@Success		201	{object}	models.Note
//	@Failure		400	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/import [post]
func (h *Handler) ImportNote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return
	}
	if len(data) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("body is required"))
		return
	}
	n, err := h.svc.Import(r.Context(), data)
	if !applied(w, "import note", err) {
		return
	}
	writeJSON(w, http.StatusCreated, n)
}

// Tags handles GET /api/tags.
//
//	@Summary		Distinct tags in first-seen order
//	@Tags			tags
//	@Produce		json
//	@Success		200	{object}	TagsResponse
//	@Security		BearerAuth
//	@Router			/tags [get]
func (h *Handler) Tags(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, TagsResponse{Tags: h.svc.Tags(r.Context())})
}

// View handles GET /api/view.
//
//	@Summary		Everything a client renders for the current session
//	@Tags			session
//	@Produce		json
//	@Success		200	{object}	session.View
//	@Security		BearerAuth
//	@Router			/view [get]
func (h *Handler) View(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.View(r.Context()))
}

// Session handles GET /api/session.
//
//	@Summary		Selection, filters and theme
//	@Tags			session
//	@Produce		json
//	@Success		200	{object}	noteservice.SessionInfo
//	@Security		BearerAuth
//	@Router			/session [get]
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Session(r.Context()))
}

// Select handles PUT /api/session/selection. An empty id clears the selection.
//
//	@Summary		Select a note
//	@Tags			session
//	@Accept			json
//	@Produce		json
//	@Param			body	body		SelectionRequest	true	"Note id"
//	@Success		200		{object}	noteservice.SessionInfo
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/session/selection [put]
func (h *Handler) Select(w http.ResponseWriter, r *http.Request) {
	var req SelectionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	info, err := h.svc.Select(r.Context(), req.ID)
	if !applied(w, "select note", err) {
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// SetFilters handles PUT /api/session/filters.
//
//	@Summary		Set the text and tag filters
//	@Tags			session
//	@Accept			json
//	@Produce		json
//	@Param			body	body		FiltersRequest	true	"Filters"
//	@Success		200		{object}	noteservice.SessionInfo
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/session/filters [put]
func (h *Handler) SetFilters(w http.ResponseWriter, r *http.Request) {
	var req FiltersRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, h.svc.SetFilters(r.Context(), req.Query, req.Tag))
}

// ClearFilters handles DELETE /api/session/filters.
//
//	@Summary		Reset the filters
//	@Tags			session
//	@Produce		json
//	@Success		200	{object}	noteservice.SessionInfo
//	@Security		BearerAuth
//	@Router			/session/filters [delete]
func (h *Handler) ClearFilters(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.ClearFilters(r.Context()))
}

// ToggleTheme handles POST /api/session/theme/toggle.
//
//	@Summary		Switch between light and dark
//	@Tags			session
//	@Produce		json
//	@Success		200	{object}	ThemeResponse
//	@Security		BearerAuth
//	@Router			/session/theme/toggle [post]
func (h *Handler) ToggleTheme(w http.ResponseWriter, r *http.Request) {
	theme, err := h.svc.ToggleTheme(r.Context())
	if !applied(w, "toggle theme", err) {
		return
	}
	writeJSON(w, http.StatusOK, ThemeResponse{Theme: theme})
}
