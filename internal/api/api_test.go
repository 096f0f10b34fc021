package api

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/starford/tidenotes/internal/models"
	"github.com/starford/tidenotes/internal/noteservice"
	"github.com/starford/tidenotes/internal/session"
	"github.com/starford/tidenotes/internal/storage"
	"github.com/starford/tidenotes/internal/testutil"
)

// testEnv sets up an in-memory store, service, and router for testing.
// An empty authToken means disabled mode.
func testEnv(t *testing.T, authToken string) (*noteservice.Service, http.Handler) {
	t.Helper()
	svc, _ := testutil.TestService(t, storage.NewMemory())
	return svc, NewRouter(svc, authToken != "", authToken, nil)
}

func do(t *testing.T, router http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	switch b := body.(type) {
	case nil:
		rd = bytes.NewReader(nil)
	case string:
		rd = bytes.NewReader([]byte(b))
	default:
		raw, _ := json.Marshal(b)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, rd)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func createNote(t *testing.T, router http.Handler, body any) models.Note {
	t.Helper()
	w := do(t, router, http.MethodPost, "/notes", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	var n models.Note
	if err := json.Unmarshal(w.Body.Bytes(), &n); err != nil {
		t.Fatalf("decode note: %v", err)
	}
	return n
}

func TestCreateAndGetNote(t *testing.T) {
	_, router := testEnv(t, "")

	n := createNote(t, router, map[string]any{"title": "Hello", "tags": []string{"greet"}})
	if n.ID == "" || n.Title != "Hello" {
		t.Fatalf("unexpected note %+v", n)
	}

	w := do(t, router, http.MethodGet, "/notes/"+n.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var got models.Note
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if got.Title != "Hello" || len(got.Tags) != 1 || got.Tags[0] != "greet" {
		t.Errorf("got %+v", got)
	}
}

func TestCreateNote_EmptyBody(t *testing.T) {
	_, router := testEnv(t, "")
	n := createNote(t, router, nil)
	if n.Title != "" || n.Tags == nil {
		t.Errorf("expected blank note, got %+v", n)
	}
}

func TestCreateNote_InvalidJSON(t *testing.T) {
	_, router := testEnv(t, "")
	w := do(t, router, http.MethodPost, "/notes", "{not json")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestCreateNote_TagTooLong(t *testing.T) {
	_, router := testEnv(t, "")
	w := do(t, router, http.MethodPost, "/notes", map[string]any{"tags": []string{strings.Repeat("x", maxTagLen+1)}})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestUpdateNote(t *testing.T) {
	_, router := testEnv(t, "")
	n := createNote(t, router, nil)

	w := do(t, router, http.MethodPatch, "/notes/"+n.ID, map[string]any{"content": "new body"})
	if w.Code != http.StatusOK {
		t.Fatalf("patch = %d, body = %s", w.Code, w.Body.String())
	}
	var got models.Note
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if got.Content != "new body" || got.Title != "" {
		t.Errorf("got %+v", got)
	}
}

func TestGetNote_NotFound(t *testing.T) {
	_, router := testEnv(t, "")
	w := do(t, router, http.MethodGet, "/notes/nonexistent", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestUpdateNote_NotFound(t *testing.T) {
	_, router := testEnv(t, "")
	w := do(t, router, http.MethodPatch, "/notes/nonexistent", map[string]any{"title": "x"})
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestDeleteNote(t *testing.T) {
	_, router := testEnv(t, "")
	n := createNote(t, router, nil)

	w := do(t, router, http.MethodDelete, "/notes/"+n.ID, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete = %d", w.Code)
	}
	w = do(t, router, http.MethodDelete, "/notes/"+n.ID, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete = %d, want 404", w.Code)
	}
}

func TestTogglePin(t *testing.T) {
	_, router := testEnv(t, "")
	n := createNote(t, router, nil)

	w := do(t, router, http.MethodPost, "/notes/"+n.ID+"/pin", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("pin = %d", w.Code)
	}
	var got models.Note
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if !got.Pinned {
		t.Error("expected pinned")
	}
}

func TestListNotes_Filters(t *testing.T) {
	_, router := testEnv(t, "")
	createNote(t, router, map[string]any{"title": "Shopping", "tags": []string{"home"}})
	createNote(t, router, map[string]any{"title": "Work plan", "tags": []string{"work"}})

	for _, tc := range []struct {
		target string
		want   int
	}{
		{"/notes", 2},
		{"/notes?q=PLAN", 1},
		{"/notes?tag=home", 1},
		{"/notes?tag=All&q=", 2},
		{"/notes?tag=work&q=shop", 0},
	} {
		w := do(t, router, http.MethodGet, tc.target, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("%s = %d", tc.target, w.Code)
		}
		var resp NoteListResponse
		_ = json.Unmarshal(w.Body.Bytes(), &resp)
		if resp.Total != tc.want || len(resp.Notes) != tc.want {
			t.Errorf("%s: total = %d, want %d", tc.target, resp.Total, tc.want)
		}
	}
}

func TestTagsEndpoint(t *testing.T) {
	_, router := testEnv(t, "")
	createNote(t, router, map[string]any{"tags": []string{"a", "b"}})
	createNote(t, router, map[string]any{"tags": []string{"b", "c"}})

	w := do(t, router, http.MethodGet, "/tags", nil)
	var resp TagsResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if strings.Join(resp.Tags, ",") != "a,b,c" {
		t.Errorf("tags = %v", resp.Tags)
	}
}

func TestExportImport(t *testing.T) {
	_, router := testEnv(t, "")
	n := createNote(t, router, map[string]any{"title": "Recipe", "content": "flour", "tags": []string{"kitchen"}})

	w := do(t, router, http.MethodGet, "/notes/"+n.ID+"/markdown", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("export = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/markdown") {
		t.Errorf("content type = %q", ct)
	}
	md := w.Body.String()
	if !strings.Contains(md, "title: Recipe") {
		t.Errorf("markdown = %q", md)
	}

	w = do(t, router, http.MethodPost, "/notes/import", md)
	if w.Code != http.StatusCreated {
		t.Fatalf("import = %d, body = %s", w.Code, w.Body.String())
	}
	var imp models.Note
	_ = json.Unmarshal(w.Body.Bytes(), &imp)
	if imp.ID == n.ID || imp.Title != "Recipe" || imp.Content != "flour" {
		t.Errorf("imported %+v", imp)
	}

	w = do(t, router, http.MethodPost, "/notes/import", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty import = %d, want 400", w.Code)
	}
}

func TestSessionEndpoints(t *testing.T) {
	_, router := testEnv(t, "")
	a := createNote(t, router, map[string]any{"title": "Shopping", "tags": []string{"home"}})
	createNote(t, router, map[string]any{"title": "Work plan", "tags": []string{"work"}})

	w := do(t, router, http.MethodPut, "/session/selection", SelectionRequest{ID: a.ID})
	if w.Code != http.StatusOK {
		t.Fatalf("select = %d", w.Code)
	}
	w = do(t, router, http.MethodPut, "/session/selection", SelectionRequest{ID: "ghost"})
	if w.Code != http.StatusNotFound {
		t.Errorf("select ghost = %d, want 404", w.Code)
	}

	w = do(t, router, http.MethodPut, "/session/filters", FiltersRequest{Tag: "home"})
	if w.Code != http.StatusOK {
		t.Fatalf("filters = %d", w.Code)
	}

	w = do(t, router, http.MethodGet, "/view", nil)
	var v session.View
	_ = json.Unmarshal(w.Body.Bytes(), &v)
	if v.Total != 1 || v.Notes[0].ID != a.ID || !v.Notes[0].Selected {
		t.Errorf("view = %+v", v)
	}
	if v.Selected == nil || v.Selected.ID != a.ID {
		t.Errorf("selected = %+v", v.Selected)
	}
	if strings.Join(v.Tags, ",") != "All,home,work" {
		t.Errorf("tag options = %v", v.Tags)
	}

	w = do(t, router, http.MethodDelete, "/session/filters", nil)
	var info noteservice.SessionInfo
	_ = json.Unmarshal(w.Body.Bytes(), &info)
	if info.ActiveTag != "All" || info.Search != "" {
		t.Errorf("cleared = %+v", info)
	}

	w = do(t, router, http.MethodPost, "/session/theme/toggle", nil)
	var th ThemeResponse
	_ = json.Unmarshal(w.Body.Bytes(), &th)
	if th.Theme != models.ThemeDark {
		t.Errorf("theme = %q, want dark", th.Theme)
	}

	w = do(t, router, http.MethodGet, "/session", nil)
	_ = json.Unmarshal(w.Body.Bytes(), &info)
	if info.Theme != models.ThemeDark || info.SelectedID != a.ID {
		t.Errorf("session = %+v", info)
	}
}

func TestPersistFailure_WarningHeader(t *testing.T) {
	store := testutil.NewFlakyStore()
	svc, _ := testutil.TestService(t, store)
	router := NewRouter(svc, false, "", nil)

	store.SetFailing(true)
	w := do(t, router, http.MethodPost, "/notes", map[string]any{"title": "kept"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create = %d, want 201", w.Code)
	}
	if w.Header().Get("Warning") == "" {
		t.Error("expected Warning header on persist failure")
	}

	store.SetFailing(false)
	w = do(t, router, http.MethodGet, "/notes", nil)
	var resp NoteListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != 1 {
		t.Errorf("note should survive in memory, total = %d", resp.Total)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodPost, "/notes", nil)
	req.Header.Set("Authorization", "Bearer secret123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Errorf("authed create = %d, want 201", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	w := do(t, router, http.MethodGet, "/notes", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/notes", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	_, router := testEnv(t, "")
	w := do(t, router, http.MethodGet, "/notes", nil)
	if w.Code != http.StatusOK {
		t.Errorf("disabled mode = %d, want 200", w.Code)
	}
}

// SSE endpoint auth tests.

// testEnvWithSSE creates a router with a stub SSE handler to test auth on /events.
func testEnvWithSSE(t *testing.T, authEnabled bool, token string) http.Handler {
	t.Helper()
	svc, _ := testutil.TestService(t, storage.NewMemory())

	// Writes headers and blocks until the client goes away.
	sseHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-r.Context().Done()
	})
	return NewRouter(svc, authEnabled, token, sseHandler)
}

func TestSSEEvents_AuthProtected(t *testing.T) {
	router := testEnvWithSSE(t, true, "secret")

	w := do(t, router, http.MethodGet, "/events", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	router := testEnvWithSSE(t, true, "tok")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code == http.StatusUnauthorized {
		t.Error("SSE with valid token should not 401")
	}
}

func TestSSEEvents_QueryToken(t *testing.T) {
	router := testEnvWithSSE(t, true, "tok")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events?access_token=tok", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("SSE with query token = %d, want 200", w.Code)
	}

	w = do(t, router, http.MethodGet, "/events?access_token=nope", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("SSE with bad query token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_QueryTokenOnlyForGet(t *testing.T) {
	_, router := testEnv(t, "secret123")
	w := do(t, router, http.MethodPost, "/notes?access_token=secret123", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("POST with query token = %d, want 401", w.Code)
	}
}

func TestSlogLogger_LogsRequestFields(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	h := NewSlogLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	req = req.WithContext(context.WithValue(req.Context(), chimiddleware.RequestIDKey, "req-1"))
	h.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line not JSON: %v", err)
	}
	if entry["method"] != "GET" || entry["path"] != "/health/live" || entry["request_id"] != "req-1" {
		t.Errorf("entry = %v", entry)
	}
	if entry["status"] != float64(http.StatusTeapot) {
		t.Errorf("status = %v", entry["status"])
	}
}
