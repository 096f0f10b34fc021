package internal

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/starford/tidenotes/internal/models"
	"github.com/starford/tidenotes/internal/storage"
)

func seedStore(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	fs, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	now := time.Now().Add(-2 * time.Hour)
	err = storage.NewAdapter(fs, nil).PersistNotes([]models.Note{
		{ID: "1", Title: "Shopping", Tags: []string{"home"}, CreatedAt: now, UpdatedAt: now},
		{ID: "2", Title: "Work plan", Tags: []string{"work"}, Pinned: true, CreatedAt: now, UpdatedAt: now},
		{ID: "3", CreatedAt: now, UpdatedAt: now},
	})
	if err != nil {
		t.Fatal(err)
	}
	cfg := NewDefaultConfig()
	cfg.Store.Path = dir
	return cfg
}

func TestList_PinnedFirst(t *testing.T) {
	cfg := seedStore(t)
	var buf bytes.Buffer
	if err := List(context.Background(), "", "", WithConfig(cfg), WithOutput(&buf)); err != nil {
		t.Fatalf("List: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 5 {
		t.Fatalf("lines = %d:\n%s", len(lines), buf.String())
	}
	if !strings.Contains(lines[1], "Work plan") || !strings.HasPrefix(lines[1], "*") {
		t.Errorf("pinned note should come first: %q", lines[1])
	}
	if !strings.Contains(lines[3], "Untitled") {
		t.Errorf("empty title should show as Untitled: %q", lines[3])
	}
	if !strings.Contains(lines[1], "2 hours ago") {
		t.Errorf("missing relative time: %q", lines[1])
	}
	if lines[4] != "3 of 3 notes" {
		t.Errorf("summary = %q", lines[4])
	}
}

func TestList_Filtered(t *testing.T) {
	cfg := seedStore(t)
	var buf bytes.Buffer
	if err := List(context.Background(), "shop", "", WithConfig(cfg), WithOutput(&buf)); err != nil {
		t.Fatalf("List: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Shopping") || strings.Contains(out, "Work plan") {
		t.Errorf("unexpected output:\n%s", out)
	}
	if !strings.HasSuffix(out, "1 of 3 notes\n") {
		t.Errorf("summary missing:\n%s", out)
	}
}

func TestRun_RequiresConfig(t *testing.T) {
	if err := Run(context.Background()); err == nil {
		t.Fatal("expected error without config")
	}
}
