package storage

import (
	"path/filepath"
	"testing"
)

func testSQLite(t *testing.T) *SQLite {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "tidenotes-test.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSQLite_SchemaCreated(t *testing.T) {
	db := testSQLite(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM kv`).Scan(&count); err != nil {
		t.Fatalf("kv table missing: %v", err)
	}
}

func TestSQLite_SetGetOverwrite(t *testing.T) {
	db := testSQLite(t)
	if err := db.Set(KeyTheme, "dark"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := db.Set(KeyTheme, "light"); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}
	v, ok, err := db.Get(KeyTheme)
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if v != "light" {
		t.Errorf("value = %q, want light", v)
	}
	var rows int
	_ = db.conn.QueryRow(`SELECT count(*) FROM kv WHERE key = ?`, KeyTheme).Scan(&rows)
	if rows != 1 {
		t.Errorf("rows = %d, want 1", rows)
	}
}

func TestSQLite_GetAbsent(t *testing.T) {
	db := testSQLite(t)
	v, ok, err := db.Get("nonexistent")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok || v != "" {
		t.Errorf("absent: ok=%v v=%q", ok, v)
	}
}

func TestSQLite_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persist.db")
	db, err := OpenSQLite(path)
	if err != nil {
		t.Fatal(err)
	}
	_ = db.Set(KeySelection, "abc")
	db.Close()

	db, err = OpenSQLite(path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	v, _, _ := db.Get(KeySelection)
	if v != "abc" {
		t.Errorf("value after reopen = %q", v)
	}
}
