package storage

import (
	"path/filepath"
	"testing"
)

func TestOpen_Drivers(t *testing.T) {
	dir := t.TempDir()
	cases := []struct {
		name string
		opts Options
	}{
		{"default is fs", Options{Path: filepath.Join(dir, "fs")}},
		{"fs", Options{Driver: DriverFS, Path: filepath.Join(dir, "fs2")}},
		{"sqlite", Options{Driver: DriverSQLite, Path: filepath.Join(dir, "kv.db")}},
		{"memory", Options{Driver: DriverMemory}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, err := Open(tc.opts)
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			defer s.Close()
			if err := s.Set(KeySelection, "n1"); err != nil {
				t.Fatalf("Set: %v", err)
			}
			v, ok, err := s.Get(KeySelection)
			if err != nil || !ok || v != "n1" {
				t.Errorf("Get = %q, %v, %v", v, ok, err)
			}
			if _, ok, _ := s.Get(KeyTheme); ok {
				t.Error("unset key reported present")
			}
		})
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	if _, err := Open(Options{Driver: "etcd"}); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestValidKey(t *testing.T) {
	for _, k := range []string{KeyNotes, KeySelection, KeyTheme, "a.b-c_d"} {
		if err := validKey(k); err != nil {
			t.Errorf("validKey(%q) = %v", k, err)
		}
	}
	for _, k := range []string{"", "../x", "a/b", ".hidden"} {
		if err := validKey(k); err == nil {
			t.Errorf("validKey(%q) accepted", k)
		}
	}
}

func TestMemory_SetRejectsBadKey(t *testing.T) {
	m := NewMemory()
	if err := m.Set("../escape", "x"); err == nil {
		t.Fatal("expected invalid key error")
	}
}
