package fs

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	if _, ok := s.GetItem("pieces"); ok {
		t.Fatal("expected miss on fresh store")
	}
	if err := s.SetItem("pieces", `[{"APN":"A1"}]`); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, ok := s.GetItem("pieces")
	if !ok || got != `[{"APN":"A1"}]` {
		t.Fatalf("got %q ok=%v", got, ok)
	}

	s.RemoveItem("pieces")
	if _, ok := s.GetItem("pieces"); ok {
		t.Fatal("expected miss after remove")
	}
	// Removing again is harmless.
	s.RemoveItem("pieces")
}

func TestOverwrite(t *testing.T) {
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.SetItem("k", "one"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.SetItem("k", "two"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if got, _ := s.GetItem("k"); got != "two" {
		t.Fatalf("got %q", got)
	}
}

func TestRejectsTraversalKeys(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	for _, key := range []string{"", "  ", "../escape", "/abs"} {
		if err := s.SetItem(key, "v"); err == nil {
			t.Fatalf("expected rejection for key %q", key)
		}
		if _, ok := s.GetItem(key); ok {
			t.Fatalf("expected miss for key %q", key)
		}
	}
	entries, err := os.ReadDir(filepath.Dir(dir))
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	for _, e := range entries {
		if e.Name() == "escape" {
			t.Fatal("traversal key escaped the root")
		}
	}
}

func TestCreatesRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nested", "settings")
	s, err := NewStore(root)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if s.Root() != root {
		t.Fatalf("root %q", s.Root())
	}
	if _, err := os.Stat(root); err != nil {
		t.Fatalf("root not created: %v", err)
	}
}
