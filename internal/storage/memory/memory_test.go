package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"cartera/internal/storage"
)

func TestMemoryStoreGetSet(t *testing.T) {
	s := New()
	ctx := context.Background()

	got, err := s.Get(ctx, "missing")
	if err != nil || got != "" {
		t.Fatalf("expected empty value for missing key, got %q err=%v", got, err)
	}

	if err := s.Set(ctx, "k", `{"a":1}`); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err = s.Get(ctx, "k")
	if err != nil || got != `{"a":1}` {
		t.Fatalf("unexpected get: %q err=%v", got, err)
	}
	if len(s.Keys()) != 1 {
		t.Fatalf("unexpected keys: %v", s.Keys())
	}
}

func TestMemoryStoreClosed(t *testing.T) {
	s := New()
	_ = s.Close()
	if err := s.Set(context.Background(), "k", "v"); err != storage.ErrClosed {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if _, err := s.Get(context.Background(), "k"); err != storage.ErrClosed {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if err := s.Ping(context.Background()); err != storage.ErrClosed {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestNewFromFilesSeeds(t *testing.T) {
	dir := t.TempDir()
	// No files -> empty store
	s := NewFromFiles(dir)
	if len(s.Keys()) != 0 {
		t.Fatalf("expected empty store when files missing")
	}

	mustWrite := func(name, content string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	mustWrite("cuentas_dashboard_v1.json", "# fixture\n{\"monthlySalary\":45000,\"extras\":[]}\n")
	mustWrite("empty.json", "# only a comment\n")
	mustWrite("notes.txt", "ignored")

	s = NewFromFiles(dir)
	got, _ := s.Get(context.Background(), "cuentas_dashboard_v1")
	if got != `{"monthlySalary":45000,"extras":[]}` {
		t.Fatalf("unexpected seeded value: %q", got)
	}
	if len(s.Keys()) != 1 {
		t.Fatalf("unexpected keys: %v", s.Keys())
	}
}
