package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func tempFS(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempFS(t)
	content := []byte(`[{"email":"a@x.com"}]`)
	if err := s.Write("users.json", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("users.json")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestReadMissing(t *testing.T) {
	s := tempFS(t)
	if _, err := s.Read("absent.json"); err == nil {
		t.Error("expected error reading missing file")
	}
}

func TestExists(t *testing.T) {
	s := tempFS(t)
	if s.Exists("posts.json") {
		t.Error("missing file reported as existing")
	}
	_ = s.Write("posts.json", []byte("[]"))
	if !s.Exists("posts.json") {
		t.Error("written file reported as missing")
	}
}

func TestWriteAllCommitsEveryFile(t *testing.T) {
	s := tempFS(t)
	err := s.WriteAll(map[string][]byte{
		"users.json":  []byte("[]"),
		"posts.json":  []byte("[]"),
		"vitals.json": []byte("{}"),
	})
	if err != nil {
		t.Fatalf("WriteAll: %v", err)
	}
	for name, want := range map[string]string{
		"users.json":  "[]",
		"posts.json":  "[]",
		"vitals.json": "{}",
	} {
		got, err := s.Read(name)
		if err != nil {
			t.Fatalf("Read %s: %v", name, err)
		}
		if string(got) != want {
			t.Errorf("%s = %q, want %q", name, got, want)
		}
	}
}

func TestWriteAllLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.WriteAll(map[string][]byte{"a.json": []byte("1"), "b.json": []byte("2")}); err != nil {
		t.Fatalf("WriteAll: %v", err)
	}
	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if e.Name() != "a.json" && e.Name() != "b.json" {
			t.Errorf("unexpected leftover file %q", e.Name())
		}
	}
}

func TestWriteAllBadNameStagesNothing(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	_ = s.Write("keep.json", []byte("old"))

	err = s.WriteAll(map[string][]byte{
		"keep.json":      []byte("new"),
		"../escape.json": []byte("x"),
	})
	if err == nil {
		t.Fatal("expected error for escaping path")
	}

	got, _ := s.Read("keep.json")
	if string(got) != "old" {
		t.Errorf("keep.json = %q, want untouched %q", got, "old")
	}
	if _, statErr := os.Stat(filepath.Join(dir, "..", "escape.json")); statErr == nil {
		t.Error("escaping file was created")
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempFS(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.json",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
	}
}

func TestAtomicOverwrite(t *testing.T) {
	// After an overwrite the file holds exactly the new content; the rename
	// is atomic on POSIX so a concurrent reader sees old or new, never a mix.
	s := tempFS(t)
	_ = s.Write("settings.json", []byte(`{"posting_enabled": true}`))

	updated := []byte(`{"posting_enabled": false}`)
	if err := s.Write("settings.json", updated); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("settings.json")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(updated) {
		t.Errorf("content = %q", got)
	}
}
