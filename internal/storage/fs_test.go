package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// fakeFingerprint builds a syntactically valid 64-char hex key.
func fakeFingerprint(seed string) string {
	return strings.Repeat("0", 64-len(seed)) + seed
}

func tempVault(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempVault(t)
	fp := fakeFingerprint("a1")
	content := []byte("%PDF-1.4 fake body")
	if err := s.Write(fp, content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read(fp)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
	if !s.Exists(fp) {
		t.Error("Exists = false after write")
	}
}

func TestDelete(t *testing.T) {
	s := tempVault(t)
	fp := fakeFingerprint("de1")
	_ = s.Write(fp, []byte("bye"))
	if err := s.Delete(fp); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Read(fp); err == nil {
		t.Error("expected error reading deleted document")
	}
	if s.Exists(fp) {
		t.Error("Exists = true after delete")
	}
}

func TestList(t *testing.T) {
	s := tempVault(t)
	_ = s.Write(fakeFingerprint("1"), []byte("a"))
	_ = s.Write(fakeFingerprint("2"), []byte("b"))
	// Stray files that are not fingerprint-keyed PDFs are ignored.
	_ = os.WriteFile(filepath.Join(s.Root(), "readme.txt"), []byte("x"), 0o644)
	_ = os.WriteFile(filepath.Join(s.Root(), "notes.pdf"), []byte("x"), 0o644)
	// Subdirectories are not descended into.
	_ = os.MkdirAll(filepath.Join(s.Root(), "inbox"), 0o755)

	items, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("len = %d, want 2", len(items))
	}
}

func TestInvalidFingerprintRejected(t *testing.T) {
	s := tempVault(t)

	cases := []string{
		"",
		"../../etc/passwd",
		"not-a-digest",
		strings.Repeat("a", 63),
		strings.Repeat("G", 64),
	}
	for _, fp := range cases {
		if _, err := s.Read(fp); err == nil {
			t.Errorf("expected error for key %q", fp)
		}
		if err := s.Write(fp, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", fp)
		}
		if s.Exists(fp) {
			t.Errorf("Exists(%q) = true", fp)
		}
	}
}

func TestAtomicWriteNoCorruption(t *testing.T) {
	// Overwriting the same key must leave the new content and no temp files
	// (the rename is atomic on POSIX).
	s := tempVault(t)
	fp := fakeFingerprint("ff")
	_ = s.Write(fp, []byte("original content"))

	updated := []byte("updated content")
	if err := s.Write(fp, updated); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read(fp)
	if string(got) != string(updated) {
		t.Errorf("expected updated content, got %q", got)
	}

	matches, _ := filepath.Glob(filepath.Join(s.Root(), ".ansuz-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS("/tmp/ansuz-does-not-exist-" + t.Name())
	if err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "ansuz-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	_, err := NewFS(f.Name())
	if err == nil {
		t.Error("expected error when root is a file")
	}
}
