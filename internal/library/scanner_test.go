package library

import (
	"os"
	"path/filepath"
	"testing"
)

func TestScanFindsAudioFiles(t *testing.T) {
	dir := t.TempDir()

	// Content is garbage; scanning must still list the file with the
	// file name as title
	writeFile(t, filepath.Join(dir, "b_chapter2.mp3"), []byte("not really mp3"))
	writeFile(t, filepath.Join(dir, "a_chapter1.flac"), []byte("not really flac"))
	writeFile(t, filepath.Join(dir, "notes.txt"), []byte("ignore me"))
	writeFile(t, filepath.Join(dir, "nested", "chapter3.ogg"), []byte("x"))

	entries, err := Scan(dir)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	if len(entries) != 3 {
		t.Fatalf("entries: got %d, want 3", len(entries))
	}
	if entries[0].Title != "a_chapter1.flac" {
		t.Errorf("first entry: got %+v", entries[0])
	}
	if entries[1].Title != "b_chapter2.mp3" {
		t.Errorf("second entry: got %+v", entries[1])
	}
	if filepath.Base(entries[2].Path) != "chapter3.ogg" {
		t.Errorf("nested entry: got %+v", entries[2])
	}
}

func TestScanEmptyDirectory(t *testing.T) {
	entries, err := Scan(t.TempDir())
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("entries: got %+v, want none", entries)
	}
}

func TestScanMissingDirectory(t *testing.T) {
	if _, err := Scan(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Error("expected error for missing directory")
	}
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}
