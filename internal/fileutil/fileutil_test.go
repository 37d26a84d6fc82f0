package fileutil

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestIngestWritesFile(t *testing.T) {
	dir := t.TempDir()
	path, n, err := Ingest(strings.NewReader("hello world"), dir, "clip.mp4", 0)
	if err != nil {
		t.Fatal(err)
	}
	if n != 11 {
		t.Fatalf("written = %d, want 11", n)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "hello world" {
		t.Fatalf("content mismatch: got %q", got)
	}
	assertNoPartials(t, dir)
}

func TestIngestEnforcesLimit(t *testing.T) {
	dir := t.TempDir()
	_, _, err := Ingest(strings.NewReader("0123456789"), dir, "clip.mp4", 4)
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "clip.mp4")); !os.IsNotExist(err) {
		t.Fatalf("oversized upload should not be published, stat err=%v", err)
	}
	assertNoPartials(t, dir)
}

func TestIngestLimitIsInclusive(t *testing.T) {
	dir := t.TempDir()
	if _, _, err := Ingest(strings.NewReader("0123"), dir, "clip.mp4", 4); err != nil {
		t.Fatalf("upload at the limit should succeed: %v", err)
	}
}

func TestIngestRefusesExisting(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(target, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, _, err := Ingest(strings.NewReader("new"), dir, "clip.mp4", 0)
	if !errors.Is(err, ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	got, _ := os.ReadFile(target)
	if string(got) != "old" {
		t.Fatalf("existing file was modified: %q", got)
	}
}

func TestCopyVerified(t *testing.T) {
	srcDir := t.TempDir()
	dstDir := t.TempDir()
	src := filepath.Join(srcDir, "src.mov")
	content := []byte("verified content")
	if err := os.WriteFile(src, content, 0o644); err != nil {
		t.Fatal(err)
	}

	dst, err := CopyVerified(src, dstDir, "src.mov")
	if err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(content) {
		t.Fatalf("content mismatch: got %q", got)
	}
	if _, err := os.Stat(src); err != nil {
		t.Fatalf("source should be left in place: %v", err)
	}
}

func TestCopyVerifiedMissingSource(t *testing.T) {
	if _, err := CopyVerified(filepath.Join(t.TempDir(), "missing"), t.TempDir(), "x.mp4"); err == nil {
		t.Fatal("expected error for missing source")
	}
}

func assertNoPartials(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".part") {
			t.Fatalf("partial file left behind: %s", entry.Name())
		}
	}
}
