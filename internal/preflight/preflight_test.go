package preflight

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"hlsforge/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if !strings.Contains(result.Detail, "does not exist") {
		t.Fatalf("unexpected detail: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckFreeSpace(t *testing.T) {
	dir := t.TempDir()
	if result := CheckFreeSpace("volume", dir, 1); !result.Passed {
		t.Fatalf("expected pass with 1 byte minimum, got: %s", result.Detail)
	}
	result := CheckFreeSpace("volume", dir, math.MaxUint64)
	if result.Passed {
		t.Fatal("expected failure with impossible minimum")
	}
	if !strings.Contains(result.Detail, "need") {
		t.Fatalf("unexpected detail: %s", result.Detail)
	}
	if missing := CheckFreeSpace("volume", filepath.Join(dir, "missing"), 1); missing.Passed {
		t.Fatal("expected failure for missing path")
	}
}

func TestRunAllReportsMissingDirectories(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	results := RunAll(context.Background(), cfg)
	if len(results) != 5 {
		t.Fatalf("expected 5 results, got %d", len(results))
	}
	if failed := Failed(results); len(failed) == 0 {
		t.Fatal("directories are not created yet; expected failures")
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	cfg.Upload.MaxBytes = 1
	if failed := Failed(RunAll(context.Background(), cfg)); len(failed) != 0 {
		t.Fatalf("unexpected failures: %+v", failed)
	}
}

func TestCheckStore(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	result := CheckStore(context.Background(), store)
	if !result.Passed {
		t.Fatalf("expected healthy store, got: %s", result.Detail)
	}
	if nilResult := CheckStore(context.Background(), nil); nilResult.Passed {
		t.Fatal("nil store must fail")
	}
}

func TestCheckSystemDepsReportsMissingBinaries(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Transcoder.FFmpegBinary = filepath.Join(t.TempDir(), "no-ffmpeg")
	cfg.Transcoder.FFprobeBinary = filepath.Join(t.TempDir(), "no-ffprobe")
	statuses := CheckSystemDeps(context.Background(), cfg)
	if len(statuses) != 2 {
		t.Fatalf("expected only binary statuses when ffmpeg is missing, got %d", len(statuses))
	}
	for _, status := range statuses {
		if status.Available {
			t.Fatalf("%s unexpectedly available", status.Name)
		}
	}
}

func TestCheckLeftovers(t *testing.T) {
	dir := t.TempDir()
	if result := CheckLeftovers("work", dir); !result.Passed || result.Detail != "none" {
		t.Fatalf("unexpected result for empty dir: %+v", result)
	}

	work := filepath.Join(dir, ".clip-123")
	if err := os.MkdirAll(work, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(work, "seg0.ts"), make([]byte, 2048), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "published"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	result := CheckLeftovers("work", dir)
	if !result.Passed || result.Detail != "1 entries, 2.0 KiB (removed on next start)" {
		t.Fatalf("unexpected result: %+v", result)
	}
}
