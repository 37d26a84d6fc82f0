package daemonctl

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"
)

func TestReadPID(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "missing.pid")
	if pid, err := ReadPID(missing); err != nil || pid != 0 {
		t.Fatalf("missing pid file: pid=%d err=%v", pid, err)
	}

	valid := filepath.Join(dir, "valid.pid")
	if err := os.WriteFile(valid, []byte("4242\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if pid, err := ReadPID(valid); err != nil || pid != 4242 {
		t.Fatalf("valid pid file: pid=%d err=%v", pid, err)
	}

	bad := filepath.Join(dir, "bad.pid")
	if err := os.WriteFile(bad, []byte("abc"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadPID(bad); err == nil {
		t.Fatal("expected error for malformed pid file")
	}
}

func TestStopWithoutDaemon(t *testing.T) {
	dir := t.TempDir()
	_, err := Stop(filepath.Join(dir, "hlsforge.sock"), filepath.Join(dir, "hlsforged.pid"), time.Second)
	if !errors.Is(err, ErrDaemonNotRunning) {
		t.Fatalf("expected ErrDaemonNotRunning, got %v", err)
	}
}

func TestStopRefusesCurrentProcess(t *testing.T) {
	dir := t.TempDir()
	pidPath := filepath.Join(dir, "hlsforged.pid")
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Stop(filepath.Join(dir, "hlsforge.sock"), pidPath, time.Second); err == nil {
		t.Fatal("expected refusal to signal the test process")
	}
}

func TestWaitForShutdownWithoutSocket(t *testing.T) {
	if err := WaitForShutdown(filepath.Join(t.TempDir(), "none.sock"), time.Second); err != nil {
		t.Fatalf("expected immediate success, got %v", err)
	}
}

func TestLaunchRequiresExecutable(t *testing.T) {
	if err := Launch(" ", LaunchOptions{}); err == nil {
		t.Fatal("expected error for empty executable")
	}
}
