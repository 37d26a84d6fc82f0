package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestRenderStatusLine(t *testing.T) {
	line := renderStatusLine("Daemon", statusOK, "running (pid 42)", false)
	if line != "  Daemon:              [OK] running (pid 42)" {
		t.Fatalf("unexpected line %q", line)
	}

	colored := renderStatusLine("Daemon", statusError, "", true)
	if !strings.HasPrefix(colored, ansiRed) || !strings.HasSuffix(colored, ansiReset) {
		t.Fatalf("expected red line, got %q", colored)
	}
}

func TestColorStatus(t *testing.T) {
	if got := colorStatus("processing", false); got != "Processing" {
		t.Fatalf("plain status = %q", got)
	}
	if got := colorStatus("success", true); got != ansiGreen+"Success"+ansiReset {
		t.Fatalf("colored status = %q", got)
	}
	if jobStatusKind("failed") != statusError || jobStatusKind("pending") != statusInfo {
		t.Fatal("unexpected status kinds")
	}
}

func TestShouldColorizeIgnoresBuffers(t *testing.T) {
	if shouldColorize(&bytes.Buffer{}) {
		t.Fatal("buffers are never terminals")
	}
}

func TestRenderTableWrapsRows(t *testing.T) {
	out := renderTable([]string{"Name", "Count"}, [][]string{{"pending", "3"}, {"short"}}, []columnAlignment{alignLeft, alignRight})
	for _, want := range []string{"Name", "pending", "3", "short"} {
		if !strings.Contains(out, want) {
			t.Fatalf("table missing %q:\n%s", want, out)
		}
	}
	if !strings.HasSuffix(out, "\n") {
		t.Fatal("table should end with a newline")
	}
}
