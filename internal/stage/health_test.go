package stage

import "testing"

func TestHealthString(t *testing.T) {
	if got := Healthy("transcoder").String(); got != "transcoder: ready" {
		t.Fatalf("unexpected string %q", got)
	}
	if got := Unhealthy("transcoder", " ffmpeg missing ").String(); got != "transcoder: not ready (ffmpeg missing)" {
		t.Fatalf("unexpected string %q", got)
	}
}

func TestAllReady(t *testing.T) {
	if !AllReady(nil) {
		t.Fatal("expected empty set to be ready")
	}
	if AllReady([]Health{Healthy("a"), Unhealthy("b", "down")}) {
		t.Fatal("expected mixed set to be not ready")
	}
}
