package transcode

import (
	"context"
	"time"

	"hlsforge/internal/stage"
)

// MasterPlaylist is the file name of the HLS master playlist.
const MasterPlaylist = "master.m3u8"

// Job describes one transcoding request.
type Job struct {
	Name       string
	SourcePath string
	OutputDir  string
}

// Result describes a finished HLS tree.
type Result struct {
	OutputDir      string
	MasterPlaylist string
	Variants       []Variant
	SourceWidth    int
	SourceHeight   int
	Elapsed        time.Duration
}

// Variant names one rendition that was written.
type Variant struct {
	Name     string
	Height   int
	Playlist string
}

// Executor converts a source file to HLS. Transcode blocks until the output
// is complete or the context is cancelled.
type Executor interface {
	Transcode(ctx context.Context, job Job) (Result, error)
	HealthCheck(ctx context.Context) stage.Health
}
