// Package deps reports whether the external binaries hlsforge shells out to
// can be found and used.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"hlsforge/internal/config"
)

// Requirement names an executable and what it is used for.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status is the outcome of checking one Requirement. Command holds the
// resolved path when the binary was found.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Requirements returns the ffmpeg and ffprobe binaries configured for the
// transcoder.
func Requirements(cfg *config.Config) []Requirement {
	return []Requirement{
		{Name: "FFmpeg", Command: cfg.Transcoder.FFmpegBinary, Description: "Encodes HLS renditions"},
		{Name: "FFprobe", Command: cfg.Transcoder.FFprobeBinary, Description: "Inspects uploaded media"},
	}
}

// CheckBinaries resolves every requirement on PATH, in order.
func CheckBinaries(requirements []Requirement) []Status {
	out := make([]Status, len(requirements))
	for i, req := range requirements {
		out[i] = lookup(req)
	}
	return out
}

func lookup(req Requirement) Status {
	st := Status{
		Name:        req.Name,
		Command:     strings.TrimSpace(req.Command),
		Description: strings.TrimSpace(req.Description),
		Optional:    req.Optional,
	}
	if st.Command == "" {
		st.Detail = "command not configured"
		return st
	}
	path, err := exec.LookPath(st.Command)
	if err != nil {
		st.Detail = fmt.Sprintf("binary %q not found", st.Command)
		return st
	}
	st.Command, st.Available = path, true
	return st
}
