package deps

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// requiredEncoders are the codecs the HLS ladder is encoded with.
var requiredEncoders = []string{"libx264", "aac"}

const encoderProbeTimeout = 10 * time.Second

// CheckFFmpegEncoders runs `ffmpeg -encoders` and reports whether every
// encoder the HLS ladder needs is compiled in.
func CheckFFmpegEncoders(ctx context.Context, binary string) Status {
	result := Status{
		Name:        "FFmpeg encoders",
		Command:     strings.TrimSpace(binary),
		Description: "libx264 video and aac audio encoders",
	}
	if result.Command == "" {
		result.Command = "ffmpeg"
	}

	probeCtx, cancel := context.WithTimeout(ctx, encoderProbeTimeout)
	defer cancel()

	output, err := exec.CommandContext(probeCtx, result.Command, "-hide_banner", "-encoders").Output()
	if err != nil {
		result.Detail = fmt.Sprintf("list encoders: %v", err)
		return result
	}

	available := parseEncoders(string(output))
	var missing []string
	for _, name := range requiredEncoders {
		if _, ok := available[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		result.Detail = "missing encoders: " + strings.Join(missing, ", ")
		return result
	}
	result.Available = true
	return result
}

// parseEncoders extracts encoder names from lines such as
// " V....D libx264              libx264 H.264 / AVC".
func parseEncoders(output string) map[string]struct{} {
	names := make(map[string]struct{})
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		flags := fields[0]
		if len(flags) != 6 || !strings.ContainsAny(flags[:1], "VAS") {
			continue
		}
		names[fields[1]] = struct{}{}
	}
	return names
}
