package transcode

import (
	"fmt"
	"strconv"
	"strings"

	"hlsforge/internal/config"
)

// selectRenditions keeps renditions whose height does not exceed the
// source's short side. The smallest rendition is always kept so tiny
// sources still produce a playable stream. renditions must be sorted by
// ascending height.
func selectRenditions(renditions []config.Rendition, width, height int) []config.Rendition {
	if len(renditions) == 0 {
		return nil
	}
	short := height
	if width > 0 && width < short {
		short = width
	}
	selected := make([]config.Rendition, 0, len(renditions))
	for _, r := range renditions {
		if short <= 0 || r.Height <= short {
			selected = append(selected, r)
		}
	}
	if len(selected) == 0 {
		selected = append(selected, renditions[0])
	}
	return selected
}

type commandSpec struct {
	source         string
	workDir        string
	segmentSeconds int
	portrait       bool
	hasAudio       bool
	renditions     []config.Rendition
}

// buildArgs assembles one ffmpeg invocation producing every variant under
// workDir/v<N>/prog_index.m3u8 plus workDir/master.m3u8.
func buildArgs(plan commandSpec) []string {
	args := []string{
		"-hide_banner", "-nostdin", "-y",
		"-loglevel", "error",
		"-i", plan.source,
	}
	for range plan.renditions {
		args = append(args, "-map", "0:v:0")
		if plan.hasAudio {
			args = append(args, "-map", "0:a:0")
		}
	}

	keyframes := fmt.Sprintf("expr:gte(t,n_forced*%d)", plan.segmentSeconds)
	args = append(args,
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-profile:v", "main",
		"-pix_fmt", "yuv420p",
		"-sc_threshold", "0",
		"-force_key_frames", keyframes,
	)
	if plan.hasAudio {
		args = append(args, "-c:a", "aac", "-ac", "2")
	}

	streamMap := make([]string, 0, len(plan.renditions))
	for i, r := range plan.renditions {
		idx := strconv.Itoa(i)
		args = append(args,
			"-filter:v:"+idx, scaleFilter(r.Height, plan.portrait),
			"-b:v:"+idx, r.VideoBitrate,
			"-maxrate:v:"+idx, r.VideoBitrate,
			"-bufsize:v:"+idx, doubleBitrate(r.VideoBitrate),
		)
		entry := "v:" + idx
		if plan.hasAudio {
			args = append(args, "-b:a:"+idx, r.AudioBitrate)
			entry += ",a:" + idx
		}
		streamMap = append(streamMap, entry)
	}

	args = append(args,
		"-f", "hls",
		"-hls_time", strconv.Itoa(plan.segmentSeconds),
		"-hls_playlist_type", "vod",
		"-hls_flags", "independent_segments",
		"-hls_segment_filename", plan.workDir+"/v%v/segment%03d.ts",
		"-master_pl_name", MasterPlaylist,
		"-var_stream_map", strings.Join(streamMap, " "),
		plan.workDir+"/v%v/prog_index.m3u8",
	)
	return args
}

// scaleFilter scales the short side to height and keeps the aspect ratio
// with an even long side.
func scaleFilter(height int, portrait bool) string {
	if portrait {
		return fmt.Sprintf("scale=%d:-2", height)
	}
	return fmt.Sprintf("scale=-2:%d", height)
}

// doubleBitrate returns a VBV buffer of twice the target bitrate.
func doubleBitrate(bitrate string) string {
	value := strings.TrimSpace(bitrate)
	suffix := ""
	if n := len(value); n > 0 && (value[n-1] == 'k' || value[n-1] == 'm') {
		suffix = value[n-1:]
		value = value[:n-1]
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return bitrate
	}
	return strconv.Itoa(parsed*2) + suffix
}
