package transcode

import (
	"slices"
	"strings"
	"testing"
	"unicode/utf8"

	"hlsforge/internal/config"
)

func testLadder() []config.Rendition {
	return []config.Rendition{
		{Name: "360p", Height: 360, VideoBitrate: "800k", AudioBitrate: "96k"},
		{Name: "720p", Height: 720, VideoBitrate: "2800k", AudioBitrate: "128k"},
		{Name: "1080p", Height: 1080, VideoBitrate: "5000k", AudioBitrate: "128k"},
	}
}

func renditionNames(rs []config.Rendition) []string {
	names := make([]string, 0, len(rs))
	for _, r := range rs {
		names = append(names, r.Name)
	}
	return names
}

func TestSelectRenditions(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		want          []string
	}{
		{name: "full hd keeps all", width: 1920, height: 1080, want: []string{"360p", "720p", "1080p"}},
		{name: "hd drops 1080p", width: 1280, height: 720, want: []string{"360p", "720p"}},
		{name: "portrait uses short side", width: 720, height: 1280, want: []string{"360p", "720p"}},
		{name: "tiny source keeps smallest", width: 320, height: 240, want: []string{"360p"}},
		{name: "unknown size keeps all", width: 0, height: 0, want: []string{"360p", "720p", "1080p"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := renditionNames(selectRenditions(testLadder(), tt.width, tt.height))
			if !slices.Equal(got, tt.want) {
				t.Fatalf("selectRenditions(%d, %d) = %v, want %v", tt.width, tt.height, got, tt.want)
			}
		})
	}
	if got := selectRenditions(nil, 1920, 1080); got != nil {
		t.Fatalf("expected nil for empty ladder, got %v", got)
	}
}

func argValue(args []string, flag string) (string, bool) {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag {
			return args[i+1], true
		}
	}
	return "", false
}

func TestBuildArgsWithAudio(t *testing.T) {
	args := buildArgs(commandSpec{
		source:         "/uploads/clip.mp4",
		workDir:        "/out/.clip-123",
		segmentSeconds: 6,
		hasAudio:       true,
		renditions:     testLadder()[:2],
	})

	if got, _ := argValue(args, "-i"); got != "/uploads/clip.mp4" {
		t.Fatalf("input = %q", got)
	}
	if got, _ := argValue(args, "-var_stream_map"); got != "v:0,a:0 v:1,a:1" {
		t.Fatalf("var_stream_map = %q", got)
	}
	if got, _ := argValue(args, "-filter:v:1"); got != "scale=-2:720" {
		t.Fatalf("filter for variant 1 = %q", got)
	}
	if got, _ := argValue(args, "-bufsize:v:0"); got != "1600k" {
		t.Fatalf("bufsize for variant 0 = %q", got)
	}
	if got, _ := argValue(args, "-b:a:1"); got != "128k" {
		t.Fatalf("audio bitrate for variant 1 = %q", got)
	}
	if got, _ := argValue(args, "-hls_time"); got != "6" {
		t.Fatalf("hls_time = %q", got)
	}
	if got, _ := argValue(args, "-master_pl_name"); got != MasterPlaylist {
		t.Fatalf("master_pl_name = %q", got)
	}
	if last := args[len(args)-1]; last != "/out/.clip-123/v%v/prog_index.m3u8" {
		t.Fatalf("output pattern = %q", last)
	}
	maps := 0
	for _, arg := range args {
		if arg == "-map" {
			maps++
		}
	}
	if maps != 4 {
		t.Fatalf("expected 4 -map flags, got %d", maps)
	}
}

func TestBuildArgsWithoutAudio(t *testing.T) {
	args := buildArgs(commandSpec{
		source:         "/uploads/silent.mov",
		workDir:        "/out/.silent-1",
		segmentSeconds: 4,
		portrait:       true,
		renditions:     testLadder()[:1],
	})
	joined := strings.Join(args, " ")
	if strings.Contains(joined, "0:a:0") || strings.Contains(joined, "-c:a") {
		t.Fatalf("audio flags present for silent source: %s", joined)
	}
	if got, _ := argValue(args, "-var_stream_map"); got != "v:0" {
		t.Fatalf("var_stream_map = %q", got)
	}
	if got, _ := argValue(args, "-filter:v:0"); got != "scale=360:-2" {
		t.Fatalf("portrait filter = %q", got)
	}
	if got, _ := argValue(args, "-force_key_frames"); got != "expr:gte(t,n_forced*4)" {
		t.Fatalf("force_key_frames = %q", got)
	}
}

func TestDoubleBitrate(t *testing.T) {
	cases := map[string]string{
		"800k":  "1600k",
		"5m":    "10m",
		"96000": "192000",
		"fast":  "fast",
	}
	for in, want := range cases {
		if got := doubleBitrate(in); got != want {
			t.Fatalf("doubleBitrate(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestStderrTailSkipsProgress(t *testing.T) {
	stderr := "Input #0, mov\n" +
		"frame=  10 fps=0.0 q=0.0 size=0kB\r" +
		"frame=  20 fps=0.0 q=0.0 size=0kB\n" +
		"[h264 @ 0x1] Invalid NAL unit size\n" +
		"Error while decoding stream #0:0: Invalid data found when processing input\n\n"
	got := stderrTail(stderr)
	want := "Input #0, mov; [h264 @ 0x1] Invalid NAL unit size; Error while decoding stream #0:0: Invalid data found when processing input"
	if got != want {
		t.Fatalf("stderrTail = %q, want %q", got, want)
	}
	if stderrTail("") != "" {
		t.Fatal("expected empty tail for empty stderr")
	}
}

func TestStderrTailTruncates(t *testing.T) {
	long := strings.Repeat("x", 2*stderrTailBytes)
	got := stderrTail(long)
	if !strings.HasPrefix(got, "...") || len(got) != stderrTailBytes+3 {
		t.Fatalf("unexpected truncation: len=%d prefix=%q", len(got), got[:5])
	}
}

func TestStderrTailKeepsValidUTF8(t *testing.T) {
	// Each "é" is two bytes; the odd-length suffix puts the cut mid-rune.
	long := strings.Repeat("é", stderrTailBytes) + "x"
	got := stderrTail(long)
	if !utf8.ValidString(got) {
		t.Fatalf("truncated tail is not valid UTF-8: %q", got[:8])
	}
	if !strings.HasPrefix(got, "...é") || len(got) > stderrTailBytes+3 {
		t.Fatalf("unexpected truncation: len=%d prefix=%q", len(got), got[:8])
	}
}
