package ffprobe

import (
	"math"
	"testing"
)

func TestResultHelpers(t *testing.T) {
	result := Result{
		Streams: []Stream{
			{CodecType: "video", Width: 1920, Height: 1080},
			{CodecType: "audio"},
			{CodecType: "audio"},
		},
		Format: Format{
			Duration: "123.45",
			BitRate:  "32000",
		},
	}
	if result.VideoStreamCount() != 1 {
		t.Fatalf("expected 1 video stream, got %d", result.VideoStreamCount())
	}
	if result.AudioStreamCount() != 2 {
		t.Fatalf("expected 2 audio streams, got %d", result.AudioStreamCount())
	}
	if result.DurationSeconds() != 123.45 {
		t.Fatalf("unexpected duration: %v", result.DurationSeconds())
	}
	if result.BitRate() != 32000 {
		t.Fatalf("unexpected bitrate: %d", result.BitRate())
	}
}

func TestResultHelpersHandleInvalidNumbers(t *testing.T) {
	result := Result{
		Format: Format{
			Duration: "bad",
			BitRate:  "nope",
		},
	}
	if !math.IsNaN(result.DurationSeconds()) {
		t.Fatalf("expected duration NaN, got %v", result.DurationSeconds())
	}
	if result.BitRate() != 0 {
		t.Fatalf("expected bitrate 0, got %d", result.BitRate())
	}
}

func TestParsePhoneRecording(t *testing.T) {
	payload := []byte(`{
  "streams": [
    {"index": 0, "codec_name": "mjpeg", "codec_type": "video", "width": 320, "height": 240, "disposition": {"attached_pic": 1}},
    {"index": 1, "codec_name": "h264", "codec_type": "video", "width": 1920, "height": 1080,
     "side_data_list": [{"side_data_type": "Display Matrix", "rotation": -90}],
     "disposition": {"default": 1}},
    {"index": 2, "codec_name": "aac", "codec_type": "audio", "channels": 2}
  ],
  "format": {"format_name": "mov,mp4,m4a,3gp,3g2,mj2", "duration": "12.5"}
}`)
	result, err := Parse(payload)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	video, ok := result.PrimaryVideo()
	if !ok {
		t.Fatal("expected a primary video stream")
	}
	if video.Index != 1 {
		t.Fatalf("expected stream 1, got %d", video.Index)
	}
	width, height := video.DisplaySize()
	if width != 1080 || height != 1920 {
		t.Fatalf("expected rotated 1080x1920, got %dx%d", width, height)
	}
}

func TestDisplaySizeUsesRotateTag(t *testing.T) {
	stream := Stream{CodecType: "video", Width: 1280, Height: 720, Tags: map[string]string{"rotate": "270"}}
	if w, h := stream.DisplaySize(); w != 720 || h != 1280 {
		t.Fatalf("expected 720x1280, got %dx%d", w, h)
	}
	stream.Tags["rotate"] = "180"
	if w, h := stream.DisplaySize(); w != 1280 || h != 720 {
		t.Fatalf("expected 1280x720, got %dx%d", w, h)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	if _, err := Parse([]byte("not json")); err == nil {
		t.Fatal("expected parse error")
	}
}
