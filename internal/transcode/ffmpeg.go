package transcode

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"hlsforge/internal/config"
	"hlsforge/internal/deps"
	"hlsforge/internal/logging"
	"hlsforge/internal/media/ffprobe"
	"hlsforge/internal/services"
	"hlsforge/internal/stage"
)

const stageName = "transcode"

type probeFunc func(ctx context.Context, binary, path string) (ffprobe.Result, error)

// FFmpegExecutor produces HLS output with the ffmpeg and ffprobe binaries.
type FFmpegExecutor struct {
	ffmpegBinary   string
	ffprobeBinary  string
	segmentSeconds int
	timeout        time.Duration
	renditions     []config.Rendition
	logger         *slog.Logger

	runner commandRunner
	probe  probeFunc
	now    func() time.Time
}

// NewFFmpegExecutor builds an executor from the [transcoder] settings.
func NewFFmpegExecutor(cfg *config.Config, logger *slog.Logger) *FFmpegExecutor {
	renditions := make([]config.Rendition, len(cfg.Transcoder.Renditions))
	copy(renditions, cfg.Transcoder.Renditions)
	return &FFmpegExecutor{
		ffmpegBinary:   cfg.Transcoder.FFmpegBinary,
		ffprobeBinary:  cfg.Transcoder.FFprobeBinary,
		segmentSeconds: cfg.Transcoder.SegmentSeconds,
		timeout:        time.Duration(cfg.Transcoder.TimeoutSeconds) * time.Second,
		renditions:     renditions,
		logger:         logging.NewComponentLogger(logger, "transcoder"),
		runner:         execRunner{},
		probe:          ffprobe.Inspect,
		now:            time.Now,
	}
}

// Transcode probes the source, encodes the selected renditions, and moves
// the finished tree to job.OutputDir. Errors carry a message suitable for
// the job's status record.
func (e *FFmpegExecutor) Transcode(ctx context.Context, job Job) (Result, error) {
	started := e.now()
	ctx = services.WithStage(services.WithJobName(ctx, job.Name), stageName)
	logger := logging.WithContext(ctx, e.logger)

	if _, err := os.Stat(job.SourcePath); err != nil {
		return Result{}, services.Wrap(services.ErrValidation, stageName, "stat source", "source file is not readable", err)
	}

	probed, err := e.probe(ctx, e.ffprobeBinary, job.SourcePath)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, ctxErr
		}
		return Result{}, services.Wrap(services.ErrExternalTool, stageName, "ffprobe", "could not read media", err)
	}
	video, ok := probed.PrimaryVideo()
	if !ok {
		return Result{}, services.Wrap(services.ErrValidation, stageName, "ffprobe", "source has no video stream", nil)
	}
	width, height := video.DisplaySize()
	selected := selectRenditions(e.renditions, width, height)
	if len(selected) == 0 {
		return Result{}, services.Wrap(services.ErrValidation, stageName, "select renditions", "no renditions configured", nil)
	}

	parent := filepath.Dir(job.OutputDir)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, stageName, "prepare output", "could not create output directory", err)
	}
	workDir, err := os.MkdirTemp(parent, "."+job.Name+"-*")
	if err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, stageName, "prepare output", "could not create work directory", err)
	}
	keepWork := false
	defer func() {
		if !keepWork {
			_ = os.RemoveAll(workDir)
		}
	}()
	for i := range selected {
		if err := os.MkdirAll(filepath.Join(workDir, "v"+strconv.Itoa(i)), 0o755); err != nil {
			return Result{}, services.Wrap(services.ErrExternalTool, stageName, "prepare output", "could not create variant directory", err)
		}
	}

	args := buildArgs(commandSpec{
		source:         job.SourcePath,
		workDir:        workDir,
		segmentSeconds: e.segmentSeconds,
		portrait:       width > 0 && width < height,
		hasAudio:       probed.AudioStreamCount() > 0,
		renditions:     selected,
	})

	runCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	logger.Info("ffmpeg started",
		logging.String(logging.FieldEventType, "ffmpeg_started"),
		logging.Int("variants", len(selected)),
		logging.Int("source_width", width),
		logging.Int("source_height", height),
	)
	res, runErr := e.runner.Run(runCtx, e.ffmpegBinary, args...)
	if runErr != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return Result{}, services.Wrap(services.ErrTimeout, stageName, "ffmpeg",
				fmt.Sprintf("transcode exceeded %s", e.timeout), runErr)
		}
		message := stderrTail(res.Stderr)
		if message == "" {
			message = fmt.Sprintf("ffmpeg exited with code %d", res.ExitCode)
		}
		return Result{}, services.Wrap(services.ErrExternalTool, stageName, "ffmpeg", message, nil)
	}

	if _, err := os.Stat(filepath.Join(workDir, MasterPlaylist)); err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, stageName, "verify output", "ffmpeg did not write a master playlist", err)
	}

	if err := os.RemoveAll(job.OutputDir); err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, stageName, "publish output", "could not replace previous output", err)
	}
	if err := os.Rename(workDir, job.OutputDir); err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, stageName, "publish output", "could not move output into place", err)
	}
	keepWork = true

	result := Result{
		OutputDir:      job.OutputDir,
		MasterPlaylist: filepath.Join(job.OutputDir, MasterPlaylist),
		SourceWidth:    width,
		SourceHeight:   height,
		Elapsed:        e.now().Sub(started),
	}
	for i, r := range selected {
		result.Variants = append(result.Variants, Variant{
			Name:     r.Name,
			Height:   r.Height,
			Playlist: filepath.Join(job.OutputDir, "v"+strconv.Itoa(i), "prog_index.m3u8"),
		})
	}
	logger.Info("ffmpeg finished",
		logging.String(logging.FieldEventType, "ffmpeg_finished"),
		logging.Duration("elapsed", result.Elapsed),
	)
	return result, nil
}

// HealthCheck verifies both binaries resolve and ffmpeg has the encoders
// the ladder uses.
func (e *FFmpegExecutor) HealthCheck(ctx context.Context) stage.Health {
	statuses := deps.CheckBinaries([]deps.Requirement{
		{Name: "ffmpeg", Command: e.ffmpegBinary},
		{Name: "ffprobe", Command: e.ffprobeBinary},
	})
	for _, status := range statuses {
		if !status.Available {
			return stage.Unhealthy(stageName, status.Detail)
		}
	}
	if encoders := deps.CheckFFmpegEncoders(ctx, e.ffmpegBinary); !encoders.Available {
		return stage.Unhealthy(stageName, encoders.Detail)
	}
	return stage.Healthy(stageName)
}
