package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"hlsforge/internal/logging"
)

// JobLogs manages per-job log files under <log_dir>/jobs.
type JobLogs struct {
	dir   string
	level string
}

// NewJobLogs creates a JobLogs rooted at dir.
func NewJobLogs(dir, level string) *JobLogs {
	return &JobLogs{dir: strings.TrimSpace(dir), level: level}
}

// Dir returns the directory holding job logs.
func (j *JobLogs) Dir() string {
	return j.dir
}

// Path returns the log file for a job.
func (j *JobLogs) Path(name string) string {
	return filepath.Join(j.dir, name+".log")
}

// Open returns a logger that writes to both base and the job's file. Retry
// attempts append to the same file.
func (j *JobLogs) Open(name string, base *slog.Logger) (*slog.Logger, func(), error) {
	if j.dir == "" {
		return nil, nil, fmt.Errorf("job log directory not configured")
	}
	if err := os.MkdirAll(j.dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("ensure job log directory: %w", err)
	}
	file, err := os.OpenFile(j.Path(name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open job log: %w", err)
	}
	jobHandler := logging.NewJSONHandler(file, j.level)
	handler := teeHandler{base.Handler(), jobHandler.WithAttrs([]slog.Attr{slog.String(logging.FieldJobName, name)})}
	return slog.New(handler), func() { _ = file.Close() }, nil
}

// teeHandler forwards each record to every handler that accepts its level.
type teeHandler []slog.Handler

func (t teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t teeHandler) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	for _, h := range t {
		if h.Enabled(ctx, record.Level) {
			errs = append(errs, h.Handle(ctx, record.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (t teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(teeHandler, len(t))
	for i, h := range t {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (t teeHandler) WithGroup(name string) slog.Handler {
	out := make(teeHandler, len(t))
	for i, h := range t {
		out[i] = h.WithGroup(name)
	}
	return out
}
