package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/gofrs/flock"

	"hlsforge/internal/config"
	"hlsforge/internal/deps"
	"hlsforge/internal/fileutil"
	"hlsforge/internal/jobname"
	"hlsforge/internal/logging"
	"hlsforge/internal/metrics"
	"hlsforge/internal/notifications"
	"hlsforge/internal/preflight"
	"hlsforge/internal/queue"
	"hlsforge/internal/services"
	"hlsforge/internal/staging"
	"hlsforge/internal/workflow"
)

// manualFileExtensions lists the containers accepted by AddFile.
var manualFileExtensions = map[string]struct{}{
	".mp4": {},
	".m4v": {},
	".mov": {},
}

// Daemon coordinates the background processing services and enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    queue.StatusStore
	workflow *workflow.Manager
	notifier notifications.Service
	metrics  *metrics.Recorder
	api      *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	Workflow     workflow.StatusSummary
	StoreDriver  string
	StorePath    string
	LockFilePath string
	APIAddress   string
	Dependencies []deps.Status
	Checks       []preflight.Result
}

// Option customizes a Daemon.
type Option func(*Daemon)

// WithNotifier overrides the notification service used for test pings.
func WithNotifier(notifier notifications.Service) Option {
	return func(d *Daemon) {
		if notifier != nil {
			d.notifier = notifier
		}
	}
}

// WithMetrics exposes the recorder on the API server's /metrics route.
func WithMetrics(recorder *metrics.Recorder) Option {
	return func(d *Daemon) {
		d.metrics = recorder
	}
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store queue.StatusStore, logger *slog.Logger, wf *workflow.Manager, opts ...Option) (*Daemon, error) {
	if cfg == nil || store == nil || wf == nil {
		return nil, errors.New("daemon requires config, store, and workflow manager")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		workflow: wf,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.notifier == nil {
		d.notifier = notifications.NewService(cfg)
	}
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start launches the workflow manager, acquires the daemon lock and opens
// the HTTP API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	if err := os.MkdirAll(filepath.Dir(d.lockPath), 0o755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another hlsforge daemon instance is already running")
	}

	// Holding the lock means no worker or upload of another instance is
	// writing, so every hidden entry is a leftover of a previous run.
	for _, dir := range []string{d.cfg.Paths.OutputDir, d.cfg.Paths.UploadDir} {
		staging.CleanStale(ctx, dir, 0, d.logger)
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.workflow.Start(d.ctx); err != nil {
		d.abortStart()
		return fmt.Errorf("start workflow: %w", err)
	}
	if err := d.api.start(d.ctx); err != nil {
		d.workflow.Stop()
		d.abortStart()
		return err
	}

	d.running.Store(true)
	d.logger.Info("hlsforge daemon started",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.String("lock", d.lockPath),
		logging.String("api", d.api.address()),
	)
	return nil
}

func (d *Daemon) abortStart() {
	_ = d.lock.Unlock()
	d.cancel()
	d.ctx = nil
	d.cancel = nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	d.api.stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.workflow.Stop()
	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release daemon lock", "daemon_lock_release_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove "+d.lockPath+" if the next start reports a running instance"),
		)
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("hlsforge daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Running reports whether Start succeeded and Stop has not been called.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// APIAddress returns the bound HTTP address, or "" when the API is not listening.
func (d *Daemon) APIAddress() string {
	return d.api.address()
}

// Enqueue admits a file that already lives in the upload directory.
func (d *Daemon) Enqueue(ctx context.Context, sourcePath string) (*queue.Record, error) {
	name, err := d.workflow.Enqueue(ctx, sourcePath)
	if err != nil {
		return nil, err
	}
	return d.workflow.GetStatus(ctx, name)
}

// AddFile copies a local video into the upload directory and enqueues the
// copy. The caller's file is never modified; the copy is what the worker
// deletes after a successful transcode.
func (d *Daemon) AddFile(ctx context.Context, sourcePath string) (*queue.Record, error) {
	const stage = "ingest"
	trimmed := strings.TrimSpace(sourcePath)
	if trimmed == "" {
		return nil, services.Wrap(services.ErrValidation, stage, "resolve", "source path is required", nil)
	}
	absPath, err := filepath.Abs(trimmed)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, stage, "resolve", "could not resolve source path", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, stage, "stat", "source file is not readable", err)
	}
	if info.IsDir() {
		return nil, services.Wrap(services.ErrValidation, stage, "stat", fmt.Sprintf("source path %q is a directory", absPath), nil)
	}
	ext := strings.ToLower(filepath.Ext(info.Name()))
	if _, ok := manualFileExtensions[ext]; !ok {
		return nil, services.Wrap(services.ErrValidation, stage, "stat", fmt.Sprintf("unsupported file extension %q", ext), nil)
	}

	staged, err := fileutil.CopyVerified(absPath, d.cfg.Paths.UploadDir, info.Name())
	if err != nil {
		if errors.Is(err, fileutil.ErrExists) {
			return nil, fmt.Errorf("%w: %s is already staged for upload", queue.ErrConflict, info.Name())
		}
		return nil, services.Wrap(services.ErrAdmission, stage, "copy", "could not stage source file", err)
	}

	record, err := d.Enqueue(ctx, staged)
	if err != nil {
		if removeErr := os.Remove(staged); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
			logging.WarnWithContext(d.logger, "staged copy left behind", "ingest_cleanup_failed",
				logging.String("path", staged),
				logging.Error(removeErr),
			)
		}
		return nil, err
	}
	d.logger.Info("manual file queued",
		logging.String(logging.FieldEventType, "manual_file_queued"),
		logging.String(logging.FieldJobName, record.Name),
		logging.String("source", absPath),
		logging.String("staged", staged),
	)
	return record, nil
}

// JobStatus returns the record for name.
func (d *Daemon) JobStatus(ctx context.Context, name string) (*queue.Record, error) {
	return d.workflow.GetStatus(ctx, name)
}

// ListJobs returns records filtered by optional statuses.
func (d *Daemon) ListJobs(ctx context.Context, statuses []queue.Status) ([]*queue.Record, error) {
	return d.store.List(ctx, statuses...)
}

// Retry starts a new attempt for a Failed job.
func (d *Daemon) Retry(ctx context.Context, name string) (*queue.Record, error) {
	return d.workflow.Retry(ctx, name)
}

// RequeueOrphans queues Pending records left over from a previous run.
func (d *Daemon) RequeueOrphans(ctx context.Context) (int, error) {
	return d.workflow.RequeueOrphans(ctx)
}

// ClearResult reports what ClearJobs removed.
type ClearResult struct {
	Removed       []*queue.Record
	SourcesPurged int
}

// ClearJobs removes terminal records (both Success and Failed when statuses
// is empty). With purgeSources, retained source files of removed records
// inside the upload directory are deleted as well.
func (d *Daemon) ClearJobs(ctx context.Context, statuses []queue.Status, purgeSources bool) (ClearResult, error) {
	removed, err := d.store.ClearTerminal(ctx, statuses...)
	if err != nil {
		return ClearResult{}, err
	}
	result := ClearResult{Removed: removed}
	if !purgeSources {
		return result, nil
	}
	for _, record := range removed {
		if d.purgeSource(record) {
			result.SourcesPurged++
		}
	}
	return result, nil
}

// RemoveJob deletes one Success or Failed record. With purgeSource the
// retained source file is deleted too when it lives in the upload dir.
// Pending and Processing records return queue.ErrInvalidTransition.
func (d *Daemon) RemoveJob(ctx context.Context, name string, purgeSource bool) (*queue.Record, bool, error) {
	if err := jobname.Validate(name); err != nil {
		return nil, false, fmt.Errorf("%w: %s", queue.ErrNotFound, name)
	}
	record, err := d.store.Find(ctx, name)
	if err != nil {
		return nil, false, err
	}
	if err := d.store.Remove(ctx, name); err != nil {
		return nil, false, err
	}
	d.logger.Info("job record removed",
		logging.String(logging.FieldEventType, "job_removed"),
		logging.String(logging.FieldJobName, name),
		logging.String("status", string(record.Status)),
	)
	purged := purgeSource && d.purgeSource(record)
	return record, purged, nil
}

// purgeSource deletes record's source file if it is inside the upload dir.
// Failures are logged; the record is already gone.
func (d *Daemon) purgeSource(record *queue.Record) bool {
	if !d.insideUploadDir(record.SourcePath) {
		return false
	}
	err := os.Remove(record.SourcePath)
	switch {
	case err == nil:
		return true
	case errors.Is(err, os.ErrNotExist):
	default:
		logging.WarnWithContext(d.logger, "failed to purge source file", "source_purge_failed",
			logging.String(logging.FieldJobName, record.Name),
			logging.String("path", record.SourcePath),
			logging.Error(err),
		)
	}
	return false
}

func (d *Daemon) insideUploadDir(path string) bool {
	if path == "" {
		return false
	}
	rel, err := filepath.Rel(d.cfg.Paths.UploadDir, path)
	if err != nil {
		return false
	}
	return rel != "." && !strings.HasPrefix(rel, "..")
}

// QueueHealth returns aggregate record counts.
func (d *Daemon) QueueHealth(ctx context.Context) (queue.HealthSummary, error) {
	return d.store.Health(ctx)
}

// DatabaseHealth returns detailed database diagnostics.
func (d *Daemon) DatabaseHealth(ctx context.Context) (queue.DatabaseHealth, error) {
	return d.store.CheckHealth(ctx)
}

// TestNotification triggers a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := d.notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// Status returns the current daemon status including dependency and
// preflight checks.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		Workflow:     d.workflow.Status(ctx),
		StoreDriver:  d.cfg.Store.Driver,
		LockFilePath: d.lockPath,
		APIAddress:   d.api.address(),
		Dependencies: preflight.CheckSystemDeps(ctx, d.cfg),
	}
	if health, err := d.store.CheckHealth(ctx); err == nil {
		status.StoreDriver = health.Driver
		status.StorePath = health.Location
	}
	status.Checks = append(preflight.RunAll(ctx, d.cfg), preflight.CheckStore(ctx, d.store))
	return status
}
