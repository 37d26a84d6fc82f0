package workflow

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"hlsforge/internal/logging"
	"hlsforge/internal/queue"
	"hlsforge/internal/services"
	"hlsforge/internal/transcode"
)

// Start fails records a previous run left in Processing and launches the
// worker goroutine.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	m.mu.Unlock()

	interrupted, err := m.store.FailInterrupted(ctx, queue.InterruptedMessage)
	if err != nil {
		return services.Wrap(services.ErrStatusWrite, "workflow", "recover interrupted jobs", "could not fail interrupted jobs", err)
	}
	if interrupted > 0 {
		logging.WarnWithContext(m.logger, "interrupted jobs marked failed", "jobs_interrupted",
			logging.Int64("count", interrupted),
			logging.String(logging.FieldErrorHint, "retry them with `hlsforge queue retry <name>`"),
			logging.String(logging.FieldImpact, "jobs running during the last shutdown did not finish"),
		)
	}

	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(1)
	m.mu.Unlock()

	go m.run(runCtx)
	m.logger.Info("workflow started", logging.String(logging.FieldEventType, "workflow_started"))
	return nil
}

// Stop cancels the in-flight transcode and waits for the worker to record
// its outcome. Queued jobs stay Pending.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
	m.logger.Info("workflow stopped", logging.String(logging.FieldEventType, "workflow_stopped"))
}

func (m *Manager) run(ctx context.Context) {
	defer m.wg.Done()
	for {
		if ctx.Err() != nil {
			return
		}
		job, ok := m.pop()
		if !ok {
			m.onQueueIdle(ctx)
			select {
			case <-ctx.Done():
				return
			case <-m.wake:
			}
			continue
		}
		m.process(ctx, job)
		m.clearActive()
	}
}

func (m *Manager) process(ctx context.Context, job queuedJob) {
	ctx = services.WithJobName(ctx, job.name)
	logger := logging.WithContext(ctx, m.logger)
	if m.jobLogs != nil {
		jobLogger, closeLog, err := m.jobLogs.Open(job.name, logger)
		if err != nil {
			logger.Warn("job log unavailable",
				logging.Error(err),
				logging.String(logging.FieldEventType, "job_log_unavailable"),
				logging.String(logging.FieldErrorHint, "check log_dir permissions"),
				logging.String(logging.FieldImpact, "job output only appears in the daemon log"),
			)
		} else {
			logger = jobLogger
			defer closeLog()
		}
	}

	if err := m.writeStatus(ctx, logger, job.name, queue.StatusProcessing, ""); isStaleEntry(err) {
		logger.Warn("job skipped; record is no longer pending",
			logging.Error(err),
			logging.String(logging.FieldEventType, "job_skipped"),
			logging.String(logging.FieldErrorHint, "inspect the record with `hlsforge job <name>`"),
			logging.String(logging.FieldImpact, "job was not transcoded"),
		)
		return
	}

	started := time.Now()
	m.onJobStarted(job.name, started)
	logger.Info("transcode started",
		logging.String(logging.FieldEventType, "job_started"),
		logging.Duration("queued_for", started.Sub(job.queuedAt)),
	)

	hbCtx, stopHeartbeat := context.WithCancel(ctx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go m.heartbeat.StartLoop(hbCtx, &hbWG, job.name)

	result, err := m.executor.Transcode(ctx, transcode.Job{
		Name:       job.name,
		SourcePath: job.sourcePath,
		OutputDir:  m.cfg.JobOutputDir(job.name),
	})

	stopHeartbeat()
	hbWG.Wait()
	elapsed := time.Since(started)

	if err != nil {
		m.handleFailure(ctx, logger, job, err, elapsed)
		return
	}
	m.handleSuccess(ctx, logger, job, result, elapsed)
}

func (m *Manager) handleSuccess(ctx context.Context, logger *slog.Logger, job queuedJob, result transcode.Result, elapsed time.Duration) {
	if err := os.Remove(job.sourcePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		cleanupErr := services.Wrap(services.ErrCleanup, "cleanup", "remove source", "uploaded source was not deleted", err)
		logging.WarnWithContext(logger, "source cleanup failed", "cleanup_failed",
			logging.Error(cleanupErr),
			logging.String(logging.FieldErrorKind, services.Details(cleanupErr).Kind),
			logging.String("source_path", job.sourcePath),
			logging.String(logging.FieldErrorHint, "remove the file manually"),
			logging.String(logging.FieldImpact, "disk space is not reclaimed; the job still succeeds"),
		)
	}

	_ = m.writeStatus(ctx, logger, job.name, queue.StatusSuccess, "")
	logger.Info("transcode succeeded",
		logging.String(logging.FieldEventType, "job_succeeded"),
		logging.Duration("elapsed", elapsed),
		logging.Int("variants", len(result.Variants)),
		logging.String("master_playlist", result.MasterPlaylist),
	)
	m.onJobFinished(ctx, logger, job.name, queue.StatusSuccess, "", elapsed)
}

func (m *Manager) handleFailure(ctx context.Context, logger *slog.Logger, job queuedJob, jobErr error, elapsed time.Duration) {
	message := failureMessage(jobErr)
	if ctx.Err() != nil {
		message = queue.DaemonStopMessage
	}
	m.setLastError(jobErr)

	details := services.Details(jobErr)
	attrs := []logging.Attr{
		logging.Error(jobErr),
		logging.String("error_message", message),
		logging.String(logging.FieldErrorKind, details.Kind),
		logging.Alert("job_failure"),
		logging.Duration("elapsed", elapsed),
	}
	if details.Hint != "" {
		attrs = append(attrs, logging.String(logging.FieldErrorHint, details.Hint))
	} else {
		attrs = append(attrs, logging.String(logging.FieldErrorHint, "source file kept; retry with `hlsforge queue retry <name>`"))
	}
	logging.ErrorWithContext(logger, "transcode failed", "job_failed", attrs...)

	_ = m.writeStatus(ctx, logger, job.name, queue.StatusFailed, message)
	m.onJobFinished(ctx, logger, job.name, queue.StatusFailed, message, elapsed)
}

// writeStatus persists a transition on a context detached from shutdown so
// the terminal status of a cancelled job is still recorded. Failures are
// logged and returned for callers that care.
func (m *Manager) writeStatus(ctx context.Context, logger *slog.Logger, name string, status queue.Status, message string) error {
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.statusWriteTimeout)
	defer cancel()

	err := m.store.SetStatus(writeCtx, name, status, message)
	if err == nil {
		return nil
	}
	if status == queue.StatusProcessing && isStaleEntry(err) {
		// The record moved on or was removed; the caller skips the job.
		return err
	}
	writeErr := services.Wrap(services.ErrStatusWrite, "workflow", "set status", "status "+string(status)+" not recorded", err)
	m.setLastError(writeErr)
	logging.ErrorWithContext(logger, "status write failed", "status_write_failed",
		logging.Error(writeErr),
		logging.String("target_status", string(status)),
		logging.String(logging.FieldErrorKind, services.Details(writeErr).Kind),
		logging.String(logging.FieldErrorHint, "check status store connectivity"),
	)
	return err
}

// isStaleEntry reports whether a Processing write failed because the record
// is no longer Pending, so the queue entry is out of date rather than the
// store being unavailable.
func isStaleEntry(err error) bool {
	return errors.Is(err, queue.ErrNotFound) || errors.Is(err, queue.ErrInvalidTransition)
}

// failureMessage is the text stored on a Failed record.
func failureMessage(err error) string {
	if err == nil {
		return "transcode failed without error detail"
	}
	message := strings.TrimSpace(services.Details(err).Message)
	if message == "" {
		message = strings.TrimSpace(err.Error())
	}
	if message == "" {
		message = "transcode failed"
	}
	return message
}
