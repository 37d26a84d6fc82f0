package workflow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"hlsforge/internal/logging"
	"hlsforge/internal/queue"
)

// drainState tracks one busy period, from the first job started on an idle
// queue until the FIFO is empty again.
type drainState struct {
	active    bool
	started   time.Time
	succeeded int
	failed    int
}

const notifyTimeout = 15 * time.Second

func (m *Manager) onJobStarted(name string, started time.Time) {
	m.mu.Lock()
	if !m.drain.active {
		m.drain = drainState{active: true, started: started}
	}
	m.mu.Unlock()
	m.observer.JobStarted(name)
}

func (m *Manager) onJobFinished(ctx context.Context, logger *slog.Logger, name string, status queue.Status, message string, elapsed time.Duration) {
	m.observer.JobFinished(name, status, elapsed)

	m.mu.Lock()
	if status == queue.StatusSuccess {
		m.drain.succeeded++
	} else {
		m.drain.failed++
	}
	m.mu.Unlock()

	detached, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	if record, err := m.store.Find(detached, name); err == nil {
		m.setLastJob(record)
	}

	var err error
	if status == queue.StatusSuccess {
		err = m.notifier.NotifyJobSucceeded(detached, name, elapsed)
	} else {
		err = m.notifier.NotifyJobFailed(detached, name, message)
	}
	if err != nil {
		logNotifyError(logger, "job notification failed", err)
	}
}

func (m *Manager) onQueueIdle(ctx context.Context) {
	m.mu.Lock()
	if !m.drain.active {
		m.mu.Unlock()
		return
	}
	drain := m.drain
	m.drain = drainState{}
	m.mu.Unlock()

	m.logger.Info("queue drained",
		logging.String(logging.FieldEventType, "queue_drained"),
		logging.Int("succeeded", drain.succeeded),
		logging.Int("failed", drain.failed),
		logging.Duration("duration", time.Since(drain.started)),
	)

	notifyCtx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()
	if err := m.notifier.NotifyQueueDrained(notifyCtx, drain.succeeded, drain.failed, time.Since(drain.started)); err != nil {
		logNotifyError(m.logger, "queue drained notification failed", err)
	}
}

func logNotifyError(logger *slog.Logger, msg string, err error) {
	if errors.Is(err, context.Canceled) {
		logger.Debug("daemon shutting down, notification not sent")
		return
	}
	logger.Debug(msg, logging.Error(err))
}
