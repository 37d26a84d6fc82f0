package workflow

import (
	"context"
	"errors"
	"os"
	"time"

	"hlsforge/internal/jobname"
	"hlsforge/internal/logging"
	"hlsforge/internal/queue"
	"hlsforge/internal/services"
)

// Enqueue derives the job name from sourcePath, records it as Pending, and
// queues it for the worker. It returns as soon as the record exists; an
// error means nothing was queued. Name collisions surface as
// queue.ErrConflict.
func (m *Manager) Enqueue(ctx context.Context, sourcePath string) (string, error) {
	name, err := jobname.Derive(sourcePath)
	if err != nil {
		return "", services.Wrap(services.ErrAdmission, "admission", "derive job name", "upload name cannot be used as a job name", err)
	}
	ctx = services.WithJobName(ctx, name)
	logger := logging.WithContext(ctx, m.logger)

	// Reserving the name keeps RequeueOrphans from queueing the record
	// between Create and the push below.
	reserved := m.reserve(name)
	record, err := m.store.Create(ctx, name, sourcePath)
	if err != nil {
		if reserved {
			m.release(name)
		}
		logger.Warn("job admission rejected",
			logging.Error(err),
			logging.String(logging.FieldEventType, "job_rejected"),
			logging.String(logging.FieldErrorHint, admissionHint(err)),
			logging.String(logging.FieldImpact, "upload was not queued"),
		)
		return "", services.Wrap(services.ErrAdmission, "admission", "create status record", "could not record job", err)
	}

	job := queuedJob{name: record.Name, sourcePath: record.SourcePath, queuedAt: time.Now()}
	var depth int
	if reserved {
		depth = m.pushReserved(job)
	} else {
		depth, _ = m.pushIfAbsent(job)
	}
	logger.Info("job queued",
		logging.String(logging.FieldEventType, "job_queued"),
		logging.String("source_path", sourcePath),
		logging.Int("queue_depth", depth),
	)
	return record.Name, nil
}

// GetStatus returns the status record for name or queue.ErrNotFound.
func (m *Manager) GetStatus(ctx context.Context, name string) (*queue.Record, error) {
	if err := jobname.Validate(name); err != nil {
		return nil, queue.ErrNotFound
	}
	return m.store.Find(ctx, name)
}

// Retry starts a new attempt for a Failed job from its retained source
// file. Jobs in any other status return queue.ErrInvalidTransition.
func (m *Manager) Retry(ctx context.Context, name string) (*queue.Record, error) {
	record, err := m.store.Find(ctx, name)
	if err != nil {
		return nil, err
	}
	if record.Status != queue.StatusFailed {
		return nil, queue.ErrInvalidTransition
	}
	if _, err := os.Stat(record.SourcePath); err != nil {
		return nil, services.WithHint(
			services.Wrap(services.ErrValidation, "admission", "retry", "source file is no longer available", err),
			"upload the video again",
		)
	}

	fresh, err := m.store.Requeue(ctx, name)
	if err != nil {
		return nil, err
	}
	depth, _ := m.pushIfAbsent(queuedJob{name: fresh.Name, sourcePath: fresh.SourcePath, queuedAt: time.Now()})
	logging.WithContext(services.WithJobName(ctx, name), m.logger).Info("job requeued for retry",
		logging.String(logging.FieldEventType, "job_retry"),
		logging.Int("attempt", fresh.Attempt),
		logging.Int("queue_depth", depth),
	)
	return fresh, nil
}

// RequeueOrphans queues Pending records that are not in the in-memory FIFO,
// which happens after a daemon restart. It returns the number queued.
func (m *Manager) RequeueOrphans(ctx context.Context) (int, error) {
	records, err := m.store.List(ctx, queue.StatusPending)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, record := range records {
		if _, added := m.pushIfAbsent(queuedJob{name: record.Name, sourcePath: record.SourcePath, queuedAt: time.Now()}); !added {
			continue
		}
		count++
	}
	if count > 0 {
		m.logger.Info("orphaned jobs requeued",
			logging.String(logging.FieldEventType, "orphans_requeued"),
			logging.Int("count", count),
		)
	}
	return count, nil
}

// pushIfAbsent appends job unless a job with the same name is already
// queued or running, so a name is never popped twice. It returns the queue
// depth and whether job was added.
func (m *Manager) pushIfAbsent(job queuedJob) (int, bool) {
	m.mu.Lock()
	if _, ok := m.queued[job.name]; ok || (m.active != nil && m.active.name == job.name) {
		depth := len(m.pending)
		m.mu.Unlock()
		return depth, false
	}
	m.pending = append(m.pending, job)
	m.queued[job.name] = struct{}{}
	depth := len(m.pending)
	m.mu.Unlock()

	m.observer.QueueDepthChanged(depth)
	m.signal()
	return depth, true
}

// reserve marks name as queued without appending an entry. It returns false
// when the name is already queued or running.
func (m *Manager) reserve(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.queued[name]; ok || (m.active != nil && m.active.name == name) {
		return false
	}
	m.queued[name] = struct{}{}
	return true
}

func (m *Manager) release(name string) {
	m.mu.Lock()
	delete(m.queued, name)
	m.mu.Unlock()
}

// pushReserved appends a job whose name was taken with reserve.
func (m *Manager) pushReserved(job queuedJob) int {
	m.mu.Lock()
	m.pending = append(m.pending, job)
	depth := len(m.pending)
	m.mu.Unlock()

	m.observer.QueueDepthChanged(depth)
	m.signal()
	return depth
}

// signal wakes the worker without blocking; one buffered slot is enough
// because the worker drains the whole FIFO after every wake-up.
func (m *Manager) signal() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// pop removes the FIFO head and marks it active.
func (m *Manager) pop() (queuedJob, bool) {
	m.mu.Lock()
	if len(m.pending) == 0 {
		m.mu.Unlock()
		return queuedJob{}, false
	}
	job := m.pending[0]
	m.pending[0] = queuedJob{}
	m.pending = m.pending[1:]
	delete(m.queued, job.name)
	m.active = &activeJob{name: job.name, started: time.Now()}
	depth := len(m.pending)
	m.mu.Unlock()

	m.observer.QueueDepthChanged(depth)
	return job, true
}

func (m *Manager) clearActive() {
	m.mu.Lock()
	m.active = nil
	m.mu.Unlock()
}

func admissionHint(err error) string {
	switch {
	case errors.Is(err, queue.ErrConflict):
		return "a job with this name already exists; rename the file or remove the old record"
	default:
		return "check status store connectivity"
	}
}
