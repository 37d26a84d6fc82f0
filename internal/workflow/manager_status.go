package workflow

import (
	"context"
	"time"

	"hlsforge/internal/logging"
	"hlsforge/internal/queue"
	"hlsforge/internal/stage"
)

// StatusSummary represents lightweight workflow diagnostics.
type StatusSummary struct {
	Running        bool
	ActiveJob      string
	ActiveSince    time.Time
	QueueDepth     int
	Orphaned       int
	LastError      string
	LastJob        *queue.Record
	QueueStats     map[queue.Status]int
	ExecutorHealth stage.Health
}

// Status returns the latest workflow information.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.Lock()
	summary := StatusSummary{
		Running:    m.running,
		QueueDepth: len(m.pending),
	}
	if m.active != nil {
		summary.ActiveJob = m.active.name
		summary.ActiveSince = m.active.started
	}
	if m.lastErr != nil {
		summary.LastError = m.lastErr.Error()
	}
	if m.lastJob != nil {
		last := *m.lastJob
		summary.LastJob = &last
	}
	m.mu.Unlock()

	stats, err := m.store.Stats(ctx)
	if err != nil {
		m.logger.Warn("failed to read queue stats", logging.Error(err))
	}
	summary.QueueStats = stats

	orphans, err := m.orphans(ctx)
	if err != nil {
		m.logger.Warn("failed to count orphaned jobs", logging.Error(err))
	}
	summary.Orphaned = len(orphans)

	if m.executor != nil {
		summary.ExecutorHealth = m.executor.HealthCheck(ctx)
	}
	return summary
}

// orphans returns Pending records the in-memory FIFO does not know about.
func (m *Manager) orphans(ctx context.Context) ([]*queue.Record, error) {
	records, err := m.store.List(ctx, queue.StatusPending)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*queue.Record, 0, len(records))
	for _, record := range records {
		if _, ok := m.queued[record.Name]; ok {
			continue
		}
		if m.active != nil && m.active.name == record.Name {
			continue
		}
		out = append(out, record)
	}
	return out, nil
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) setLastJob(record *queue.Record) {
	m.mu.Lock()
	if record != nil {
		copy := *record
		m.lastJob = &copy
	} else {
		m.lastJob = nil
	}
	m.mu.Unlock()
}
