package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"hlsforge/internal/logging"
	"hlsforge/internal/queue"
)

// HeartbeatMonitor refreshes last_heartbeat on the active job so operators
// can tell a long encode from a wedged one.
type HeartbeatMonitor struct {
	store    queue.StatusStore
	logger   *slog.Logger
	interval time.Duration
}

// NewHeartbeatMonitor creates a new monitor. A non-positive interval
// disables heartbeats.
func NewHeartbeatMonitor(store queue.StatusStore, logger *slog.Logger, interval time.Duration) *HeartbeatMonitor {
	return &HeartbeatMonitor{
		store:    store,
		logger:   logger,
		interval: interval,
	}
}

// StartLoop runs a heartbeat updater for a specific job until context cancellation.
func (h *HeartbeatMonitor) StartLoop(ctx context.Context, wg *sync.WaitGroup, name string) {
	defer wg.Done()
	if h.interval <= 0 {
		return
	}
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	logger := logging.WithContext(ctx, h.logger.With(logging.String(logging.FieldComponent, "workflow-heartbeat")))

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := h.store.Heartbeat(ctx, name); err != nil {
				if errors.Is(err, context.Canceled) {
					logger.Debug("heartbeat update cancelled")
				} else {
					logger.Warn("heartbeat update failed",
						logging.Error(err),
						logging.String(logging.FieldEventType, "heartbeat_failed"),
						logging.String(logging.FieldErrorHint, "check status store connectivity"),
						logging.String(logging.FieldImpact, "job may look stalled in status output"),
					)
				}
			}
		}
	}
}
