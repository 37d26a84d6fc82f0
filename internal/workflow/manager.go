package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"hlsforge/internal/config"
	"hlsforge/internal/logging"
	"hlsforge/internal/notifications"
	"hlsforge/internal/queue"
	"hlsforge/internal/transcode"
)

// Observer receives worker lifecycle events. metrics.Recorder implements it.
type Observer interface {
	QueueDepthChanged(depth int)
	JobStarted(name string)
	JobFinished(name string, status queue.Status, elapsed time.Duration)
}

type noopObserver struct{}

func (noopObserver) QueueDepthChanged(int)                           {}
func (noopObserver) JobStarted(string)                               {}
func (noopObserver) JobFinished(string, queue.Status, time.Duration) {}

type queuedJob struct {
	name       string
	sourcePath string
	queuedAt   time.Time
}

// Manager coordinates the job FIFO and the single transcoding worker.
type Manager struct {
	cfg                *config.Config
	store              queue.StatusStore
	executor           transcode.Executor
	notifier           notifications.Service
	observer           Observer
	logger             *slog.Logger
	heartbeat          *HeartbeatMonitor
	jobLogs            *JobLogs
	statusWriteTimeout time.Duration

	wake chan struct{}

	mu      sync.Mutex
	pending []queuedJob
	queued  map[string]struct{}
	active  *activeJob
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	lastErr error
	lastJob *queue.Record
	drain   drainState
}

type activeJob struct {
	name    string
	started time.Time
}

// Option configures optional Manager behavior.
type Option func(*Manager)

// WithNotifier replaces the ntfy-backed notifier built from config.
func WithNotifier(notifier notifications.Service) Option {
	return func(m *Manager) {
		if notifier != nil {
			m.notifier = notifier
		}
	}
}

// WithObserver registers an Observer for worker events.
func WithObserver(observer Observer) Option {
	return func(m *Manager) {
		if observer != nil {
			m.observer = observer
		}
	}
}

// WithJobLogs writes each job's log lines to a dedicated file as well as the
// daemon log.
func WithJobLogs(logs *JobLogs) Option {
	return func(m *Manager) {
		m.jobLogs = logs
	}
}

// NewManager constructs a workflow manager. The worker does not run until
// Start is called, but Enqueue already accepts jobs.
func NewManager(cfg *config.Config, store queue.StatusStore, executor transcode.Executor, logger *slog.Logger, opts ...Option) *Manager {
	logger = logging.NewComponentLogger(logger, "workflow")
	writeTimeout := time.Duration(cfg.Workflow.StatusWriteTimeout) * time.Second
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	m := &Manager{
		cfg:                cfg,
		store:              store,
		executor:           executor,
		notifier:           notifications.NewService(cfg),
		observer:           noopObserver{},
		logger:             logger,
		heartbeat:          NewHeartbeatMonitor(store, logger, time.Duration(cfg.Workflow.HeartbeatInterval)*time.Second),
		statusWriteTimeout: writeTimeout,
		wake:               make(chan struct{}, 1),
		queued:             make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}
