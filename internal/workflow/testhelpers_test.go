package workflow_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"hlsforge/internal/config"
	"hlsforge/internal/queue"
	"hlsforge/internal/services"
	"hlsforge/internal/stage"
	"hlsforge/internal/testsupport"
	"hlsforge/internal/transcode"
	"hlsforge/internal/workflow"
)

type fakeExecutor struct {
	mu            sync.Mutex
	calls         []string
	failures      map[string]string
	running       int
	maxConcurrent int

	// gate, when set, holds every transcode until a value is received or
	// the context ends.
	gate    chan struct{}
	started chan string
}

func newFakeExecutor() *fakeExecutor {
	return &fakeExecutor{
		failures: make(map[string]string),
		started:  make(chan string, 16),
	}
}

func (f *fakeExecutor) failWith(name, message string) {
	f.mu.Lock()
	f.failures[name] = message
	f.mu.Unlock()
}

func (f *fakeExecutor) clearFailure(name string) {
	f.mu.Lock()
	delete(f.failures, name)
	f.mu.Unlock()
}

func (f *fakeExecutor) Transcode(ctx context.Context, job transcode.Job) (transcode.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, job.Name)
	f.running++
	if f.running > f.maxConcurrent {
		f.maxConcurrent = f.running
	}
	failure, fail := f.failures[job.Name]
	gate := f.gate
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.running--
		f.mu.Unlock()
	}()

	f.started <- job.Name
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return transcode.Result{}, ctx.Err()
		}
	}
	if fail {
		return transcode.Result{}, services.Wrap(services.ErrExternalTool, "transcode", "ffmpeg", failure, nil)
	}
	if err := os.MkdirAll(job.OutputDir, 0o755); err != nil {
		return transcode.Result{}, err
	}
	master := filepath.Join(job.OutputDir, transcode.MasterPlaylist)
	if err := os.WriteFile(master, []byte("#EXTM3U\n"), 0o644); err != nil {
		return transcode.Result{}, err
	}
	return transcode.Result{OutputDir: job.OutputDir, MasterPlaylist: master}, nil
}

func (f *fakeExecutor) HealthCheck(context.Context) stage.Health {
	return stage.Healthy("transcode")
}

func (f *fakeExecutor) callOrder() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *fakeExecutor) peakConcurrency() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxConcurrent
}

type stubNotifier struct {
	mu        sync.Mutex
	succeeded []string
	failed    []string
	drained   int
}

func (s *stubNotifier) NotifyJobSucceeded(_ context.Context, name string, _ time.Duration) error {
	s.mu.Lock()
	s.succeeded = append(s.succeeded, name)
	s.mu.Unlock()
	return nil
}

func (s *stubNotifier) NotifyJobFailed(_ context.Context, name, _ string) error {
	s.mu.Lock()
	s.failed = append(s.failed, name)
	s.mu.Unlock()
	return nil
}

func (s *stubNotifier) NotifyQueueDrained(context.Context, int, int, time.Duration) error {
	s.mu.Lock()
	s.drained++
	s.mu.Unlock()
	return nil
}

func (s *stubNotifier) TestNotification(context.Context) error { return nil }

func (s *stubNotifier) counts() (int, int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.succeeded), len(s.failed), s.drained
}

type recordingObserver struct {
	mu       sync.Mutex
	started  []string
	finished map[string]queue.Status
}

func (r *recordingObserver) QueueDepthChanged(int) {}

func (r *recordingObserver) JobStarted(name string) {
	r.mu.Lock()
	r.started = append(r.started, name)
	r.mu.Unlock()
}

func (r *recordingObserver) JobFinished(name string, status queue.Status, _ time.Duration) {
	r.mu.Lock()
	if r.finished == nil {
		r.finished = make(map[string]queue.Status)
	}
	r.finished[name] = status
	r.mu.Unlock()
}

func (r *recordingObserver) outcome(name string) queue.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.finished[name]
}

// failingStatusStore rejects status writes for one job name.
type failingStatusStore struct {
	queue.StatusStore
	failFor string
}

func (s *failingStatusStore) SetStatus(ctx context.Context, name string, status queue.Status, message string) error {
	if name == s.failFor {
		return errors.New("database is locked")
	}
	return s.StatusStore.SetStatus(ctx, name, status, message)
}

// sweepingStore calls sweep right after every successful Create, landing a
// requeue-orphans pass in the middle of an admission.
type sweepingStore struct {
	queue.StatusStore
	sweep func()
}

func (s *sweepingStore) Create(ctx context.Context, name, sourcePath string) (*queue.Record, error) {
	record, err := s.StatusStore.Create(ctx, name, sourcePath)
	if err == nil && s.sweep != nil {
		s.sweep()
	}
	return record, err
}

// transitionLog records committed status writes as "name:status" in commit
// order.
type transitionLog struct {
	queue.StatusStore
	mu      sync.Mutex
	entries []string
}

func (l *transitionLog) SetStatus(ctx context.Context, name string, status queue.Status, message string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.StatusStore.SetStatus(ctx, name, status, message); err != nil {
		return err
	}
	l.entries = append(l.entries, name+":"+string(status))
	return nil
}

func (l *transitionLog) position(name string, status queue.Status) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Index(l.entries, name+":"+string(status))
}

type harness struct {
	cfg      *config.Config
	store    queue.StatusStore
	exec     *fakeExecutor
	notifier *stubNotifier
	manager  *workflow.Manager
}

func newHarness(t *testing.T, wrap func(queue.StatusStore) queue.StatusStore, opts ...workflow.Option) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.HeartbeatInterval = 0
	var store queue.StatusStore = testsupport.MustOpenStore(t, cfg)
	if wrap != nil {
		store = wrap(store)
	}
	exec := newFakeExecutor()
	notifier := &stubNotifier{}
	opts = append([]workflow.Option{workflow.WithNotifier(notifier)}, opts...)
	mgr := workflow.NewManager(cfg, store, exec, nil, opts...)
	t.Cleanup(mgr.Stop)
	return &harness{cfg: cfg, store: store, exec: exec, notifier: notifier, manager: mgr}
}

func (h *harness) start(t *testing.T) {
	t.Helper()
	if err := h.manager.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
}

func (h *harness) upload(t *testing.T, filename string) string {
	t.Helper()
	path := filepath.Join(h.cfg.Paths.UploadDir, filename)
	testsupport.WriteFile(t, path, 256)
	return path
}

func (h *harness) enqueue(t *testing.T, filename string) (string, string) {
	t.Helper()
	path := h.upload(t, filename)
	name, err := h.manager.Enqueue(context.Background(), path)
	if err != nil {
		t.Fatalf("Enqueue(%s): %v", filename, err)
	}
	return name, path
}

func waitForStatus(t *testing.T, store queue.StatusStore, name string, want queue.Status) *queue.Record {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		record, err := store.Find(context.Background(), name)
		if err == nil && record.Status == want {
			return record
		}
		if time.Now().After(deadline) {
			if err != nil {
				t.Fatalf("job %s never reached %s: %v", name, want, err)
			}
			t.Fatalf("job %s never reached %s; last status %s (%s)", name, want, record.Status, record.Message)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func waitForStart(t *testing.T, exec *fakeExecutor, want string) {
	t.Helper()
	select {
	case got := <-exec.started:
		if got != want {
			t.Fatalf("started %s, want %s", got, want)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("transcode of %s never started", want)
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
