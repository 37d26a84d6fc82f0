package daemon

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"hlsforge/internal/config"
	"hlsforge/internal/queue"
	"hlsforge/internal/stage"
	"hlsforge/internal/testsupport"
	"hlsforge/internal/transcode"
	"hlsforge/internal/workflow"
)

// stubExecutor publishes a one-line master playlist, or blocks until release
// is closed when hold is set.
type stubExecutor struct {
	mu   sync.Mutex
	jobs []string
	hold chan struct{}
}

func (s *stubExecutor) Transcode(ctx context.Context, job transcode.Job) (transcode.Result, error) {
	s.mu.Lock()
	s.jobs = append(s.jobs, job.Name)
	hold := s.hold
	s.mu.Unlock()
	if hold != nil {
		select {
		case <-hold:
		case <-ctx.Done():
			return transcode.Result{}, ctx.Err()
		}
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

func (s *stubExecutor) HealthCheck(context.Context) stage.Health {
	return stage.Healthy("transcode")
}

type testEnv struct {
	cfg    *config.Config
	store  queue.StatusStore
	exec   *stubExecutor
	daemon *Daemon
}

func newTestEnv(t *testing.T, opts ...testsupport.ConfigOption) *testEnv {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	cfg.Workflow.HeartbeatInterval = 0
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	store := testsupport.MustOpenStore(t, cfg)
	exec := &stubExecutor{}
	mgr := workflow.NewManager(cfg, store, exec, nil)
	d, err := New(cfg, store, nil, mgr)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(d.Stop)
	return &testEnv{cfg: cfg, store: store, exec: exec, daemon: d}
}

func waitForStatus(t *testing.T, d *Daemon, name string, want queue.Status) *queue.Record {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		record, err := d.JobStatus(context.Background(), name)
		if err == nil && record.Status == want {
			return record
		}
		if time.Now().After(deadline) {
			t.Fatalf("job %s did not reach %s (last: %v, err: %v)", name, want, record, err)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// failedJob records name as a Failed job whose source is a real file.
func failedJob(t *testing.T, env *testEnv, name, source string) {
	t.Helper()
	ctx := context.Background()
	testsupport.WriteFile(t, source, 16)
	testsupport.NewPending(t, env.store, name, source)
	if err := env.store.SetStatus(ctx, name, queue.StatusProcessing, ""); err != nil {
		t.Fatalf("SetStatus processing: %v", err)
	}
	if err := env.store.SetStatus(ctx, name, queue.StatusFailed, "boom"); err != nil {
		t.Fatalf("SetStatus failed: %v", err)
	}
}
