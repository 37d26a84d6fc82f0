package queue_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"hlsforge/internal/queue"
	"hlsforge/internal/testsupport"
)

func TestOpenCreatesSchema(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	health, err := store.CheckHealth(context.Background())
	if err != nil {
		t.Fatalf("CheckHealth failed: %v", err)
	}
	if !health.DatabaseExists || !health.DatabaseReadable || !health.TableExists {
		t.Fatalf("unexpected health: %+v", health)
	}
	if len(health.MissingColumns) != 0 {
		t.Fatalf("unexpected missing columns: %v", health.MissingColumns)
	}
	if !health.IntegrityCheck {
		t.Fatal("expected integrity check to pass")
	}
	if health.SchemaVersion != "1" {
		t.Fatalf("unexpected schema version %q", health.SchemaVersion)
	}
}

func TestReopenKeepsRecords(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	testsupport.NewPending(t, store, "clip1", "/uploads/clip1.mp4")
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened := testsupport.MustOpenStore(t, cfg)
	record, err := reopened.Find(context.Background(), "clip1")
	if err != nil {
		t.Fatalf("Find after reopen: %v", err)
	}
	if record.Status != queue.StatusPending {
		t.Fatalf("expected pending, got %s", record.Status)
	}
}

func TestCreateAndFind(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	created, err := store.Create(ctx, "clip1", "/uploads/clip1.mp4")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.Status != queue.StatusPending || created.Attempt != 1 {
		t.Fatalf("unexpected created record: %+v", created)
	}

	found, err := store.Find(ctx, "clip1")
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if found.SourcePath != "/uploads/clip1.mp4" || found.Message != "" {
		t.Fatalf("unexpected record: %+v", found)
	}
	if found.CreatedAt.IsZero() || found.UpdatedAt.IsZero() {
		t.Fatalf("expected timestamps, got %+v", found)
	}
}

func TestFindUnknownReturnsNotFound(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	_, err := store.Find(context.Background(), "unknown")
	if !errors.Is(err, queue.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateDuplicateReturnsConflict(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.NewPending(t, store, "clip1", "/uploads/a.mp4")
	if _, err := store.Create(ctx, "clip1", "/uploads/b.mp4"); !errors.Is(err, queue.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	record, err := store.Find(ctx, "clip1")
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if record.SourcePath != "/uploads/a.mp4" {
		t.Fatalf("original record overwritten: %+v", record)
	}
}

func TestConcurrentCreateAdmitsExactlyOne(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		admitted  int
		conflicts int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := store.Create(ctx, "same", fmt.Sprintf("/uploads/%d.mp4", i))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				admitted++
			case errors.Is(err, queue.ErrConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()
	if admitted != 1 || conflicts != workers-1 {
		t.Fatalf("expected 1 admitted and %d conflicts, got %d/%d", workers-1, admitted, conflicts)
	}
}

func TestSetStatusFollowsLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	created := testsupport.NewPending(t, store, "clip1", "/uploads/clip1.mp4")
	time.Sleep(2 * time.Millisecond)

	if err := store.SetStatus(ctx, "clip1", queue.StatusSuccess, ""); !errors.Is(err, queue.ErrInvalidTransition) {
		t.Fatalf("expected pending->success to be rejected, got %v", err)
	}
	if err := store.SetStatus(ctx, "clip1", queue.StatusProcessing, "ignored"); err != nil {
		t.Fatalf("pending->processing: %v", err)
	}
	processing, err := store.Find(ctx, "clip1")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if processing.Status != queue.StatusProcessing || processing.Message != "" {
		t.Fatalf("unexpected processing record: %+v", processing)
	}
	if !processing.UpdatedAt.After(created.UpdatedAt) {
		t.Fatalf("expected updated_at refresh: created %v updated %v", created.UpdatedAt, processing.UpdatedAt)
	}
	if processing.LastHeartbeat == nil {
		t.Fatal("expected heartbeat stamped on processing")
	}

	if err := store.SetStatus(ctx, "clip1", queue.StatusFailed, "unsupported codec"); err != nil {
		t.Fatalf("processing->failed: %v", err)
	}
	failed, err := store.Find(ctx, "clip1")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if failed.Status != queue.StatusFailed || failed.Message != "unsupported codec" {
		t.Fatalf("unexpected failed record: %+v", failed)
	}

	for _, next := range queue.AllStatuses() {
		if err := store.SetStatus(ctx, "clip1", next, "again"); !errors.Is(err, queue.ErrInvalidTransition) {
			t.Fatalf("terminal record accepted %s: %v", next, err)
		}
	}
	final, err := store.Find(ctx, "clip1")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if final.Status != queue.StatusFailed || final.Message != "unsupported codec" {
		t.Fatalf("terminal record changed: %+v", final)
	}
}

func TestSetStatusUnknownReturnsNotFound(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	err := store.SetStatus(context.Background(), "ghost", queue.StatusProcessing, "")
	if !errors.Is(err, queue.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestHeartbeatRequiresProcessing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.NewPending(t, store, "clip1", "/uploads/clip1.mp4")
	if err := store.Heartbeat(ctx, "clip1"); !errors.Is(err, queue.ErrInvalidTransition) {
		t.Fatalf("expected heartbeat on pending to fail, got %v", err)
	}
	if err := store.SetStatus(ctx, "clip1", queue.StatusProcessing, ""); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if err := store.Heartbeat(ctx, "clip1"); err != nil {
		t.Fatalf("Heartbeat: %v", err)
	}
}

func TestRequeueStartsNewAttempt(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.NewPending(t, store, "clip2", "/uploads/clip2.mp4")
	if _, err := store.Requeue(ctx, "clip2"); !errors.Is(err, queue.ErrInvalidTransition) {
		t.Fatalf("expected requeue of pending to fail, got %v", err)
	}
	if err := store.SetStatus(ctx, "clip2", queue.StatusProcessing, ""); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if err := store.SetStatus(ctx, "clip2", queue.StatusFailed, "boom"); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	record, err := store.Requeue(ctx, "clip2")
	if err != nil {
		t.Fatalf("Requeue: %v", err)
	}
	if record.Status != queue.StatusPending || record.Attempt != 2 || record.Message != "" {
		t.Fatalf("unexpected requeued record: %+v", record)
	}
	if _, err := store.Requeue(ctx, "missing"); !errors.Is(err, queue.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFailInterruptedOnlyTouchesProcessing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.NewPending(t, store, "waiting", "/uploads/waiting.mp4")
	testsupport.NewPending(t, store, "running", "/uploads/running.mp4")
	if err := store.SetStatus(ctx, "running", queue.StatusProcessing, ""); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	changed, err := store.FailInterrupted(ctx, queue.InterruptedMessage)
	if err != nil {
		t.Fatalf("FailInterrupted: %v", err)
	}
	if changed != 1 {
		t.Fatalf("expected 1 record changed, got %d", changed)
	}
	running, _ := store.Find(ctx, "running")
	if running.Status != queue.StatusFailed || running.Message != queue.InterruptedMessage {
		t.Fatalf("unexpected running record: %+v", running)
	}
	waiting, _ := store.Find(ctx, "waiting")
	if waiting.Status != queue.StatusPending {
		t.Fatalf("pending record changed: %+v", waiting)
	}
}

func TestListStatsAndClear(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	for _, name := range []string{"a", "b", "c", "d"} {
		testsupport.NewPending(t, store, name, "/uploads/"+name+".mp4")
		time.Sleep(time.Millisecond)
	}
	for _, name := range []string{"b", "c", "d"} {
		if err := store.SetStatus(ctx, name, queue.StatusProcessing, ""); err != nil {
			t.Fatalf("SetStatus: %v", err)
		}
	}
	if err := store.SetStatus(ctx, "b", queue.StatusSuccess, ""); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if err := store.SetStatus(ctx, "c", queue.StatusFailed, "bad input"); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 4 || all[0].Name != "a" || all[3].Name != "d" {
		t.Fatalf("expected creation order, got %v", all)
	}
	terminal, err := store.List(ctx, queue.StatusSuccess, queue.StatusFailed)
	if err != nil {
		t.Fatalf("List terminal: %v", err)
	}
	if len(terminal) != 2 {
		t.Fatalf("expected 2 terminal records, got %d", len(terminal))
	}

	health, err := store.Health(ctx)
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	want := queue.HealthSummary{Total: 4, Pending: 1, Processing: 1, Success: 1, Failed: 1}
	if health != want {
		t.Fatalf("unexpected health %+v, want %+v", health, want)
	}

	if err := store.Remove(ctx, "d"); !errors.Is(err, queue.ErrInvalidTransition) {
		t.Fatalf("expected processing record removal to fail, got %v", err)
	}
	if _, err := store.ClearTerminal(ctx, queue.StatusPending); !errors.Is(err, queue.ErrInvalidTransition) {
		t.Fatalf("expected clearing pending to fail, got %v", err)
	}

	removed, err := store.ClearTerminal(ctx, queue.StatusFailed)
	if err != nil {
		t.Fatalf("ClearTerminal: %v", err)
	}
	if len(removed) != 1 || removed[0].Name != "c" || removed[0].SourcePath != "/uploads/c.mp4" {
		t.Fatalf("unexpected removed records: %v", removed)
	}
	if err := store.Remove(ctx, "b"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := store.Find(ctx, "b"); !errors.Is(err, queue.ErrNotFound) {
		t.Fatalf("expected removed record to be gone, got %v", err)
	}
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to queue.Status
		want     bool
	}{
		{queue.StatusPending, queue.StatusProcessing, true},
		{queue.StatusProcessing, queue.StatusSuccess, true},
		{queue.StatusProcessing, queue.StatusFailed, true},
		{queue.StatusPending, queue.StatusSuccess, false},
		{queue.StatusPending, queue.StatusFailed, false},
		{queue.StatusSuccess, queue.StatusFailed, false},
		{queue.StatusFailed, queue.StatusPending, false},
		{queue.StatusProcessing, queue.StatusPending, false},
	}
	for _, tc := range cases {
		if got := queue.CanTransition(tc.from, tc.to); got != tc.want {
			t.Fatalf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
	if status, ok := queue.ParseStatus(" Failed "); !ok || status != queue.StatusFailed {
		t.Fatalf("ParseStatus failed: %v %v", status, ok)
	}
}
