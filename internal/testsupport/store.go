package testsupport

import (
	"context"
	"testing"

	"hlsforge/internal/config"
	"hlsforge/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewPending creates a Pending record for tests using the provided store.
func NewPending(t testing.TB, store queue.StatusStore, name, sourcePath string) *queue.Record {
	t.Helper()

	record, err := store.Create(context.Background(), name, sourcePath)
	if err != nil {
		t.Fatalf("store.Create: %v", err)
	}
	return record
}
