package queue

import (
	"context"
	"fmt"

	"hlsforge/internal/config"
)

// StatusStore is the persistence contract the workflow manager relies on.
// Store and PostgresStore both satisfy it.
type StatusStore interface {
	Create(ctx context.Context, name, sourcePath string) (*Record, error)
	Find(ctx context.Context, name string) (*Record, error)
	SetStatus(ctx context.Context, name string, status Status, message string) error
	Heartbeat(ctx context.Context, name string) error
	Requeue(ctx context.Context, name string) (*Record, error)
	FailInterrupted(ctx context.Context, message string) (int64, error)
	List(ctx context.Context, statuses ...Status) ([]*Record, error)
	Remove(ctx context.Context, name string) error
	ClearTerminal(ctx context.Context, statuses ...Status) ([]*Record, error)
	Stats(ctx context.Context) (map[Status]int, error)
	Health(ctx context.Context) (HealthSummary, error)
	CheckHealth(ctx context.Context) (DatabaseHealth, error)
	Close() error
}

var (
	_ StatusStore = (*Store)(nil)
	_ StatusStore = (*PostgresStore)(nil)
)

// OpenFromConfig opens the backend selected by [store].driver.
func OpenFromConfig(ctx context.Context, cfg *config.Config) (StatusStore, error) {
	switch cfg.Store.Driver {
	case "", config.DriverSQLite:
		return Open(cfg)
	case config.DriverPostgres:
		return OpenPostgres(ctx, cfg.Store.DSN)
	default:
		return nil, fmt.Errorf("store driver %q is not supported", cfg.Store.Driver)
	}
}
