package queue

import "errors"

var (
	// ErrNotFound reports that no record exists for a job name.
	ErrNotFound = errors.New("job not found")
	// ErrConflict reports that a record already exists for a job name.
	ErrConflict = errors.New("job already exists")
	// ErrInvalidTransition reports a status change the lifecycle forbids.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrSchemaMismatch indicates the database schema version doesn't match the expected version.
	ErrSchemaMismatch = errors.New("schema version mismatch")
)
