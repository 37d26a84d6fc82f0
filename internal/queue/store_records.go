package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Create inserts a Pending record for name. It returns ErrConflict when a
// record with the same name already exists, whatever its state.
func (s *Store) Create(ctx context.Context, name, sourcePath string) (*Record, error) {
	now := time.Now().UTC()
	timestamp := formatTime(now)

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO jobs (name, source_path, status, message, attempt, created_at, updated_at, last_heartbeat)
         VALUES (?, ?, ?, NULL, 1, ?, ?, NULL)
         ON CONFLICT(name) DO NOTHING`,
		name,
		sourcePath,
		StatusPending,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return nil, fmt.Errorf("%w: %s", ErrConflict, name)
	}
	return &Record{
		Name:       name,
		SourcePath: sourcePath,
		Status:     StatusPending,
		Attempt:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// Find fetches the record for name or returns ErrNotFound.
func (s *Store) Find(ctx context.Context, name string) (*Record, error) {
	ctx = ensureContext(ctx)
	var record *Record
	err := retryOnBusy(ctx, func() error {
		row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM jobs WHERE name = ?`, name)
		var scanErr error
		record, scanErr = scanRecord(row)
		return scanErr
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("find job: %w", err)
	}
	return record, nil
}

// SetStatus moves the record for name to status, refreshing updated_at. The
// message is stored only for StatusFailed. Illegal transitions, including any
// change to a terminal record, return ErrInvalidTransition.
func (s *Store) SetStatus(ctx context.Context, name string, status Status, message string) error {
	from, ok := predecessor(status)
	if !ok {
		return fmt.Errorf("%w: cannot enter %s", ErrInvalidTransition, status)
	}
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
         SET status = ?, message = ?, updated_at = ?,
             last_heartbeat = CASE WHEN ? = 'processing' THEN ? ELSE last_heartbeat END
         WHERE name = ? AND status = ?`,
		status,
		nullableString(messageFor(status, message)),
		formatTime(time.Now()),
		status,
		formatTime(time.Now()),
		name,
		from,
	)
	if err != nil {
		return fmt.Errorf("update job status: %w", err)
	}
	return s.explainNoop(ctx, res, name, status)
}

// Heartbeat refreshes last_heartbeat for a Processing record.
func (s *Store) Heartbeat(ctx context.Context, name string) error {
	now := formatTime(time.Now())
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET last_heartbeat = ? WHERE name = ? AND status = ?`,
		now,
		name,
		StatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	return s.explainNoop(ctx, res, name, StatusProcessing)
}

// Requeue starts a new attempt for a Failed record: the record is replaced
// by a fresh Pending one with attempt incremented. Records in any other state
// return ErrInvalidTransition.
func (s *Store) Requeue(ctx context.Context, name string) (*Record, error) {
	now := formatTime(time.Now())
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
         SET status = ?, message = NULL, attempt = attempt + 1,
             created_at = ?, updated_at = ?, last_heartbeat = NULL
         WHERE name = ? AND status = ?`,
		StatusPending,
		now,
		now,
		name,
		StatusFailed,
	)
	if err != nil {
		return nil, fmt.Errorf("requeue job: %w", err)
	}
	if err := s.explainNoop(ctx, res, name, StatusPending); err != nil {
		return nil, err
	}
	return s.Find(ctx, name)
}

// FailInterrupted marks every Processing record Failed with message and
// returns the number of records changed.
func (s *Store) FailInterrupted(ctx context.Context, message string) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET status = ?, message = ?, updated_at = ? WHERE status = ?`,
		StatusFailed,
		nullableString(message),
		formatTime(time.Now()),
		StatusProcessing,
	)
	if err != nil {
		return 0, fmt.Errorf("fail interrupted jobs: %w", err)
	}
	return res.RowsAffected()
}

// List returns records filtered by status set (or all records when no status
// is provided) in creation order.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Record, error) {
	ctx = ensureContext(ctx)
	query := `SELECT ` + recordColumns + ` FROM jobs`
	var args []any
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)`
		args = statusArgs(statuses)
	}
	query += ` ORDER BY created_at, name`

	var records []*Record
	err := retryOnBusy(ctx, func() error {
		records = records[:0]
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			record, err := scanRecord(rows)
			if err != nil {
				return err
			}
			records = append(records, record)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return records, nil
}

// Remove deletes a terminal record. Pending and Processing records cannot be
// removed because the worker still owns them.
func (s *Store) Remove(ctx context.Context, name string) error {
	res, err := s.execWithRetry(
		ctx,
		`DELETE FROM jobs WHERE name = ? AND status IN (?, ?)`,
		name,
		StatusSuccess,
		StatusFailed,
	)
	if err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}
	record, err := s.Find(ctx, name)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: %s is %s", ErrInvalidTransition, name, record.Status)
}

// ClearTerminal removes records in the given terminal statuses (both when
// none are given) and returns what was removed.
func (s *Store) ClearTerminal(ctx context.Context, statuses ...Status) ([]*Record, error) {
	filter, err := terminalFilter(statuses)
	if err != nil {
		return nil, err
	}
	ctx = ensureContext(ctx)

	var removed []*Record
	err = retryOnBusy(ctx, func() error {
		removed = removed[:0]
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		placeholders := makePlaceholders(len(filter))
		rows, err := tx.QueryContext(ctx, `SELECT `+recordColumns+` FROM jobs WHERE status IN (`+placeholders+`) ORDER BY created_at, name`, statusArgs(filter)...)
		if err != nil {
			return err
		}
		for rows.Next() {
			record, err := scanRecord(rows)
			if err != nil {
				rows.Close()
				return err
			}
			removed = append(removed, record)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return err
		}
		rows.Close()

		if _, err := tx.ExecContext(ctx, `DELETE FROM jobs WHERE status IN (`+placeholders+`)`, statusArgs(filter)...); err != nil {
			return err
		}
		return tx.Commit()
	})
	if err != nil {
		return nil, fmt.Errorf("clear jobs: %w", err)
	}
	return removed, nil
}

// explainNoop turns a conditional update that matched nothing into
// ErrNotFound or ErrInvalidTransition.
func (s *Store) explainNoop(ctx context.Context, res sql.Result, name string, target Status) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}
	record, err := s.Find(ctx, name)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: %s is %s, cannot move to %s", ErrInvalidTransition, name, record.Status, target)
}
