package queue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	postgresMaxConns        = 8
	postgresMinConns        = 1
	postgresMaxConnLifetime = 30 * time.Minute
	postgresMaxConnIdleTime = 5 * time.Minute
	postgresPingTimeout     = 3 * time.Second
)

// PostgresStore manages job records in a shared PostgreSQL database.
type PostgresStore struct {
	pool *pgxpool.Pool
	dsn  string
}

// OpenPostgres connects to dsn and creates the schema when missing.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	ctx = ensureContext(ctx)
	pc, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	pc.MaxConns = postgresMaxConns
	pc.MinConns = postgresMinConns
	pc.MaxConnLifetime = postgresMaxConnLifetime
	pc.MaxConnIdleTime = postgresMaxConnIdleTime
	pc.ConnConfig.RuntimeParams["application_name"] = "hlsforge"

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, postgresPingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	store := &PostgresStore{pool: pool, dsn: redactDSN(pc)}
	if err := store.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

func redactDSN(pc *pgxpool.Config) string {
	cc := pc.ConnConfig
	return fmt.Sprintf("postgres://%s@%s:%d/%s", cc.User, cc.Host, cc.Port, cc.Database)
}

func (s *PostgresStore) initSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresSchemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	var version int
	err := s.pool.QueryRow(ctx, `SELECT version FROM hlsforge_schema_version LIMIT 1`).Scan(&version)
	if errors.Is(err, pgx.ErrNoRows) {
		if _, err := s.pool.Exec(ctx, `INSERT INTO hlsforge_schema_version (version) VALUES ($1)`, schemaVersion); err != nil {
			return fmt.Errorf("record schema version: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d", ErrSchemaMismatch, version, schemaVersion)
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	s.pool.Close()
	return nil
}

const pgRecordColumns = "name, source_path, status, message, attempt, created_at, updated_at, last_heartbeat"

func scanPGRecord(row pgx.Row) (*Record, error) {
	var (
		record    Record
		status    string
		message   *string
		heartbeat *time.Time
	)
	if err := row.Scan(&record.Name, &record.SourcePath, &status, &message, &record.Attempt, &record.CreatedAt, &record.UpdatedAt, &heartbeat); err != nil {
		return nil, err
	}
	record.Status = Status(status)
	if message != nil {
		record.Message = *message
	}
	record.CreatedAt = record.CreatedAt.UTC()
	record.UpdatedAt = record.UpdatedAt.UTC()
	if heartbeat != nil {
		hb := heartbeat.UTC()
		record.LastHeartbeat = &hb
	}
	return &record, nil
}

func pgNullable(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func pgStatuses(statuses []Status) []string {
	out := make([]string, len(statuses))
	for i, status := range statuses {
		out[i] = string(status)
	}
	return out
}

// Create inserts a Pending record for name, returning ErrConflict on duplicates.
func (s *PostgresStore) Create(ctx context.Context, name, sourcePath string) (*Record, error) {
	now := time.Now().UTC()
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO hlsforge_jobs (name, source_path, status, attempt, created_at, updated_at)
         VALUES ($1, $2, $3, 1, $4, $4)
         ON CONFLICT (name) DO NOTHING`,
		name, sourcePath, string(StatusPending), now,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, fmt.Errorf("%w: %s", ErrConflict, name)
		}
		return nil, fmt.Errorf("insert job: %w", err)
	}
	if tag.RowsAffected() == 0 {
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
func (s *PostgresStore) Find(ctx context.Context, name string) (*Record, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+pgRecordColumns+` FROM hlsforge_jobs WHERE name = $1`, name)
	record, err := scanPGRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("find job: %w", err)
	}
	return record, nil
}

// SetStatus applies a lifecycle transition; see Store.SetStatus.
func (s *PostgresStore) SetStatus(ctx context.Context, name string, status Status, message string) error {
	from, ok := predecessor(status)
	if !ok {
		return fmt.Errorf("%w: cannot enter %s", ErrInvalidTransition, status)
	}
	now := time.Now().UTC()
	tag, err := s.pool.Exec(ctx,
		`UPDATE hlsforge_jobs
         SET status = $1, message = $2, updated_at = $3,
             last_heartbeat = CASE WHEN $1 = 'processing' THEN $3 ELSE last_heartbeat END
         WHERE name = $4 AND status = $5`,
		string(status), pgNullable(messageFor(status, message)), now, name, string(from),
	)
	if err != nil {
		return fmt.Errorf("update job status: %w", err)
	}
	return s.explainNoop(ctx, tag, name, status)
}

// Heartbeat refreshes last_heartbeat for a Processing record.
func (s *PostgresStore) Heartbeat(ctx context.Context, name string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE hlsforge_jobs SET last_heartbeat = $1 WHERE name = $2 AND status = $3`,
		time.Now().UTC(), name, string(StatusProcessing),
	)
	if err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	return s.explainNoop(ctx, tag, name, StatusProcessing)
}

// Requeue starts a new attempt for a Failed record; see Store.Requeue.
func (s *PostgresStore) Requeue(ctx context.Context, name string) (*Record, error) {
	now := time.Now().UTC()
	row := s.pool.QueryRow(ctx,
		`UPDATE hlsforge_jobs
         SET status = $1, message = NULL, attempt = attempt + 1,
             created_at = $2, updated_at = $2, last_heartbeat = NULL
         WHERE name = $3 AND status = $4
         RETURNING `+pgRecordColumns,
		string(StatusPending), now, name, string(StatusFailed),
	)
	record, err := scanPGRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		existing, findErr := s.Find(ctx, name)
		if findErr != nil {
			return nil, findErr
		}
		return nil, fmt.Errorf("%w: %s is %s, cannot move to %s", ErrInvalidTransition, name, existing.Status, StatusPending)
	}
	if err != nil {
		return nil, fmt.Errorf("requeue job: %w", err)
	}
	return record, nil
}

// FailInterrupted marks every Processing record Failed with message.
func (s *PostgresStore) FailInterrupted(ctx context.Context, message string) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE hlsforge_jobs SET status = $1, message = $2, updated_at = $3 WHERE status = $4`,
		string(StatusFailed), pgNullable(message), time.Now().UTC(), string(StatusProcessing),
	)
	if err != nil {
		return 0, fmt.Errorf("fail interrupted jobs: %w", err)
	}
	return tag.RowsAffected(), nil
}

// List returns records filtered by status set in creation order.
func (s *PostgresStore) List(ctx context.Context, statuses ...Status) ([]*Record, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if len(statuses) == 0 {
		rows, err = s.pool.Query(ctx, `SELECT `+pgRecordColumns+` FROM hlsforge_jobs ORDER BY created_at, name`)
	} else {
		rows, err = s.pool.Query(ctx, `SELECT `+pgRecordColumns+` FROM hlsforge_jobs WHERE status = ANY($1) ORDER BY created_at, name`, pgStatuses(statuses))
	}
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return collectPGRecords(rows)
}

func collectPGRecords(rows pgx.Rows) ([]*Record, error) {
	defer rows.Close()
	var records []*Record
	for rows.Next() {
		record, err := scanPGRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return records, nil
}

// Remove deletes a terminal record.
func (s *PostgresStore) Remove(ctx context.Context, name string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM hlsforge_jobs WHERE name = $1 AND status = ANY($2)`,
		name, pgStatuses([]Status{StatusSuccess, StatusFailed}),
	)
	if err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	record, err := s.Find(ctx, name)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: %s is %s", ErrInvalidTransition, name, record.Status)
}

// ClearTerminal removes records in the given terminal statuses.
func (s *PostgresStore) ClearTerminal(ctx context.Context, statuses ...Status) ([]*Record, error) {
	filter, err := terminalFilter(statuses)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx,
		`DELETE FROM hlsforge_jobs WHERE status = ANY($1) RETURNING `+pgRecordColumns,
		pgStatuses(filter),
	)
	if err != nil {
		return nil, fmt.Errorf("clear jobs: %w", err)
	}
	return collectPGRecords(rows)
}

// Stats returns a count of records grouped by status.
func (s *PostgresStore) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.pool.Query(ctx, `SELECT status, COUNT(1) FROM hlsforge_jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("job stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[Status(status)] = count
	}
	return stats, rows.Err()
}

// Health aggregates record state for diagnostic output.
func (s *PostgresStore) Health(ctx context.Context) (HealthSummary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}
	return summarize(stats), nil
}

// CheckHealth returns diagnostic information about the status database.
func (s *PostgresStore) CheckHealth(ctx context.Context) (DatabaseHealth, error) {
	health := DatabaseHealth{Driver: "postgres", Location: s.dsn}

	connCtx, cancel := context.WithTimeout(ensureContext(ctx), postgresPingTimeout)
	defer cancel()

	if err := s.pool.Ping(connCtx); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("ping status database: %w", err)
	}
	health.DatabaseExists = true
	health.DatabaseReadable = true

	var version int
	if err := s.pool.QueryRow(connCtx, `SELECT version FROM hlsforge_schema_version LIMIT 1`).Scan(&version); err == nil {
		health.SchemaVersion = strconv.Itoa(version)
	}

	rows, err := s.pool.Query(connCtx,
		`SELECT column_name FROM information_schema.columns WHERE table_name = 'hlsforge_jobs' ORDER BY ordinal_position`)
	if err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("table info: %w", err)
	}
	columns, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("scan table info: %w", err)
	}
	health.TableExists = len(columns) > 0
	health.ColumnsPresent = columns
	health.MissingColumns = missingColumns(columns)

	if health.TableExists {
		if err := s.pool.QueryRow(connCtx, `SELECT COUNT(*) FROM hlsforge_jobs`).Scan(&health.TotalItems); err != nil {
			health.Error = err.Error()
			return health, fmt.Errorf("count jobs: %w", err)
		}
	}
	// PostgreSQL has no cheap integrity pragma; a readable table is treated as intact.
	health.IntegrityCheck = health.TableExists && len(health.MissingColumns) == 0
	return health, nil
}

func (s *PostgresStore) explainNoop(ctx context.Context, tag pgconn.CommandTag, name string, target Status) error {
	if tag.RowsAffected() > 0 {
		return nil
	}
	record, err := s.Find(ctx, name)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: %s is %s, cannot move to %s", ErrInvalidTransition, name, record.Status, target)
}
