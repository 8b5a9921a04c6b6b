package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/NavarchProject/perfdash/pkg/perf"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS perf_runs (
	id BIGSERIAL PRIMARY KEY,
	release_tag TEXT NOT NULL,
	row_no BIGINT,
	test_scenario TEXT,
	p95_latency_ms DOUBLE PRECISION,
	avg_tps DOUBLE PRECISION,
	peak_tps DOUBLE PRECISION,
	failed_txn_pct DOUBLE PRECISION,
	failed_txn_count BIGINT,
	total_txn_count DOUBLE PRECISION,
	baseline_avg_tps DOUBLE PRECISION,
	test_result_text TEXT,
	remark_text TEXT
);
CREATE INDEX IF NOT EXISTS idx_perf_runs_row_no ON perf_runs(row_no);
`

// PostgresDB stores runs in PostgreSQL through a pgx connection pool.
type PostgresDB struct {
	pool *pgxpool.Pool
}

// NewPostgresDB connects to dsn and creates the schema if needed.
func NewPostgresDB(ctx context.Context, dsn string) (*PostgresDB, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &PostgresDB{pool: pool}, nil
}

// InsertRun stores a run.
func (p *PostgresDB) InsertRun(ctx context.Context, r *perf.Record) error {
	if _, err := p.pool.Exec(ctx, insertQuery(postgresDialect), insertArgs(r)...); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by row number.
func (p *PostgresDB) GetRun(ctx context.Context, rowNo int64) (*perf.Record, error) {
	row := p.pool.QueryRow(ctx, getQuery(postgresDialect), rowNo)
	r, err := scanRecord(row.Scan)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("row %d: %w", rowNo, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get run %d: %w", rowNo, err)
	}
	return r, nil
}

// ListRuns returns the runs matching c in insertion order.
func (p *PostgresDB) ListRuns(ctx context.Context, c perf.Criteria) ([]*perf.Record, error) {
	query, args := listQuery(postgresDialect, c)
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	out, err := collect(ctx, rows, c)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return out, nil
}

// Close releases the pool.
func (p *PostgresDB) Close() error {
	p.pool.Close()
	return nil
}
