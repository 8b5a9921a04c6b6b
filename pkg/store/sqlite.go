package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/NavarchProject/perfdash/pkg/perf"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS perf_runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	release_tag TEXT NOT NULL,
	row_no INTEGER,
	test_scenario TEXT,
	p95_latency_ms REAL,
	avg_tps REAL,
	peak_tps REAL,
	failed_txn_pct REAL,
	failed_txn_count INTEGER,
	total_txn_count REAL,
	baseline_avg_tps REAL,
	test_result_text TEXT,
	remark_text TEXT
);
CREATE INDEX IF NOT EXISTS idx_perf_runs_row_no ON perf_runs(row_no);
`

// SQLiteDB stores runs in a SQLite database.
type SQLiteDB struct {
	db *sql.DB
}

// NewSQLiteDB opens the database at dsn and creates the schema if needed.
func NewSQLiteDB(ctx context.Context, dsn string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SQLiteDB{db: db}, nil
}

// InsertRun stores a run.
func (s *SQLiteDB) InsertRun(ctx context.Context, r *perf.Record) error {
	if _, err := s.db.ExecContext(ctx, insertQuery(sqliteDialect), insertArgs(r)...); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by row number.
func (s *SQLiteDB) GetRun(ctx context.Context, rowNo int64) (*perf.Record, error) {
	row := s.db.QueryRowContext(ctx, getQuery(sqliteDialect), rowNo)
	r, err := scanRecord(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("row %d: %w", rowNo, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get run %d: %w", rowNo, err)
	}
	return r, nil
}

// ListRuns returns the runs matching c in insertion order.
func (s *SQLiteDB) ListRuns(ctx context.Context, c perf.Criteria) ([]*perf.Record, error) {
	query, args := listQuery(sqliteDialect, c)
	rows, err := s.db.QueryContext(ctx, query, args...)
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

// Close closes the database.
func (s *SQLiteDB) Close() error {
	return s.db.Close()
}
