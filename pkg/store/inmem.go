package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/NavarchProject/perfdash/pkg/perf"
)

// InMemDB is an in-memory implementation of the DB interface.
// Suitable for testing and development.
type InMemDB struct {
	mu   sync.RWMutex
	runs []*perf.Record
}

// NewInMemDB creates a new in-memory database.
func NewInMemDB() *InMemDB {
	return &InMemDB{}
}

// InsertRun appends a copy of the record.
func (db *InMemDB) InsertRun(ctx context.Context, r *perf.Record) error {
	if r == nil {
		return fmt.Errorf("insert run: nil record")
	}
	rec := *r
	db.mu.Lock()
	defer db.mu.Unlock()
	db.runs = append(db.runs, &rec)
	return nil
}

// GetRun retrieves a run by row number.
func (db *InMemDB) GetRun(ctx context.Context, rowNo int64) (*perf.Record, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	for _, r := range db.runs {
		if r.RowNo != nil && *r.RowNo == rowNo {
			rec := *r
			return &rec, nil
		}
	}
	return nil, fmt.Errorf("row %d: %w", rowNo, ErrNotFound)
}

// ListRuns returns the runs matching c in insertion order.
func (db *InMemDB) ListRuns(ctx context.Context, c perf.Criteria) ([]*perf.Record, error) {
	m, err := c.Compile()
	if err != nil {
		return nil, err
	}

	db.mu.RLock()
	defer db.mu.RUnlock()
	out := make([]*perf.Record, 0, len(db.runs))
	for _, r := range db.runs {
		if c.IsZero() || m.MatchRecord(r) {
			rec := *r
			out = append(out, &rec)
		}
	}
	return out, nil
}

// Close is a no-op for the in-memory database.
func (db *InMemDB) Close() error {
	return nil
}
