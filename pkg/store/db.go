// Package store persists performance-run records.
package store

import (
	"context"
	"errors"

	"github.com/NavarchProject/perfdash/pkg/perf"
)

// ErrNotFound is returned when no run has the requested row number.
var ErrNotFound = errors.New("perf run not found")

// DB is the interface for perf-run storage. Listing order is insertion order.
type DB interface {
	// ListRuns returns the runs matching the criteria.
	ListRuns(ctx context.Context, c perf.Criteria) ([]*perf.Record, error)
	// GetRun returns the first run stored with the given row number.
	GetRun(ctx context.Context, rowNo int64) (*perf.Record, error)
	InsertRun(ctx context.Context, r *perf.Record) error

	Close() error
}
