// Package dashboard holds per-viewer dashboard state: the charts, the table,
// the current rows and the highlighted selection.
package dashboard

import (
	"context"
	"errors"
	"time"

	"github.com/NavarchProject/perfdash/pkg/chart"
	"github.com/NavarchProject/perfdash/pkg/perf"
	"github.com/NavarchProject/perfdash/pkg/store"
	"github.com/NavarchProject/perfdash/pkg/table"
)

var (
	// ErrStale is returned when a fetch finished after a newer one was issued.
	// Its result has been discarded.
	ErrStale = errors.New("stale result discarded")

	// ErrIndexOutOfRange is returned when selecting a point that does not exist.
	ErrIndexOutOfRange = errors.New("index out of range")
)

// FilterMode selects where filter criteria are evaluated.
type FilterMode string

const (
	// FilterServer forwards criteria to the source and re-fetches.
	FilterServer FilterMode = "server"
	// FilterClient filters the retained full row set in memory.
	FilterClient FilterMode = "client"
)

// TableStrategy selects how the table is rendered.
type TableStrategy string

const (
	TableWidget TableStrategy = "widget"
	TableManual TableStrategy = "manual"
)

// Config describes which charts are shown and how the table and filters behave.
type Config struct {
	Charts     []string
	Table      TableStrategy
	FilterMode FilterMode
	// AutoSelect highlights the first row once after the initial load.
	AutoSelect bool
	PageSize   int
}

// DefaultConfig shows every chart with the widget table and server filtering.
func DefaultConfig() Config {
	return Config{
		Charts:     chart.IDs,
		Table:      TableWidget,
		FilterMode: FilterServer,
		AutoSelect: true,
		PageSize:   table.DefaultPageSize,
	}
}

// Source provides rows. A nil criteria lists every run.
type Source interface {
	ListRuns(ctx context.Context, c *perf.Criteria) ([]perf.Row, error)
}

// Recorder observes fetches. Implemented by the metrics package.
type Recorder interface {
	ObserveFetch(d time.Duration, err error)
	RecordStale()
}

type nopRecorder struct{}

func (nopRecorder) ObserveFetch(time.Duration, error) {}
func (nopRecorder) RecordStale()                      {}

// StoreSource reads rows directly from a store.
func StoreSource(db store.DB) Source {
	return storeSource{db: db}
}

type storeSource struct {
	db store.DB
}

func (s storeSource) ListRuns(ctx context.Context, c *perf.Criteria) ([]perf.Row, error) {
	var criteria perf.Criteria
	if c != nil {
		criteria = *c
	}
	records, err := s.db.ListRuns(ctx, criteria)
	if err != nil {
		return nil, err
	}
	rows := make([]perf.Row, len(records))
	for i, r := range records {
		rows[i] = r.Row()
	}
	return rows, nil
}
