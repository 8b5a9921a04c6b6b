package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/NavarchProject/perfdash/pkg/chart"
	"github.com/NavarchProject/perfdash/pkg/clock"
	"github.com/NavarchProject/perfdash/pkg/perf"
	"github.com/NavarchProject/perfdash/pkg/table"
)

// Scenario is the annotation panel bound to the selected row.
type Scenario struct {
	Visible bool   `json:"visible"`
	Text    string `json:"text"`
}

// Highlight is the result of a selection: the active points of every chart
// and the scenario panel state.
type Highlight struct {
	Index    int                        `json:"index"`
	Active   map[string][]chart.Element `json:"active"`
	Scenario Scenario                   `json:"scenario"`
}

// Session is one viewer's dashboard. It is safe for concurrent use.
type Session struct {
	ID string

	cfg    Config
	src    Source
	rec    Recorder
	clock  clock.Clock
	logger *slog.Logger
	loads  singleflight.Group

	mu           sync.Mutex
	token        uint64
	loaded       bool
	autoSelected bool
	all          []perf.Row
	raw          []perf.Row
	rows         []perf.DisplayRow
	criteria     perf.Criteria
	charts       []*chart.Chart
	selected     int
	scenario     Scenario
}

func newSession(id string, cfg Config, src Source, rec Recorder, clk clock.Clock, logger *slog.Logger) *Session {
	s := &Session{
		ID:       id,
		cfg:      cfg,
		src:      src,
		rec:      rec,
		clock:    clk,
		logger:   logger.With("session", id),
		selected: -1,
	}
	s.render(nil)
	return s
}

// Loaded reports whether an initial load has completed.
func (s *Session) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// EnsureLoaded performs the initial load unless one has completed. Concurrent
// callers share a single fetch, and a load overtaken by a newer fetch is
// retried so that every caller returns with the session loaded.
func (s *Session) EnsureLoaded(ctx context.Context) error {
	for !s.Loaded() {
		_, err, _ := s.loads.Do("load", func() (any, error) {
			return nil, s.Load(ctx)
		})
		if err != nil && !errors.Is(err, ErrStale) {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return nil
}

// Load fetches the full row set and renders it. In client mode the current
// criteria are re-applied to the new set. A result overtaken by a newer fetch
// is discarded with ErrStale.
func (s *Session) Load(ctx context.Context) error {
	token := s.nextToken()
	rows, err := s.fetch(ctx, nil)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if token != s.token {
		s.discard(token)
		return ErrStale
	}

	s.all = rows
	shown := rows
	if s.cfg.FilterMode == FilterClient && !s.criteria.IsZero() {
		if shown, err = filterRows(rows, s.criteria); err != nil {
			return err
		}
	}
	s.render(shown)
	s.loaded = true

	if s.cfg.AutoSelect && !s.autoSelected && len(s.rows) > 0 {
		s.autoSelected = true
		if _, err := s.selectLocked("", 0); err != nil {
			return err
		}
	}
	return nil
}

// ApplyFilter replaces the shown rows with those matching c. Server mode
// re-fetches from the source; client mode filters the rows of the last Load.
func (s *Session) ApplyFilter(ctx context.Context, c perf.Criteria) error {
	if s.cfg.FilterMode == FilterClient {
		s.mu.Lock()
		defer s.mu.Unlock()
		shown, err := filterRows(s.all, c)
		if err != nil {
			return err
		}
		s.criteria = c
		s.render(shown)
		return nil
	}

	token := s.nextToken()
	var criteria *perf.Criteria
	if !c.IsZero() {
		criteria = &c
	}
	rows, err := s.fetch(ctx, criteria)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if token != s.token {
		s.discard(token)
		return ErrStale
	}
	s.criteria = c
	s.render(rows)
	return nil
}

// Select highlights index on every chart other than source and updates the
// scenario panel from the row at index. An empty source highlights all charts.
func (s *Session) Select(source string, index int) (Highlight, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectLocked(source, index)
}

func (s *Session) selectLocked(source string, index int) (Highlight, error) {
	if index < 0 || index >= len(s.rows) {
		return Highlight{}, fmt.Errorf("select %d of %d rows: %w", index, len(s.rows), ErrIndexOutOfRange)
	}
	if source != "" && s.chartLocked(source) == nil {
		return Highlight{}, fmt.Errorf("unknown chart %q", source)
	}

	for _, c := range s.charts {
		if c.ID == source {
			continue
		}
		c.SetActive(index)
		c.Update()
	}

	s.selected = index
	text := s.rows[index].TestScenario()
	if strings.TrimSpace(text) != "" {
		s.scenario = Scenario{Visible: true, Text: text}
	} else {
		s.scenario = Scenario{}
	}
	return s.highlightLocked(), nil
}

// Highlight returns the current selection state.
func (s *Session) Highlight() Highlight {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.highlightLocked()
}

func (s *Session) highlightLocked() Highlight {
	h := Highlight{
		Index:    s.selected,
		Active:   make(map[string][]chart.Element, len(s.charts)),
		Scenario: s.scenario,
	}
	for _, c := range s.charts {
		h.Active[c.ID] = c.Active()
	}
	return h
}

// Charts returns snapshots of the session's charts in configured order.
func (s *Session) Charts() []*chart.Chart {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*chart.Chart, len(s.charts))
	for i, c := range s.charts {
		out[i] = c.Clone()
	}
	return out
}

// Chart returns a snapshot of one chart.
func (s *Session) Chart(id string) (*chart.Chart, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.chartLocked(id)
	if c == nil {
		return nil, false
	}
	return c.Clone(), true
}

func (s *Session) chartLocked(id string) *chart.Chart {
	for _, c := range s.charts {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// Rows returns the shown rows, normalized.
func (s *Session) Rows() []perf.DisplayRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]perf.DisplayRow, len(s.rows))
	copy(out, s.rows)
	return out
}

// Criteria returns the criteria of the last applied filter.
func (s *Session) Criteria() perf.Criteria {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.criteria
}

// Scenario returns the scenario panel state.
func (s *Session) Scenario() Scenario {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scenario
}

// ReleaseTags returns the distinct release tags of the full row set.
func (s *Session) ReleaseTags() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return perf.ReleaseTags(s.all)
}

// Config returns the session configuration.
func (s *Session) Config() Config {
	return s.cfg
}

// Widget returns the widget table configuration for the shown rows.
func (s *Session) Widget() table.WidgetConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return table.Widget(s.raw, s.cfg.PageSize)
}

// Table returns one page of the manually built table for the shown rows.
func (s *Session) Table(opts table.Options) table.View {
	s.mu.Lock()
	defer s.mu.Unlock()
	if opts.Size == 0 {
		opts.Size = s.cfg.PageSize
	}
	return table.Build(s.raw, opts)
}

func (s *Session) nextToken() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token++
	return s.token
}

func (s *Session) fetch(ctx context.Context, c *perf.Criteria) ([]perf.Row, error) {
	start := s.clock.Now()
	rows, err := s.src.ListRuns(ctx, c)
	s.rec.ObserveFetch(s.clock.Since(start), err)
	if err != nil {
		s.logger.Error("fetch failed", slog.String("error", err.Error()))
		return nil, fmt.Errorf("fetch runs: %w", err)
	}
	return rows, nil
}

func (s *Session) discard(token uint64) {
	s.rec.RecordStale()
	s.logger.Debug("discarding stale fetch", "token", token, "current", s.token)
}

// render replaces the shown rows and rebuilds the charts. The selection is
// cleared because indexes refer to the previous rows.
func (s *Session) render(raw []perf.Row) {
	s.raw = raw
	s.rows = perf.Normalize(raw)
	charts, err := chart.BuildAll(s.cfg.Charts, s.rows)
	if err != nil {
		// Chart IDs are validated when the controller is created.
		s.logger.Error("build charts", slog.String("error", err.Error()))
		charts = nil
	}
	s.charts = charts
	s.selected = -1
	s.scenario = Scenario{}
}

func filterRows(rows []perf.Row, c perf.Criteria) ([]perf.Row, error) {
	if c.IsZero() {
		return rows, nil
	}
	m, err := c.Compile()
	if err != nil {
		return nil, err
	}
	out := make([]perf.Row, 0, len(rows))
	for _, r := range rows {
		if m.Match(perf.NormalizeRow(r)) {
			out = append(out, r)
		}
	}
	return out, nil
}
