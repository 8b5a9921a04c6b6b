package perf

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
)

// Criteria are optional filter bounds over runs. Unset criteria never exclude a run.
type Criteria struct {
	// ReleaseTag matches runs whose release tag contains it.
	ReleaseTag string
	// TestScenario matches runs whose scenario text contains it.
	TestScenario string

	MinAvgTPS       *float64
	MaxAvgTPS       *float64
	MinP95LatencyMs *float64
	MaxP95LatencyMs *float64

	// MaxFailedTxnPct is a percentage (0-100); runs store a fraction (0-1).
	MaxFailedTxnPct *float64

	// Expr is a CEL boolean expression over the variable `run`.
	Expr string
}

// paramSpec maps a criterion to its query-string and form names.
type paramSpec struct {
	query string
	form  string
	field func(c *Criteria) **float64
}

var numericParams = []paramSpec{
	{"min_avg_tps", "avg_tps_min", func(c *Criteria) **float64 { return &c.MinAvgTPS }},
	{"max_avg_tps", "avg_tps_max", func(c *Criteria) **float64 { return &c.MaxAvgTPS }},
	{"min_p95_latency_ms", "p95_latency_min", func(c *Criteria) **float64 { return &c.MinP95LatencyMs }},
	{"max_p95_latency_ms", "p95_latency_max", func(c *Criteria) **float64 { return &c.MaxP95LatencyMs }},
	{"max_failed_txn_pct", "failed_txn_pct_max", func(c *Criteria) **float64 { return &c.MaxFailedTxnPct }},
}

// IsZero reports whether no criterion is set.
func (c Criteria) IsZero() bool {
	if c.ReleaseTag != "" || c.TestScenario != "" || c.Expr != "" {
		return false
	}
	for _, p := range numericParams {
		if *p.field(&c) != nil {
			return false
		}
	}
	return true
}

// Query encodes the set criteria as listing-endpoint query parameters.
func (c Criteria) Query() url.Values {
	q := url.Values{}
	if c.ReleaseTag != "" {
		q.Set("release_tag", c.ReleaseTag)
	}
	if c.TestScenario != "" {
		q.Set("test_scenario", c.TestScenario)
	}
	for _, p := range numericParams {
		if v := *p.field(&c); v != nil {
			q.Set(p.query, strconv.FormatFloat(*v, 'f', -1, 64))
		}
	}
	if c.Expr != "" {
		q.Set("expr", c.Expr)
	}
	return q
}

// ParseQuery decodes criteria from listing-endpoint query parameters.
func ParseQuery(q url.Values) (Criteria, error) {
	return parseCriteria(q, func(p paramSpec) string { return p.query })
}

// ParseForm decodes criteria from the search form field names.
func ParseForm(form url.Values) (Criteria, error) {
	return parseCriteria(form, func(p paramSpec) string { return p.form })
}

func parseCriteria(values url.Values, name func(paramSpec) string) (Criteria, error) {
	c := Criteria{
		ReleaseTag:   strings.TrimSpace(values.Get("release_tag")),
		TestScenario: strings.TrimSpace(values.Get("test_scenario")),
		Expr:         strings.TrimSpace(values.Get("expr")),
	}
	for _, p := range numericParams {
		key := name(p)
		text := strings.TrimSpace(values.Get(key))
		if text == "" {
			continue
		}
		f, err := strconv.ParseFloat(text, 64)
		if err != nil || math.IsNaN(f) {
			return Criteria{}, fmt.Errorf("invalid %s: %q", key, text)
		}
		*p.field(&c) = &f
	}
	if c.Expr != "" {
		if _, err := compileExpr(c.Expr); err != nil {
			return Criteria{}, err
		}
	}
	return c, nil
}

// Matcher evaluates compiled criteria against runs.
type Matcher struct {
	c    Criteria
	expr *exprProgram
}

// Compile prepares the criteria for matching. It fails only on an invalid Expr.
func (c Criteria) Compile() (*Matcher, error) {
	m := &Matcher{c: c}
	if c.Expr != "" {
		prg, err := compileExpr(c.Expr)
		if err != nil {
			return nil, err
		}
		m.expr = prg
	}
	return m, nil
}

// Match reports whether a display row satisfies every set criterion.
// A NaN value fails any bound set on its field.
func (m *Matcher) Match(d DisplayRow) bool {
	c := m.c
	if c.ReleaseTag != "" && !strings.Contains(d.ReleaseTag(), c.ReleaseTag) {
		return false
	}
	if c.TestScenario != "" && !strings.Contains(d.TestScenario(), c.TestScenario) {
		return false
	}
	if !atLeast(d.AvgTPS, c.MinAvgTPS) || !atMost(d.AvgTPS, c.MaxAvgTPS) {
		return false
	}
	if !atLeast(d.P95LatencyMs, c.MinP95LatencyMs) || !atMost(d.P95LatencyMs, c.MaxP95LatencyMs) {
		return false
	}
	if c.MaxFailedTxnPct != nil {
		limit := *c.MaxFailedTxnPct / 100
		if !atMost(d.FailedTxnPct, &limit) {
			return false
		}
	}
	if m.expr != nil && !m.expr.match(d) {
		return false
	}
	return true
}

// MatchRecord reports whether a stored record satisfies the criteria.
func (m *Matcher) MatchRecord(r *Record) bool {
	return m.Match(NormalizeRow(r.Row()))
}

// Filter returns the rows that satisfy c, preserving order. With no criteria
// set it returns rows unchanged.
func Filter(rows []DisplayRow, c Criteria) ([]DisplayRow, error) {
	if c.IsZero() {
		return rows, nil
	}
	m, err := c.Compile()
	if err != nil {
		return nil, err
	}
	out := make([]DisplayRow, 0, len(rows))
	for _, r := range rows {
		if m.Match(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

func atLeast(v float64, bound *float64) bool {
	if bound == nil {
		return true
	}
	return !math.IsNaN(v) && v >= *bound
}

func atMost(v float64, bound *float64) bool {
	if bound == nil {
		return true
	}
	return !math.IsNaN(v) && v <= *bound
}
