package store

import (
	"context"
	"strconv"
	"strings"

	"github.com/NavarchProject/perfdash/pkg/perf"
)

const columns = `release_tag, row_no, test_scenario, p95_latency_ms, avg_tps, peak_tps,
	failed_txn_pct, failed_txn_count, total_txn_count, baseline_avg_tps,
	test_result_text, remark_text`

// dialect captures the SQL differences between the supported databases.
type dialect struct {
	// bind returns the placeholder for the n-th (1-based) argument.
	bind func(n int) string
	// contains returns a substring predicate over a column.
	contains func(col, arg string) string
}

var sqliteDialect = dialect{
	bind: func(int) string { return "?" },
	contains: func(col, arg string) string {
		return "instr(" + col + ", " + arg + ") > 0"
	},
}

var postgresDialect = dialect{
	bind: func(n int) string { return "$" + strconv.Itoa(n) },
	contains: func(col, arg string) string {
		return "strpos(" + col + ", " + arg + ") > 0"
	},
}

type queryBuilder struct {
	d     dialect
	where []string
	args  []any
}

func (b *queryBuilder) arg(v any) string {
	b.args = append(b.args, v)
	return b.d.bind(len(b.args))
}

func (b *queryBuilder) bound(col, op string, v *float64) {
	if v == nil {
		return
	}
	b.where = append(b.where, col+" "+op+" "+b.arg(*v))
}

// listQuery renders the listing query. The expression criterion is not
// translated; callers apply it to the scanned records.
func listQuery(d dialect, c perf.Criteria) (string, []any) {
	b := &queryBuilder{d: d}
	if c.ReleaseTag != "" {
		b.where = append(b.where, d.contains("release_tag", b.arg(c.ReleaseTag)))
	}
	if c.TestScenario != "" {
		b.where = append(b.where, d.contains("test_scenario", b.arg(c.TestScenario)))
	}
	b.bound("avg_tps", ">=", c.MinAvgTPS)
	b.bound("avg_tps", "<=", c.MaxAvgTPS)
	b.bound("p95_latency_ms", ">=", c.MinP95LatencyMs)
	b.bound("p95_latency_ms", "<=", c.MaxP95LatencyMs)
	if c.MaxFailedTxnPct != nil {
		limit := *c.MaxFailedTxnPct / 100
		b.bound("failed_txn_pct", "<=", &limit)
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(columns)
	sb.WriteString(" FROM perf_runs")
	if len(b.where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(b.where, " AND "))
	}
	sb.WriteString(" ORDER BY id")
	return sb.String(), b.args
}

func getQuery(d dialect) string {
	return "SELECT " + columns + " FROM perf_runs WHERE row_no = " + d.bind(1) + " ORDER BY id LIMIT 1"
}

func insertQuery(d dialect) string {
	binds := make([]string, len(perf.RecordFields))
	for i := range binds {
		binds[i] = d.bind(i + 1)
	}
	return "INSERT INTO perf_runs (" + columns + ") VALUES (" + strings.Join(binds, ", ") + ")"
}

func insertArgs(r *perf.Record) []any {
	return []any{
		r.ReleaseTag, r.RowNo, r.TestScenario, r.P95LatencyMs, r.AvgTPS, r.PeakTPS,
		r.FailedTxnPct, r.FailedTxnCount, r.TotalTxnCount, r.BaselineAvgTPS,
		r.TestResultText, r.RemarkText,
	}
}

// scanRecord reads one row selected with columns. Nullable columns scan into
// pointer fields, leaving them nil for NULL.
func scanRecord(scan func(dest ...any) error) (*perf.Record, error) {
	var r perf.Record
	err := scan(
		&r.ReleaseTag, &r.RowNo, &r.TestScenario, &r.P95LatencyMs, &r.AvgTPS, &r.PeakTPS,
		&r.FailedTxnPct, &r.FailedTxnCount, &r.TotalTxnCount, &r.BaselineAvgTPS,
		&r.TestResultText, &r.RemarkText,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// rowScanner is satisfied by both *sql.Rows and pgx.Rows.
type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// collect scans every row and applies the expression criterion, if any.
func collect(ctx context.Context, rows rowScanner, c perf.Criteria) ([]*perf.Record, error) {
	var m *perf.Matcher
	if c.Expr != "" {
		var err error
		if m, err = (perf.Criteria{Expr: c.Expr}).Compile(); err != nil {
			return nil, err
		}
	}

	out := make([]*perf.Record, 0)
	for rows.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, err
		}
		if m != nil && !m.MatchRecord(r) {
			continue
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
