package perf

import (
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func labels(rows []DisplayRow) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.XLabel
	}
	return out
}

func sampleRows() []DisplayRow {
	return Normalize([]Row{
		rowOf("release_tag", "v1.0", "avg_tps", "100", "p95_latency_ms", 200.0, "failed_txn_pct", 0.05, "test_scenario", "login"),
		rowOf("release_tag", "v1.1", "avg_tps", "50", "p95_latency_ms", 150.0, "failed_txn_pct", 0.01),
		rowOf("release_tag", "v2.0", "avg_tps", nil, "p95_latency_ms", "n/a", "failed_txn_pct", 0.2, "test_scenario", "checkout"),
	})
}

func TestFilter_MinAvgTPS(t *testing.T) {
	rows := Normalize([]Row{
		rowOf("release_tag", "v1", "avg_tps", "100"),
		rowOf("release_tag", "v2", "avg_tps", "50"),
	})

	got, err := Filter(rows, Criteria{MinAvgTPS: ptr(60.0)})
	if err != nil {
		t.Fatalf("Filter() error = %v", err)
	}
	if diff := cmp.Diff([]string{"v1"}, labels(got)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestFilter_FailedTxnPctIsPercent(t *testing.T) {
	rows := Normalize([]Row{rowOf("release_tag", "v1", "failed_txn_pct", 0.05)})

	got, _ := Filter(rows, Criteria{MaxFailedTxnPct: ptr(10.0)})
	if len(got) != 1 {
		t.Errorf("5%% should pass a 10%% max, got %d rows", len(got))
	}
	got, _ = Filter(rows, Criteria{MaxFailedTxnPct: ptr(4.0)})
	if len(got) != 0 {
		t.Errorf("5%% should fail a 4%% max, got %d rows", len(got))
	}
	got, _ = Filter(rows, Criteria{MaxFailedTxnPct: ptr(5.0)})
	if len(got) != 1 {
		t.Errorf("bounds are inclusive, got %d rows", len(got))
	}

	// 0.07*100 rounds above 7, 7/100 does not.
	rows = Normalize([]Row{rowOf("release_tag", "v1", "failed_txn_pct", 0.07)})
	got, _ = Filter(rows, Criteria{MaxFailedTxnPct: ptr(7.0)})
	if len(got) != 1 {
		t.Errorf("7%% should pass a 7%% max, got %d rows", len(got))
	}
}

func TestFilter_NoCriteriaReturnsInput(t *testing.T) {
	rows := sampleRows()
	got, err := Filter(rows, Criteria{})
	if err != nil {
		t.Fatalf("Filter() error = %v", err)
	}
	if diff := cmp.Diff(labels(rows), labels(got)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestFilter_Idempotent(t *testing.T) {
	criteria := []Criteria{
		{ReleaseTag: "v1"},
		{MaxP95LatencyMs: ptr(180.0)},
		{MinAvgTPS: ptr(10.0), MaxFailedTxnPct: ptr(6.0)},
		{Expr: `run.avg_tps >= 50 && run.release_tag.startsWith("v1")`},
	}

	for _, c := range criteria {
		once, err := Filter(sampleRows(), c)
		if err != nil {
			t.Fatalf("Filter(%+v) error = %v", c, err)
		}
		twice, err := Filter(once, c)
		if err != nil {
			t.Fatalf("Filter(%+v) error = %v", c, err)
		}
		if diff := cmp.Diff(labels(once), labels(twice)); diff != "" {
			t.Errorf("Filter(%+v) not idempotent (-once +twice):\n%s", c, diff)
		}
	}
}

func TestFilter_Predicates(t *testing.T) {
	tests := []struct {
		name string
		c    Criteria
		want []string
	}{
		{"release tag substring", Criteria{ReleaseTag: "1."}, []string{"v1.0", "v1.1"}},
		{"scenario substring", Criteria{TestScenario: "check"}, []string{"v2.0"}},
		{"max avg tps excludes NaN", Criteria{MaxAvgTPS: ptr(1000.0)}, []string{"v1.0", "v1.1"}},
		{"max latency inclusive", Criteria{MaxP95LatencyMs: ptr(150.0)}, []string{"v1.1"}},
		{"min latency", Criteria{MinP95LatencyMs: ptr(160.0)}, []string{"v1.0"}},
		{"combined", Criteria{ReleaseTag: "v1", MaxFailedTxnPct: ptr(2.0)}, []string{"v1.1"}},
		{"expr", Criteria{Expr: `run.failed_txn_pct > 0.1`}, []string{"v2.0"}},
		{"expr on missing field", Criteria{Expr: `run.no_such_field == 1`}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Filter(sampleRows(), tt.c)
			if err != nil {
				t.Fatalf("Filter() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, labels(got)); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFilter_InvalidExpr(t *testing.T) {
	if _, err := Filter(sampleRows(), Criteria{Expr: "run.avg_tps >"}); err == nil {
		t.Error("expected compile error")
	}
}

func TestCriteria_QueryRoundTrip(t *testing.T) {
	c := Criteria{
		ReleaseTag:      "v1",
		MinAvgTPS:       ptr(10.0),
		MaxAvgTPS:       ptr(250.5),
		MaxP95LatencyMs: ptr(300.0),
		MaxFailedTxnPct: ptr(2.0),
	}

	q := c.Query()
	want := url.Values{
		"release_tag":        {"v1"},
		"min_avg_tps":        {"10"},
		"max_avg_tps":        {"250.5"},
		"max_p95_latency_ms": {"300"},
		"max_failed_txn_pct": {"2"},
	}
	if diff := cmp.Diff(want, q); diff != "" {
		t.Errorf("Query() mismatch (-want +got):\n%s", diff)
	}

	parsed, err := ParseQuery(q)
	if err != nil {
		t.Fatalf("ParseQuery() error = %v", err)
	}
	if diff := cmp.Diff(c, parsed); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestCriteria_QuerySkipsUnset(t *testing.T) {
	if q := (Criteria{}).Query(); len(q) != 0 {
		t.Errorf("expected empty query, got %v", q)
	}
	zero := 0.0
	if q := (Criteria{MinAvgTPS: &zero}).Query(); q.Get("min_avg_tps") != "0" {
		t.Errorf("explicit zero bound should be sent, got %v", q)
	}
}

func TestParseForm(t *testing.T) {
	form := url.Values{
		"release_tag":        {"  v2 "},
		"avg_tps_min":        {"5"},
		"avg_tps_max":        {""},
		"p95_latency_max":    {"120"},
		"failed_txn_pct_max": {"1.5"},
	}

	c, err := ParseForm(form)
	if err != nil {
		t.Fatalf("ParseForm() error = %v", err)
	}
	if c.ReleaseTag != "v2" {
		t.Errorf("ReleaseTag = %q, want v2", c.ReleaseTag)
	}
	if c.MinAvgTPS == nil || *c.MinAvgTPS != 5 {
		t.Errorf("MinAvgTPS = %v, want 5", c.MinAvgTPS)
	}
	if c.MaxAvgTPS != nil {
		t.Errorf("MaxAvgTPS = %v, want unset", *c.MaxAvgTPS)
	}
	if c.MaxP95LatencyMs == nil || *c.MaxP95LatencyMs != 120 {
		t.Errorf("MaxP95LatencyMs = %v, want 120", c.MaxP95LatencyMs)
	}
	if c.MaxFailedTxnPct == nil || *c.MaxFailedTxnPct != 1.5 {
		t.Errorf("MaxFailedTxnPct = %v, want 1.5", c.MaxFailedTxnPct)
	}
}

func TestParseQuery_Invalid(t *testing.T) {
	tests := []url.Values{
		{"min_avg_tps": {"lots"}},
		{"max_failed_txn_pct": {"NaN"}},
		{"expr": {"run.avg_tps >"}},
	}
	for _, q := range tests {
		if _, err := ParseQuery(q); err == nil {
			t.Errorf("ParseQuery(%v) expected error", q)
		}
	}
}

func TestMatcher_MatchRecord(t *testing.T) {
	tps := 80.0
	pct := 0.03
	rec := &Record{ReleaseTag: "v3.1", AvgTPS: &tps, FailedTxnPct: &pct}

	m, err := Criteria{ReleaseTag: "v3", MinAvgTPS: ptr(75.0), MaxFailedTxnPct: ptr(3.0)}.Compile()
	if err != nil {
		t.Fatal(err)
	}
	if !m.MatchRecord(rec) {
		t.Error("record should match")
	}

	m, _ = Criteria{MaxP95LatencyMs: ptr(100.0)}.Compile()
	if m.MatchRecord(rec) {
		t.Error("record without latency should not satisfy a latency bound")
	}
}
