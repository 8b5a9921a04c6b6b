package perf

import (
	"math"
	"testing"
)

func rowOf(kv ...any) Row {
	r := NewRow()
	for i := 0; i < len(kv); i += 2 {
		r.Set(kv[i].(string), kv[i+1])
	}
	return r
}

func TestXLabel(t *testing.T) {
	tests := []struct {
		name string
		row  Row
		want string
	}{
		{"no row_no", rowOf("release_tag", "v1"), "v1"},
		{"null row_no", rowOf("release_tag", "v1", "row_no", nil), "v1"},
		{"zero row_no", rowOf("release_tag", "v1", "row_no", 0.0), "v1"},
		{"empty string row_no", rowOf("release_tag", "v1", "row_no", ""), "v1"},
		{"numeric row_no", rowOf("release_tag", "v1", "row_no", 12.0), "v1-12"},
		{"string row_no", rowOf("release_tag", "v1", "row_no", "0"), "v1-0"},
		{"fractional row_no", rowOf("release_tag", "v1", "row_no", 2.5), "v1-2.5"},
		{"missing release_tag", rowOf("row_no", 4.0), "-4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := XLabel(tt.row); got != tt.want {
				t.Errorf("XLabel() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestToNumber(t *testing.T) {
	tests := []struct {
		in      any
		want    float64
		wantNaN bool
	}{
		{12.5, 12.5, false},
		{"100", 100, false},
		{" 42.0 ", 42, false},
		{"1e3", 1000, false},
		{true, 1, false},
		{false, 0, false},
		{nil, 0, true},
		{"", 0, true},
		{"n/a", 0, true},
		{map[string]any{"a": 1.0}, 0, true},
	}

	for _, tt := range tests {
		got := ToNumber(tt.in)
		if tt.wantNaN {
			if !math.IsNaN(got) {
				t.Errorf("ToNumber(%#v) = %v, want NaN", tt.in, got)
			}
			continue
		}
		if got != tt.want {
			t.Errorf("ToNumber(%#v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNormalize(t *testing.T) {
	rows := []Row{
		rowOf("release_tag", "v1", "row_no", 1.0, "avg_tps", "100", "peak_tps", 150.0,
			"baseline_avg_tps", "90", "failed_txn_pct", "0.05", "p95_latency_ms", 120.0),
		rowOf("release_tag", "v2", "avg_tps", "fast", "peak_tps", nil),
	}

	got := Normalize(rows)
	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got))
	}

	first := got[0]
	if first.XLabel != "v1-1" {
		t.Errorf("XLabel = %q, want v1-1", first.XLabel)
	}
	if first.AvgTPS != 100 || first.PeakTPS != 150 || first.BaselineAvgTPS != 90 {
		t.Errorf("tps fields = %v/%v/%v", first.AvgTPS, first.PeakTPS, first.BaselineAvgTPS)
	}
	if first.FailedTxnPct != 0.05 || first.P95LatencyMs != 120 {
		t.Errorf("failed/latency = %v/%v", first.FailedTxnPct, first.P95LatencyMs)
	}

	second := got[1]
	for name, v := range map[string]float64{
		"avg_tps":          second.AvgTPS,
		"peak_tps":         second.PeakTPS,
		"baseline_avg_tps": second.BaselineAvgTPS,
		"failed_txn_pct":   second.FailedTxnPct,
	} {
		if !math.IsNaN(v) {
			t.Errorf("%s = %v, want NaN", name, v)
		}
	}

	// Normalization keeps the raw row intact.
	if v, _ := second.Get("avg_tps"); v != "fast" {
		t.Errorf("raw avg_tps = %#v, want \"fast\"", v)
	}
}

func TestNormalize_Empty(t *testing.T) {
	if got := Normalize(nil); len(got) != 0 {
		t.Errorf("expected no rows, got %d", len(got))
	}
}
