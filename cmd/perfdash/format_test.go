package main

import (
	"math"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/NavarchProject/perfdash/pkg/chart"
	"github.com/NavarchProject/perfdash/pkg/perf"
)

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		input float64
		want  string
	}{
		{0, "0.00"},
		{100, "100.00"},
		{1234.5, "1,234.50"},
		{1234567.891, "1,234,567.89"},
		{math.NaN(), "-"},
		{math.Inf(1), "-"},
	}

	for _, tt := range tests {
		if got := formatNumber(tt.input); got != tt.want {
			t.Errorf("formatNumber(%v) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestFormatPercent(t *testing.T) {
	tests := []struct {
		input float64
		want  string
	}{
		{0.05, "5.00%"},
		{0.1234, "12.34%"},
		{math.NaN(), "-"},
	}

	for _, tt := range tests {
		if got := formatPercent(tt.input); got != tt.want {
			t.Errorf("formatPercent(%v) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		n     int
		want  string
	}{
		{"short", "login", 10, "login"},
		{"newlines collapse", "login\nburst", 20, "login burst"},
		{"long", "checkout under sustained load", 12, "checkout ..."},
		{"multibyte", "ทดสอบระบบชำระเงิน", 8, "ทดสอบ..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := truncate(tt.input, tt.n); got != tt.want {
				t.Errorf("truncate(%q, %d) = %q, want %q", tt.input, tt.n, got, tt.want)
			}
		})
	}
}

func TestFilterFlagsCriteria(t *testing.T) {
	t.Run("no flags", func(t *testing.T) {
		var f filterFlags
		c, err := f.criteria()
		if err != nil {
			t.Fatal(err)
		}
		if c != nil {
			t.Errorf("expected nil criteria, got %+v", c)
		}
	})

	t.Run("set flags", func(t *testing.T) {
		f := filterFlags{releaseTag: "v2", minAvgTPS: "60", maxFailedPct: "5"}
		c, err := f.criteria()
		if err != nil {
			t.Fatal(err)
		}
		want := url.Values{
			"release_tag":        {"v2"},
			"min_avg_tps":        {"60"},
			"max_failed_txn_pct": {"5"},
		}
		if diff := cmp.Diff(want, c.Query()); diff != "" {
			t.Errorf("query mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("invalid number", func(t *testing.T) {
		f := filterFlags{maxAvgTPS: "lots"}
		if _, err := f.criteria(); err == nil {
			t.Error("expected error for non-numeric bound")
		}
	})

	t.Run("invalid expr", func(t *testing.T) {
		f := filterFlags{expr: "run.avg_tps >"}
		if _, err := f.criteria(); err == nil {
			t.Error("expected error for invalid expression")
		}
	})
}

func TestWritePNG(t *testing.T) {
	tps := 100.0
	rec := perf.Record{ReleaseTag: "v1", AvgTPS: &tps}
	c, err := chart.Build(chart.TPS, perf.Normalize([]perf.Row{rec.Row()}))
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "tps.png")
	if err := writePNG(c, path, 320, 200); err != nil {
		t.Fatalf("writePNG() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) < 8 || string(data[:4]) != "\x89PNG" {
		t.Error("output is not a PNG image")
	}
}

func TestWritePNG_NoDataRemovesFile(t *testing.T) {
	c, err := chart.Build(chart.Latency, nil)
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "latency.png")
	if err := writePNG(c, path, 0, 0); err == nil {
		t.Fatal("expected error for an empty chart")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("expected %s to be removed, stat error = %v", path, err)
	}
}
