package perf

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DisplayRow is a Row prepared for charting: a derived x-axis label and the
// numeric fields coerced to float64. Values that cannot be coerced are NaN.
type DisplayRow struct {
	Row

	XLabel         string
	AvgTPS         float64
	PeakTPS        float64
	BaselineAvgTPS float64
	FailedTxnPct   float64
	P95LatencyMs   float64
}

// ReleaseTag returns the run's release tag as text.
func (d DisplayRow) ReleaseTag() string {
	return d.String(FieldReleaseTag)
}

// TestScenario returns the run's free-text scenario, or "" when absent.
func (d DisplayRow) TestScenario() string {
	return d.String(FieldTestScenario)
}

// Normalize prepares rows for display. Order is preserved.
func Normalize(rows []Row) []DisplayRow {
	out := make([]DisplayRow, len(rows))
	for i, r := range rows {
		out[i] = NormalizeRow(r)
	}
	return out
}

// NormalizeRow prepares a single row for display.
func NormalizeRow(r Row) DisplayRow {
	return DisplayRow{
		Row:            r,
		XLabel:         XLabel(r),
		AvgTPS:         numberField(r, FieldAvgTPS),
		PeakTPS:        numberField(r, FieldPeakTPS),
		BaselineAvgTPS: numberField(r, FieldBaselineAvgTPS),
		FailedTxnPct:   numberField(r, FieldFailedTxnPct),
		P95LatencyMs:   numberField(r, FieldP95LatencyMs),
	}
}

// XLabel derives the x-axis label: the release tag, suffixed with "-" and the
// row number when the row number is truthy.
func XLabel(r Row) string {
	label := r.String(FieldReleaseTag)
	if v, ok := r.Get(FieldRowNo); ok && truthy(v) {
		label += "-" + FormatValue(v)
	}
	return label
}

// ToNumber coerces a decoded JSON value to float64. Strings are parsed after
// trimming; null, empty and non-numeric input yield NaN.
func ToNumber(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case json.Number:
		return ToNumber(string(n))
	case bool:
		if n {
			return 1
		}
		return 0
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return math.NaN()
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

func numberField(r Row, key string) float64 {
	v, ok := r.Get(key)
	if !ok {
		return math.NaN()
	}
	return ToNumber(v)
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0 && !math.IsNaN(t)
	case int:
		return t != 0
	case int64:
		return t != 0
	default:
		return true
	}
}

// FormatValue renders a decoded JSON value as text; numbers use the shortest
// representation and null is empty.
func FormatValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case nil:
		return ""
	case map[string]any, []any:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	default:
		return fmt.Sprint(t)
	}
}
