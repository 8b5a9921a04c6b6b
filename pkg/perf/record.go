package perf

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Record is the stored form of a performance run. Absent values encode as null.
type Record struct {
	ReleaseTag     string   `json:"release_tag"`
	RowNo          *int64   `json:"row_no"`
	TestScenario   *string  `json:"test_scenario"`
	P95LatencyMs   *float64 `json:"p95_latency_ms"`
	AvgTPS         *float64 `json:"avg_tps"`
	PeakTPS        *float64 `json:"peak_tps"`
	FailedTxnPct   *float64 `json:"failed_txn_pct"`
	FailedTxnCount *int64   `json:"failed_txn_count"`
	TotalTxnCount  *float64 `json:"total_txn_count"`
	BaselineAvgTPS *float64 `json:"baseline_avg_tps"`
	TestResultText *string  `json:"test_result_text"`
	RemarkText     *string  `json:"remark_text"`
}

// RecordFields lists the record columns in storage and wire order.
var RecordFields = []string{
	FieldReleaseTag,
	FieldRowNo,
	FieldTestScenario,
	FieldP95LatencyMs,
	FieldAvgTPS,
	FieldPeakTPS,
	FieldFailedTxnPct,
	FieldFailedTxnCount,
	FieldTotalTxnCount,
	FieldBaselineAvgTPS,
	FieldTestResultText,
	FieldRemarkText,
}

// Row converts the record into a Row with fields in wire order.
func (r *Record) Row() Row {
	row := NewRow()
	row.Set(FieldReleaseTag, r.ReleaseTag)
	row.Set(FieldRowNo, intValue(r.RowNo))
	row.Set(FieldTestScenario, stringValue(r.TestScenario))
	row.Set(FieldP95LatencyMs, floatValue(r.P95LatencyMs))
	row.Set(FieldAvgTPS, floatValue(r.AvgTPS))
	row.Set(FieldPeakTPS, floatValue(r.PeakTPS))
	row.Set(FieldFailedTxnPct, floatValue(r.FailedTxnPct))
	row.Set(FieldFailedTxnCount, intValue(r.FailedTxnCount))
	row.Set(FieldTotalTxnCount, floatValue(r.TotalTxnCount))
	row.Set(FieldBaselineAvgTPS, floatValue(r.BaselineAvgTPS))
	row.Set(FieldTestResultText, stringValue(r.TestResultText))
	row.Set(FieldRemarkText, stringValue(r.RemarkText))
	return row
}

// SetField assigns a record field from its text form. Blank text leaves the
// field absent. Unknown fields are ignored and reported as false.
func (r *Record) SetField(name, text string) (bool, error) {
	text = strings.TrimSpace(text)
	var err error
	switch name {
	case FieldReleaseTag:
		r.ReleaseTag = text
	case FieldRowNo:
		r.RowNo, err = ParseRowNo(text)
	case FieldTestScenario:
		r.TestScenario = optionalString(text)
	case FieldP95LatencyMs:
		r.P95LatencyMs, err = parseOptionalFloat(text)
	case FieldAvgTPS:
		r.AvgTPS, err = parseOptionalFloat(text)
	case FieldPeakTPS:
		r.PeakTPS, err = parseOptionalFloat(text)
	case FieldFailedTxnPct:
		r.FailedTxnPct, err = parseOptionalFloat(text)
	case FieldFailedTxnCount:
		r.FailedTxnCount, err = parseOptionalInt(text)
	case FieldTotalTxnCount:
		r.TotalTxnCount, err = parseOptionalFloat(text)
	case FieldBaselineAvgTPS:
		r.BaselineAvgTPS, err = parseOptionalFloat(text)
	case FieldTestResultText:
		r.TestResultText = optionalString(text)
	case FieldRemarkText:
		r.RemarkText = optionalString(text)
	default:
		return false, nil
	}
	if err != nil {
		return true, fmt.Errorf("%s: %w", name, err)
	}
	return true, nil
}

// ParseRowNo parses a row number leniently: blank is absent, integer text is
// used as is and decimal text is truncated.
func ParseRowNo(text string) (*int64, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	if i, err := strconv.ParseInt(text, 10, 64); err == nil {
		return &i, nil
	}
	if f, err := strconv.ParseFloat(text, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		i := int64(f)
		return &i, nil
	}
	return nil, fmt.Errorf("invalid row_no %q", text)
}

func parseOptionalFloat(text string) (*float64, error) {
	if text == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("invalid number %q", text)
	}
	return &f, nil
}

func parseOptionalInt(text string) (*int64, error) {
	if text == "" {
		return nil, nil
	}
	i, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid integer %q", text)
	}
	return &i, nil
}

func optionalString(text string) *string {
	if text == "" {
		return nil
	}
	return &text
}

func intValue(v *int64) any {
	if v == nil {
		return nil
	}
	return float64(*v)
}

func floatValue(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func stringValue(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}
