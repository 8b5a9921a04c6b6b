// Package perf defines performance-run records and the pure transformations the
// dashboard applies to them: normalization, filtering and aggregation.
package perf

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

// Well-known run fields as they appear on the wire.
const (
	FieldReleaseTag     = "release_tag"
	FieldRowNo          = "row_no"
	FieldTestScenario   = "test_scenario"
	FieldP95LatencyMs   = "p95_latency_ms"
	FieldAvgTPS         = "avg_tps"
	FieldPeakTPS        = "peak_tps"
	FieldFailedTxnPct   = "failed_txn_pct"
	FieldFailedTxnCount = "failed_txn_count"
	FieldTotalTxnCount  = "total_txn_count"
	FieldBaselineAvgTPS = "baseline_avg_tps"
	FieldTestResultText = "test_result_text"
	FieldRemarkText     = "remark_text"
	FieldXLabel         = "x_label"
)

// ErrMalformed is returned when a listing payload is not a JSON array of objects.
var ErrMalformed = errors.New("malformed perf-run payload")

// Row is one performance-run record as returned by the listing endpoint.
// It keeps the field order of the source document.
type Row struct {
	keys   []string
	values map[string]any
}

// NewRow returns an empty row.
func NewRow() Row {
	return Row{values: make(map[string]any)}
}

// Set assigns a field, appending the key if it is new.
func (r *Row) Set(key string, value any) {
	if r.values == nil {
		r.values = make(map[string]any)
	}
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

// Get returns the value of a field and whether the field is present.
func (r Row) Get(key string) (any, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Keys returns the field names in observed order.
func (r Row) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Len returns the number of fields.
func (r Row) Len() int {
	return len(r.keys)
}

// Values returns a copy of the fields as a map.
func (r Row) Values() map[string]any {
	out := make(map[string]any, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}

// String returns the field rendered as text, or "" when absent or null.
func (r Row) String(key string) string {
	v, ok := r.values[key]
	if !ok || v == nil {
		return ""
	}
	return FormatValue(v)
}

// MarshalJSON encodes the row as an object with fields in observed order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(r.values[k])
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", k, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, preserving key order.
func (r *Row) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return ErrMalformed
	}
	res := gjson.ParseBytes(data)
	if !res.IsObject() {
		return fmt.Errorf("%w: expected object, got %s", ErrMalformed, res.Type)
	}
	*r = rowFromResult(res)
	return nil
}

// DecodeRows decodes a listing payload (a JSON array of objects).
func DecodeRows(data []byte) ([]Row, error) {
	if !gjson.ValidBytes(data) {
		return nil, ErrMalformed
	}
	res := gjson.ParseBytes(data)
	if !res.IsArray() {
		return nil, fmt.Errorf("%w: expected array, got %s", ErrMalformed, res.Type)
	}

	rows := make([]Row, 0)
	var err error
	res.ForEach(func(_, item gjson.Result) bool {
		if !item.IsObject() {
			err = fmt.Errorf("%w: element %d is %s", ErrMalformed, len(rows), item.Type)
			return false
		}
		rows = append(rows, rowFromResult(item))
		return true
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func rowFromResult(res gjson.Result) Row {
	row := NewRow()
	res.ForEach(func(key, value gjson.Result) bool {
		row.Set(key.String(), value.Value())
		return true
	})
	return row
}
