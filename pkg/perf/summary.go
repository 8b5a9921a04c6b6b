package perf

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Summary aggregates a set of runs.
type Summary struct {
	TotalRuns    int      `json:"total_runs"`
	AvgTPS       *float64 `json:"avg_tps"`
	AvgLatencyMs *float64 `json:"avg_latency_ms"`
}

// TrendPoint is the mean average TPS of one release tag. It encodes as a
// two-element array: ["v1.2", 1234.5].
type TrendPoint struct {
	Label string
	Value float64
}

// MarshalJSON encodes the point as [label, value].
func (p TrendPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{p.Label, p.Value})
}

// UnmarshalJSON decodes a [label, value] pair.
func (p *TrendPoint) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("trend point: expected 2 elements, got %d", len(pair))
	}
	if err := json.Unmarshal(pair[0], &p.Label); err != nil {
		return fmt.Errorf("trend point label: %w", err)
	}
	if err := json.Unmarshal(pair[1], &p.Value); err != nil {
		return fmt.Errorf("trend point value: %w", err)
	}
	return nil
}

// Trends holds per-release trend points ordered by release tag.
type Trends struct {
	TrendPoints []TrendPoint `json:"trend_points"`
}

// Summarize counts runs and averages the present avg_tps and p95 latency values.
func Summarize(records []*Record) Summary {
	var tps, lat mean
	for _, r := range records {
		tps.add(r.AvgTPS)
		lat.add(r.P95LatencyMs)
	}
	return Summary{
		TotalRuns:    len(records),
		AvgTPS:       tps.value(),
		AvgLatencyMs: lat.value(),
	}
}

// Trend computes the mean avg_tps per release tag. Tags without any avg_tps
// value are omitted.
func Trend(records []*Record) Trends {
	byTag := make(map[string]*mean)
	for _, r := range records {
		m, ok := byTag[r.ReleaseTag]
		if !ok {
			m = &mean{}
			byTag[r.ReleaseTag] = m
		}
		m.add(r.AvgTPS)
	}

	tags := make([]string, 0, len(byTag))
	for tag := range byTag {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	points := make([]TrendPoint, 0, len(tags))
	for _, tag := range tags {
		if v := byTag[tag].value(); v != nil {
			points = append(points, TrendPoint{Label: tag, Value: *v})
		}
	}
	return Trends{TrendPoints: points}
}

// ReleaseTags returns the distinct non-empty release tags, sorted.
func ReleaseTags(rows []Row) []string {
	seen := make(map[string]struct{})
	var tags []string
	for _, r := range rows {
		tag := r.String(FieldReleaseTag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

type mean struct {
	sum float64
	n   int
}

func (m *mean) add(v *float64) {
	if v == nil {
		return
	}
	m.sum += *v
	m.n++
}

func (m *mean) value() *float64 {
	if m.n == 0 {
		return nil
	}
	v := m.sum / float64(m.n)
	return &v
}
