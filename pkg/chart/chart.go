// Package chart builds the dashboard line charts from normalized runs.
//
// Charts are described as Chart.js configurations for the browser and can be
// rendered to PNG for export.
package chart

import (
	"encoding/json"
	"fmt"
	"html/template"
	"math"
	"strconv"

	"github.com/NavarchProject/perfdash/pkg/perf"
)

// Chart identifiers, also used as element IDs on the dashboard page.
const (
	TPS      = "tpsChart"
	Latency  = "latencyChart"
	FailRate = "failRateChart"
)

// IDs lists every chart in page order.
var IDs = []string{TPS, Latency, FailRate}

// NoData is the placeholder shown for an empty row set.
const NoData = "No data"

// Value is a chart point. NaN encodes as null, which Chart.js draws as a gap.
type Value float64

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	f := float64(v)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, f, 'f', -1, 64), nil
}

// Config is a Chart.js chart configuration.
type Config struct {
	Type    string  `json:"type"`
	Data    Data    `json:"data"`
	Options Options `json:"options"`
}

// Data holds the shared x-axis labels and the series.
type Data struct {
	Labels   []string  `json:"labels"`
	Datasets []Dataset `json:"datasets"`
}

// Dataset is one line series.
type Dataset struct {
	Label           string  `json:"label"`
	Data            []Value `json:"data"`
	BorderColor     string  `json:"borderColor"`
	BackgroundColor string  `json:"backgroundColor"`
	BorderDash      []int   `json:"borderDash,omitempty"`
	Fill            bool    `json:"fill"`
	Tension         float64 `json:"tension"`
}

// Options is the subset of Chart.js options the dashboard sets.
type Options struct {
	Responsive bool             `json:"responsive"`
	Plugins    Plugins          `json:"plugins"`
	Scales     map[string]Scale `json:"scales"`
}

type Plugins struct {
	Legend Legend `json:"legend"`
	Title  Title  `json:"title"`
}

type Legend struct {
	Position string `json:"position"`
}

type Title struct {
	Display bool   `json:"display"`
	Text    string `json:"text,omitempty"`
}

type Scale struct {
	Title Title `json:"title"`
}

// Element addresses one point: a series and an index along the x axis.
type Element struct {
	DatasetIndex int `json:"datasetIndex"`
	Index        int `json:"index"`
}

// Chart is a rendered chart handle. It tracks the highlighted points and how
// many times the chart has been redrawn.
type Chart struct {
	ID     string
	Config Config

	// Empty is set when there were no rows; the page shows NoData instead.
	Empty bool
	// Selectable charts report clicks as a point index.
	Selectable bool

	active  []Element
	redraws int
}

// series describes how one dataset is derived from the rows.
type series struct {
	label string
	color string
	fill  bool
	dash  []int
	value func(perf.DisplayRow) float64
}

type spec struct {
	yTitle string
	series []series
}

var specs = map[string]spec{
	TPS: {
		yTitle: "TPS",
		series: []series{
			{label: "Average TPS", color: "#8884d8", value: func(r perf.DisplayRow) float64 { return r.AvgTPS }},
			{label: "Peak TPS", color: "#ff9800", value: func(r perf.DisplayRow) float64 { return r.PeakTPS }},
			{label: "Baseline Avg TPS", color: "#43a047", dash: []int{6, 3}, value: func(r perf.DisplayRow) float64 { return r.BaselineAvgTPS }},
		},
	},
	Latency: {
		yTitle: "Latency (ms)",
		series: []series{
			{label: "P95 Latency (ms)", color: "#82ca9d", fill: true, value: func(r perf.DisplayRow) float64 { return r.P95LatencyMs }},
		},
	},
	FailRate: {
		yTitle: "Failed Rate (%)",
		series: []series{
			{label: "Failed Rate (%)", color: "#e53935", fill: true, value: func(r perf.DisplayRow) float64 { return r.FailedTxnPct * 100 }},
		},
	},
}

// Build creates the chart with the given ID from rows. Labels are the rows'
// x labels; every chart built from the same rows shares them.
func Build(id string, rows []perf.DisplayRow) (*Chart, error) {
	sp, ok := specs[id]
	if !ok {
		return nil, fmt.Errorf("unknown chart %q", id)
	}

	labels := make([]string, len(rows))
	for i, r := range rows {
		labels[i] = r.XLabel
	}

	datasets := make([]Dataset, len(sp.series))
	for i, s := range sp.series {
		data := make([]Value, len(rows))
		for j, r := range rows {
			data[j] = Value(s.value(r))
		}
		datasets[i] = Dataset{
			Label:           s.label,
			Data:            data,
			BorderColor:     s.color,
			BackgroundColor: translucent(s.color),
			BorderDash:      s.dash,
			Fill:            s.fill,
			Tension:         0.1,
		}
	}

	return &Chart{
		ID: id,
		Config: Config{
			Type: "line",
			Data: Data{Labels: labels, Datasets: datasets},
			Options: Options{
				Responsive: true,
				Plugins: Plugins{
					Legend: Legend{Position: "top"},
				},
				Scales: map[string]Scale{
					"x": {Title: Title{Display: true, Text: "Release Tag"}},
					"y": {Title: Title{Display: true, Text: sp.yTitle}},
				},
			},
		},
		Empty:      len(rows) == 0,
		Selectable: true,
	}, nil
}

// BuildAll builds the charts named by ids, in order.
func BuildAll(ids []string, rows []perf.DisplayRow) ([]*Chart, error) {
	charts := make([]*Chart, 0, len(ids))
	for _, id := range ids {
		c, err := Build(id, rows)
		if err != nil {
			return nil, err
		}
		charts = append(charts, c)
	}
	return charts, nil
}

// Len returns the number of points along the x axis.
func (c *Chart) Len() int {
	return len(c.Config.Data.Labels)
}

// SetActive highlights index on every series. Out-of-range indexes clear the
// highlight.
func (c *Chart) SetActive(index int) {
	c.active = c.active[:0]
	if index < 0 || index >= c.Len() {
		return
	}
	for i := range c.Config.Data.Datasets {
		c.active = append(c.active, Element{DatasetIndex: i, Index: index})
	}
}

// Active returns the highlighted points.
func (c *Chart) Active() []Element {
	out := make([]Element, len(c.active))
	copy(out, c.active)
	return out
}

// Update marks the chart as redrawn.
func (c *Chart) Update() {
	c.redraws++
}

// Redraws returns how many times Update was called.
func (c *Chart) Redraws() int {
	return c.redraws
}

// JS returns the Chart.js configuration for embedding in a page script.
func (c *Chart) JS() (template.JS, error) {
	b, err := json.Marshal(c.Config)
	if err != nil {
		return "", fmt.Errorf("encode chart %s: %w", c.ID, err)
	}
	return template.JS(b), nil
}

// translucent turns "#rrggbb" into an rgba() string at 10% opacity.
func translucent(hex string) string {
	if len(hex) != 7 || hex[0] != '#' {
		return hex
	}
	v, err := strconv.ParseUint(hex[1:], 16, 32)
	if err != nil {
		return hex
	}
	return fmt.Sprintf("rgba(%d,%d,%d,0.1)", v>>16&0xff, v>>8&0xff, v&0xff)
}

// Clone returns a copy whose highlight state is independent of c.
func (c *Chart) Clone() *Chart {
	out := *c
	out.active = c.Active()
	return &out
}
