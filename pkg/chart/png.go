package chart

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// ErrNoData is returned when a chart has no finite points to draw.
var ErrNoData = errors.New("no data")

// PNG size defaults.
const (
	DefaultWidth  = 1024
	DefaultHeight = 400
)

// RenderPNG draws the chart as a PNG image. Points that are not finite are
// skipped. Width and height fall back to the defaults when zero.
func (c *Chart) RenderPNG(w io.Writer, width, height int) error {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}

	labels := c.Config.Data.Labels
	n := len(labels)

	var series []gochart.Series
	minY, maxY := math.Inf(1), math.Inf(-1)
	for _, ds := range c.Config.Data.Datasets {
		xs := make([]float64, 0, n)
		ys := make([]float64, 0, n)
		for i, v := range ds.Data {
			f := float64(v)
			if math.IsNaN(f) || math.IsInf(f, 0) {
				continue
			}
			xs = append(xs, float64(i+1))
			ys = append(ys, f)
			minY = math.Min(minY, f)
			maxY = math.Max(maxY, f)
		}
		if len(xs) == 0 {
			continue
		}
		series = append(series, gochart.ContinuousSeries{
			Name:    ds.Label,
			XValues: xs,
			YValues: ys,
			Style:   seriesStyle(ds),
		})
	}
	if len(series) == 0 {
		return ErrNoData
	}

	ticks := make([]gochart.Tick, 0, n)
	for i, l := range labels {
		ticks = append(ticks, gochart.Tick{Value: float64(i + 1), Label: l})
	}
	if minY == maxY {
		minY, maxY = minY-1, maxY+1
	}

	ch := gochart.Chart{
		Width:      width,
		Height:     height,
		Background: gochart.Style{Padding: gochart.Box{Top: 40, Left: 16, Right: 16, Bottom: 24}},
		XAxis: gochart.XAxis{
			Name:  c.Config.Options.Scales["x"].Title.Text,
			Ticks: ticks,
			Range: &gochart.ContinuousRange{Min: 0.5, Max: float64(n) + 0.5},
		},
		YAxis: gochart.YAxis{
			Name:  c.Config.Options.Scales["y"].Title.Text,
			Range: &gochart.ContinuousRange{Min: minY, Max: maxY},
		},
		Series: series,
	}
	ch.Elements = []gochart.Renderable{gochart.Legend(&ch)}

	if err := ch.Render(gochart.PNG, w); err != nil {
		return fmt.Errorf("render chart %s: %w", c.ID, err)
	}
	return nil
}

func seriesStyle(ds Dataset) gochart.Style {
	color := drawing.ColorFromHex(strings.TrimPrefix(ds.BorderColor, "#"))
	st := gochart.Style{
		StrokeColor: color,
		StrokeWidth: 2,
		DotColor:    color,
		DotWidth:    3,
	}
	for _, d := range ds.BorderDash {
		st.StrokeDashArray = append(st.StrokeDashArray, float64(d))
	}
	if ds.Fill {
		st.FillColor = color.WithAlpha(40)
	}
	return st
}
