package main

import (
	"math"
	"strings"

	"github.com/dustin/go-humanize"
)

// formatNumber groups thousands and keeps two decimals. NaN prints as "-".
func formatNumber(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "-"
	}
	return humanize.FormatFloat("#,###.##", v)
}

// formatPercent renders a 0-1 fraction as a percentage.
func formatPercent(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "-"
	}
	return humanize.FormatFloat("#,###.##", v*100) + "%"
}

func formatOptional(v *float64) string {
	if v == nil {
		return "-"
	}
	return formatNumber(*v)
}

// truncate shortens s to n runes on a single line.
func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
