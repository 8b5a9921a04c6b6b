package table

import (
	"encoding/json"
	"fmt"
	"html/template"

	"github.com/NavarchProject/perfdash/pkg/perf"
)

// WidgetConfig is a Tabulator configuration. Cells are preformatted HTML.
type WidgetConfig struct {
	Data                   []map[string]template.HTML `json:"data"`
	Columns                []Column                   `json:"columns"`
	Layout                 string                     `json:"layout"`
	MovableColumns         bool                       `json:"movableColumns"`
	ResizableColumns       bool                       `json:"resizableColumns"`
	Height                 string                     `json:"height"`
	Pagination             bool                       `json:"pagination"`
	PaginationSize         int                        `json:"paginationSize"`
	PaginationSizeSelector []int                      `json:"paginationSizeSelector"`
	Placeholder            string                     `json:"placeholder"`
	AutoColumns            bool                       `json:"autoColumns"`
	ResponsiveLayout       string                     `json:"responsiveLayout"`
}

// Widget builds the widget configuration for rows. pageSize falls back to
// DefaultPageSize when it is not one of PageSizes.
func Widget(rows []perf.Row, pageSize int) WidgetConfig {
	cols := InferColumns(rows)
	data := make([]map[string]template.HTML, len(rows))
	for i, r := range rows {
		cells := make(map[string]template.HTML, len(cols))
		for _, c := range cols {
			cells[c.Field] = Cell(r, c.Field)
		}
		data[i] = cells
	}
	if cols == nil {
		cols = []Column{}
	}

	return WidgetConfig{
		Data:                   data,
		Columns:                cols,
		Layout:                 "fitColumns",
		MovableColumns:         true,
		ResizableColumns:       true,
		Height:                 "80vh",
		Pagination:             true,
		PaginationSize:         validSize(pageSize),
		PaginationSizeSelector: PageSizes,
		Placeholder:            Placeholder,
		ResponsiveLayout:       "collapse",
	}
}

// JS returns the configuration for embedding in a page script.
func (w WidgetConfig) JS() (template.JS, error) {
	b, err := json.Marshal(w)
	if err != nil {
		return "", fmt.Errorf("encode table: %w", err)
	}
	return template.JS(b), nil
}
