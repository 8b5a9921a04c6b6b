// Package table renders performance runs as a sortable, paginated table.
package table

import (
	"html"
	"html/template"
	"strings"

	"github.com/NavarchProject/perfdash/pkg/perf"
)

// PageSizes are the selectable page sizes.
var PageSizes = []int{10, 20, 50, 100}

// DefaultPageSize is used when no valid page size is requested.
const DefaultPageSize = 20

// Placeholder is shown when there are no rows.
const Placeholder = "No data"

// Column describes one table column.
type Column struct {
	Title      string `json:"title"`
	Field      string `json:"field"`
	Formatter  string `json:"formatter"`
	Sorter     string `json:"sorter"`
	HeaderSort bool   `json:"headerSort"`
	Resizable  bool   `json:"resizable"`
	WidthGrow  int    `json:"widthGrow"`
}

// InferColumns derives the columns from the keys of the first row, in the
// order they were observed. No rows yields no columns.
func InferColumns(rows []perf.Row) []Column {
	if len(rows) == 0 {
		return nil
	}
	keys := rows[0].Keys()
	cols := make([]Column, len(keys))
	for i, k := range keys {
		cols[i] = Column{
			Title:      k,
			Field:      k,
			Formatter:  "html",
			Sorter:     "alphanum",
			HeaderSort: true,
			Resizable:  true,
			WidthGrow:  1,
		}
	}
	return cols
}

// FormatCell renders a value as cell HTML. Null and the literal "null" are
// blank; newlines become <br>.
func FormatCell(v any) template.HTML {
	if v == nil {
		return ""
	}
	s := perf.FormatValue(v)
	if s == "null" {
		return ""
	}
	s = html.EscapeString(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return template.HTML(strings.ReplaceAll(s, "\n", "<br>"))
}

// Cell renders a row's field. Missing fields are blank.
func Cell(r perf.Row, field string) template.HTML {
	v, ok := r.Get(field)
	if !ok {
		return ""
	}
	return FormatCell(v)
}
