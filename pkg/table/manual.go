package table

import (
	"cmp"
	"html/template"
	"math"
	"net/url"
	"slices"
	"strconv"

	"github.com/NavarchProject/perfdash/pkg/perf"
)

// Options select the page and ordering of a manually built table.
type Options struct {
	Page int    // 1-based
	Size int    // one of PageSizes
	Sort string // field name; empty keeps source order
	Desc bool
}

// ParseOptions reads page, size, sort and desc from query parameters.
// Invalid values fall back to the defaults.
func ParseOptions(q url.Values) Options {
	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("size"))
	desc, _ := strconv.ParseBool(q.Get("desc"))
	return Options{Page: page, Size: size, Sort: q.Get("sort"), Desc: desc}
}

// View is a server-built table page.
type View struct {
	Columns   []Column
	Rows      [][]template.HTML
	Page      int
	Pages     int
	Size      int
	Total     int
	Sort      string
	Desc      bool
	PageSizes []int
}

// Empty reports whether there are no rows at all.
func (v View) Empty() bool {
	return v.Total == 0
}

// HasPrev reports whether a previous page exists.
func (v View) HasPrev() bool { return v.Page > 1 }

// HasNext reports whether a next page exists.
func (v View) HasNext() bool { return v.Page < v.Pages }

// Build sorts and pages rows. The page is clamped to the available range.
func Build(rows []perf.Row, opts Options) View {
	cols := InferColumns(rows)
	size := validSize(opts.Size)

	sorted := rows
	sortKey := ""
	if opts.Sort != "" && hasColumn(cols, opts.Sort) {
		sortKey = opts.Sort
		sorted = slices.Clone(rows)
		slices.SortStableFunc(sorted, func(a, b perf.Row) int {
			av, _ := a.Get(sortKey)
			bv, _ := b.Get(sortKey)
			c := compareValues(av, bv)
			if opts.Desc {
				return -c
			}
			return c
		})
	}

	total := len(sorted)
	pages := max(1, (total+size-1)/size)
	page := min(max(opts.Page, 1), pages)

	start := min((page-1)*size, total)
	end := min(start+size, total)
	body := make([][]template.HTML, 0, end-start)
	for _, r := range sorted[start:end] {
		cells := make([]template.HTML, len(cols))
		for i, c := range cols {
			cells[i] = Cell(r, c.Field)
		}
		body = append(body, cells)
	}

	return View{
		Columns:   cols,
		Rows:      body,
		Page:      page,
		Pages:     pages,
		Size:      size,
		Total:     total,
		Sort:      sortKey,
		Desc:      sortKey != "" && opts.Desc,
		PageSizes: PageSizes,
	}
}

// compareValues orders blanks first, then numbers numerically, then text.
func compareValues(a, b any) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		return cmp.Compare(ra, rb)
	}
	switch ra {
	case rankNumber:
		return cmp.Compare(perf.ToNumber(a), perf.ToNumber(b))
	case rankText:
		return cmp.Compare(perf.FormatValue(a), perf.FormatValue(b))
	}
	return 0
}

const (
	rankBlank = iota
	rankNumber
	rankText
)

func rank(v any) int {
	if v == nil {
		return rankBlank
	}
	if _, ok := v.(bool); ok {
		return rankText
	}
	s := perf.FormatValue(v)
	if s == "" || s == "null" {
		return rankBlank
	}
	if f := perf.ToNumber(v); !math.IsNaN(f) {
		return rankNumber
	}
	return rankText
}

func hasColumn(cols []Column, field string) bool {
	return slices.ContainsFunc(cols, func(c Column) bool { return c.Field == field })
}

func validSize(size int) int {
	if slices.Contains(PageSizes, size) {
		return size
	}
	return DefaultPageSize
}
