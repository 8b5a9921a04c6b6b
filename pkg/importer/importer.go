// Package importer loads performance runs from CSV files into a store.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/NavarchProject/perfdash/pkg/perf"
	"github.com/NavarchProject/perfdash/pkg/store"
)

// Result summarizes an import.
type Result struct {
	Imported int
	Skipped  int
	// Ignored lists header columns that are not run fields.
	Ignored []string
}

// Importer reads CSV data whose header row names run fields.
type Importer struct {
	db     store.DB
	logger *slog.Logger
}

// New creates an importer writing to db.
func New(db store.DB, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{db: db, logger: logger.With("component", "importer")}
}

// Import inserts every well-formed record from r. Malformed records are
// logged with their 1-based record number and skipped. A storage failure
// aborts the import.
func (im *Importer) Import(ctx context.Context, r io.Reader) (Result, error) {
	var res Result

	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err == io.EOF {
		return res, fmt.Errorf("empty input: missing header row")
	}
	if err != nil {
		return res, fmt.Errorf("read header: %w", err)
	}
	header = slices.Clone(header)
	for i, h := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}
	if !slices.Contains(header, perf.FieldReleaseTag) {
		return res, fmt.Errorf("header has no %s column", perf.FieldReleaseTag)
	}
	for _, h := range header {
		if !slices.Contains(perf.RecordFields, h) {
			res.Ignored = append(res.Ignored, h)
		}
	}
	if len(res.Ignored) > 0 {
		im.logger.Warn("ignoring unknown columns", "columns", res.Ignored)
	}

	for n := 1; ; n++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		fields, err := cr.Read()
		if err == io.EOF {
			break
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			im.skip(&res, n, err)
			continue
		}
		if err != nil {
			return res, fmt.Errorf("read record %d: %w", n, err)
		}

		rec, err := parseRecord(header, fields)
		if err != nil {
			im.skip(&res, n, err)
			continue
		}
		if err := im.db.InsertRun(ctx, rec); err != nil {
			return res, fmt.Errorf("record %d: %w", n, err)
		}
		res.Imported++
	}

	im.logger.Info("import finished", "imported", res.Imported, "skipped", res.Skipped)
	return res, nil
}

func (im *Importer) skip(res *Result, n int, err error) {
	res.Skipped++
	im.logger.Warn("skipping malformed record", "record", n, slog.String("error", err.Error()))
}

func parseRecord(header, fields []string) (*perf.Record, error) {
	var rec perf.Record
	for i, name := range header {
		if _, err := rec.SetField(name, fields[i]); err != nil {
			return nil, err
		}
	}
	return &rec, nil
}
