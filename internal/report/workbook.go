// Package report writes every analysis view of a run, plus its diagnostics,
// into a single spreadsheet workbook.
package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/paveg/unicorns/internal/aggregate"
	"github.com/paveg/unicorns/internal/monitoring"
	"github.com/paveg/unicorns/internal/projection"
	"github.com/paveg/unicorns/internal/table"
	"github.com/paveg/unicorns/internal/trend"
)

// Sheet names in workbook order.
const (
	SheetTopHighest  = "Top highest"
	SheetTopLowest   = "Top lowest"
	SheetPerCountry  = "Per country"
	SheetIndustries  = "Industries"
	SheetTrend       = "Trend"
	SheetProjection  = "Projection"
	SheetDiagnostics = "Diagnostics"
)

// Views holds the results rendered into the workbook. Nil tables and empty
// slices produce a sheet with a header only.
type Views struct {
	TopHighest *table.Table
	TopLowest  *table.Table
	PerCountry *table.Table
	Industries []aggregate.IndustryCount
	Trend      []trend.Row
	Projection projection.Result
}

// WriteWorkbook writes views to path. The diagnostics sheet is filled from
// collector, which may be nil.
func WriteWorkbook(path string, views Views, collector *monitoring.Collector) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	w := &writer{file: f}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}
	w.header = bold

	w.table(SheetTopHighest, views.TopHighest)
	w.table(SheetTopLowest, views.TopLowest)
	w.table(SheetPerCountry, views.PerCountry)
	w.industries(views.Industries)
	w.trend(views.Trend)
	w.projection(views.Projection)
	w.diagnostics(collector)
	if w.err != nil {
		return w.err
	}

	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("removing default sheet: %w", err)
	}
	f.SetActiveSheet(0)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating workbook directory: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving workbook %s: %w", path, err)
	}
	return nil
}

// writer appends rows sheet by sheet and keeps the first error.
type writer struct {
	file   *excelize.File
	header int
	sheet  string
	row    int
	err    error
}

func (w *writer) start(sheet string, header ...interface{}) {
	if w.err != nil {
		return
	}
	if _, err := w.file.NewSheet(sheet); err != nil {
		w.err = fmt.Errorf("creating sheet %s: %w", sheet, err)
		return
	}
	w.sheet = sheet
	w.row = 0
	w.append(header...)
	if w.err == nil && len(header) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(header), 1)
		if err := w.file.SetCellStyle(sheet, "A1", last, w.header); err != nil {
			w.err = fmt.Errorf("styling sheet %s: %w", sheet, err)
		}
	}
}

func (w *writer) append(values ...interface{}) {
	if w.err != nil || len(values) == 0 {
		return
	}
	w.row++
	cell, err := excelize.CoordinatesToCellName(1, w.row)
	if err == nil {
		err = w.file.SetSheetRow(w.sheet, cell, &values)
	}
	if err != nil {
		w.err = fmt.Errorf("writing %s row %d: %w", w.sheet, w.row, err)
	}
}

func (w *writer) table(sheet string, tbl *table.Table) {
	if tbl == nil {
		w.start(sheet)
		return
	}
	columns := tbl.Columns()
	header := make([]interface{}, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	w.start(sheet, header...)

	series := make([]table.ISeries, len(columns))
	for i, c := range columns {
		series[i], _ = tbl.Column(c)
	}
	for r := 0; r < tbl.Len(); r++ {
		values := make([]interface{}, len(series))
		for i, s := range series {
			values[i] = table.Cell(s, r)
		}
		w.append(values...)
	}
}

func (w *writer) industries(counts []aggregate.IndustryCount) {
	w.start(SheetIndustries, "industry", "count")
	for _, c := range counts {
		w.append(c.Industry, c.Count)
	}
}

func (w *writer) trend(rows []trend.Row) {
	w.start(SheetTrend, "year", "industry", "mean_valuation", "sample_count", "distinct_company_count")
	for _, r := range rows {
		w.append(r.Year, r.Industry, r.MeanValuation, r.SampleCount, r.DistinctCompanies)
	}
}

func (w *writer) projection(result projection.Result) {
	w.start(SheetProjection, "industry", "year", "value", "fitted", "projected")
	for _, industry := range result.Order {
		for _, p := range result.Series[industry].Points {
			w.append(industry, p.Year, p.Value, p.Fitted, p.Projected)
		}
	}
}

func (w *writer) diagnostics(collector *monitoring.Collector) {
	w.start(SheetDiagnostics, "section", "name", "detail", "value")
	if collector == nil {
		return
	}
	for _, s := range collector.Steps() {
		w.append("step", s.Step, "rows_in", s.RowsIn)
		w.append("step", s.Step, "rows_out", s.RowsOut)
		w.append("step", s.Step, "dropped", s.Dropped)
		w.append("step", s.Step, "duration_seconds", s.Duration.Seconds())
	}
	for _, m := range collector.Missing() {
		w.append("missing", m.Column, "", m.Count)
	}
	for _, d := range collector.Dropped() {
		w.append("dropped", d.Op, d.Reason, d.Count)
	}
	for _, n := range collector.Notices() {
		w.append("notice", n.Op, n.Message, "")
	}
}
