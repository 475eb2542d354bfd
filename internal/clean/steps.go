// Package clean implements the Cleaner: the fixed sequence of column repairs
// and row filters that turns a raw unicorn table into the canonical cleaned
// table.
//
// Every step takes a Table and returns a new one; the input is never
// modified and must still be released by its owner.
package clean

import (
	"fmt"
	"strings"

	"github.com/paveg/unicorns/internal/coerce"
	"github.com/paveg/unicorns/internal/monitoring"
	"github.com/paveg/unicorns/internal/series"
	"github.com/paveg/unicorns/internal/table"
	"github.com/paveg/unicorns/internal/validation"
)

// MissingReport holds the missing-value count of every column, in column order.
type MissingReport struct {
	Columns []monitoring.MissingCount
	Rows    int
}

// Count returns the missing count of column, 0 when it is unknown.
func (r MissingReport) Count(column string) int {
	for _, c := range r.Columns {
		if c.Column == column {
			return c.Count
		}
	}
	return 0
}

// Total returns the number of missing cells across all columns.
func (r MissingReport) Total() int {
	total := 0
	for _, c := range r.Columns {
		total += c.Count
	}
	return total
}

// String renders the report as one "column: count" line per column.
func (r MissingReport) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Missing values per column (%d rows):", r.Rows)
	for _, c := range r.Columns {
		fmt.Fprintf(&b, "\n  %s: %d", c.Column, c.Count)
	}
	return b.String()
}

// MissingValues counts missing cells per column. It never fails.
func MissingValues(tbl *table.Table) MissingReport {
	report := MissingReport{Rows: tbl.Len(), Columns: make([]monitoring.MissingCount, 0, tbl.Width())}
	for _, name := range tbl.Columns() {
		col, _ := tbl.Column(name)
		report.Columns = append(report.Columns, monitoring.MissingCount{Column: name, Count: col.NullCount()})
	}
	return report
}

// BackfillCity sets city to country wherever city is missing and country is
// present. A row missing both keeps a missing city.
func BackfillCity(tbl *table.Table) (*table.Table, error) {
	const op = "BackfillCity"

	cities, cityValid, err := tbl.Strings(op, validation.ColumnCity)
	if err != nil {
		return nil, err
	}
	countries, countryValid, err := tbl.Strings(op, validation.ColumnCountry)
	if err != nil {
		return nil, err
	}

	for i := range cities {
		if !cityValid[i] && countryValid[i] {
			cities[i] = countries[i]
			cityValid[i] = true
		}
	}
	return tbl.WithColumn(series.NewNullable(validation.ColumnCity, cities, cityValid, nil)), nil
}

// DropMissingInvestors removes rows whose select_investors is missing.
func DropMissingInvestors(tbl *table.Table) (*table.Table, error) {
	const op = "DropMissingInvestors"

	if err := validation.ValidateColumns(tbl, op, validation.ColumnSelectInvestors); err != nil {
		return nil, err
	}
	investors, _ := tbl.Column(validation.ColumnSelectInvestors)
	return tbl.Filter(func(row int) bool { return !investors.IsNull(row) }), nil
}

// Deduplicate removes rows identical to an earlier row across every column,
// keeping the first occurrence. Missing cells compare equal to each other
// and unequal to any value.
func Deduplicate(tbl *table.Table) *table.Table {
	seen := make(map[uint64][]int, tbl.Len())
	return tbl.Filter(func(row int) bool {
		h := tbl.RowHash(row)
		for _, earlier := range seen[h] {
			if tbl.RowsEqual(earlier, row) {
				return false
			}
		}
		seen[h] = append(seen[h], row)
		return true
	})
}

// NormalizeValuation coerces valuation to a float64 column. Text values have
// currency symbols and grouping separators stripped first; rows whose value
// cannot be coerced, or is negative or not finite, are dropped.
func NormalizeValuation(tbl *table.Table) (*table.Table, error) {
	values, valid, err := coerce.Numeric(tbl, "NormalizeValuation", validation.ColumnValuation)
	if err != nil {
		return nil, err
	}

	normalized := tbl.WithColumn(series.NewNullable(validation.ColumnValuation, values, valid, nil))
	defer normalized.Release()

	return normalized.Filter(func(row int) bool { return valid[row] }), nil
}
