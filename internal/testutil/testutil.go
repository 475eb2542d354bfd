// Package testutil provides the fixtures shared by the pipeline tests:
// memory allocator setup, unicorn tables built from literal rows and table
// assertions.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/unicorns/internal/series"
	"github.com/paveg/unicorns/internal/table"
	"github.com/paveg/unicorns/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Null marks a missing cell in a UnicornRow.
const Null = "\x00null"

const (
	// defaultRowCount is the number of rows in the sample table.
	defaultRowCount = 8
)

// TestMemoryContext provides memory allocator with automatic cleanup.
type TestMemoryContext struct {
	Allocator memory.Allocator
	checked   *memory.CheckedAllocator
	tb        testing.TB
}

// Release asserts that every Arrow buffer allocated in the test was freed.
func (tmc *TestMemoryContext) Release() {
	tmc.checked.AssertSize(tmc.tb, 0)
}

// SetupMemoryTest creates a leak-checking allocator for tests.
// Returns a TestMemoryContext that should be released with defer.
//
// Example usage:
//
//	mem := testutil.SetupMemoryTest(t)
//	defer mem.Release()
func SetupMemoryTest(tb testing.TB) *TestMemoryContext {
	tb.Helper()
	checked := memory.NewCheckedAllocator(memory.NewGoAllocator())
	return &TestMemoryContext{
		Allocator: checked,
		checked:   checked,
		tb:        tb,
	}
}

// UnicornRow is one raw input row as text. Use Null for a missing cell.
type UnicornRow struct {
	Company    string
	Valuation  string
	DateJoined string
	Country    string
	City       string
	Industry   string
	Investors  string
}

// UnicornColumns is the column order of tables built by NewUnicornTable.
var UnicornColumns = []string{
	validation.ColumnCompany,
	validation.ColumnValuation,
	validation.ColumnDateJoined,
	validation.ColumnCountry,
	validation.ColumnCity,
	validation.ColumnIndustry,
	validation.ColumnSelectInvestors,
}

// NewUnicornTable builds a raw table with string columns from rows.
func NewUnicornTable(allocator memory.Allocator, rows ...UnicornRow) *table.Table {
	cells := make([][]string, len(UnicornColumns))
	for _, r := range rows {
		for i, v := range []string{r.Company, r.Valuation, r.DateJoined, r.Country, r.City, r.Industry, r.Investors} {
			cells[i] = append(cells[i], v)
		}
	}

	seriesList := make([]table.ISeries, 0, len(UnicornColumns))
	for i, name := range UnicornColumns {
		seriesList = append(seriesList, NullableStrings(allocator, name, cells[i]...))
	}
	return table.New(seriesList...)
}

// NullableStrings builds a string series where Null cells are missing.
func NullableStrings(allocator memory.Allocator, name string, cells ...string) *series.Series[string] {
	values := make([]string, len(cells))
	valid := make([]bool, len(cells))
	for i, c := range cells {
		if c != Null {
			values[i] = c
			valid[i] = true
		}
	}
	return series.NewNullable(name, values, valid, allocator)
}

// SampleRows returns n rows drawn from a fixed pool of companies, with
// currency-formatted valuations, a missing city and a missing investor list.
func SampleRows(n int) []UnicornRow {
	pool := []UnicornRow{
		{"Bytedance", "$180", "2017-04-07", "China", "Beijing", "Artificial intelligence", "Sequoia Capital China"},
		{"SpaceX", "$100.3", "2012-12-01", "United States", "Hawthorne", "Other", "Founders Fund"},
		{"Stripe", "$95", "2014-01-23", "United States", "San Francisco", "Fintech", "Khosla Ventures"},
		{"Klarna", "$45.6", "2011-12-12", "Sweden", Null, "Fintech", "Institutional Venture Partners"},
		{"Canva", "$40", "2018-01-08", "Australia", "Surry Hills", "Internet software & services", "Sequoia Capital China"},
		{"Checkout.com", "$40", "2019-05-02", "United Kingdom", "London", "Fintech", Null},
		{"Instacart", "$39", "2014-12-30", "United States", "San Francisco", "Supply chain, logistics, & delivery", "Khosla Ventures"},
		{"Databricks", "$38", "2019-02-05", "United States", "San Francisco", "Data management & analytics", "Andreessen Horowitz"},
	}
	rows := make([]UnicornRow, n)
	for i := range rows {
		rows[i] = pool[i%len(pool)]
	}
	return rows
}

// CreateTestTable creates the sample raw unicorn table.
//
// Example usage:
//
//	mem := testutil.SetupMemoryTest(t)
//	defer mem.Release()
//	tbl := testutil.CreateTestTable(mem.Allocator)
//	defer tbl.Release()
func CreateTestTable(allocator memory.Allocator) *table.Table {
	return NewUnicornTable(allocator, SampleRows(defaultRowCount)...)
}

// WriteFile writes content to name inside a fresh temporary directory and
// returns its path.
func WriteFile(tb testing.TB, name, content string) string {
	tb.Helper()
	path := filepath.Join(tb.TempDir(), name)
	require.NoError(tb, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// AssertTableEqual performs deep equality comparison of Tables.
func AssertTableEqual(t *testing.T, expected, actual *table.Table) {
	t.Helper()

	require.NotNil(t, expected, "expected Table should not be nil")
	require.NotNil(t, actual, "actual Table should not be nil")

	assert.Equal(t, expected.Columns(), actual.Columns(), "Table columns should match")
	require.Equal(t, expected.Len(), actual.Len(), "Table lengths should match")

	for i := 0; i < expected.Len(); i++ {
		assert.Equal(t, expected.Record(i), actual.Record(i), "row %d should match", i)
	}
	assert.True(t, expected.Equal(actual), "Tables should match in types and nulls")
}

// AssertTableHasColumns verifies that a Table has the expected columns.
func AssertTableHasColumns(t *testing.T, tbl *table.Table, expectedColumns []string) {
	t.Helper()

	require.NotNil(t, tbl, "Table should not be nil")
	assert.Len(t, tbl.Columns(), len(expectedColumns), "column count should match")

	for _, col := range expectedColumns {
		assert.True(t, tbl.HasColumn(col), "Table should have column %s", col)
	}
}

// ColumnStrings returns a column rendered as text, Null for missing cells.
func ColumnStrings(t *testing.T, tbl *table.Table, name string) []string {
	t.Helper()

	values, valid, err := tbl.Strings("test", name)
	require.NoError(t, err)
	for i := range values {
		if !valid[i] {
			values[i] = Null
		}
	}
	return values
}
