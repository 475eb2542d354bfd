// Package table provides the immutable, Arrow-backed table the pipeline
// stages pass between each other. Every operation returns a new Table that
// owns its own array references; the input stays valid and must still be
// released by its owner.
package table

import (
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/cespare/xxhash/v2"
	"github.com/paveg/unicorns/internal/errors"
	"github.com/paveg/unicorns/internal/series"
)

// ISeries provides a type-erased interface for Series of any type
type ISeries interface {
	Name() string
	Len() int
	DataType() arrow.DataType
	IsNull(index int) bool
	NullCount() int
	String() string
	Array() arrow.Array
	Release()
	GetAsString(index int) string
}

// Table represents rows of data with named, typed, nullable columns
type Table struct {
	columns map[string]ISeries
	order   []string // Maintains column order
}

// New creates a new Table from a slice of ISeries. The Table takes
// ownership of the series.
func New(series ...ISeries) *Table {
	columns := make(map[string]ISeries)
	order := make([]string, 0, len(series))

	for _, s := range series {
		name := s.Name()
		if previous, dup := columns[name]; dup {
			previous.Release()
		} else {
			order = append(order, name)
		}
		columns[name] = s
	}

	return &Table{
		columns: columns,
		order:   order,
	}
}

// Columns returns the names of all columns in order
func (t *Table) Columns() []string {
	if len(t.order) == 0 {
		return []string{}
	}
	return append([]string(nil), t.order...)
}

// Len returns the number of rows
func (t *Table) Len() int {
	if len(t.order) == 0 {
		return 0
	}
	return t.columns[t.order[0]].Len()
}

// Width returns the number of columns
func (t *Table) Width() int {
	return len(t.order)
}

// Column returns the series for the given column name
func (t *Table) Column(name string) (ISeries, bool) {
	s, exists := t.columns[name]
	return s, exists
}

// HasColumn checks if a column exists
func (t *Table) HasColumn(name string) bool {
	_, exists := t.columns[name]
	return exists
}

// Select returns a new Table with only the specified columns, in the given order.
// Unknown names are ignored.
func (t *Table) Select(names ...string) *Table {
	var selected []ISeries
	for _, name := range names {
		if s, exists := t.columns[name]; exists {
			selected = append(selected, share(s))
		}
	}
	return New(selected...)
}

// WithColumn returns a new Table where s replaces the column of the same
// name, or is appended when no such column exists. The new Table takes
// ownership of s.
func (t *Table) WithColumn(s ISeries) *Table {
	result := make([]ISeries, 0, len(t.order)+1)
	replaced := false
	for _, name := range t.order {
		if name == s.Name() {
			result = append(result, s)
			replaced = true
			continue
		}
		result = append(result, share(t.columns[name]))
	}
	if !replaced {
		result = append(result, s)
	}
	return New(result...)
}

// Take returns a new Table holding the given rows, in the given order.
func (t *Table) Take(indices []int) *Table {
	mem := memory.NewGoAllocator()
	taken := make([]ISeries, 0, len(t.order))
	for _, name := range t.order {
		taken = append(taken, takeSeries(t.columns[name], indices, mem))
	}
	return New(taken...)
}

// Filter returns a new Table holding the rows for which keep returns true.
// Row order is preserved.
func (t *Table) Filter(keep func(row int) bool) *Table {
	indices := make([]int, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		if keep(i) {
			indices = append(indices, i)
		}
	}
	return t.Take(indices)
}

// Head returns the first n rows (all rows when n exceeds the length).
func (t *Table) Head(n int) *Table {
	if n < 0 {
		n = 0
	}
	if n > t.Len() {
		n = t.Len()
	}
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	return t.Take(indices)
}

// Clone returns an independent Table sharing the same immutable arrays.
func (t *Table) Clone() *Table {
	return t.Select(t.order...)
}

// Strings returns the values and validity of a column rendered as text.
// Numeric columns are formatted; missing cells are "" with valid false.
func (t *Table) Strings(op, name string) ([]string, []bool, error) {
	s, exists := t.columns[name]
	if !exists {
		return nil, nil, errors.NewSchemaError(op, name)
	}
	values := make([]string, s.Len())
	valid := make([]bool, s.Len())
	for i := range values {
		if s.IsNull(i) {
			continue
		}
		values[i] = s.GetAsString(i)
		valid[i] = true
	}
	return values, valid, nil
}

// Record returns row i as text, missing cells as "".
func (t *Table) Record(i int) []string {
	record := make([]string, len(t.order))
	for j, name := range t.order {
		record[j] = t.columns[name].GetAsString(i)
	}
	return record
}

// RowHash fingerprints row i over every column, distinguishing missing
// cells from empty strings.
func (t *Table) RowHash(i int) uint64 {
	d := xxhash.New()
	for _, name := range t.order {
		s := t.columns[name]
		if s.IsNull(i) {
			_, _ = d.WriteString("\x00N")
		} else {
			_, _ = d.WriteString("\x00V")
			_, _ = d.WriteString(s.GetAsString(i))
		}
		_, _ = d.WriteString("\x1f")
	}
	return d.Sum64()
}

// RowsEqual reports whether rows i and j hold identical cells in every column.
func (t *Table) RowsEqual(i, j int) bool {
	for _, name := range t.order {
		s := t.columns[name]
		ni, nj := s.IsNull(i), s.IsNull(j)
		if ni != nj {
			return false
		}
		if !ni && s.GetAsString(i) != s.GetAsString(j) {
			return false
		}
	}
	return true
}

// Equal reports whether both tables have the same columns, types and cells.
func (t *Table) Equal(other *Table) bool {
	if other == nil || t.Width() != other.Width() || t.Len() != other.Len() {
		return false
	}
	for i, name := range t.order {
		if other.order[i] != name {
			return false
		}
		a, b := t.columns[name], other.columns[name]
		if !arrow.TypeEqual(a.DataType(), b.DataType()) {
			return false
		}
		for row := 0; row < t.Len(); row++ {
			if a.IsNull(row) != b.IsNull(row) {
				return false
			}
			if !a.IsNull(row) && a.GetAsString(row) != b.GetAsString(row) {
				return false
			}
		}
	}
	return true
}

// String returns a string representation of the Table
func (t *Table) String() string {
	if len(t.columns) == 0 {
		return "Table[empty]"
	}

	parts := []string{fmt.Sprintf("Table[%dx%d]", t.Len(), t.Width())}

	for _, name := range t.order {
		s := t.columns[name]
		parts = append(parts, fmt.Sprintf("  %s: %s (nulls=%d)", name, s.DataType().String(), s.NullCount()))
	}

	return strings.Join(parts, "\n")
}

// Release releases all underlying Arrow memory
func (t *Table) Release() {
	for _, s := range t.columns {
		s.Release()
	}
}

// Wrap builds a type-erased series around arr, taking over one reference.
func Wrap(name string, arr arrow.Array) ISeries {
	switch arr.(type) {
	case *array.String:
		return series.FromArray[string](name, arr)
	case *array.Int64:
		return series.FromArray[int64](name, arr)
	case *array.Float64:
		return series.FromArray[float64](name, arr)
	case *array.Boolean:
		return series.FromArray[bool](name, arr)
	default:
		panic(fmt.Sprintf("unsupported array type: %T", arr))
	}
}

// Cell returns the native Go value of row i of s, nil when the cell is missing.
func Cell(s ISeries, i int) any {
	if s.IsNull(i) {
		return nil
	}
	arr := s.Array()
	defer arr.Release()

	if v := series.ValueAt(arr, i); v != nil {
		return v
	}
	return s.GetAsString(i)
}

// share returns a new series holding its own reference to the array of s.
func share(s ISeries) ISeries {
	return Wrap(s.Name(), s.Array())
}

// takeSeries copies the selected rows of s into an independent series
func takeSeries(s ISeries, indices []int, mem memory.Allocator) ISeries {
	arr := s.Array()
	defer arr.Release()

	switch typedArr := arr.(type) {
	case *array.String:
		return takeTyped(s.Name(), typedArr, indices, mem, typedArr.Value)
	case *array.Int64:
		return takeTyped(s.Name(), typedArr, indices, mem, typedArr.Value)
	case *array.Float64:
		return takeTyped(s.Name(), typedArr, indices, mem, typedArr.Value)
	case *array.Boolean:
		return takeTyped(s.Name(), typedArr, indices, mem, typedArr.Value)
	default:
		panic(fmt.Sprintf("unsupported array type: %T", arr))
	}
}

// takeTyped is a generic helper for copying rows of a typed array
func takeTyped[T any](
	name string, arr arrow.Array, indices []int, mem memory.Allocator, getValue func(int) T,
) ISeries {
	values := make([]T, len(indices))
	valid := make([]bool, len(indices))
	for j, i := range indices {
		if arr.IsValid(i) {
			values[j] = getValue(i)
			valid[j] = true
		}
	}
	return series.NewNullable(name, values, valid, mem)
}
