// Package coerce converts raw cell text into the typed values the pipeline
// works with. Failures are reported as ok == false, never as errors: the
// calling stage drops the row and counts it.
package coerce

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/paveg/unicorns/internal/errors"
	"github.com/paveg/unicorns/internal/table"
)

// currencyStripper removes currency symbols and digit-grouping separators.
var currencyStripper = strings.NewReplacer("$", "", ",", "")

// Valuation parses a valuation cell such as "$1,200", "1200" or
// "1,200.50". Only finite, non-negative numbers are accepted.
func Valuation(raw string) (float64, bool) {
	cleaned := strings.TrimSpace(currencyStripper.Replace(strings.TrimSpace(raw)))
	if cleaned == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return validValuation(v)
}

func validValuation(v float64) (float64, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, false
	}
	return v, true
}

// dateLayouts are tried in order; the first match wins.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"1/2/2006",
	"01/02/2006",
	"2006/01/02",
	"Jan 2, 2006",
	"January 2, 2006",
	"2-Jan-2006",
	"2-Jan-06",
}

// Date parses a date_joined cell. The result is in UTC.
func Date(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// Numeric returns a column as valuations: float64 and int64 columns are
// read directly, string columns go through Valuation. Cells that are
// missing or fail coercion have valid[i] == false.
func Numeric(t *table.Table, op, column string) ([]float64, []bool, error) {
	s, exists := t.Column(column)
	if !exists {
		return nil, nil, errors.NewSchemaError(op, column)
	}

	arr := s.Array()
	defer arr.Release()

	values := make([]float64, arr.Len())
	valid := make([]bool, arr.Len())

	switch typedArr := arr.(type) {
	case *array.Float64:
		for i := range values {
			if typedArr.IsValid(i) {
				values[i], valid[i] = validValuation(typedArr.Value(i))
			}
		}
	case *array.Int64:
		for i := range values {
			if typedArr.IsValid(i) {
				values[i], valid[i] = validValuation(float64(typedArr.Value(i)))
			}
		}
	case *array.String:
		for i := range values {
			if typedArr.IsValid(i) {
				values[i], valid[i] = Valuation(typedArr.Value(i))
			}
		}
	default:
		return nil, nil, errors.NewTypeError(op, column, arr.DataType().String())
	}

	return values, valid, nil
}
