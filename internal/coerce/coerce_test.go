package coerce_test

import (
	"math"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/unicorns/internal/coerce"
	"github.com/paveg/unicorns/internal/errors"
	"github.com/paveg/unicorns/internal/series"
	"github.com/paveg/unicorns/internal/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValuation(t *testing.T) {
	tests := []struct {
		raw      string
		expected float64
		ok       bool
	}{
		{"$1,200", 1200, true},
		{"1200", 1200, true},
		{"1,200.50", 1200.5, true},
		{" $180 ", 180, true},
		{"$0", 0, true},
		{"N/A", 0, false},
		{"", 0, false},
		{"$", 0, false},
		{"-5", 0, false},
		{"NaN", 0, false},
		{"Inf", 0, false},
		{"12B", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := coerce.Valuation(tt.raw)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.expected, got, 1e-9)
		})
	}
}

func TestDate(t *testing.T) {
	want := time.Date(2017, time.April, 7, 0, 0, 0, 0, time.UTC)

	for _, raw := range []string{"2017-04-07", "4/7/2017", "04/07/2017", "2017/04/07", "Apr 7, 2017", "April 7, 2017", "7-Apr-2017"} {
		t.Run(raw, func(t *testing.T) {
			got, ok := coerce.Date(raw)
			require.True(t, ok)
			assert.True(t, want.Equal(got), "got %s", got)
		})
	}

	withZone, ok := coerce.Date("2017-04-07T23:30:00-05:00")
	require.True(t, ok)
	assert.Equal(t, 2017, withZone.Year())
	assert.Equal(t, time.UTC, withZone.Location())

	for _, raw := range []string{"", "not a date", "2017-13-45", "N/A"} {
		_, ok := coerce.Date(raw)
		assert.False(t, ok, raw)
	}
}

func TestNumeric(t *testing.T) {
	mem := memory.NewGoAllocator()

	t.Run("string column", func(t *testing.T) {
		tbl := table.New(series.NewNullable("valuation", []string{"$1,200", "N/A", ""}, []bool{true, true, false}, mem))
		defer tbl.Release()

		values, valid, err := coerce.Numeric(tbl, "Test", "valuation")
		require.NoError(t, err)
		assert.Equal(t, []bool{true, false, false}, valid)
		assert.InDelta(t, 1200, values[0], 1e-9)
	})

	t.Run("numeric columns", func(t *testing.T) {
		tbl := table.New(
			series.New("f", []float64{1.5, math.NaN(), -1}, mem),
			series.New("i", []int64{3, 0, -2}, mem),
		)
		defer tbl.Release()

		_, valid, err := coerce.Numeric(tbl, "Test", "f")
		require.NoError(t, err)
		assert.Equal(t, []bool{true, false, false}, valid)

		values, valid, err := coerce.Numeric(tbl, "Test", "i")
		require.NoError(t, err)
		assert.Equal(t, []bool{true, true, false}, valid)
		assert.InDelta(t, 3, values[0], 1e-9)
	})

	t.Run("errors", func(t *testing.T) {
		tbl := table.New(series.New("flag", []bool{true}, mem))
		defer tbl.Release()

		_, _, err := coerce.Numeric(tbl, "Test", "flag")
		assert.ErrorIs(t, err, errors.ErrSchema)

		_, _, err = coerce.Numeric(tbl, "Test", "valuation")
		assert.ErrorIs(t, err, errors.ErrSchema)
	})
}
