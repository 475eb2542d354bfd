package series_test

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/unicorns/internal/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	mem := memory.NewGoAllocator()

	t.Run("string series", func(t *testing.T) {
		s := series.New("company", []string{"Bytedance", "SpaceX"}, mem)
		defer s.Release()

		assert.Equal(t, "company", s.Name())
		assert.Equal(t, 2, s.Len())
		assert.Equal(t, 0, s.NullCount())
		assert.Equal(t, arrow.BinaryTypes.String, s.DataType())
		assert.Equal(t, []string{"Bytedance", "SpaceX"}, s.Values())
	})

	t.Run("float series", func(t *testing.T) {
		s := series.New("valuation", []float64{180, 100.3}, mem)
		defer s.Release()

		assert.InDelta(t, 100.3, s.Value(1), 1e-9)
		assert.Equal(t, "100.3", s.GetAsString(1))
		assert.Equal(t, "180", s.GetAsString(0))
	})

	t.Run("unsupported type panics", func(t *testing.T) {
		assert.Panics(t, func() {
			series.New("x", []complex64{1}, mem)
		})
	})
}

func TestNewNullable(t *testing.T) {
	mem := memory.NewGoAllocator()

	s := series.NewNullable("city", []string{"Beijing", "", "Austin"}, []bool{true, false, true}, mem)
	defer s.Release()

	assert.Equal(t, 3, s.Len())
	assert.Equal(t, 1, s.NullCount())
	assert.False(t, s.IsNull(0))
	assert.True(t, s.IsNull(1))
	assert.Equal(t, "", s.Value(1))
	assert.Equal(t, "", s.GetAsString(1))
	assert.Equal(t, []bool{true, false, true}, s.Valid())

	t.Run("mismatched validity panics", func(t *testing.T) {
		assert.Panics(t, func() {
			series.NewNullable("x", []int64{1, 2}, []bool{true}, mem)
		})
	})
}

func TestValueOutOfRange(t *testing.T) {
	s := series.New("n", []int64{7}, memory.NewGoAllocator())
	defer s.Release()

	assert.Equal(t, int64(0), s.Value(-1))
	assert.Equal(t, int64(0), s.Value(5))
	assert.Equal(t, "", s.GetAsString(5))
}

func TestFromArray(t *testing.T) {
	mem := memory.NewGoAllocator()
	original := series.New("flag", []bool{true, false}, mem)
	defer original.Release()

	arr := original.Array()
	wrapped := series.FromArray[bool]("renamed", arr)
	defer wrapped.Release()

	assert.Equal(t, "renamed", wrapped.Name())
	assert.Equal(t, []bool{true, false}, wrapped.Values())
	assert.Equal(t, "true", wrapped.GetAsString(0))

	typed, ok := arr.(*array.Boolean)
	require.True(t, ok)
	assert.False(t, typed.Value(1))
}

func TestString(t *testing.T) {
	s := series.NewNullable("valuation", []float64{1, 0}, []bool{true, false}, memory.NewGoAllocator())
	defer s.Release()

	assert.Equal(t, "Series[float64]: valuation (len=2, nulls=1)", s.String())
}
