package validation_test

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/unicorns/internal/errors"
	"github.com/paveg/unicorns/internal/series"
	"github.com/paveg/unicorns/internal/table"
	"github.com/paveg/unicorns/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColumnValidator(t *testing.T) {
	mem := memory.NewGoAllocator()
	tbl := table.New(
		series.New(validation.ColumnCompany, []string{"a"}, mem),
		series.New(validation.ColumnValuation, []float64{1}, mem),
	)
	defer tbl.Release()

	t.Run("all present", func(t *testing.T) {
		assert.NoError(t, validation.ValidateColumns(tbl, "TopN", validation.ColumnCompany, validation.ColumnValuation))
	})

	t.Run("first missing column is reported", func(t *testing.T) {
		err := validation.ValidateColumns(tbl, "Trend", validation.ColumnIndustry, validation.ColumnDateJoined)
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrSchema)

		var pe *errors.PipelineError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, validation.ColumnIndustry, pe.Column)
		assert.Equal(t, "Trend", pe.Op)
	})
}

func TestRangeValidator(t *testing.T) {
	assert.NoError(t, validation.ValidateNonNegative("TopN", "n", 0))
	assert.ErrorIs(t, validation.ValidateNonNegative("TopN", "n", -1), errors.ErrInvalidInput)

	assert.NoError(t, validation.NewRangeValidator("Project", "degree", 2, 1, 3).Validate())
	err := validation.NewRangeValidator("Project", "degree", 4, 1, 3).Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "degree must be at most 3, got 4")
}

func TestCompoundValidator(t *testing.T) {
	mem := memory.NewGoAllocator()
	tbl := table.New(series.New(validation.ColumnValuation, []float64{1}, mem))
	defer tbl.Release()

	v := validation.NewCompoundValidator(
		validation.NewNonNegativeValidator("TopN", "n", 3),
		validation.NewColumnValidator(tbl, "TopN", validation.ColumnValuation),
	)
	assert.NoError(t, v.Validate())

	v = validation.NewCompoundValidator(
		validation.NewNonNegativeValidator("TopN", "n", -3),
		validation.NewColumnValidator(tbl, "TopN", "missing"),
	)
	assert.ErrorIs(t, v.Validate(), errors.ErrInvalidInput)
}
