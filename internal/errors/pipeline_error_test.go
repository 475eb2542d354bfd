package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/paveg/unicorns/internal/errors"
	"github.com/stretchr/testify/assert"
)

func TestPipelineError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *errors.PipelineError
		expected string
	}{
		{
			name:     "schema error with column",
			err:      errors.NewSchemaError("DropMissingInvestors", "select_investors"),
			expected: "DropMissingInvestors schema error on column 'select_investors': column does not exist",
		},
		{
			name:     "invalid input without column",
			err:      errors.NewInvalidInputError("TopN", "n must be non-negative"),
			expected: "TopN invalid input error: n must be non-negative",
		},
		{
			name:     "load error includes cause",
			err:      errors.NewLoadError("Load", stderrors.New("wrong number of fields")),
			expected: "Load load error: input unreadable or malformed: wrong number of fields",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestPipelineError_Unwrap(t *testing.T) {
	cause := stderrors.New("underlying error")
	err := errors.NewLoadError("Load", cause)

	assert.Equal(t, cause, err.Unwrap())
	assert.ErrorIs(t, err, cause)
}

func TestPipelineError_Is(t *testing.T) {
	schema := errors.NewSchemaError("TopN", "valuation")
	wrapped := fmt.Errorf("aggregating: %w", schema)

	assert.ErrorIs(t, schema, errors.ErrSchema)
	assert.ErrorIs(t, wrapped, errors.ErrSchema)
	assert.NotErrorIs(t, wrapped, errors.ErrLoad)
	assert.ErrorIs(t, errors.NewTypeError("TopN", "valuation", "bool"), errors.ErrSchema)
	assert.ErrorIs(t, errors.NewInsufficientDataError("Project", "empty"), errors.ErrInsufficientData)

	var pe *errors.PipelineError
	assert.True(t, stderrors.As(wrapped, &pe))
	assert.Equal(t, "valuation", pe.Column)
}

func TestIsFatal(t *testing.T) {
	assert.False(t, errors.IsFatal(nil))
	assert.True(t, errors.IsFatal(errors.NewLoadError("Load", nil)))
	assert.True(t, errors.IsFatal(errors.NewSchemaError("Clean", "valuation")))
	assert.True(t, errors.IsFatal(stderrors.New("boom")))
	assert.False(t, errors.IsFatal(fmt.Errorf("wrapped: %w", errors.NewInsufficientDataError("Project", "no rows"))))
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "schema", errors.KindSchema.String())
	assert.Equal(t, "insufficient data", errors.KindInsufficientData.String())
	assert.Equal(t, "unknown(42)", errors.Kind(42).String())
}
