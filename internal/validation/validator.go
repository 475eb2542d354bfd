// Package validation provides the schema checks run at the start of each
// pipeline stage, so a missing column fails fast with a schema error instead
// of surfacing deep inside an aggregation.
package validation

import (
	"fmt"

	"github.com/paveg/unicorns/internal/errors"
)

// The columns the pipeline reads.
const (
	ColumnCompany         = "company"
	ColumnCity            = "city"
	ColumnCountry         = "country"
	ColumnSelectInvestors = "select_investors"
	ColumnValuation       = "valuation"
	ColumnIndustry        = "industry"
	ColumnDateJoined      = "date_joined"
)

// RequiredColumns lists every column the full pipeline needs.
var RequiredColumns = []string{
	ColumnCompany,
	ColumnCity,
	ColumnCountry,
	ColumnSelectInvestors,
	ColumnValuation,
	ColumnIndustry,
	ColumnDateJoined,
}

// Validator interface for input validation
type Validator interface {
	Validate() error
}

// ColumnProvider interface for types that provide column information
type ColumnProvider interface {
	HasColumn(name string) bool
	Columns() []string
	Len() int
	Width() int
}

// ColumnValidator validates column existence
type ColumnValidator struct {
	tbl     ColumnProvider
	columns []string
	op      string
}

// NewColumnValidator creates a validator for column operations
func NewColumnValidator(tbl ColumnProvider, op string, columns ...string) *ColumnValidator {
	return &ColumnValidator{
		tbl:     tbl,
		columns: columns,
		op:      op,
	}
}

// Validate checks if all columns exist, reporting the first missing one
func (v *ColumnValidator) Validate() error {
	for _, column := range v.columns {
		if !v.tbl.HasColumn(column) {
			return errors.NewSchemaError(v.op, column)
		}
	}
	return nil
}

// RangeValidator validates that an integer argument lies in [min, max].
// A max below min means unbounded above.
type RangeValidator struct {
	name     string
	value    int
	min, max int
	op       string
}

// NewNonNegativeValidator creates a validator for counts such as n or horizon.
func NewNonNegativeValidator(op, name string, value int) *RangeValidator {
	return &RangeValidator{name: name, value: value, min: 0, max: -1, op: op}
}

// NewRangeValidator creates a validator for a bounded argument.
func NewRangeValidator(op, name string, value, minValue, maxValue int) *RangeValidator {
	return &RangeValidator{name: name, value: value, min: minValue, max: maxValue, op: op}
}

// Validate checks the bounds
func (v *RangeValidator) Validate() error {
	if v.value < v.min {
		return errors.NewInvalidInputError(v.op, fmt.Sprintf("%s must be at least %d, got %d", v.name, v.min, v.value))
	}
	if v.max >= v.min && v.value > v.max {
		return errors.NewInvalidInputError(v.op, fmt.Sprintf("%s must be at most %d, got %d", v.name, v.max, v.value))
	}
	return nil
}

// CompoundValidator combines multiple validators
type CompoundValidator struct {
	validators []Validator
}

// NewCompoundValidator creates a validator that checks multiple conditions
func NewCompoundValidator(validators ...Validator) *CompoundValidator {
	return &CompoundValidator{
		validators: validators,
	}
}

// Validate runs all validators and returns the first error encountered
func (v *CompoundValidator) Validate() error {
	for _, validator := range v.validators {
		if err := validator.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ValidateColumns is a convenience function for column validation
func ValidateColumns(tbl ColumnProvider, op string, columns ...string) error {
	return NewColumnValidator(tbl, op, columns...).Validate()
}

// ValidateNonNegative is a convenience function for count arguments
func ValidateNonNegative(op, name string, value int) error {
	return NewNonNegativeValidator(op, name, value).Validate()
}
