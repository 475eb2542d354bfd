// Package errors provides the error taxonomy of the unicorn pipeline.
// Structural failures (unreadable input, missing columns) are reported as
// PipelineError with a Kind; value-level coercion failures are never errors
// and are only counted by the diagnostics collector.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind classifies a PipelineError.
type Kind int

const (
	// KindInternal is an unexpected failure inside a pipeline stage.
	KindInternal Kind = iota
	// KindLoad means the input could not be read or parsed. Fatal.
	KindLoad
	// KindSchema means a required column is absent or has an unusable type. Fatal.
	KindSchema
	// KindInsufficientData means a stage had too little data to produce a
	// result. Callers degrade to an empty or partial result.
	KindInsufficientData
	// KindInvalidInput means an argument was out of range.
	KindInvalidInput
)

var kindNames = map[Kind]string{
	KindInternal:         "internal",
	KindLoad:             "load",
	KindSchema:           "schema",
	KindInsufficientData: "insufficient data",
	KindInvalidInput:     "invalid input",
}

// String returns the kind name.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int(k))
}

// PipelineError is returned by every pipeline operation that fails structurally.
type PipelineError struct {
	Kind    Kind   // Error class
	Op      string // Operation name (e.g., "Load", "DropMissingInvestors")
	Column  string // Column name if applicable
	Message string // Human-readable error description
	Cause   error  // Underlying error cause
}

// Error implements the error interface
func (e *PipelineError) Error() string {
	msg := e.Message
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	if e.Column != "" {
		return fmt.Sprintf("%s %s error on column '%s': %s", e.Op, e.Kind, e.Column, msg)
	}
	return fmt.Sprintf("%s %s error: %s", e.Op, e.Kind, msg)
}

// Unwrap returns the underlying cause for error wrapping support
func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// Is matches by Kind, so errors.Is(err, ErrSchema) holds for any schema
// error regardless of operation or column.
func (e *PipelineError) Is(target error) bool {
	if pe, ok := target.(*PipelineError); ok {
		return e.Kind == pe.Kind
	}
	return false
}

// Sentinels for errors.Is checks.
var (
	ErrInternal         = &PipelineError{Kind: KindInternal, Message: "internal error occurred"}
	ErrLoad             = &PipelineError{Kind: KindLoad, Message: "input could not be loaded"}
	ErrSchema           = &PipelineError{Kind: KindSchema, Message: "required column missing"}
	ErrInsufficientData = &PipelineError{Kind: KindInsufficientData, Message: "not enough data"}
	ErrInvalidInput     = &PipelineError{Kind: KindInvalidInput, Message: "invalid argument"}
)

// NewLoadError wraps a read or parse failure of the input source.
func NewLoadError(op string, cause error) *PipelineError {
	return &PipelineError{
		Kind:    KindLoad,
		Op:      op,
		Message: "input unreadable or malformed",
		Cause:   cause,
	}
}

// NewSchemaError reports a required column that does not exist.
func NewSchemaError(op, column string) *PipelineError {
	return &PipelineError{
		Kind:    KindSchema,
		Op:      op,
		Column:  column,
		Message: "column does not exist",
	}
}

// NewTypeError reports a column whose type cannot serve the operation.
func NewTypeError(op, column, typeName string) *PipelineError {
	return &PipelineError{
		Kind:    KindSchema,
		Op:      op,
		Column:  column,
		Message: fmt.Sprintf("unsupported column type: %s", typeName),
	}
}

// NewInsufficientDataError reports a stage that had too little data.
func NewInsufficientDataError(op, message string) *PipelineError {
	return &PipelineError{
		Kind:    KindInsufficientData,
		Op:      op,
		Message: message,
	}
}

// NewInvalidInputError creates an error for invalid operation inputs
func NewInvalidInputError(op, message string) *PipelineError {
	return &PipelineError{
		Kind:    KindInvalidInput,
		Op:      op,
		Message: message,
	}
}

// NewInternalError creates an error for internal operation failures
func NewInternalError(op string, cause error) *PipelineError {
	return &PipelineError{
		Kind:    KindInternal,
		Op:      op,
		Message: "internal error occurred",
		Cause:   cause,
	}
}

// IsFatal reports whether err should abort the pipeline. Anything that is
// not a PipelineError of KindInsufficientData is fatal.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var pe *PipelineError
	if stderrors.As(err, &pe) {
		return pe.Kind != KindInsufficientData
	}
	return true
}
