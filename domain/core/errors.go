package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound          = errors.New("resource not found")
	ErrRunNotFound       = fmt.Errorf("%w: run", ErrNotFound)
	ErrParameterNotFound = fmt.Errorf("%w: parameter", ErrNotFound)

	// Validation errors
	ErrMissingColumn     = errors.New("missing required column")
	ErrEmptyDataset      = errors.New("empty dataset after filtering")
	ErrDimensionMismatch = errors.New("dimension mismatch")
	ErrInvalidPrior      = errors.New("invalid prior")
	ErrNonNumeric        = errors.New("non-numeric value")

	// Sampling errors
	ErrSamplerFailed = errors.New("posterior sampling failed")
)

// Error constructors with context
func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

func NewMissingColumnError(column string) error {
	return fmt.Errorf("%w: %q", ErrMissingColumn, column)
}

func NewDimensionMismatchError(what string, want, got int) error {
	return fmt.Errorf("%w: %s expects %d, got %d", ErrDimensionMismatch, what, want, got)
}

func NewInvalidPriorError(param string, reason string) error {
	return fmt.Errorf("%w for %s: %s", ErrInvalidPrior, param, reason)
}

func NewNonNumericError(column string, row int, value string) error {
	return fmt.Errorf("%w in column %q at row %d: %q", ErrNonNumeric, column, row, value)
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsValidationError(err error) bool {
	return errors.Is(err, ErrMissingColumn) ||
		errors.Is(err, ErrEmptyDataset) ||
		errors.Is(err, ErrDimensionMismatch) ||
		errors.Is(err, ErrInvalidPrior) ||
		errors.Is(err, ErrNonNumeric)
}
