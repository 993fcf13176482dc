package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"

	"bayesreg/domain/core"
)

// AppError represents a structured application error
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with additional context. The code is taken from an
// AppError in the chain, otherwise derived from the domain sentinel it wraps.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return &AppError{
		Code:    Code(err),
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with formatted additional context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// WithCode adds an error code to an existing error
func WithCode(code string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return &AppError{
			Code:    code,
			Message: appErr.Message,
			Cause:   appErr.Cause,
		}
	}
	return &AppError{
		Code:    code,
		Message: err.Error(),
		Cause:   err,
	}
}

// IsAppError checks if an error chain contains an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// GetCode returns the code of an error, or "" for nil
func GetCode(err error) string {
	if err == nil {
		return ""
	}
	return Code(err)
}

// Predefined error codes
const (
	CodeConfigInvalid     = "CONFIG_INVALID"
	CodeDatabaseError     = "DATABASE_ERROR"
	CodeValidationError   = "VALIDATION_ERROR"
	CodeNotFound          = "NOT_FOUND"
	CodeInternalError     = "INTERNAL_ERROR"
	CodeInvalidInput      = "INVALID_INPUT"
	CodeMissingColumn     = "MISSING_COLUMN"
	CodeEmptyDataset      = "EMPTY_DATASET"
	CodeDimensionMismatch = "DIMENSION_MISMATCH"
	CodeSamplerError      = "SAMPLER_ERROR"
	CodeCanceled          = "CANCELED"
)

// Code classifies an error by the first AppError or domain sentinel in its chain
func Code(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	switch {
	case stderrors.Is(err, core.ErrMissingColumn):
		return CodeMissingColumn
	case stderrors.Is(err, core.ErrEmptyDataset):
		return CodeEmptyDataset
	case stderrors.Is(err, core.ErrDimensionMismatch):
		return CodeDimensionMismatch
	case stderrors.Is(err, core.ErrInvalidPrior), stderrors.Is(err, core.ErrNonNumeric):
		return CodeInvalidInput
	case stderrors.Is(err, core.ErrNotFound):
		return CodeNotFound
	case stderrors.Is(err, core.ErrSamplerFailed):
		return CodeSamplerError
	case stderrors.Is(err, context.Canceled), stderrors.Is(err, context.DeadlineExceeded):
		return CodeCanceled
	}
	return CodeInternalError
}

// HTTPStatus maps an error to a response status
func HTTPStatus(err error) int {
	switch Code(err) {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeInvalidInput, CodeValidationError, CodeMissingColumn, CodeEmptyDataset, CodeDimensionMismatch:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// ExitCode maps an error to a process exit status: 2 for bad input or
// configuration, 1 otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch Code(err) {
	case CodeInvalidInput, CodeValidationError, CodeMissingColumn, CodeEmptyDataset,
		CodeDimensionMismatch, CodeConfigInvalid:
		return 2
	}
	return 1
}

// Common error constructors
func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}

func DatabaseError(message string) *AppError {
	return New(CodeDatabaseError, message)
}

func ValidationError(message string) *AppError {
	return New(CodeValidationError, message)
}

func NotFound(resource string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource))
}

func InternalError(message string) *AppError {
	return New(CodeInternalError, message)
}

func InvalidInput(message string) *AppError {
	return New(CodeInvalidInput, message)
}

func SamplerError(cause error) *AppError {
	return &AppError{
		Code:    CodeSamplerError,
		Message: "posterior sampling failed",
		Cause:   cause,
	}
}
