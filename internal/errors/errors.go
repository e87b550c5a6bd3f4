// Package errors defines the structured errors returned by the service and data layers.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode categorises an AppError.
type ErrorCode string

const (
	ErrCodeNotFound   ErrorCode = "not_found"
	ErrCodeConflict   ErrorCode = "conflict"
	ErrCodeValidation ErrorCode = "validation"
	ErrCodeForeignKey ErrorCode = "foreign_key"
	ErrCodeTransient  ErrorCode = "transient"
	ErrCodeInternal   ErrorCode = "internal"
	ErrCodeTimeout    ErrorCode = "timeout"
	ErrCodeCanceled   ErrorCode = "canceled"
)

// AppError is an error with a code, a human readable message and an optional cause.
type AppError struct {
	Code    ErrorCode
	Message string
	// Field names the offending input field, if known.
	Field string
	Cause error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the cause.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// New returns an AppError without a cause.
func New(code ErrorCode, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// NotFound returns a not-found error.
func NotFound(format string, args ...any) *AppError {
	return New(ErrCodeNotFound, format, args...)
}

// Validation returns a validation error.
func Validation(format string, args ...any) *AppError {
	return New(ErrCodeValidation, format, args...)
}

// ValidationField returns a validation error for field.
func ValidationField(field, message string) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: message, Field: field}
}

// Wrap attaches code and message to err. It returns nil for a nil err.
func Wrap(err error, code ErrorCode, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...), Cause: err}
}

// Code returns the code of the first AppError in err's chain.
func Code(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// Field returns the field of the first AppError in err's chain.
func Field(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Field
	}
	return ""
}

// Is reports whether err carries code.
func Is(err error, code ErrorCode) bool {
	return code != "" && Code(err) == code
}

func IsNotFound(err error) bool   { return Is(err, ErrCodeNotFound) }
func IsConflict(err error) bool   { return Is(err, ErrCodeConflict) }
func IsValidation(err error) bool { return Is(err, ErrCodeValidation) }
func IsTransient(err error) bool  { return Is(err, ErrCodeTransient) || Is(err, ErrCodeTimeout) }
