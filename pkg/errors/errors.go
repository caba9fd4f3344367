// Package errors provides the unified error type and factory functions for the
// KYB-Sentinel monitoring engine.  Every layer (domain, application,
// infrastructure, interfaces) uses AppError as the single carrier for
// structured error information, enabling consistent logging, metrics labels,
// and caller-side code checks.
package errors

import (
	"errors"
	"fmt"
)

// AppError is the single structured error type used throughout KYB-Sentinel.
// It satisfies the standard error interface and supports Go 1.13+ error
// wrapping so that errors.Is / errors.As / errors.Unwrap work transparently
// across all layers.
//
// Usage:
//
//	return errors.New(errors.ErrCodeNotFound, "counterparty not found")
//	return errors.Wrap(repoErr, errors.ErrCodeDatabaseError, "failed to load snapshot")
//	if errors.IsCode(err, errors.ErrCodeInvalidTransition) { ... }
type AppError struct {
	// Code is the typed error code identifying the failure category.
	Code ErrorCode

	// Message is the primary human-readable description of the error.
	Message string

	// Detail carries supplementary context (identifiers, parameters) that
	// aids debugging without leaking internals to end users.
	Detail string

	// Cause is the underlying error, enabling errors.Is / errors.As
	// traversal of the full chain.
	Cause error
}

// Error implements the standard error interface.
// Format: "[<code>] <message>: <detail>", detail omitted when empty.
func (e *AppError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Detail)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetail returns a shallow copy of the receiver with Detail set.
// Safe to call on a nil pointer.
func (e *AppError) WithDetail(detail string) *AppError {
	if e == nil {
		return nil
	}
	clone := *e
	clone.Detail = detail
	return &clone
}

// WithCause returns a shallow copy of the receiver with Cause set to err.
func (e *AppError) WithCause(err error) *AppError {
	if e == nil {
		return nil
	}
	clone := *e
	clone.Cause = err
	return &clone
}

// New constructs a fresh AppError with the given code and message.
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Newf constructs a fresh AppError with a formatted message.
func Newf(code ErrorCode, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap constructs an AppError that wraps an existing error.  If err is nil,
// Wrap returns nil so it can be used inline.  When err is already an
// *AppError and code is ErrCodeUnknown the original code is preserved,
// preventing loss of the domain classification during cross-layer
// propagation.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	if code == ErrCodeUnknown {
		var ae *AppError
		if errors.As(err, &ae) {
			code = ae.Code
		}
	}
	return &AppError{Code: code, Message: message, Cause: err}
}

// Wrapf is Wrap with a formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...any) *AppError {
	if err == nil {
		return nil
	}
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// IsCode reports whether any error in err's chain is an *AppError with the
// given code.  It is the idiomatic way to check domain-specific failure
// modes:
//
//	if errors.IsCode(err, errors.ErrCodeCycleInProgress) { ... }
func IsCode(err error, code ErrorCode) bool {
	var ae *AppError
	for err != nil {
		if errors.As(err, &ae) && ae.Code == code {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}

// GetCode extracts the ErrorCode from the first *AppError found in err's
// chain, or ErrCodeUnknown when none is present.  Useful in middleware and
// logging layers that need a single code to emit as a metric label.
func GetCode(err error) ErrorCode {
	if err == nil {
		return ErrCodeUnknown
	}
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ErrCodeUnknown
}

// IsNotFound reports whether any error in err's chain carries ErrCodeNotFound.
func IsNotFound(err error) bool {
	return IsCode(err, ErrCodeNotFound)
}

// Convenience factories for the most common conditions.  Call sites read
// naturally:
//
//	return errors.NewValidation("tenant_id is required")
//	return errors.NewInternal("failed to save snapshot: %v", err)

// NewValidation constructs an ErrCodeValidation AppError.
func NewValidation(format string, args ...any) *AppError {
	return Newf(ErrCodeValidation, format, args...)
}

// NewNotFound constructs an ErrCodeNotFound AppError.
func NewNotFound(format string, args ...any) *AppError {
	return Newf(ErrCodeNotFound, format, args...)
}

// NewInternal constructs an ErrCodeInternal AppError.
func NewInternal(format string, args ...any) *AppError {
	return Newf(ErrCodeInternal, format, args...)
}

// NewInvalidTransition constructs an ErrCodeInvalidTransition AppError.
func NewInvalidTransition(format string, args ...any) *AppError {
	return Newf(ErrCodeInvalidTransition, format, args...)
}
