// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrSpotUndefined     = errors.New("spot price undefined")
	ErrDirectionRequired = errors.New("direction required")
	ErrConfigInvalid     = errors.New("invalid configuration")
	ErrSnapshotInvalid   = errors.New("invalid snapshot")
	ErrRunNotFound       = errors.New("screening run not found")
	ErrDatabaseError     = errors.New("database error")
)

// PreconditionError represents a fatal precondition failure that aborts a
// screening run. It is never retried.
type PreconditionError struct {
	Stage  string
	Reason string
	Err    error
}

func (e *PreconditionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("precondition failed [%s]: %s: %v", e.Stage, e.Reason, e.Err)
	}
	return fmt.Sprintf("precondition failed [%s]: %s", e.Stage, e.Reason)
}

func (e *PreconditionError) Unwrap() error {
	return e.Err
}

// NewPreconditionError creates a new PreconditionError.
func NewPreconditionError(stage, reason string, err error) *PreconditionError {
	return &PreconditionError{
		Stage:  stage,
		Reason: reason,
		Err:    err,
	}
}

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

// Unwrap lets errors.Is match ErrConfigInvalid for every validation failure.
func (e *ValidationError) Unwrap() error {
	return ErrConfigInvalid
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// DataError represents a data-related error.
type DataError struct {
	DataType string
	Symbol   string
	Message  string
	Err      error
}

func (e *DataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("data error [%s] %s: %s: %v", e.DataType, e.Symbol, e.Message, e.Err)
	}
	return fmt.Sprintf("data error [%s] %s: %s", e.DataType, e.Symbol, e.Message)
}

func (e *DataError) Unwrap() error {
	return e.Err
}

// NewDataError creates a new DataError.
func NewDataError(dataType, symbol, message string, err error) *DataError {
	return &DataError{
		DataType: dataType,
		Symbol:   symbol,
		Message:  message,
		Err:      err,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
