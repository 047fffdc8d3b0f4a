// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrLookupFailure          = errors.New("lookup failed")
	ErrMalformedPayload       = errors.New("malformed payload")
	ErrTransportFailure       = errors.New("transport failure")
	ErrPersistenceUnavailable = errors.New("persistence unavailable")
	ErrInvalidIndex           = errors.New("invalid index")
	ErrConfigInvalid          = errors.New("invalid configuration")
	ErrNoSnapshot             = errors.New("no snapshot available")
	ErrBackfillRunning        = errors.New("backfill already running")
)

// ProviderError represents a failed call to the upstream data provider.
type ProviderError struct {
	Op     string
	Symbol string
	Status int
	Err    error
}

func (e *ProviderError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("provider error [%s] %s: status %d: %v", e.Op, e.Symbol, e.Status, e.Err)
	}
	return fmt.Sprintf("provider error [%s] %s: %v", e.Op, e.Symbol, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError creates a new ProviderError.
func NewProviderError(op, symbol string, status int, err error) *ProviderError {
	return &ProviderError{
		Op:     op,
		Symbol: symbol,
		Status: status,
		Err:    err,
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

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

// Unwrap lets validation failures match ErrConfigInvalid.
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

// New returns an error with the given text.
func New(text string) error {
	return errors.New(text)
}

// IsFallbackTrigger reports whether err should make the display fall back to
// demonstration data.
func IsFallbackTrigger(err error) bool {
	return errors.Is(err, ErrLookupFailure) ||
		errors.Is(err, ErrMalformedPayload) ||
		errors.Is(err, ErrTransportFailure)
}
