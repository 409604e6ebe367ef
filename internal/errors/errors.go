// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrRunInProgress = errors.New("collection run already in progress")
	ErrNoResults     = errors.New("no results")
	ErrNoProducts    = errors.New("no products configured")
	ErrStoreUnknown  = errors.New("unknown store")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("operation timed out")
	ErrConfigInvalid = errors.New("invalid configuration")
)

// FetchError represents a network failure against an upstream source:
// connection errors, timeouts and non-2xx responses.
type FetchError struct {
	Store      string
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch error [%s] %s: status %d", e.Store, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch error [%s] %s: %v", e.Store, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewFetchError creates a new FetchError.
func NewFetchError(store, url string, statusCode int, err error) *FetchError {
	return &FetchError{
		Store:      store,
		URL:        url,
		StatusCode: statusCode,
		Err:        err,
	}
}

// ExtractError represents an extraction failure: no candidate field or
// selector yielded a parseable value.
type ExtractError struct {
	Store   string
	URL     string
	Message string
}

func (e *ExtractError) Error() string {
	return fmt.Sprintf("extract error [%s] %s: %s", e.Store, e.URL, e.Message)
}

// NewExtractError creates a new ExtractError.
func NewExtractError(store, url, message string) *ExtractError {
	return &ExtractError{
		Store:   store,
		URL:     url,
		Message: message,
	}
}

// ValidationError represents a malformed input, typically a product URL
// that does not match the store's expected pattern.
type ValidationError struct {
	Store   string
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error [%s] %s=%q: %s", e.Store, e.Field, e.Value, e.Message)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(store, field, value, message string) *ValidationError {
	return &ValidationError{
		Store:   store,
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// StoreError represents a persistence failure. It aborts the current
// product's batch but never the whole collection run.
type StoreError struct {
	Operation string
	Err       error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store error [%s]: %v", e.Operation, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError.
func NewStoreError(operation string, err error) *StoreError {
	return &StoreError{
		Operation: operation,
		Err:       err,
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
