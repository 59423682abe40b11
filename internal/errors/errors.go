package errors

import (
	"fmt"
)

// EngineError is the structured error type for the matching engine.
// All engine errors are session- or call-scoped; none require
// restarting the engine or invalidating catalog state.
type EngineError struct {
	// Code is the unique error code (e.g., "ERR_201_STORE_CLOSED").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, Catalog, Query, Internal).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *EngineError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with EngineError.
func (e *EngineError) Is(target error) bool {
	if t, ok := target.(*EngineError); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates a new EngineError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *EngineError {
	return &EngineError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates an EngineError from an existing error.
// The error's message becomes the EngineError message.
func Wrap(code string, err error) *EngineError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *EngineError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// StoreClosedError creates the retryable error for snapshot
// acquisition against a closed store.
func StoreClosedError(message string) *EngineError {
	return New(ErrCodeStoreClosed, message, nil)
}

// CancelledError creates the terminal outcome for a superseded query
// session. Not a failure; callers discard it silently.
func CancelledError(message string, cause error) *EngineError {
	return New(ErrCodeQueryCancelled, message, cause)
}

// TimeoutError creates a query timeout error.
func TimeoutError(message string, cause error) *EngineError {
	return New(ErrCodeQueryTimeout, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *EngineError {
	return New(ErrCodeInternal, message, cause)
}

// IsRetryable checks if an error is retryable.
// Returns true if the error is an EngineError with Retryable flag set.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if ee, ok := err.(*EngineError); ok {
		return ee.Retryable
	}
	return false
}

// IsCancelled reports whether err is the cancellation outcome.
func IsCancelled(err error) bool {
	return GetCode(err) == ErrCodeQueryCancelled
}

// GetCode extracts the error code from an EngineError.
// Returns empty string if not an EngineError.
func GetCode(err error) string {
	if ee, ok := err.(*EngineError); ok {
		return ee.Code
	}
	return ""
}

// GetCategory extracts the category from an EngineError.
// Returns empty string if not an EngineError.
func GetCategory(err error) Category {
	if ee, ok := err.(*EngineError); ok {
		return ee.Category
	}
	return ""
}
