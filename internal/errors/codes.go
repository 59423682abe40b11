// Package errors provides structured error handling for the Lumen
// matching engine.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Catalog errors
//   - 3XX: Query errors
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryCatalog indicates item store errors.
	CategoryCatalog Category = "CATALOG"
	// CategoryQuery indicates query session errors.
	CategoryQuery Category = "QUERY"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// Catalog errors (200-299)
	ErrCodeStoreClosed = "ERR_201_STORE_CLOSED"
	ErrCodeItemInvalid = "ERR_202_ITEM_INVALID"

	// Query errors (300-399)
	ErrCodeQueryCancelled = "ERR_301_QUERY_CANCELLED"
	ErrCodeQueryTimeout   = "ERR_302_QUERY_TIMEOUT"
	ErrCodeEngineClosed   = "ERR_303_ENGINE_CLOSED"

	// Internal errors (500-599)
	ErrCodeInternal = "ERR_501_INTERNAL"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryCatalog
	case '3':
		return CategoryQuery
	default:
		return CategoryInternal
	}
}

// severityFromCode derives severity from error code.
// Cancellation is a normal control outcome, not a failure.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeQueryCancelled:
		return SeverityWarning
	case ErrCodeInternal:
		return SeverityFatal
	default:
		return SeverityError
	}
}

// isRetryableCode reports whether an operation failing with this code
// can be retried as-is. A closed store may reopen (bulk replace in
// progress); a timed-out query can be resubmitted.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeStoreClosed, ErrCodeQueryTimeout:
		return true
	default:
		return false
	}
}
