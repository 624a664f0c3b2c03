package database

import (
	"fmt"
)

// DBError carries the failing operation name alongside the driver error so
// repository callers can log one meaningful line.
type DBError struct {
	Operation string
	Err       error
}

// Error implements the error interface
func (e *DBError) Error() string {
	return fmt.Sprintf("database error in %s: %v", e.Operation, e.Err)
}

// Unwrap returns the underlying error
func (e *DBError) Unwrap() error {
	return e.Err
}

// NotFoundError marks a lookup that matched no row, e.g. a concept name the
// registry has never seen.
type NotFoundError struct {
	Resource string
	Key      interface{}
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	if e.Key != nil {
		return fmt.Sprintf("%s not found: %v", e.Resource, e.Key)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// ValidationError marks input rejected before it reached the database
type ValidationError struct {
	Field  string
	Reason string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field '%s': %s", e.Field, e.Reason)
}

// WrapDBError wraps a database error with operation context
func WrapDBError(operation string, err error) error {
	if err == nil {
		return nil
	}
	return &DBError{
		Operation: operation,
		Err:       err,
	}
}

// NewNotFoundError creates a NotFoundError for a keyed lookup
func NewNotFoundError(resource string, key interface{}) error {
	return &NotFoundError{
		Resource: resource,
		Key:      key,
	}
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, reason string) error {
	return &ValidationError{
		Field:  field,
		Reason: reason,
	}
}
