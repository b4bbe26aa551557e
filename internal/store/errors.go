package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in the store.
	// This is a generic version of the entity-specific not found errors
	// (e.g., ErrRequisitionNotFound, ErrAssignmentNotFound).
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an operation would create a duplicate
	// of a unique entity (e.g., a requisition with the same document number).
	ErrDuplicate = errors.New("entity already exists")

	// ErrInvalidEntity is returned when an entity fails validation before
	// being stored. Check the wrapped error for specific validation details.
	ErrInvalidEntity = errors.New("invalid entity")

	// Entity-specific "not found" errors

	// ErrRequisitionNotFound indicates that the requested requisition does not exist.
	ErrRequisitionNotFound = fmt.Errorf("%w: requisition", ErrNotFound)

	// ErrRequisitionLineNotFound indicates that the requested requisition line does not exist.
	ErrRequisitionLineNotFound = fmt.Errorf("%w: requisition line", ErrNotFound)

	// ErrAssignmentNotFound indicates that the requested assignment does not exist.
	ErrAssignmentNotFound = fmt.Errorf("%w: assignment", ErrNotFound)

	// ErrAssignmentLineNotFound indicates that the requested assignment line does not exist.
	ErrAssignmentLineNotFound = fmt.Errorf("%w: assignment line", ErrNotFound)

	// ErrSuggestionNotFound indicates that the requested scheduler suggestion does not exist.
	ErrSuggestionNotFound = fmt.Errorf("%w: suggestion", ErrNotFound)

	// ErrWorkerNotFound indicates that the requested worker does not exist.
	ErrWorkerNotFound = fmt.Errorf("%w: worker", ErrNotFound)

	// Entity-specific "duplicate" errors

	// ErrDocumentNumberExists indicates that a requisition with the given
	// document number already exists with different content.
	ErrDocumentNumberExists = fmt.Errorf("%w: document number", ErrDuplicate)
)

// IsNotFoundError checks if the error is any kind of "not found" error.
// This includes the generic ErrNotFound and all entity-specific not found errors.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateError checks if the error is any kind of "duplicate" error.
func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate)
}

// StoreError is a custom error type for store-specific errors with additional context.
type StoreError struct {
	Entity    string // The entity type (e.g., "requisition", "assignment")
	Operation string // The operation that failed (e.g., "create", "update")
	Message   string // Error message
	Err       error  // Original error
}

// Error implements the error interface for StoreError.
func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf(
			"%s operation on %s failed: %s: %v",
			e.Operation,
			e.Entity,
			e.Message,
			e.Err,
		)
	}
	return fmt.Sprintf("%s operation on %s failed: %s", e.Operation, e.Entity, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError with the given entity, operation, message, and wrapped error.
func NewStoreError(entity, operation, message string, err error) *StoreError {
	return &StoreError{
		Entity:    entity,
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
