package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/magacin-io/wms-api/internal/catalog"
	"github.com/magacin-io/wms-api/internal/domain"
	"github.com/magacin-io/wms-api/internal/service"
	"github.com/magacin-io/wms-api/internal/service/auth"
	"github.com/magacin-io/wms-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken):
		return http.StatusUnauthorized

	// Authorization errors
	case errors.Is(err, service.ErrIncompleteCloseNotAllowed):
		return http.StatusForbidden

	// Not found errors
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	// Conflict errors: the request was well formed but the current state of
	// the workflow refuses it.
	case errors.Is(err, store.ErrDocumentNumberExists),
		errors.Is(err, domain.ErrAlreadyTerminal),
		errors.Is(err, domain.ErrSuggestionConsumed),
		errors.Is(err, service.ErrSuggestionExpired),
		errors.Is(err, service.ErrNoEligibleWorker),
		errors.Is(err, service.ErrWorkerNotEligible),
		errors.Is(err, service.ErrNothingToAssign),
		errors.Is(err, service.ErrArticleMismatch):
		return http.StatusConflict

	// Bad request errors
	case errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrReasonRequired),
		errors.Is(err, domain.ErrInvalidDiscrepancyKind),
		errors.Is(err, service.ErrScanExceedsRequested),
		errors.Is(err, catalog.ErrNotFound):
		return http.StatusBadRequest

	// Upstream dependency errors
	case errors.Is(err, service.ErrDependencyUnavailable):
		return http.StatusBadGateway

	// Transient lock contention: the client should retry
	case errors.Is(err, store.ErrBusy):
		return http.StatusServiceUnavailable

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	// Handle nil error
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken):
		return "Invalid token"

	case errors.Is(err, service.ErrIncompleteCloseNotAllowed):
		return "Incomplete close is not allowed for this requisition"

	// Not found errors, most specific first
	case errors.Is(err, store.ErrRequisitionNotFound):
		return "Requisition not found"

	case errors.Is(err, store.ErrRequisitionLineNotFound):
		return "Requisition line not found"

	case errors.Is(err, store.ErrAssignmentNotFound):
		return "Assignment not found"

	case errors.Is(err, store.ErrAssignmentLineNotFound):
		return "Assignment line not found"

	case errors.Is(err, store.ErrWorkerNotFound):
		return "Worker not found"

	case errors.Is(err, store.ErrSuggestionNotFound):
		return "No active suggestion found"

	case errors.Is(err, store.ErrNotFound):
		return "Resource not found"

	// Conflict errors
	case errors.Is(err, store.ErrDocumentNumberExists):
		return "A requisition with this document number already exists"

	case errors.Is(err, domain.ErrAlreadyTerminal):
		return "The entity is already in a terminal state"

	case errors.Is(err, domain.ErrSuggestionConsumed):
		return "The suggestion has already been consumed"

	case errors.Is(err, service.ErrSuggestionExpired):
		return "The suggestion lock has expired"

	case errors.Is(err, service.ErrNoEligibleWorker):
		return "No eligible worker is available"

	case errors.Is(err, service.ErrWorkerNotEligible):
		return "The worker is not eligible for this task"

	case errors.Is(err, service.ErrNothingToAssign):
		return "No remaining quantity to assign"

	case errors.Is(err, service.ErrArticleMismatch):
		return "Scanned article does not match the expected article"

	// Bad request errors
	case errors.Is(err, domain.ErrInvalidQuantity):
		return "Invalid quantity"

	case errors.Is(err, domain.ErrReasonRequired):
		return "A reason is required for this operation"

	case errors.Is(err, domain.ErrInvalidDiscrepancyKind):
		return "Invalid discrepancy kind"

	case errors.Is(err, service.ErrScanExceedsRequested):
		return "Scan would exceed the requested quantity"

	case errors.Is(err, catalog.ErrNotFound):
		return "Unknown article code"

	// Upstream dependency errors
	case errors.Is(err, service.ErrDependencyUnavailable):
		return "A required upstream service is unavailable"

	case errors.Is(err, store.ErrBusy):
		return "The resource is busy, please retry"

	// Default case for unknown errors
	default:
		return "An unexpected error occurred"
	}
}

// SanitizeValidationError removes sensitive details from validation errors
// and returns a user-friendly message.
func SanitizeValidationError(err error) string {
	errMsg := err.Error()

	// Check if this is likely a validation error message
	if strings.Contains(errMsg, "Field validation") {
		// Extract the field name and validation tag
		// Example format: "Key: 'ScanRequest.Qty' Error:Field validation for 'Qty' failed on the 'required' tag"
		parts := strings.Split(errMsg, "Error:")
		if len(parts) >= 2 {
			fieldParts := strings.Split(parts[1], "'")
			if len(fieldParts) >= 3 {
				field := fieldParts[1]
				var tag string
				if len(fieldParts) >= 5 {
					tag = fieldParts[3]
				}

				if tag != "" {
					return fmt.Sprintf("Invalid %s: %s", field, getValidationTagMessage(tag))
				}
				return fmt.Sprintf("Invalid %s", field)
			}
		}
	}

	return "Validation error"
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "uuid":
		return "invalid identifier format"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "gt":
		return "must be greater than zero"
	case "oneof":
		return "invalid value"
	default:
		return "validation failed"
	}
}
