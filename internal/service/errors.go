// Package service provides application-level services for importing
// requisitions, scheduling assignments, registering scans, and handling
// partial completion.
package service

import "errors"

// Common service errors - sentinel errors used across service implementations.
// These errors represent expected conditions that callers check for with
// errors.Is(); the API layer maps them to HTTP status codes.
var (
	// ErrNoEligibleWorker indicates the scheduler found no active worker
	// holding the picker capability.
	// API layer should map this to HTTP 409 Conflict.
	ErrNoEligibleWorker = errors.New("no eligible worker available")

	// ErrArticleMismatch indicates a scanned code resolved to a different
	// article than the assignment line expects. The scan has been logged
	// but no quantity was applied.
	// API layer should map this to HTTP 409 Conflict.
	ErrArticleMismatch = errors.New("scanned article does not match the line")

	// ErrScanExceedsRequested indicates a scan of the right article whose
	// quantity would overshoot the requested quantity. The scan has been
	// logged as a duplicate but no quantity was applied.
	// API layer should map this to HTTP 400 Bad Request.
	ErrScanExceedsRequested = errors.New("scan would exceed the requested quantity")

	// ErrIncompleteCloseNotAllowed indicates a short-close was attempted on
	// a requisition whose policy forbids incomplete closes.
	// API layer should map this to HTTP 403 Forbidden.
	ErrIncompleteCloseNotAllowed = errors.New("requisition does not allow incomplete close")

	// ErrDependencyUnavailable indicates a consumed dependency (the article
	// catalog) could not be reached. The operation was not applied.
	// API layer should map this to HTTP 502 Bad Gateway.
	ErrDependencyUnavailable = errors.New("upstream dependency unavailable")

	// ErrWorkerNotEligible indicates an override named a worker that is
	// inactive or does not hold the picker capability.
	// API layer should map this to HTTP 409 Conflict.
	ErrWorkerNotEligible = errors.New("worker is not eligible for assignment")

	// ErrSuggestionExpired indicates an accept referenced a suggestion whose
	// lock window has lapsed. The caller must request a fresh suggestion.
	// API layer should map this to HTTP 409 Conflict.
	ErrSuggestionExpired = errors.New("suggestion lock has expired")

	// ErrNothingToAssign indicates every line of the requisition is already
	// fully reserved or terminal, so an accept or override would create an
	// empty assignment.
	// API layer should map this to HTTP 409 Conflict.
	ErrNothingToAssign = errors.New("requisition has no remaining quantity to assign")
)
