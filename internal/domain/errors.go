package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrInvalidQuantity is returned when a quantity violates one of the
	// ledger invariants: requested must be positive, processed and fulfilled
	// may never exceed requested, and an assignment line may never reserve
	// more than its requisition line has left.
	ErrInvalidQuantity = errors.New("invalid quantity")

	// ErrAlreadyTerminal is returned when a mutation targets an entity that
	// has already reached done, blocked, or failed.
	ErrAlreadyTerminal = errors.New("entity is already in a terminal state")

	// ErrReasonRequired is returned when a short-close with discrepancy kind
	// "other" is attempted without a free-text reason.
	ErrReasonRequired = errors.New("reason text is required")

	// ErrInvalidStatus is returned when a status value is not part of the
	// workflow state machine.
	ErrInvalidStatus = errors.New("invalid status")

	// ErrInvalidDiscrepancyKind is returned when a discrepancy kind is not
	// one of the closed enumeration values.
	ErrInvalidDiscrepancyKind = errors.New("invalid discrepancy kind")
)
