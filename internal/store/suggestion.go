package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/magacin-io/wms-api/internal/domain"
)

// SuggestionStore defines the interface for scheduler suggestion persistence.
// Suggestion rows double as the scheduler's cache and lock: at most one
// unexpired suggested row may exist per requisition at a time.
type SuggestionStore interface {
	// Create saves a new suggestion row.
	Create(ctx context.Context, suggestion *domain.Suggestion) error

	// GetByID retrieves a suggestion by its unique ID.
	// Returns ErrSuggestionNotFound if the suggestion does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Suggestion, error)

	// GetActiveByRequisition retrieves the newest suggestion for the
	// requisition that is still in status suggested and whose lock has not
	// expired at the given time.
	// Returns ErrSuggestionNotFound if none qualifies.
	GetActiveByRequisition(ctx context.Context, requisitionID uuid.UUID, now time.Time) (*domain.Suggestion, error)

	// UpdateStatus transitions a suggestion's status. The row is otherwise
	// immutable; superseded suggestions are left in place for audit.
	// Returns ErrSuggestionNotFound if the suggestion does not exist.
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.SuggestionStatus) error

	// WithTx returns a new SuggestionStore instance that uses the provided
	// transaction.
	WithTx(tx *sql.Tx) SuggestionStore
}
