package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/magacin-io/wms-api/internal/domain"
)

// RequisitionStore defines the interface for requisition and requisition
// line persistence.
type RequisitionStore interface {
	// Create saves a new requisition together with its lines. It MUST be
	// run within a transaction; use WithTx and RunInTransaction.
	// Returns ErrDocumentNumberExists on a document number collision.
	Create(ctx context.Context, req *domain.Requisition, lines []*domain.RequisitionLine) error

	// GetByID retrieves a requisition by its unique ID.
	// Returns ErrRequisitionNotFound if the requisition does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Requisition, error)

	// GetByDocumentNumber retrieves a requisition by its document number.
	// Returns ErrRequisitionNotFound if no such document exists.
	GetByDocumentNumber(ctx context.Context, documentNumber string) (*domain.Requisition, error)

	// GetForUpdate retrieves a requisition and takes a row-level lock on it.
	// Only valid inside a transaction; the lock is held until commit or
	// rollback. The scheduler serializes suggestion computation through it.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Requisition, error)

	// Update saves changes to an existing requisition.
	// Returns ErrRequisitionNotFound if the requisition does not exist.
	Update(ctx context.Context, req *domain.Requisition) error

	// ListLines retrieves all lines of a requisition in creation order.
	ListLines(ctx context.Context, requisitionID uuid.UUID) ([]*domain.RequisitionLine, error)

	// GetLine retrieves a single requisition line.
	// Returns ErrRequisitionLineNotFound if the line does not exist.
	GetLine(ctx context.Context, lineID uuid.UUID) (*domain.RequisitionLine, error)

	// GetLineForUpdate retrieves a requisition line and takes a row-level
	// lock on it. Only valid inside a transaction. Status propagation locks
	// the line so two sibling assignment-line mutations cannot race the
	// recomputation of the parent.
	GetLineForUpdate(ctx context.Context, lineID uuid.UUID) (*domain.RequisitionLine, error)

	// UpdateLine saves changes to an existing requisition line.
	// Returns ErrRequisitionLineNotFound if the line does not exist.
	UpdateLine(ctx context.Context, line *domain.RequisitionLine) error

	// WithTx returns a new RequisitionStore instance that uses the provided
	// transaction. The transaction should be created and managed by the
	// caller (typically a service).
	WithTx(tx *sql.Tx) RequisitionStore
}
