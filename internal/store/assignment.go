package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/magacin-io/wms-api/internal/domain"
)

// WorkerLoad is the scheduler's per-worker load snapshot: the sum of
// remaining (requested − processed) quantity on the worker's open assignment
// lines, and the count of open assignments for the tie-break.
type WorkerLoad struct {
	WorkerID        uuid.UUID
	RemainingQty    int64
	OpenAssignments int
}

// AssignmentStore defines the interface for assignment and assignment line
// persistence.
type AssignmentStore interface {
	// Create saves a new assignment together with its lines. It MUST be run
	// within a transaction; use WithTx and RunInTransaction.
	Create(ctx context.Context, assignment *domain.Assignment, lines []*domain.AssignmentLine) error

	// GetByID retrieves an assignment by its unique ID.
	// Returns ErrAssignmentNotFound if the assignment does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Assignment, error)

	// Update saves changes to an existing assignment.
	// Returns ErrAssignmentNotFound if the assignment does not exist.
	Update(ctx context.Context, assignment *domain.Assignment) error

	// ListByRequisition retrieves all assignments against a requisition.
	ListByRequisition(ctx context.Context, requisitionID uuid.UUID) ([]*domain.Assignment, error)

	// ListLines retrieves all lines of an assignment in creation order.
	ListLines(ctx context.Context, assignmentID uuid.UUID) ([]*domain.AssignmentLine, error)

	// ListLinesByRequisitionLine retrieves every assignment line delegated
	// from the given requisition line, across all assignments. Propagation
	// recomputes the parent's fulfilled quantity from this set.
	ListLinesByRequisitionLine(ctx context.Context, requisitionLineID uuid.UUID) ([]*domain.AssignmentLine, error)

	// GetLine retrieves a single assignment line.
	// Returns ErrAssignmentLineNotFound if the line does not exist.
	GetLine(ctx context.Context, lineID uuid.UUID) (*domain.AssignmentLine, error)

	// GetLineForUpdate retrieves an assignment line and takes a row-level
	// lock on it. Only valid inside a transaction. The scan registrar locks
	// the leaf before every read-modify-write so concurrent scans cannot
	// overwrite each other's increment.
	GetLineForUpdate(ctx context.Context, lineID uuid.UUID) (*domain.AssignmentLine, error)

	// UpdateLine saves changes to an existing assignment line.
	// Returns ErrAssignmentLineNotFound if the line does not exist.
	UpdateLine(ctx context.Context, line *domain.AssignmentLine) error

	// WorkerLoads returns the load snapshot for each of the given workers.
	// Workers with no open assignment lines are absent from the result; the
	// caller treats them as zero load.
	WorkerLoads(ctx context.Context, workerIDs []uuid.UUID) (map[uuid.UUID]WorkerLoad, error)

	// WithTx returns a new AssignmentStore instance that uses the provided
	// transaction.
	WithTx(tx *sql.Tx) AssignmentStore
}
