package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/magacin-io/wms-api/internal/domain"
)

// ScanLogStore defines the interface for the append-only scan log.
// Records are immutable once written; there is no update or delete.
type ScanLogStore interface {
	// Append writes one scan record to the log.
	Append(ctx context.Context, record *domain.ScanRecord) error

	// ListByAssignmentLine retrieves the scan history of one assignment
	// line, oldest first.
	ListByAssignmentLine(ctx context.Context, assignmentLineID uuid.UUID) ([]*domain.ScanRecord, error)

	// WithTx returns a new ScanLogStore instance that uses the provided
	// transaction.
	WithTx(tx *sql.Tx) ScanLogStore
}
