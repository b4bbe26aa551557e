package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/magacin-io/wms-api/internal/domain"
)

// WorkerStore is the identity/role provider consumed by the scheduler. It
// reports which workers exist, whether they are active, and which
// capabilities they hold. This core reads it; it never writes workers.
type WorkerStore interface {
	// GetByID retrieves a worker by ID.
	// Returns ErrWorkerNotFound if the worker does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Worker, error)

	// ListActiveWithCapability retrieves all active workers holding the
	// given capability, ordered by ID for deterministic iteration.
	ListActiveWithCapability(ctx context.Context, capability domain.Capability) ([]*domain.Worker, error)
}
