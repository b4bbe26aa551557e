package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// AuditEvent is one row in the append-only operations audit trail. Rejected
// completion attempts and scheduling decisions land here so operators can
// diagnose repeated failures without losing history.
type AuditEvent struct {
	ID         uuid.UUID
	EntityKind string
	EntityID   uuid.UUID
	Action     string
	Outcome    string
	Detail     string
	ActorID    uuid.UUID
	CreatedAt  time.Time
}

// AuditStore defines the interface for the append-only audit trail.
type AuditStore interface {
	// Append writes one audit event.
	Append(ctx context.Context, event *AuditEvent) error

	// ListByEntity retrieves the audit history of one entity, oldest first.
	ListByEntity(ctx context.Context, entityKind string, entityID uuid.UUID) ([]*AuditEvent, error)

	// WithTx returns a new AuditStore instance that uses the provided
	// transaction.
	WithTx(tx *sql.Tx) AuditStore
}
