package postgres

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/google/uuid"
	"github.com/magacin-io/wms-api/internal/platform/logger"
	"github.com/magacin-io/wms-api/internal/store"
)

// PostgresAuditStore implements the store.AuditStore interface using a
// PostgreSQL database as the storage backend.
type PostgresAuditStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresAuditStore creates a new PostgreSQL implementation of the
// AuditStore interface.
func NewPostgresAuditStore(db store.DBTX, logger *slog.Logger) *PostgresAuditStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresAuditStore{
		db:     db,
		logger: logger.With(slog.String("component", "audit_store")),
	}
}

// Ensure PostgresAuditStore implements store.AuditStore
var _ store.AuditStore = (*PostgresAuditStore)(nil)

// WithTx implements store.AuditStore.WithTx
func (s *PostgresAuditStore) WithTx(tx *sql.Tx) store.AuditStore {
	return &PostgresAuditStore{
		db:     tx,
		logger: s.logger,
	}
}

// Append implements store.AuditStore.Append
func (s *PostgresAuditStore) Append(ctx context.Context, event *store.AuditEvent) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		INSERT INTO audit_events (id, entity_kind, entity_id, action, outcome, detail, actor_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		event.ID,
		event.EntityKind,
		event.EntityID,
		event.Action,
		event.Outcome,
		event.Detail,
		event.ActorID,
		event.CreatedAt,
	)
	if err != nil {
		log.Error("failed to append audit event",
			slog.String("error", err.Error()),
			slog.String("entity_kind", event.EntityKind),
			slog.String("entity_id", event.EntityID.String()))
		return MapError(err)
	}

	return nil
}

// ListByEntity implements store.AuditStore.ListByEntity
func (s *PostgresAuditStore) ListByEntity(
	ctx context.Context,
	entityKind string,
	entityID uuid.UUID,
) ([]*store.AuditEvent, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, entity_kind, entity_id, action, outcome, detail, actor_id, created_at
		FROM audit_events
		WHERE entity_kind = $1 AND entity_id = $2
		ORDER BY created_at, id
	`
	rows, err := s.db.QueryContext(ctx, query, entityKind, entityID)
	if err != nil {
		log.Error("failed to list audit events",
			slog.String("error", err.Error()),
			slog.String("entity_kind", entityKind),
			slog.String("entity_id", entityID.String()))
		return nil, MapError(err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	var events []*store.AuditEvent
	for rows.Next() {
		var ev store.AuditEvent
		err := rows.Scan(
			&ev.ID,
			&ev.EntityKind,
			&ev.EntityID,
			&ev.Action,
			&ev.Outcome,
			&ev.Detail,
			&ev.ActorID,
			&ev.CreatedAt,
		)
		if err != nil {
			log.Error("failed to scan audit event row",
				slog.String("error", err.Error()))
			return nil, err
		}
		events = append(events, &ev)
	}

	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	if events == nil {
		events = []*store.AuditEvent{}
	}
	return events, nil
}
