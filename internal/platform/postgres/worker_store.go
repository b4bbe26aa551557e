package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/magacin-io/wms-api/internal/domain"
	"github.com/magacin-io/wms-api/internal/platform/logger"
	"github.com/magacin-io/wms-api/internal/store"
)

// PostgresWorkerStore implements the store.WorkerStore interface backed by
// the workers table, which mirrors the identity/role provider. This module
// only reads it.
type PostgresWorkerStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresWorkerStore creates a new PostgreSQL implementation of the
// WorkerStore interface.
func NewPostgresWorkerStore(db store.DBTX, logger *slog.Logger) *PostgresWorkerStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresWorkerStore{
		db:     db,
		logger: logger.With(slog.String("component", "worker_store")),
	}
}

// Ensure PostgresWorkerStore implements store.WorkerStore
var _ store.WorkerStore = (*PostgresWorkerStore)(nil)

const workerColumns = `id, name, active, capabilities`

func scanWorker(row interface{ Scan(dest ...any) error }) (*domain.Worker, error) {
	var w domain.Worker
	var caps []string

	// capabilities is a text[] column; the pgtype map decodes it directly.
	if err := row.Scan(&w.ID, &w.Name, &w.Active, pgTypeMap.SQLScanner(&caps)); err != nil {
		return nil, err
	}

	for _, c := range caps {
		w.Capabilities = append(w.Capabilities, domain.Capability(c))
	}
	return &w, nil
}

// GetByID implements store.WorkerStore.GetByID
func (s *PostgresWorkerStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Worker, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + workerColumns + ` FROM workers WHERE id = $1`

	w, err := scanWorker(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrWorkerNotFound
		}
		log.Error("failed to get worker",
			slog.String("error", err.Error()),
			slog.String("worker_id", id.String()))
		return nil, MapError(err)
	}

	return w, nil
}

// ListActiveWithCapability implements store.WorkerStore.ListActiveWithCapability
func (s *PostgresWorkerStore) ListActiveWithCapability(
	ctx context.Context,
	capability domain.Capability,
) ([]*domain.Worker, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + workerColumns + `
		FROM workers
		WHERE active AND $1 = ANY(capabilities)
		ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, string(capability))
	if err != nil {
		log.Error("failed to list workers",
			slog.String("error", err.Error()),
			slog.String("capability", string(capability)))
		return nil, MapError(err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	var workers []*domain.Worker
	for rows.Next() {
		w, err := scanWorker(rows)
		if err != nil {
			log.Error("failed to scan worker row",
				slog.String("error", err.Error()))
			return nil, err
		}
		workers = append(workers, w)
	}

	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	if workers == nil {
		workers = []*domain.Worker{}
	}
	return workers, nil
}
