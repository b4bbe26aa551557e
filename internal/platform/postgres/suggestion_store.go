package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/magacin-io/wms-api/internal/domain"
	"github.com/magacin-io/wms-api/internal/platform/logger"
	"github.com/magacin-io/wms-api/internal/store"
)

// PostgresSuggestionStore implements the store.SuggestionStore interface
// using a PostgreSQL database as the storage backend.
type PostgresSuggestionStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresSuggestionStore creates a new PostgreSQL implementation of the
// SuggestionStore interface.
func NewPostgresSuggestionStore(db store.DBTX, logger *slog.Logger) *PostgresSuggestionStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresSuggestionStore{
		db:     db,
		logger: logger.With(slog.String("component", "suggestion_store")),
	}
}

// Ensure PostgresSuggestionStore implements store.SuggestionStore
var _ store.SuggestionStore = (*PostgresSuggestionStore)(nil)

// WithTx implements store.SuggestionStore.WithTx
func (s *PostgresSuggestionStore) WithTx(tx *sql.Tx) store.SuggestionStore {
	return &PostgresSuggestionStore{
		db:     tx,
		logger: s.logger,
	}
}

// Create implements store.SuggestionStore.Create
func (s *PostgresSuggestionStore) Create(ctx context.Context, suggestion *domain.Suggestion) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := suggestion.Validate(); err != nil {
		log.Warn("suggestion validation failed during create",
			slog.String("error", err.Error()),
			slog.String("suggestion_id", suggestion.ID.String()))
		return err
	}

	query := `
		INSERT INTO scheduler_suggestions (id, requisition_id, worker_id, score,
			open_assignments, reason, locked_until, status, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		suggestion.ID,
		suggestion.RequisitionID,
		suggestion.WorkerID,
		suggestion.Score,
		suggestion.OpenAssignments,
		suggestion.Reason,
		suggestion.LockedUntil,
		suggestion.Status,
		suggestion.CreatedBy,
		suggestion.CreatedAt,
	)
	if err != nil {
		log.Error("failed to create suggestion",
			slog.String("error", err.Error()),
			slog.String("suggestion_id", suggestion.ID.String()))
		return MapError(err)
	}

	log.Debug("suggestion created",
		slog.String("suggestion_id", suggestion.ID.String()),
		slog.String("worker_id", suggestion.WorkerID.String()))
	return nil
}

const suggestionColumns = `id, requisition_id, worker_id, score,
	open_assignments, reason, locked_until, status, created_by, created_at`

func scanSuggestion(row interface{ Scan(dest ...any) error }) (*domain.Suggestion, error) {
	var sg domain.Suggestion
	var status string

	err := row.Scan(
		&sg.ID,
		&sg.RequisitionID,
		&sg.WorkerID,
		&sg.Score,
		&sg.OpenAssignments,
		&sg.Reason,
		&sg.LockedUntil,
		&status,
		&sg.CreatedBy,
		&sg.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	sg.Status = domain.SuggestionStatus(status)
	return &sg, nil
}

// GetByID implements store.SuggestionStore.GetByID
func (s *PostgresSuggestionStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Suggestion, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + suggestionColumns + ` FROM scheduler_suggestions WHERE id = $1`

	sg, err := scanSuggestion(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrSuggestionNotFound
		}
		log.Error("failed to get suggestion",
			slog.String("error", err.Error()),
			slog.String("suggestion_id", id.String()))
		return nil, MapError(err)
	}

	return sg, nil
}

// GetActiveByRequisition implements store.SuggestionStore.GetActiveByRequisition
func (s *PostgresSuggestionStore) GetActiveByRequisition(
	ctx context.Context,
	requisitionID uuid.UUID,
	now time.Time,
) (*domain.Suggestion, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + suggestionColumns + `
		FROM scheduler_suggestions
		WHERE requisition_id = $1 AND status = 'suggested' AND locked_until >= $2
		ORDER BY created_at DESC
		LIMIT 1`

	sg, err := scanSuggestion(s.db.QueryRowContext(ctx, query, requisitionID, now))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrSuggestionNotFound
		}
		log.Error("failed to get active suggestion",
			slog.String("error", err.Error()),
			slog.String("requisition_id", requisitionID.String()))
		return nil, MapError(err)
	}

	return sg, nil
}

// UpdateStatus implements store.SuggestionStore.UpdateStatus
func (s *PostgresSuggestionStore) UpdateStatus(
	ctx context.Context,
	id uuid.UUID,
	status domain.SuggestionStatus,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `UPDATE scheduler_suggestions SET status = $1 WHERE id = $2`

	result, err := s.db.ExecContext(ctx, query, status, id)
	if err != nil {
		log.Error("failed to update suggestion status",
			slog.String("error", err.Error()),
			slog.String("suggestion_id", id.String()))
		return MapError(err)
	}

	return CheckRowsAffected(result, "suggestion")
}
