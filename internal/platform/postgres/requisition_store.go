package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/magacin-io/wms-api/internal/domain"
	"github.com/magacin-io/wms-api/internal/platform/logger"
	"github.com/magacin-io/wms-api/internal/store"
)

// PostgresRequisitionStore implements the store.RequisitionStore interface
// using a PostgreSQL database as the storage backend.
type PostgresRequisitionStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresRequisitionStore creates a new PostgreSQL implementation of the
// RequisitionStore interface. It accepts a database connection or transaction
// that should be initialized and managed by the caller.
func NewPostgresRequisitionStore(db store.DBTX, logger *slog.Logger) *PostgresRequisitionStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresRequisitionStore{
		db:     db,
		logger: logger.With(slog.String("component", "requisition_store")),
	}
}

// Ensure PostgresRequisitionStore implements store.RequisitionStore
var _ store.RequisitionStore = (*PostgresRequisitionStore)(nil)

// WithTx implements store.RequisitionStore.WithTx
func (s *PostgresRequisitionStore) WithTx(tx *sql.Tx) store.RequisitionStore {
	return &PostgresRequisitionStore{
		db:     tx,
		logger: s.logger,
	}
}

// Create implements store.RequisitionStore.Create
// It saves a new requisition with its lines, handling domain validation.
// Returns store.ErrDocumentNumberExists on a document number collision.
func (s *PostgresRequisitionStore) Create(
	ctx context.Context,
	req *domain.Requisition,
	lines []*domain.RequisitionLine,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := req.Validate(); err != nil {
		log.Warn("requisition validation failed during create",
			slog.String("error", err.Error()),
			slog.String("requisition_id", req.ID.String()))
		return err
	}

	for _, line := range lines {
		if err := line.Validate(); err != nil {
			log.Warn("requisition line validation failed during create",
				slog.String("error", err.Error()),
				slog.String("line_id", line.ID.String()))
			return err
		}
	}

	query := `
		INSERT INTO requisitions (id, document_number, document_date, origin_id, destination_id,
			status, allow_incomplete_close, content_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		req.ID,
		req.DocumentNumber,
		req.DocumentDate,
		req.OriginID,
		req.DestinationID,
		req.Status,
		req.AllowIncompleteClose,
		req.ContentHash,
		req.CreatedAt,
		req.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			log.Warn("duplicate document number during requisition creation",
				slog.String("document_number", req.DocumentNumber))
			return fmt.Errorf("%w: %s", store.ErrDocumentNumberExists, req.DocumentNumber)
		}

		log.Error("failed to create requisition",
			slog.String("error", err.Error()),
			slog.String("requisition_id", req.ID.String()))
		return MapError(err)
	}

	lineQuery := `
		INSERT INTO requisition_lines (id, requisition_id, article_id, article_code, name, barcode,
			requested_qty, fulfilled_qty, found_qty, discrepancy_kind, reason, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	for _, line := range lines {
		_, err := s.db.ExecContext(
			ctx,
			lineQuery,
			line.ID,
			line.RequisitionID,
			line.ArticleID,
			line.ArticleCode,
			line.Name,
			line.Barcode,
			line.RequestedQty,
			line.FulfilledQty,
			line.FoundQty,
			line.DiscrepancyKind,
			line.Reason,
			line.Status,
			line.CreatedAt,
			line.UpdatedAt,
		)
		if err != nil {
			log.Error("failed to create requisition line",
				slog.String("error", err.Error()),
				slog.String("line_id", line.ID.String()))
			return MapError(err)
		}
	}

	log.Info("requisition created successfully",
		slog.String("requisition_id", req.ID.String()),
		slog.String("document_number", req.DocumentNumber),
		slog.Int("lines", len(lines)))
	return nil
}

const requisitionColumns = `id, document_number, document_date, origin_id, destination_id,
	status, allow_incomplete_close, content_hash, closed_by, closed_at, created_at, updated_at`

// scanRequisition scans one requisition row from the given row scanner.
func scanRequisition(row interface{ Scan(dest ...any) error }) (*domain.Requisition, error) {
	var req domain.Requisition
	var status string
	var closedBy uuid.NullUUID
	var closedAt sql.NullTime

	err := row.Scan(
		&req.ID,
		&req.DocumentNumber,
		&req.DocumentDate,
		&req.OriginID,
		&req.DestinationID,
		&status,
		&req.AllowIncompleteClose,
		&req.ContentHash,
		&closedBy,
		&closedAt,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	req.Status = domain.Status(status)
	if closedBy.Valid {
		req.ClosedBy = &closedBy.UUID
	}
	if closedAt.Valid {
		t := closedAt.Time
		req.ClosedAt = &t
	}
	return &req, nil
}

// GetByID implements store.RequisitionStore.GetByID
func (s *PostgresRequisitionStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Requisition, error) {
	return s.getRequisition(ctx, `WHERE id = $1`, id)
}

// GetByDocumentNumber implements store.RequisitionStore.GetByDocumentNumber
func (s *PostgresRequisitionStore) GetByDocumentNumber(
	ctx context.Context,
	documentNumber string,
) (*domain.Requisition, error) {
	return s.getRequisition(ctx, `WHERE document_number = $1`, documentNumber)
}

// GetForUpdate implements store.RequisitionStore.GetForUpdate
// The row lock serializes suggestion computation and assignment creation for
// the same requisition; it is only meaningful inside a transaction.
func (s *PostgresRequisitionStore) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Requisition, error) {
	return s.getRequisition(ctx, `WHERE id = $1 FOR UPDATE`, id)
}

func (s *PostgresRequisitionStore) getRequisition(
	ctx context.Context,
	where string,
	arg any,
) (*domain.Requisition, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + requisitionColumns + ` FROM requisitions ` + where

	req, err := scanRequisition(s.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrRequisitionNotFound
		}
		log.Error("failed to get requisition",
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	return req, nil
}

// Update implements store.RequisitionStore.Update
func (s *PostgresRequisitionStore) Update(ctx context.Context, req *domain.Requisition) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := req.Validate(); err != nil {
		log.Warn("requisition validation failed during update",
			slog.String("error", err.Error()),
			slog.String("requisition_id", req.ID.String()))
		return err
	}

	var closedBy uuid.NullUUID
	if req.ClosedBy != nil {
		closedBy = uuid.NullUUID{UUID: *req.ClosedBy, Valid: true}
	}
	var closedAt sql.NullTime
	if req.ClosedAt != nil {
		closedAt = sql.NullTime{Time: *req.ClosedAt, Valid: true}
	}

	query := `
		UPDATE requisitions
		SET status = $1, allow_incomplete_close = $2, closed_by = $3, closed_at = $4, updated_at = $5
		WHERE id = $6
	`
	result, err := s.db.ExecContext(
		ctx,
		query,
		req.Status,
		req.AllowIncompleteClose,
		closedBy,
		closedAt,
		req.UpdatedAt,
		req.ID,
	)
	if err != nil {
		log.Error("failed to update requisition",
			slog.String("error", err.Error()),
			slog.String("requisition_id", req.ID.String()))
		return MapError(err)
	}

	return CheckRowsAffected(result, "requisition")
}

const requisitionLineColumns = `id, requisition_id, article_id, article_code, name, barcode,
	requested_qty, fulfilled_qty, found_qty, discrepancy_kind, reason, status,
	completed_by, completed_at, created_at, updated_at`

// scanRequisitionLine scans one requisition line row.
func scanRequisitionLine(row interface{ Scan(dest ...any) error }) (*domain.RequisitionLine, error) {
	var line domain.RequisitionLine
	var status, kind string
	var completedBy uuid.NullUUID
	var completedAt sql.NullTime

	err := row.Scan(
		&line.ID,
		&line.RequisitionID,
		&line.ArticleID,
		&line.ArticleCode,
		&line.Name,
		&line.Barcode,
		&line.RequestedQty,
		&line.FulfilledQty,
		&line.FoundQty,
		&kind,
		&line.Reason,
		&status,
		&completedBy,
		&completedAt,
		&line.CreatedAt,
		&line.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	line.Status = domain.Status(status)
	line.DiscrepancyKind = domain.DiscrepancyKind(kind)
	if completedBy.Valid {
		line.CompletedBy = &completedBy.UUID
	}
	if completedAt.Valid {
		t := completedAt.Time
		line.CompletedAt = &t
	}
	return &line, nil
}

// ListLines implements store.RequisitionStore.ListLines
func (s *PostgresRequisitionStore) ListLines(
	ctx context.Context,
	requisitionID uuid.UUID,
) ([]*domain.RequisitionLine, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + requisitionLineColumns + `
		FROM requisition_lines
		WHERE requisition_id = $1
		ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query, requisitionID)
	if err != nil {
		log.Error("failed to list requisition lines",
			slog.String("error", err.Error()),
			slog.String("requisition_id", requisitionID.String()))
		return nil, MapError(err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	var lines []*domain.RequisitionLine
	for rows.Next() {
		line, err := scanRequisitionLine(rows)
		if err != nil {
			log.Error("failed to scan requisition line row",
				slog.String("error", err.Error()))
			return nil, err
		}
		lines = append(lines, line)
	}

	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	if lines == nil {
		lines = []*domain.RequisitionLine{}
	}
	return lines, nil
}

// GetLine implements store.RequisitionStore.GetLine
func (s *PostgresRequisitionStore) GetLine(ctx context.Context, lineID uuid.UUID) (*domain.RequisitionLine, error) {
	return s.getLine(ctx, `WHERE id = $1`, lineID)
}

// GetLineForUpdate implements store.RequisitionStore.GetLineForUpdate
func (s *PostgresRequisitionStore) GetLineForUpdate(
	ctx context.Context,
	lineID uuid.UUID,
) (*domain.RequisitionLine, error) {
	return s.getLine(ctx, `WHERE id = $1 FOR UPDATE`, lineID)
}

func (s *PostgresRequisitionStore) getLine(
	ctx context.Context,
	where string,
	lineID uuid.UUID,
) (*domain.RequisitionLine, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + requisitionLineColumns + ` FROM requisition_lines ` + where

	line, err := scanRequisitionLine(s.db.QueryRowContext(ctx, query, lineID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrRequisitionLineNotFound
		}
		log.Error("failed to get requisition line",
			slog.String("error", err.Error()),
			slog.String("line_id", lineID.String()))
		return nil, MapError(err)
	}

	return line, nil
}

// UpdateLine implements store.RequisitionStore.UpdateLine
func (s *PostgresRequisitionStore) UpdateLine(ctx context.Context, line *domain.RequisitionLine) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := line.Validate(); err != nil {
		log.Warn("requisition line validation failed during update",
			slog.String("error", err.Error()),
			slog.String("line_id", line.ID.String()))
		return err
	}

	var completedBy uuid.NullUUID
	if line.CompletedBy != nil {
		completedBy = uuid.NullUUID{UUID: *line.CompletedBy, Valid: true}
	}
	var completedAt sql.NullTime
	if line.CompletedAt != nil {
		completedAt = sql.NullTime{Time: *line.CompletedAt, Valid: true}
	}

	query := `
		UPDATE requisition_lines
		SET fulfilled_qty = $1, found_qty = $2, discrepancy_kind = $3, reason = $4,
			status = $5, completed_by = $6, completed_at = $7, updated_at = $8
		WHERE id = $9
	`
	result, err := s.db.ExecContext(
		ctx,
		query,
		line.FulfilledQty,
		line.FoundQty,
		line.DiscrepancyKind,
		line.Reason,
		line.Status,
		completedBy,
		completedAt,
		line.UpdatedAt,
		line.ID,
	)
	if err != nil {
		log.Error("failed to update requisition line",
			slog.String("error", err.Error()),
			slog.String("line_id", line.ID.String()))
		return MapError(err)
	}

	return CheckRowsAffected(result, "requisition line")
}
