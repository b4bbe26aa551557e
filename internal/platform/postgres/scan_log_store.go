package postgres

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/google/uuid"
	"github.com/magacin-io/wms-api/internal/domain"
	"github.com/magacin-io/wms-api/internal/platform/logger"
	"github.com/magacin-io/wms-api/internal/store"
)

// PostgresScanLogStore implements the store.ScanLogStore interface using a
// PostgreSQL database as the storage backend. The scan_log table is append
// only; nothing here updates or deletes.
type PostgresScanLogStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresScanLogStore creates a new PostgreSQL implementation of the
// ScanLogStore interface.
func NewPostgresScanLogStore(db store.DBTX, logger *slog.Logger) *PostgresScanLogStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresScanLogStore{
		db:     db,
		logger: logger.With(slog.String("component", "scan_log_store")),
	}
}

// Ensure PostgresScanLogStore implements store.ScanLogStore
var _ store.ScanLogStore = (*PostgresScanLogStore)(nil)

// WithTx implements store.ScanLogStore.WithTx
func (s *PostgresScanLogStore) WithTx(tx *sql.Tx) store.ScanLogStore {
	return &PostgresScanLogStore{
		db:     tx,
		logger: s.logger,
	}
}

// Append implements store.ScanLogStore.Append
func (s *PostgresScanLogStore) Append(ctx context.Context, record *domain.ScanRecord) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := record.Validate(); err != nil {
		log.Warn("scan record validation failed during append",
			slog.String("error", err.Error()),
			slog.String("scan_id", record.ID.String()))
		return err
	}

	query := `
		INSERT INTO scan_log (id, assignment_line_id, barcode, quantity, result, actor_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		record.ID,
		record.AssignmentLineID,
		record.Barcode,
		record.Quantity,
		record.Result,
		record.ActorID,
		record.CreatedAt,
	)
	if err != nil {
		log.Error("failed to append scan record",
			slog.String("error", err.Error()),
			slog.String("assignment_line_id", record.AssignmentLineID.String()))
		return MapError(err)
	}

	return nil
}

// ListByAssignmentLine implements store.ScanLogStore.ListByAssignmentLine
func (s *PostgresScanLogStore) ListByAssignmentLine(
	ctx context.Context,
	assignmentLineID uuid.UUID,
) ([]*domain.ScanRecord, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, assignment_line_id, barcode, quantity, result, actor_id, created_at
		FROM scan_log
		WHERE assignment_line_id = $1
		ORDER BY created_at, id
	`
	rows, err := s.db.QueryContext(ctx, query, assignmentLineID)
	if err != nil {
		log.Error("failed to list scan records",
			slog.String("error", err.Error()),
			slog.String("assignment_line_id", assignmentLineID.String()))
		return nil, MapError(err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	var records []*domain.ScanRecord
	for rows.Next() {
		var rec domain.ScanRecord
		var result string
		err := rows.Scan(
			&rec.ID,
			&rec.AssignmentLineID,
			&rec.Barcode,
			&rec.Quantity,
			&result,
			&rec.ActorID,
			&rec.CreatedAt,
		)
		if err != nil {
			log.Error("failed to scan scan log row",
				slog.String("error", err.Error()))
			return nil, err
		}
		rec.Result = domain.ScanClassification(result)
		records = append(records, &rec)
	}

	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	if records == nil {
		records = []*domain.ScanRecord{}
	}
	return records, nil
}
