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

// PostgresAssignmentStore implements the store.AssignmentStore interface
// using a PostgreSQL database as the storage backend.
type PostgresAssignmentStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresAssignmentStore creates a new PostgreSQL implementation of the
// AssignmentStore interface.
func NewPostgresAssignmentStore(db store.DBTX, logger *slog.Logger) *PostgresAssignmentStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresAssignmentStore{
		db:     db,
		logger: logger.With(slog.String("component", "assignment_store")),
	}
}

// Ensure PostgresAssignmentStore implements store.AssignmentStore
var _ store.AssignmentStore = (*PostgresAssignmentStore)(nil)

// WithTx implements store.AssignmentStore.WithTx
func (s *PostgresAssignmentStore) WithTx(tx *sql.Tx) store.AssignmentStore {
	return &PostgresAssignmentStore{
		db:     tx,
		logger: s.logger,
	}
}

// Create implements store.AssignmentStore.Create
func (s *PostgresAssignmentStore) Create(
	ctx context.Context,
	assignment *domain.Assignment,
	lines []*domain.AssignmentLine,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := assignment.Validate(); err != nil {
		log.Warn("assignment validation failed during create",
			slog.String("error", err.Error()),
			slog.String("assignment_id", assignment.ID.String()))
		return err
	}

	for _, line := range lines {
		if err := line.Validate(); err != nil {
			log.Warn("assignment line validation failed during create",
				slog.String("error", err.Error()),
				slog.String("line_id", line.ID.String()))
			return err
		}
	}

	query := `
		INSERT INTO assignments (id, requisition_id, worker_id, priority, due_at,
			status, progress, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	var dueAt sql.NullTime
	if assignment.DueAt != nil {
		dueAt = sql.NullTime{Time: *assignment.DueAt, Valid: true}
	}

	_, err := s.db.ExecContext(
		ctx,
		query,
		assignment.ID,
		assignment.RequisitionID,
		assignment.WorkerID,
		assignment.Priority,
		dueAt,
		assignment.Status,
		assignment.Progress,
		assignment.CreatedAt,
		assignment.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to create assignment",
			slog.String("error", err.Error()),
			slog.String("assignment_id", assignment.ID.String()))
		return MapError(err)
	}

	lineQuery := `
		INSERT INTO assignment_lines (id, assignment_id, requisition_line_id,
			requested_qty, processed_qty, status, last_scanned_code, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	for _, line := range lines {
		_, err := s.db.ExecContext(
			ctx,
			lineQuery,
			line.ID,
			line.AssignmentID,
			line.RequisitionLineID,
			line.RequestedQty,
			line.ProcessedQty,
			line.Status,
			line.LastScannedCode,
			line.CreatedAt,
			line.UpdatedAt,
		)
		if err != nil {
			log.Error("failed to create assignment line",
				slog.String("error", err.Error()),
				slog.String("line_id", line.ID.String()))
			return MapError(err)
		}
	}

	log.Info("assignment created successfully",
		slog.String("assignment_id", assignment.ID.String()),
		slog.String("worker_id", assignment.WorkerID.String()),
		slog.Int("lines", len(lines)))
	return nil
}

const assignmentColumns = `id, requisition_id, worker_id, priority, due_at,
	status, progress, created_at, updated_at`

func scanAssignment(row interface{ Scan(dest ...any) error }) (*domain.Assignment, error) {
	var a domain.Assignment
	var status string
	var dueAt sql.NullTime

	err := row.Scan(
		&a.ID,
		&a.RequisitionID,
		&a.WorkerID,
		&a.Priority,
		&dueAt,
		&status,
		&a.Progress,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.Status = domain.Status(status)
	if dueAt.Valid {
		t := dueAt.Time
		a.DueAt = &t
	}
	return &a, nil
}

// GetByID implements store.AssignmentStore.GetByID
func (s *PostgresAssignmentStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Assignment, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE id = $1`

	a, err := scanAssignment(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrAssignmentNotFound
		}
		log.Error("failed to get assignment",
			slog.String("error", err.Error()),
			slog.String("assignment_id", id.String()))
		return nil, MapError(err)
	}

	return a, nil
}

// Update implements store.AssignmentStore.Update
func (s *PostgresAssignmentStore) Update(ctx context.Context, assignment *domain.Assignment) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := assignment.Validate(); err != nil {
		log.Warn("assignment validation failed during update",
			slog.String("error", err.Error()),
			slog.String("assignment_id", assignment.ID.String()))
		return err
	}

	query := `
		UPDATE assignments
		SET status = $1, progress = $2, priority = $3, updated_at = $4
		WHERE id = $5
	`
	result, err := s.db.ExecContext(
		ctx,
		query,
		assignment.Status,
		assignment.Progress,
		assignment.Priority,
		assignment.UpdatedAt,
		assignment.ID,
	)
	if err != nil {
		log.Error("failed to update assignment",
			slog.String("error", err.Error()),
			slog.String("assignment_id", assignment.ID.String()))
		return MapError(err)
	}

	return CheckRowsAffected(result, "assignment")
}

// ListByRequisition implements store.AssignmentStore.ListByRequisition
func (s *PostgresAssignmentStore) ListByRequisition(
	ctx context.Context,
	requisitionID uuid.UUID,
) ([]*domain.Assignment, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + assignmentColumns + `
		FROM assignments
		WHERE requisition_id = $1
		ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query, requisitionID)
	if err != nil {
		log.Error("failed to list assignments",
			slog.String("error", err.Error()),
			slog.String("requisition_id", requisitionID.String()))
		return nil, MapError(err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	var assignments []*domain.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			log.Error("failed to scan assignment row",
				slog.String("error", err.Error()))
			return nil, err
		}
		assignments = append(assignments, a)
	}

	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	if assignments == nil {
		assignments = []*domain.Assignment{}
	}
	return assignments, nil
}

const assignmentLineColumns = `id, assignment_id, requisition_line_id,
	requested_qty, processed_qty, status, last_scanned_code, created_at, updated_at`

func scanAssignmentLine(row interface{ Scan(dest ...any) error }) (*domain.AssignmentLine, error) {
	var line domain.AssignmentLine
	var status string

	err := row.Scan(
		&line.ID,
		&line.AssignmentID,
		&line.RequisitionLineID,
		&line.RequestedQty,
		&line.ProcessedQty,
		&status,
		&line.LastScannedCode,
		&line.CreatedAt,
		&line.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	line.Status = domain.Status(status)
	return &line, nil
}

// ListLines implements store.AssignmentStore.ListLines
func (s *PostgresAssignmentStore) ListLines(
	ctx context.Context,
	assignmentID uuid.UUID,
) ([]*domain.AssignmentLine, error) {
	return s.listLines(ctx, `WHERE assignment_id = $1`, assignmentID)
}

// ListLinesByRequisitionLine implements store.AssignmentStore.ListLinesByRequisitionLine
func (s *PostgresAssignmentStore) ListLinesByRequisitionLine(
	ctx context.Context,
	requisitionLineID uuid.UUID,
) ([]*domain.AssignmentLine, error) {
	return s.listLines(ctx, `WHERE requisition_line_id = $1`, requisitionLineID)
}

func (s *PostgresAssignmentStore) listLines(
	ctx context.Context,
	where string,
	arg any,
) ([]*domain.AssignmentLine, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + assignmentLineColumns + `
		FROM assignment_lines ` + where + `
		ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		log.Error("failed to list assignment lines",
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	var lines []*domain.AssignmentLine
	for rows.Next() {
		line, err := scanAssignmentLine(rows)
		if err != nil {
			log.Error("failed to scan assignment line row",
				slog.String("error", err.Error()))
			return nil, err
		}
		lines = append(lines, line)
	}

	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	if lines == nil {
		lines = []*domain.AssignmentLine{}
	}
	return lines, nil
}

// GetLine implements store.AssignmentStore.GetLine
func (s *PostgresAssignmentStore) GetLine(ctx context.Context, lineID uuid.UUID) (*domain.AssignmentLine, error) {
	return s.getLine(ctx, `WHERE id = $1`, lineID)
}

// GetLineForUpdate implements store.AssignmentStore.GetLineForUpdate
// The row lock keeps concurrent scans against the same leaf strictly
// sequential; it is only meaningful inside a transaction.
func (s *PostgresAssignmentStore) GetLineForUpdate(
	ctx context.Context,
	lineID uuid.UUID,
) (*domain.AssignmentLine, error) {
	return s.getLine(ctx, `WHERE id = $1 FOR UPDATE`, lineID)
}

func (s *PostgresAssignmentStore) getLine(
	ctx context.Context,
	where string,
	lineID uuid.UUID,
) (*domain.AssignmentLine, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + assignmentLineColumns + ` FROM assignment_lines ` + where

	line, err := scanAssignmentLine(s.db.QueryRowContext(ctx, query, lineID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrAssignmentLineNotFound
		}
		log.Error("failed to get assignment line",
			slog.String("error", err.Error()),
			slog.String("line_id", lineID.String()))
		return nil, MapError(err)
	}

	return line, nil
}

// UpdateLine implements store.AssignmentStore.UpdateLine
func (s *PostgresAssignmentStore) UpdateLine(ctx context.Context, line *domain.AssignmentLine) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := line.Validate(); err != nil {
		log.Warn("assignment line validation failed during update",
			slog.String("error", err.Error()),
			slog.String("line_id", line.ID.String()))
		return err
	}

	query := `
		UPDATE assignment_lines
		SET processed_qty = $1, status = $2, last_scanned_code = $3, updated_at = $4
		WHERE id = $5
	`
	result, err := s.db.ExecContext(
		ctx,
		query,
		line.ProcessedQty,
		line.Status,
		line.LastScannedCode,
		line.UpdatedAt,
		line.ID,
	)
	if err != nil {
		log.Error("failed to update assignment line",
			slog.String("error", err.Error()),
			slog.String("line_id", line.ID.String()))
		return MapError(err)
	}

	return CheckRowsAffected(result, "assignment line")
}

// WorkerLoads implements store.AssignmentStore.WorkerLoads
// Open means the assignment is in assigned or in_progress; terminal
// assignments no longer contribute load. Lines are filtered the same way:
// a force-closed line still carries requested > processed, but its worker
// owes no further work on it.
func (s *PostgresAssignmentStore) WorkerLoads(
	ctx context.Context,
	workerIDs []uuid.UUID,
) (map[uuid.UUID]store.WorkerLoad, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	loads := make(map[uuid.UUID]store.WorkerLoad)
	if len(workerIDs) == 0 {
		return loads, nil
	}

	query := `
		SELECT a.worker_id,
			COALESCE(SUM(al.requested_qty - al.processed_qty), 0),
			COUNT(DISTINCT a.id)
		FROM assignments a
		JOIN assignment_lines al ON al.assignment_id = a.id
		WHERE a.worker_id = ANY($1)
			AND a.status IN ('assigned', 'in_progress')
			AND al.status IN ('assigned', 'in_progress')
		GROUP BY a.worker_id
	`
	rows, err := s.db.QueryContext(ctx, query, workerIDs)
	if err != nil {
		log.Error("failed to query worker loads",
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	for rows.Next() {
		var load store.WorkerLoad
		if err := rows.Scan(&load.WorkerID, &load.RemainingQty, &load.OpenAssignments); err != nil {
			log.Error("failed to scan worker load row",
				slog.String("error", err.Error()))
			return nil, err
		}
		loads[load.WorkerID] = load
	}

	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	return loads, nil
}
