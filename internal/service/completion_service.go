package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/magacin-io/wms-api/internal/domain"
	"github.com/magacin-io/wms-api/internal/platform/logger"
	"github.com/magacin-io/wms-api/internal/store"
)

// ShortCloseInput is a request to close a requisition line below its
// requested quantity.
type ShortCloseInput struct {
	RequisitionLineID uuid.UUID
	FoundQty          int64
	Kind              domain.DiscrepancyKind
	Reason            string
	ActorID           uuid.UUID
}

// CompletionService handles closing requisition lines short of their
// requested quantity. Every attempt, applied or rejected, lands in the audit
// trail.
type CompletionService interface {
	// ShortClose closes the line at FoundQty with the given discrepancy.
	// The requisition must allow incomplete closes; otherwise the attempt
	// is recorded and rejected with ErrIncompleteCloseNotAllowed.
	ShortClose(ctx context.Context, input ShortCloseInput) (*domain.RequisitionLine, error)

	// MarkRemainingZero closes the line at its current fulfilled quantity
	// with a not_found discrepancy: the worker reports the rest of the
	// stock simply is not there.
	MarkRemainingZero(ctx context.Context, lineID, actorID uuid.UUID, reason string) (*domain.RequisitionLine, error)
}

type completionServiceImpl struct {
	db           *sql.DB
	requisitions store.RequisitionStore
	assignments  store.AssignmentStore
	audits       store.AuditStore
	retries      int
	logger       *slog.Logger
	now          func() time.Time
}

// NewCompletionService creates a new CompletionService.
func NewCompletionService(
	db *sql.DB,
	requisitions store.RequisitionStore,
	assignments store.AssignmentStore,
	audits store.AuditStore,
	retries int,
	logger *slog.Logger,
) (CompletionService, error) {
	if db == nil {
		return nil, errors.New("db cannot be nil")
	}
	if requisitions == nil {
		return nil, errors.New("requisition store cannot be nil")
	}
	if assignments == nil {
		return nil, errors.New("assignment store cannot be nil")
	}
	if audits == nil {
		return nil, errors.New("audit store cannot be nil")
	}

	if retries < 1 {
		retries = 3
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &completionServiceImpl{
		db:           db,
		requisitions: requisitions,
		assignments:  assignments,
		audits:       audits,
		retries:      retries,
		logger:       logger.With(slog.String("component", "completion_service")),
		now:          func() time.Time { return time.Now().UTC() },
	}, nil
}

// ShortClose implements CompletionService.ShortClose
func (s *completionServiceImpl) ShortClose(
	ctx context.Context,
	input ShortCloseInput,
) (*domain.RequisitionLine, error) {
	return s.shortClose(ctx, input, false)
}

// MarkRemainingZero implements CompletionService.MarkRemainingZero
func (s *completionServiceImpl) MarkRemainingZero(
	ctx context.Context,
	lineID, actorID uuid.UUID,
	reason string,
) (*domain.RequisitionLine, error) {
	return s.shortClose(ctx, ShortCloseInput{
		RequisitionLineID: lineID,
		Kind:              domain.DiscrepancyNotFound,
		Reason:            reason,
		ActorID:           actorID,
	}, true)
}

// shortClose runs the close in one transaction. Rejected attempts append
// their audit event and commit; the rejection is surfaced after the commit
// so the trail survives.
func (s *completionServiceImpl) shortClose(
	ctx context.Context,
	input ShortCloseInput,
	atFulfilled bool,
) (*domain.RequisitionLine, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var closed *domain.RequisitionLine
	var rejection error

	err := store.RunInLockingTransaction(ctx, s.db, s.retries,
		func(ctx context.Context, tx *sql.Tx) error {
			closed, rejection = nil, nil

			txReqs := s.requisitions.WithTx(tx)
			txAssignments := s.assignments.WithTx(tx)
			txAudits := s.audits.WithTx(tx)

			// Lock ordering matches the scheduler: requisition row first,
			// then the line.
			peek, err := txReqs.GetLine(ctx, input.RequisitionLineID)
			if err != nil {
				return err
			}

			req, err := txReqs.GetForUpdate(ctx, peek.RequisitionID)
			if err != nil {
				return err
			}
			if req.Status.IsTerminal() {
				return domain.ErrAlreadyTerminal
			}

			line, err := txReqs.GetLineForUpdate(ctx, input.RequisitionLineID)
			if err != nil {
				return err
			}
			if line.Status.IsTerminal() {
				return domain.ErrAlreadyTerminal
			}

			now := s.now()
			reject := func(cause error) error {
				rejection = cause
				return txAudits.Append(ctx, &store.AuditEvent{
					ID:         uuid.New(),
					EntityKind: "requisition_line",
					EntityID:   line.ID,
					Action:     "short_close",
					Outcome:    "rejected",
					Detail:     cause.Error(),
					ActorID:    input.ActorID,
					CreatedAt:  now,
				})
			}

			if !req.AllowIncompleteClose {
				return reject(fmt.Errorf("%w: %s", ErrIncompleteCloseNotAllowed, req.DocumentNumber))
			}

			foundQty := input.FoundQty
			if atFulfilled {
				foundQty = line.FulfilledQty
			}

			if err := line.ShortClose(foundQty, input.Kind, input.Reason, input.ActorID, now); err != nil {
				if errors.Is(err, domain.ErrInvalidQuantity) ||
					errors.Is(err, domain.ErrReasonRequired) ||
					errors.Is(err, domain.ErrInvalidDiscrepancyKind) {
					return reject(err)
				}
				return err
			}

			if err := txReqs.UpdateLine(ctx, line); err != nil {
				return err
			}

			// Open delegations of the closed line are forced shut at their
			// current processed quantity, then their assignments rolled up.
			delegated, err := txAssignments.ListLinesByRequisitionLine(ctx, line.ID)
			if err != nil {
				return err
			}

			affected := make(map[uuid.UUID]bool)
			for _, al := range delegated {
				if al.Status.IsTerminal() {
					continue
				}
				if err := al.ForceClose(); err != nil {
					return err
				}
				if err := txAssignments.UpdateLine(ctx, al); err != nil {
					return err
				}
				affected[al.AssignmentID] = true
			}

			for assignmentID := range affected {
				assignment, err := txAssignments.GetByID(ctx, assignmentID)
				if err != nil {
					return err
				}
				if assignment.Status.IsTerminal() {
					continue
				}

				alines, err := txAssignments.ListLines(ctx, assignmentID)
				if err != nil {
					return err
				}
				status, progress := assignmentRollup(alines)
				if err := assignment.SetProgress(progress); err != nil {
					return err
				}
				if err := assignment.SetStatus(status); err != nil {
					return err
				}
				if err := txAssignments.Update(ctx, assignment); err != nil {
					return err
				}
			}

			if err := txAudits.Append(ctx, &store.AuditEvent{
				ID:         uuid.New(),
				EntityKind: "requisition_line",
				EntityID:   line.ID,
				Action:     "short_close",
				Outcome:    "applied",
				Detail: fmt.Sprintf("closed at %d of %d (%s)",
					line.FoundQty, line.RequestedQty, line.DiscrepancyKind),
				ActorID:   input.ActorID,
				CreatedAt: now,
			}); err != nil {
				return err
			}

			closed = line
			return propagateRequisition(ctx, txReqs, line.RequisitionID, input.ActorID, now)
		})
	if err != nil {
		return nil, err
	}

	if rejection != nil {
		log.Warn("short close rejected",
			slog.String("requisition_line_id", input.RequisitionLineID.String()),
			slog.String("error", rejection.Error()))
		return nil, rejection
	}

	log.Info("requisition line short closed",
		slog.String("requisition_line_id", closed.ID.String()),
		slog.Int64("found_qty", closed.FoundQty),
		slog.String("discrepancy", string(closed.DiscrepancyKind)),
		slog.String("actor_id", input.ActorID.String()))
	return closed, nil
}
