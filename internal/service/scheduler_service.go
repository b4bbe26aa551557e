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

// SchedulerConfig holds the scheduler's tunables.
type SchedulerConfig struct {
	// LockWindow is how long a computed suggestion stays cached and locked
	// before a new Suggest call recomputes it.
	LockWindow time.Duration

	// LockRetryAttempts bounds the retries on row-lock contention before an
	// operation gives up with store.ErrBusy.
	LockRetryAttempts int
}

// AssignmentDetail is the read model for one assignment and its lines.
type AssignmentDetail struct {
	Assignment *domain.Assignment
	Lines      []*domain.AssignmentLine
}

// SchedulerService computes least-loaded worker suggestions and turns them
// into assignments, keeping the full decision trail.
type SchedulerService interface {
	// Suggest returns the worker the requisition should go to. A suggestion
	// computed within the lock window is returned as-is (cached=true)
	// instead of being recomputed, so repeated calls cannot flap between
	// workers while a dispatcher is deciding.
	Suggest(ctx context.Context, requisitionID, actorID uuid.UUID) (sg *domain.Suggestion, cached bool, err error)

	// Accept turns a live suggestion into an assignment covering the
	// requisition's remaining quantity. Consumes the suggestion.
	Accept(ctx context.Context, suggestionID, actorID uuid.UUID) (*domain.Assignment, error)

	// Override assigns the requisition to an explicitly chosen worker
	// instead of the suggested one. Requires a reason; any live suggestion
	// is marked overridden for the audit trail.
	Override(ctx context.Context, requisitionID, workerID, actorID uuid.UUID, reason string) (*domain.Assignment, error)

	// FailAssignment moves an assignment into the failed terminal state and
	// releases its unfinished reservation, so the remaining quantity can be
	// re-assigned. Requires a reason.
	FailAssignment(ctx context.Context, assignmentID, actorID uuid.UUID, reason string) error

	// GetAssignment retrieves an assignment with its lines.
	GetAssignment(ctx context.Context, assignmentID uuid.UUID) (*AssignmentDetail, error)

	// GetActiveSuggestion retrieves the current unexpired suggestion for a
	// requisition, or store.ErrSuggestionNotFound when none is live.
	GetActiveSuggestion(ctx context.Context, requisitionID uuid.UUID) (*domain.Suggestion, error)
}

type schedulerServiceImpl struct {
	db           *sql.DB
	requisitions store.RequisitionStore
	assignments  store.AssignmentStore
	suggestions  store.SuggestionStore
	workers      store.WorkerStore
	audits       store.AuditStore
	cfg          SchedulerConfig
	logger       *slog.Logger
	now          func() time.Time
}

// NewSchedulerService creates a new SchedulerService.
func NewSchedulerService(
	db *sql.DB,
	requisitions store.RequisitionStore,
	assignments store.AssignmentStore,
	suggestions store.SuggestionStore,
	workers store.WorkerStore,
	audits store.AuditStore,
	cfg SchedulerConfig,
	logger *slog.Logger,
) (SchedulerService, error) {
	if db == nil {
		return nil, errors.New("db cannot be nil")
	}
	if requisitions == nil {
		return nil, errors.New("requisition store cannot be nil")
	}
	if assignments == nil {
		return nil, errors.New("assignment store cannot be nil")
	}
	if suggestions == nil {
		return nil, errors.New("suggestion store cannot be nil")
	}
	if workers == nil {
		return nil, errors.New("worker store cannot be nil")
	}
	if audits == nil {
		return nil, errors.New("audit store cannot be nil")
	}

	if cfg.LockWindow <= 0 {
		cfg.LockWindow = 2 * time.Minute
	}
	if cfg.LockRetryAttempts < 1 {
		cfg.LockRetryAttempts = 3
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &schedulerServiceImpl{
		db:           db,
		requisitions: requisitions,
		assignments:  assignments,
		suggestions:  suggestions,
		workers:      workers,
		audits:       audits,
		cfg:          cfg,
		logger:       logger.With(slog.String("component", "scheduler_service")),
		now:          func() time.Time { return time.Now().UTC() },
	}, nil
}

// Suggest implements SchedulerService.Suggest
func (s *schedulerServiceImpl) Suggest(
	ctx context.Context,
	requisitionID, actorID uuid.UUID,
) (*domain.Suggestion, bool, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	// The worker pool comes from the identity provider and does not need
	// the requisition lock.
	pool, err := s.workers.ListActiveWithCapability(ctx, domain.CapabilityPicker)
	if err != nil {
		return nil, false, fmt.Errorf("failed to list eligible workers: %w", err)
	}

	var suggestion *domain.Suggestion
	var cached bool

	err = store.RunInLockingTransaction(ctx, s.db, s.cfg.LockRetryAttempts,
		func(ctx context.Context, tx *sql.Tx) error {
			txReqs := s.requisitions.WithTx(tx)
			txSuggestions := s.suggestions.WithTx(tx)
			txAssignments := s.assignments.WithTx(tx)

			req, err := txReqs.GetForUpdate(ctx, requisitionID)
			if err != nil {
				return err
			}
			if req.Status.IsTerminal() {
				return domain.ErrAlreadyTerminal
			}

			now := s.now()

			// A live suggestion is the answer; no recompute inside the
			// lock window.
			active, err := txSuggestions.GetActiveByRequisition(ctx, requisitionID, now)
			if err == nil {
				suggestion = active
				cached = true
				return nil
			}
			if !store.IsNotFoundError(err) {
				return err
			}

			if len(pool) == 0 {
				return ErrNoEligibleWorker
			}

			ids := make([]uuid.UUID, 0, len(pool))
			for _, w := range pool {
				ids = append(ids, w.ID)
			}

			loads, err := txAssignments.WorkerLoads(ctx, ids)
			if err != nil {
				return fmt.Errorf("failed to compute worker loads: %w", err)
			}

			best := pickLeastLoaded(pool, loads)
			bestLoad := loads[best.ID]

			reason := fmt.Sprintf(
				"least loaded: %d remaining units across %d open assignments",
				bestLoad.RemainingQty, bestLoad.OpenAssignments,
			)

			sg, err := domain.NewSuggestion(
				requisitionID,
				best.ID,
				bestLoad.RemainingQty,
				bestLoad.OpenAssignments,
				reason,
				now.Add(s.cfg.LockWindow),
				actorID,
			)
			if err != nil {
				return err
			}

			if err := txSuggestions.Create(ctx, sg); err != nil {
				return err
			}

			suggestion = sg
			return nil
		})
	if err != nil {
		return nil, false, err
	}

	log.Debug("suggestion served",
		slog.String("requisition_id", requisitionID.String()),
		slog.String("worker_id", suggestion.WorkerID.String()),
		slog.Bool("cached", cached))
	return suggestion, cached, nil
}

// pickLeastLoaded chooses the worker with the smallest remaining quantity,
// breaking ties by fewest open assignments and then by lowest worker ID so
// the outcome is deterministic. Workers absent from the load map carry zero
// load.
func pickLeastLoaded(pool []*domain.Worker, loads map[uuid.UUID]store.WorkerLoad) *domain.Worker {
	best := pool[0]
	bestLoad := loads[best.ID]

	for _, w := range pool[1:] {
		load := loads[w.ID]
		switch {
		case load.RemainingQty < bestLoad.RemainingQty:
		case load.RemainingQty == bestLoad.RemainingQty && load.OpenAssignments < bestLoad.OpenAssignments:
		case load.RemainingQty == bestLoad.RemainingQty && load.OpenAssignments == bestLoad.OpenAssignments &&
			w.ID.String() < best.ID.String():
		default:
			continue
		}
		best = w
		bestLoad = load
	}

	return best
}

// Accept implements SchedulerService.Accept
func (s *schedulerServiceImpl) Accept(
	ctx context.Context,
	suggestionID, actorID uuid.UUID,
) (*domain.Assignment, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var assignment *domain.Assignment

	err := store.RunInLockingTransaction(ctx, s.db, s.cfg.LockRetryAttempts,
		func(ctx context.Context, tx *sql.Tx) error {
			txReqs := s.requisitions.WithTx(tx)
			txSuggestions := s.suggestions.WithTx(tx)
			txAssignments := s.assignments.WithTx(tx)

			sg, err := txSuggestions.GetByID(ctx, suggestionID)
			if err != nil {
				return err
			}

			req, err := txReqs.GetForUpdate(ctx, sg.RequisitionID)
			if err != nil {
				return err
			}
			if req.Status.IsTerminal() {
				return domain.ErrAlreadyTerminal
			}

			now := s.now()
			if sg.Expired(now) {
				return ErrSuggestionExpired
			}
			if err := sg.Consume(domain.SuggestionStatusAccepted); err != nil {
				return err
			}

			// The worker may have gone inactive since the suggestion.
			worker, err := s.workers.GetByID(ctx, sg.WorkerID)
			if err != nil {
				return err
			}
			if !worker.Eligible() {
				return fmt.Errorf("%w: %s", ErrWorkerNotEligible, worker.ID)
			}

			a, err := createAssignmentForRequisition(ctx, txReqs, txAssignments, req, worker.ID, now)
			if err != nil {
				return err
			}

			if err := txSuggestions.UpdateStatus(ctx, sg.ID, domain.SuggestionStatusAccepted); err != nil {
				return err
			}

			assignment = a
			return s.audits.WithTx(tx).Append(ctx, &store.AuditEvent{
				ID:         uuid.New(),
				EntityKind: "requisition",
				EntityID:   req.ID,
				Action:     "accept_suggestion",
				Outcome:    "applied",
				Detail:     fmt.Sprintf("suggestion %s accepted for worker %s", sg.ID, sg.WorkerID),
				ActorID:    actorID,
				CreatedAt:  now,
			})
		})
	if err != nil {
		return nil, err
	}

	log.Info("suggestion accepted",
		slog.String("assignment_id", assignment.ID.String()),
		slog.String("worker_id", assignment.WorkerID.String()),
		slog.String("actor_id", actorID.String()))
	return assignment, nil
}

// Override implements SchedulerService.Override
func (s *schedulerServiceImpl) Override(
	ctx context.Context,
	requisitionID, workerID, actorID uuid.UUID,
	reason string,
) (*domain.Assignment, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if reason == "" {
		return nil, domain.ErrReasonRequired
	}

	worker, err := s.workers.GetByID(ctx, workerID)
	if err != nil {
		return nil, err
	}
	if !worker.Eligible() {
		return nil, fmt.Errorf("%w: %s", ErrWorkerNotEligible, workerID)
	}

	var assignment *domain.Assignment

	err = store.RunInLockingTransaction(ctx, s.db, s.cfg.LockRetryAttempts,
		func(ctx context.Context, tx *sql.Tx) error {
			txReqs := s.requisitions.WithTx(tx)
			txSuggestions := s.suggestions.WithTx(tx)
			txAssignments := s.assignments.WithTx(tx)

			req, err := txReqs.GetForUpdate(ctx, requisitionID)
			if err != nil {
				return err
			}
			if req.Status.IsTerminal() {
				return domain.ErrAlreadyTerminal
			}

			now := s.now()

			// A live suggestion is marked overridden, not deleted, so the
			// decision trail shows what the scheduler wanted.
			active, err := txSuggestions.GetActiveByRequisition(ctx, requisitionID, now)
			if err == nil {
				if consumeErr := active.Consume(domain.SuggestionStatusOverride); consumeErr == nil {
					if err := txSuggestions.UpdateStatus(ctx, active.ID, domain.SuggestionStatusOverride); err != nil {
						return err
					}
				}
			} else if !store.IsNotFoundError(err) {
				return err
			}

			a, err := createAssignmentForRequisition(ctx, txReqs, txAssignments, req, workerID, now)
			if err != nil {
				return err
			}

			assignment = a
			return s.audits.WithTx(tx).Append(ctx, &store.AuditEvent{
				ID:         uuid.New(),
				EntityKind: "requisition",
				EntityID:   req.ID,
				Action:     "override",
				Outcome:    "applied",
				Detail:     fmt.Sprintf("assigned to worker %s: %s", workerID, reason),
				ActorID:    actorID,
				CreatedAt:  now,
			})
		})
	if err != nil {
		return nil, err
	}

	log.Info("suggestion overridden",
		slog.String("assignment_id", assignment.ID.String()),
		slog.String("worker_id", workerID.String()),
		slog.String("actor_id", actorID.String()))
	return assignment, nil
}

// createAssignmentForRequisition reserves the remaining quantity of every
// open requisition line for one new assignment. Remaining means the
// requested quantity minus what is already locked in by other assignments:
// terminal delegations count at their processed quantity, open ones at
// their full reservation. Must run with the requisition row locked.
func createAssignmentForRequisition(
	ctx context.Context,
	requisitions store.RequisitionStore,
	assignments store.AssignmentStore,
	req *domain.Requisition,
	workerID uuid.UUID,
	now time.Time,
) (*domain.Assignment, error) {
	lines, err := requisitions.ListLines(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	// Assignment failure releases the reservation, so delegations held by a
	// terminal assignment count only at their processed quantity.
	terminalAssignments := make(map[uuid.UUID]bool)
	existing, err := assignments.ListByRequisition(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	for _, a := range existing {
		if a.Status.IsTerminal() {
			terminalAssignments[a.ID] = true
		}
	}

	assignment, err := domain.NewAssignment(req.ID, workerID, 0, nil)
	if err != nil {
		return nil, err
	}

	var alines []*domain.AssignmentLine
	var touched []*domain.RequisitionLine

	for _, line := range lines {
		if line.Status.IsTerminal() {
			continue
		}

		delegated, err := assignments.ListLinesByRequisitionLine(ctx, line.ID)
		if err != nil {
			return nil, err
		}

		var reserved int64
		for _, al := range delegated {
			if al.Status.IsTerminal() || terminalAssignments[al.AssignmentID] {
				reserved += al.ProcessedQty
			} else {
				reserved += al.RequestedQty
			}
		}

		remaining := line.RequestedQty - reserved
		if remaining <= 0 {
			continue
		}

		aline, err := domain.NewAssignmentLine(assignment.ID, line.ID, remaining)
		if err != nil {
			return nil, err
		}
		alines = append(alines, aline)
		touched = append(touched, line)
	}

	if len(alines) == 0 {
		return nil, ErrNothingToAssign
	}

	if err := assignments.Create(ctx, assignment, alines); err != nil {
		return nil, err
	}

	for _, line := range touched {
		if line.Status != domain.StatusNew {
			continue
		}
		if err := line.SetStatus(domain.StatusAssigned); err != nil {
			return nil, err
		}
		if err := requisitions.UpdateLine(ctx, line); err != nil {
			return nil, err
		}
	}

	if req.Status == domain.StatusNew {
		if err := req.SetStatus(domain.StatusAssigned); err != nil {
			return nil, err
		}
		if err := requisitions.Update(ctx, req); err != nil {
			return nil, err
		}
	}

	return assignment, nil
}

// FailAssignment implements SchedulerService.FailAssignment
func (s *schedulerServiceImpl) FailAssignment(
	ctx context.Context,
	assignmentID, actorID uuid.UUID,
	reason string,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if reason == "" {
		return domain.ErrReasonRequired
	}

	err := store.RunInLockingTransaction(ctx, s.db, s.cfg.LockRetryAttempts,
		func(ctx context.Context, tx *sql.Tx) error {
			txReqs := s.requisitions.WithTx(tx)
			txAssignments := s.assignments.WithTx(tx)

			assignment, err := txAssignments.GetByID(ctx, assignmentID)
			if err != nil {
				return err
			}

			// Lock ordering matches the other paths: requisition first.
			req, err := txReqs.GetForUpdate(ctx, assignment.RequisitionID)
			if err != nil {
				return err
			}

			if err := assignment.Fail(); err != nil {
				return err
			}
			if err := txAssignments.Update(ctx, assignment); err != nil {
				return err
			}

			now := s.now()
			if err := s.audits.WithTx(tx).Append(ctx, &store.AuditEvent{
				ID:         uuid.New(),
				EntityKind: "assignment",
				EntityID:   assignmentID,
				Action:     "fail",
				Outcome:    "applied",
				Detail:     reason,
				ActorID:    actorID,
				CreatedAt:  now,
			}); err != nil {
				return err
			}

			return propagateRequisition(ctx, txReqs, req.ID, actorID, now)
		})
	if err != nil {
		return err
	}

	log.Info("assignment failed by supervisor",
		slog.String("assignment_id", assignmentID.String()),
		slog.String("actor_id", actorID.String()))
	return nil
}

// GetAssignment implements SchedulerService.GetAssignment
func (s *schedulerServiceImpl) GetAssignment(
	ctx context.Context,
	assignmentID uuid.UUID,
) (*AssignmentDetail, error) {
	assignment, err := s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		return nil, err
	}

	lines, err := s.assignments.ListLines(ctx, assignmentID)
	if err != nil {
		return nil, err
	}

	return &AssignmentDetail{
		Assignment: assignment,
		Lines:      lines,
	}, nil
}

// GetActiveSuggestion implements SchedulerService.GetActiveSuggestion
func (s *schedulerServiceImpl) GetActiveSuggestion(
	ctx context.Context,
	requisitionID uuid.UUID,
) (*domain.Suggestion, error) {
	return s.suggestions.GetActiveByRequisition(ctx, requisitionID, s.now())
}
