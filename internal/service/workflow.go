package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/magacin-io/wms-api/internal/domain"
	"github.com/magacin-io/wms-api/internal/store"
)

// The workflow chain is recomputed bottom-up from the assignment lines,
// never edited top-down: a leaf mutation calls propagateFromLeaf inside the
// same transaction, which rolls the new quantities and statuses up through
// the assignment, the requisition line, and the requisition. Terminal rows
// are sticky; propagation skips them rather than reopening them.

// assignmentRollup derives an assignment's status and progress from its
// lines. An assignment with every line terminal is done; one with any
// progress or started line is in_progress; otherwise it stays assigned.
func assignmentRollup(lines []*domain.AssignmentLine) (domain.Status, float64) {
	var requested, processed int64
	allTerminal := len(lines) > 0
	started := false

	for _, line := range lines {
		requested += line.RequestedQty
		processed += line.ProcessedQty
		if !line.Status.IsTerminal() {
			allTerminal = false
		}
		if line.Status == domain.StatusInProgress || line.ProcessedQty > 0 {
			started = true
		}
	}

	var progress float64
	if requested > 0 {
		progress = 100 * float64(processed) / float64(requested)
	}

	switch {
	case allTerminal:
		return domain.StatusDone, progress
	case started:
		return domain.StatusInProgress, progress
	default:
		return domain.StatusAssigned, progress
	}
}

// requisitionLineRollup derives a requisition line's fulfilled quantity from
// every assignment line delegated from it, and reports whether all of those
// delegations are terminal.
func requisitionLineRollup(alines []*domain.AssignmentLine) (fulfilled int64, allTerminal bool) {
	allTerminal = len(alines) > 0
	for _, al := range alines {
		fulfilled += al.ProcessedQty
		if !al.Status.IsTerminal() {
			allTerminal = false
		}
	}
	return fulfilled, allTerminal
}

// requisitionRollup derives a requisition's status from its lines. The
// requisition is done only when every line is terminal; failed lines do not
// exist at this level, so terminal means done or short-closed.
func requisitionRollup(lines []*domain.RequisitionLine) domain.Status {
	allTerminal := len(lines) > 0
	started := false
	assigned := false

	for _, line := range lines {
		if !line.Status.IsTerminal() {
			allTerminal = false
		}
		switch line.Status {
		case domain.StatusInProgress, domain.StatusDone:
			started = true
		case domain.StatusAssigned:
			assigned = true
		}
	}

	switch {
	case allTerminal:
		return domain.StatusDone
	case started:
		return domain.StatusInProgress
	case assigned:
		return domain.StatusAssigned
	default:
		return domain.StatusNew
	}
}

// propagateFromLeaf rolls a leaf mutation up the chain. It must run inside
// the same transaction as the leaf change, on tx-scoped stores, so the whole
// chain moves atomically.
func propagateFromLeaf(
	ctx context.Context,
	requisitions store.RequisitionStore,
	assignments store.AssignmentStore,
	assignmentID, requisitionLineID, actorID uuid.UUID,
	now time.Time,
) error {
	assignment, err := assignments.GetByID(ctx, assignmentID)
	if err != nil {
		return fmt.Errorf("propagation: load assignment: %w", err)
	}

	if !assignment.Status.IsTerminal() {
		alines, err := assignments.ListLines(ctx, assignmentID)
		if err != nil {
			return fmt.Errorf("propagation: list assignment lines: %w", err)
		}

		status, progress := assignmentRollup(alines)
		if err := assignment.SetProgress(progress); err != nil {
			return err
		}
		if err := assignment.SetStatus(status); err != nil {
			return err
		}
		if err := assignments.Update(ctx, assignment); err != nil {
			return fmt.Errorf("propagation: update assignment: %w", err)
		}
	}

	reqLine, err := requisitions.GetLine(ctx, requisitionLineID)
	if err != nil {
		return fmt.Errorf("propagation: load requisition line: %w", err)
	}

	if !reqLine.Status.IsTerminal() {
		delegated, err := assignments.ListLinesByRequisitionLine(ctx, requisitionLineID)
		if err != nil {
			return fmt.Errorf("propagation: list delegated lines: %w", err)
		}

		fulfilled, _ := requisitionLineRollup(delegated)
		if err := reqLine.SetFulfilled(fulfilled); err != nil {
			return err
		}

		switch {
		case fulfilled == reqLine.RequestedQty:
			completedAt := now.UTC()
			reqLine.CompletedBy = &actorID
			reqLine.CompletedAt = &completedAt
			if err := reqLine.SetStatus(domain.StatusDone); err != nil {
				return err
			}
		case fulfilled > 0:
			if err := reqLine.SetStatus(domain.StatusInProgress); err != nil {
				return err
			}
		}

		if err := requisitions.UpdateLine(ctx, reqLine); err != nil {
			return fmt.Errorf("propagation: update requisition line: %w", err)
		}
	}

	return propagateRequisition(ctx, requisitions, reqLine.RequisitionID, actorID, now)
}

// propagateRequisition recomputes the requisition's status from its lines
// and closes it when every line is terminal.
func propagateRequisition(
	ctx context.Context,
	requisitions store.RequisitionStore,
	requisitionID, actorID uuid.UUID,
	now time.Time,
) error {
	req, err := requisitions.GetByID(ctx, requisitionID)
	if err != nil {
		return fmt.Errorf("propagation: load requisition: %w", err)
	}

	if req.Status.IsTerminal() {
		return nil
	}

	lines, err := requisitions.ListLines(ctx, requisitionID)
	if err != nil {
		return fmt.Errorf("propagation: list requisition lines: %w", err)
	}

	status := requisitionRollup(lines)
	if status == req.Status {
		return nil
	}

	if status == domain.StatusDone {
		if err := req.Close(actorID, now); err != nil {
			return err
		}
	} else {
		if err := req.SetStatus(status); err != nil {
			return err
		}
	}

	if err := requisitions.Update(ctx, req); err != nil {
		return fmt.Errorf("propagation: update requisition: %w", err)
	}

	return nil
}
