package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/magacin-io/wms-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (e *testEnv) completer(t *testing.T) CompletionService {
	t.Helper()
	svc, err := NewCompletionService(
		e.db, e.requisitions, e.assignments, e.audits, 3, nil,
	)
	require.NoError(t, err)
	return svc
}

func TestShortCloseAppliesAndClosesChain(t *testing.T) {
	ctx := context.Background()
	worker := pickerWorker("w")
	env := newTestEnv(t, worker)

	req, lines := seedRequisition(t, env, true, 10)
	assignment, alines := assignAll(t, env, req, worker)
	scanner := env.scanner(t)
	completer := env.completer(t)
	actor := uuid.New()

	// Three of ten picked, then the shelf is empty.
	_, err := scanner.RegisterScan(ctx, ScanInput{
		AssignmentLineID: alines[0].ID,
		Barcode:          lines[0].Barcode,
		Quantity:         3,
		ActorID:          worker.ID,
	})
	require.NoError(t, err)

	closed, err := completer.ShortClose(ctx, ShortCloseInput{
		RequisitionLineID: lines[0].ID,
		FoundQty:          3,
		Kind:              domain.DiscrepancyShortPick,
		ActorID:           actor,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDone, closed.Status)
	assert.Equal(t, int64(3), closed.FoundQty)
	assert.Equal(t, int64(3), closed.FulfilledQty)
	assert.Equal(t, domain.DiscrepancyShortPick, closed.DiscrepancyKind)
	require.NotNil(t, closed.CompletedBy)
	assert.Equal(t, actor, *closed.CompletedBy)

	// The open delegation was forced shut at its processed quantity.
	gotAline, err := env.assignments.GetLine(ctx, alines[0].ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDone, gotAline.Status)
	assert.Equal(t, int64(3), gotAline.ProcessedQty)

	gotAssignment, err := env.assignments.GetByID(ctx, assignment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDone, gotAssignment.Status)

	gotReq, err := env.requisitions.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDone, gotReq.Status)

	events, err := env.audits.ListByEntity(ctx, "requisition_line", lines[0].ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "applied", events[0].Outcome)
}

func TestShortCloseRejectedByPolicy(t *testing.T) {
	ctx := context.Background()
	worker := pickerWorker("w")
	env := newTestEnv(t, worker)

	// allow_incomplete_close is off.
	req, lines := seedRequisition(t, env, false, 10)
	assignAll(t, env, req, worker)
	completer := env.completer(t)
	actor := uuid.New()

	_, err := completer.ShortClose(ctx, ShortCloseInput{
		RequisitionLineID: lines[0].ID,
		FoundQty:          4,
		Kind:              domain.DiscrepancyShortPick,
		ActorID:           actor,
	})
	assert.ErrorIs(t, err, ErrIncompleteCloseNotAllowed)

	// The rejection itself is on the record.
	events, auditErr := env.audits.ListByEntity(ctx, "requisition_line", lines[0].ID)
	require.NoError(t, auditErr)
	require.Len(t, events, 1)
	assert.Equal(t, "rejected", events[0].Outcome)

	gotLine, err := env.requisitions.GetLine(ctx, lines[0].ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAssigned, gotLine.Status)
}

func TestShortCloseValidation(t *testing.T) {
	ctx := context.Background()
	worker := pickerWorker("w")
	env := newTestEnv(t, worker)

	req, lines := seedRequisition(t, env, true, 10)
	_, alines := assignAll(t, env, req, worker)
	scanner := env.scanner(t)
	completer := env.completer(t)

	_, err := scanner.RegisterScan(ctx, ScanInput{
		AssignmentLineID: alines[0].ID,
		Barcode:          lines[0].Barcode,
		Quantity:         5,
		ActorID:          worker.ID,
	})
	require.NoError(t, err)

	t.Run("found_at_or_above_requested", func(t *testing.T) {
		_, err := completer.ShortClose(ctx, ShortCloseInput{
			RequisitionLineID: lines[0].ID,
			FoundQty:          10,
			Kind:              domain.DiscrepancyShortPick,
			ActorID:           uuid.New(),
		})
		assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
	})

	t.Run("found_below_already_picked", func(t *testing.T) {
		_, err := completer.ShortClose(ctx, ShortCloseInput{
			RequisitionLineID: lines[0].ID,
			FoundQty:          4,
			Kind:              domain.DiscrepancyShortPick,
			ActorID:           uuid.New(),
		})
		assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
	})

	t.Run("other_requires_reason", func(t *testing.T) {
		_, err := completer.ShortClose(ctx, ShortCloseInput{
			RequisitionLineID: lines[0].ID,
			FoundQty:          5,
			Kind:              domain.DiscrepancyOther,
			ActorID:           uuid.New(),
		})
		assert.ErrorIs(t, err, domain.ErrReasonRequired)
	})

	// Each rejected attempt landed in the audit trail.
	events, err := env.audits.ListByEntity(ctx, "requisition_line", lines[0].ID)
	require.NoError(t, err)
	assert.Len(t, events, 3)
}

func TestMarkRemainingZero(t *testing.T) {
	ctx := context.Background()
	worker := pickerWorker("w")
	env := newTestEnv(t, worker)

	req, lines := seedRequisition(t, env, true, 8)
	_, alines := assignAll(t, env, req, worker)
	scanner := env.scanner(t)
	completer := env.completer(t)
	actor := uuid.New()

	_, err := scanner.RegisterScan(ctx, ScanInput{
		AssignmentLineID: alines[0].ID,
		Barcode:          lines[0].Barcode,
		Quantity:         6,
		ActorID:          worker.ID,
	})
	require.NoError(t, err)

	closed, err := completer.MarkRemainingZero(ctx, lines[0].ID, actor, "")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDone, closed.Status)
	assert.Equal(t, int64(6), closed.FoundQty)
	assert.Equal(t, domain.DiscrepancyNotFound, closed.DiscrepancyKind)

	// Closing an already closed line is terminal.
	_, err = completer.MarkRemainingZero(ctx, lines[0].ID, actor, "")
	assert.ErrorIs(t, err, domain.ErrAlreadyTerminal)
}
