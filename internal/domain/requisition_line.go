package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for RequisitionLine
var (
	ErrEmptyRequisitionLineID     = errors.New("requisition line ID cannot be empty")
	ErrEmptyLineRequisitionID     = errors.New("requisition line requisition ID cannot be empty")
	ErrEmptyLineArticle           = errors.New("requisition line article cannot be empty")
	ErrInvalidRequisitionLineStat = errors.New("invalid requisition line status")
)

// RequisitionLine is one article line on a Requisition. The fulfilled
// quantity is the single source of truth for the document side of the
// ledger; it is recomputed from the assignment lines on every mutation,
// except when a short-close fixes it explicitly.
type RequisitionLine struct {
	ID              uuid.UUID       `json:"id"`
	RequisitionID   uuid.UUID       `json:"requisition_id"`
	ArticleID       uuid.UUID       `json:"article_id"`
	ArticleCode     string          `json:"article_code"`
	Name            string          `json:"name"`
	Barcode         string          `json:"barcode,omitempty"`
	RequestedQty    int64           `json:"requested_qty"`
	FulfilledQty    int64           `json:"fulfilled_qty"`
	FoundQty        int64           `json:"found_qty"`
	DiscrepancyKind DiscrepancyKind `json:"discrepancy_kind"`
	Reason          string          `json:"reason,omitempty"`
	Status          Status          `json:"status"`
	CompletedBy     *uuid.UUID      `json:"completed_by,omitempty"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// NewRequisitionLine creates a new RequisitionLine in status new.
// Returns an error if validation fails, in particular ErrInvalidQuantity
// when requestedQty is not positive.
func NewRequisitionLine(
	requisitionID, articleID uuid.UUID,
	articleCode, name, barcode string,
	requestedQty int64,
) (*RequisitionLine, error) {
	line := &RequisitionLine{
		ID:              uuid.New(),
		RequisitionID:   requisitionID,
		ArticleID:       articleID,
		ArticleCode:     articleCode,
		Name:            name,
		Barcode:         barcode,
		RequestedQty:    requestedQty,
		DiscrepancyKind: DiscrepancyNone,
		Status:          StatusNew,
		CreatedAt:       time.Now().UTC(),
		UpdatedAt:       time.Now().UTC(),
	}

	if err := line.Validate(); err != nil {
		return nil, err
	}

	return line, nil
}

// Validate checks if the RequisitionLine has valid data, enforcing the
// quantity invariants 0 < requested and 0 ≤ fulfilled ≤ requested.
func (l *RequisitionLine) Validate() error {
	if l.ID == uuid.Nil {
		return ErrEmptyRequisitionLineID
	}

	if l.RequisitionID == uuid.Nil {
		return ErrEmptyLineRequisitionID
	}

	if l.ArticleID == uuid.Nil || l.ArticleCode == "" {
		return ErrEmptyLineArticle
	}

	if l.RequestedQty <= 0 {
		return ErrInvalidQuantity
	}

	if l.FulfilledQty < 0 || l.FulfilledQty > l.RequestedQty {
		return ErrInvalidQuantity
	}

	if l.FoundQty < 0 || l.FoundQty > l.RequestedQty {
		return ErrInvalidQuantity
	}

	if !isValidLineStatus(l.Status) {
		return ErrInvalidRequisitionLineStat
	}

	if !isValidDiscrepancyKind(l.DiscrepancyKind) {
		return ErrInvalidDiscrepancyKind
	}

	if l.DiscrepancyKind == DiscrepancyOther && l.Reason == "" {
		return ErrReasonRequired
	}

	return nil
}

// SetFulfilled replaces the fulfilled quantity, enforcing the ≤ requested
// invariant, and bumps UpdatedAt.
func (l *RequisitionLine) SetFulfilled(qty int64) error {
	if qty < 0 || qty > l.RequestedQty {
		return ErrInvalidQuantity
	}

	l.FulfilledQty = qty
	l.UpdatedAt = time.Now().UTC()
	return nil
}

// SetStatus moves the line to the given status and bumps UpdatedAt.
func (l *RequisitionLine) SetStatus(status Status) error {
	if !isValidLineStatus(status) {
		return ErrInvalidRequisitionLineStat
	}

	if l.Status.IsTerminal() && status != l.Status {
		return ErrAlreadyTerminal
	}

	l.Status = status
	l.UpdatedAt = time.Now().UTC()
	return nil
}

// ShortClose closes the line at foundQty, below its requested quantity, with
// a recorded discrepancy. It forces the status to done even though the line
// is short of the original request. The caller is responsible for checking
// the requisition-level allow-incomplete-close policy first.
func (l *RequisitionLine) ShortClose(
	foundQty int64,
	kind DiscrepancyKind,
	reason string,
	actorID uuid.UUID,
	now time.Time,
) error {
	if l.Status.IsTerminal() {
		return ErrAlreadyTerminal
	}

	if foundQty < 0 || foundQty >= l.RequestedQty {
		return ErrInvalidQuantity
	}

	// A short-close may never lose picks that already happened.
	if foundQty < l.FulfilledQty {
		return ErrInvalidQuantity
	}

	if !isValidDiscrepancyKind(kind) || kind == DiscrepancyNone {
		return ErrInvalidDiscrepancyKind
	}

	if kind == DiscrepancyOther && reason == "" {
		return ErrReasonRequired
	}

	completedAt := now.UTC()
	l.FoundQty = foundQty
	l.FulfilledQty = foundQty
	l.DiscrepancyKind = kind
	l.Reason = reason
	l.Status = StatusDone
	l.CompletedBy = &actorID
	l.CompletedAt = &completedAt
	l.UpdatedAt = completedAt
	return nil
}

// CompletionPercent returns the fulfilled share of the requested quantity,
// in the range 0–100.
func (l *RequisitionLine) CompletionPercent() float64 {
	if l.RequestedQty == 0 {
		return 0
	}
	return 100 * float64(l.FulfilledQty) / float64(l.RequestedQty)
}
