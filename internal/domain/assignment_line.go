package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for AssignmentLine
var (
	ErrEmptyAssignmentLineID     = errors.New("assignment line ID cannot be empty")
	ErrEmptyLineAssignmentID     = errors.New("assignment line assignment ID cannot be empty")
	ErrEmptyLineReqLineID        = errors.New("assignment line requisition line ID cannot be empty")
	ErrInvalidAssignmentLineStat = errors.New("invalid assignment line status")
)

// AssignmentLine is the portion of a RequisitionLine delegated to one
// Assignment. Exactly one assignment line maps to one requisition line per
// assignment; the processed quantity on these leaves is the single source of
// truth the whole status chain is recomputed from.
type AssignmentLine struct {
	ID                uuid.UUID `json:"id"`
	AssignmentID      uuid.UUID `json:"assignment_id"`
	RequisitionLineID uuid.UUID `json:"requisition_line_id"`
	RequestedQty      int64     `json:"requested_qty"`
	ProcessedQty      int64     `json:"processed_qty"`
	Status            Status    `json:"status"`
	LastScannedCode   string    `json:"last_scanned_code,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// NewAssignmentLine creates a new AssignmentLine in status assigned.
// requestedQty is the split reserved for this assignment; the caller must
// have verified it against the requisition line's remaining quantity inside
// the same transaction.
func NewAssignmentLine(
	assignmentID, requisitionLineID uuid.UUID,
	requestedQty int64,
) (*AssignmentLine, error) {
	line := &AssignmentLine{
		ID:                uuid.New(),
		AssignmentID:      assignmentID,
		RequisitionLineID: requisitionLineID,
		RequestedQty:      requestedQty,
		Status:            StatusAssigned,
		CreatedAt:         time.Now().UTC(),
		UpdatedAt:         time.Now().UTC(),
	}

	if err := line.Validate(); err != nil {
		return nil, err
	}

	return line, nil
}

// Validate checks if the AssignmentLine has valid data, enforcing
// 0 < requested and 0 ≤ processed ≤ requested.
func (l *AssignmentLine) Validate() error {
	if l.ID == uuid.Nil {
		return ErrEmptyAssignmentLineID
	}

	if l.AssignmentID == uuid.Nil {
		return ErrEmptyLineAssignmentID
	}

	if l.RequisitionLineID == uuid.Nil {
		return ErrEmptyLineReqLineID
	}

	if l.RequestedQty <= 0 {
		return ErrInvalidQuantity
	}

	if l.ProcessedQty < 0 || l.ProcessedQty > l.RequestedQty {
		return ErrInvalidQuantity
	}

	if !isValidLineStatus(l.Status) {
		return ErrInvalidAssignmentLineStat
	}

	return nil
}

// RegisterPick adds qty to the processed quantity. The surplus case is
// rejected with ErrInvalidQuantity, never clamped. Reaching the requested
// quantity moves the line to done; any earlier pick moves it to in_progress.
func (l *AssignmentLine) RegisterPick(qty int64, barcode string) error {
	if l.Status.IsTerminal() {
		return ErrAlreadyTerminal
	}

	if qty <= 0 {
		return ErrInvalidQuantity
	}

	if l.ProcessedQty+qty > l.RequestedQty {
		return ErrInvalidQuantity
	}

	l.ProcessedQty += qty
	l.LastScannedCode = barcode
	if l.ProcessedQty == l.RequestedQty {
		l.Status = StatusDone
	} else {
		l.Status = StatusInProgress
	}
	l.UpdatedAt = time.Now().UTC()
	return nil
}

// Remaining returns the quantity still to be picked on this line.
func (l *AssignmentLine) Remaining() int64 {
	return l.RequestedQty - l.ProcessedQty
}

// WouldExceed reports whether picking qty more units would overshoot the
// requested quantity. Used to classify duplicate scans before mutating.
func (l *AssignmentLine) WouldExceed(qty int64) bool {
	return l.ProcessedQty+qty > l.RequestedQty
}

// ForceClose marks the line done at its current processed quantity. Used by
// the partial-completion path when the document line is short-closed.
func (l *AssignmentLine) ForceClose() error {
	if l.Status.IsTerminal() {
		return ErrAlreadyTerminal
	}

	l.Status = StatusDone
	l.UpdatedAt = time.Now().UTC()
	return nil
}
