package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for Assignment
var (
	ErrEmptyAssignmentID            = errors.New("assignment ID cannot be empty")
	ErrEmptyAssignmentRequisitionID = errors.New("assignment requisition ID cannot be empty")
	ErrEmptyAssignmentWorkerID      = errors.New("assignment worker ID cannot be empty")
	ErrInvalidAssignmentStatus      = errors.New("invalid assignment status")
	ErrInvalidAssignmentProgress    = errors.New("assignment progress must be between 0 and 100")
)

// Assignment is one worker's commitment against a Requisition. Several
// assignments may exist for the same requisition (parallel workers), but an
// assignment always belongs to exactly one worker.
type Assignment struct {
	ID            uuid.UUID  `json:"id"`
	RequisitionID uuid.UUID  `json:"requisition_id"`
	WorkerID      uuid.UUID  `json:"worker_id"`
	Priority      int        `json:"priority"`
	DueAt         *time.Time `json:"due_at,omitempty"`
	Status        Status     `json:"status"`
	Progress      float64    `json:"progress"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// NewAssignment creates a new Assignment in status assigned.
// Returns an error if validation fails.
func NewAssignment(
	requisitionID, workerID uuid.UUID,
	priority int,
	dueAt *time.Time,
) (*Assignment, error) {
	a := &Assignment{
		ID:            uuid.New(),
		RequisitionID: requisitionID,
		WorkerID:      workerID,
		Priority:      priority,
		DueAt:         dueAt,
		Status:        StatusAssigned,
		CreatedAt:     time.Now().UTC(),
		UpdatedAt:     time.Now().UTC(),
	}

	if err := a.Validate(); err != nil {
		return nil, err
	}

	return a, nil
}

// Validate checks if the Assignment has valid data.
func (a *Assignment) Validate() error {
	if a.ID == uuid.Nil {
		return ErrEmptyAssignmentID
	}

	if a.RequisitionID == uuid.Nil {
		return ErrEmptyAssignmentRequisitionID
	}

	if a.WorkerID == uuid.Nil {
		return ErrEmptyAssignmentWorkerID
	}

	if !isValidStatus(a.Status) {
		return ErrInvalidAssignmentStatus
	}

	if a.Progress < 0 || a.Progress > 100 {
		return ErrInvalidAssignmentProgress
	}

	return nil
}

// SetStatus moves the assignment to the given status and bumps UpdatedAt.
func (a *Assignment) SetStatus(status Status) error {
	if !isValidStatus(status) {
		return ErrInvalidAssignmentStatus
	}

	if a.Status.IsTerminal() && status != a.Status {
		return ErrAlreadyTerminal
	}

	a.Status = status
	a.UpdatedAt = time.Now().UTC()
	return nil
}

// SetProgress replaces the progress percentage and bumps UpdatedAt.
func (a *Assignment) SetProgress(pct float64) error {
	if pct < 0 || pct > 100 {
		return ErrInvalidAssignmentProgress
	}

	a.Progress = pct
	a.UpdatedAt = time.Now().UTC()
	return nil
}

// Fail moves the assignment into the failed terminal state. This is an
// explicit supervisor action, never a propagation outcome.
func (a *Assignment) Fail() error {
	if a.Status.IsTerminal() {
		return ErrAlreadyTerminal
	}
	return a.SetStatus(StatusFailed)
}
