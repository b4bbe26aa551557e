package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// SuggestionStatus represents the lifecycle of a scheduler suggestion.
type SuggestionStatus string

// Possible suggestion status values
const (
	SuggestionStatusSuggested SuggestionStatus = "suggested"
	SuggestionStatusAccepted  SuggestionStatus = "accepted"
	SuggestionStatusOverride  SuggestionStatus = "override"
)

// Common validation errors for Suggestion
var (
	ErrEmptySuggestionID       = errors.New("suggestion ID cannot be empty")
	ErrEmptySuggestionTarget   = errors.New("suggestion requisition ID cannot be empty")
	ErrEmptySuggestionWorkerID = errors.New("suggestion worker ID cannot be empty")
	ErrInvalidSuggestionStatus = errors.New("invalid suggestion status")
	ErrSuggestionConsumed      = errors.New("suggestion has already been accepted or overridden")
)

// Suggestion is the audit and lock record for one scheduling decision. It is
// immutable once written except for the status transition out of suggested;
// a newly computed suggestion after expiry supersedes rather than edits it.
type Suggestion struct {
	ID              uuid.UUID        `json:"id"`
	RequisitionID   uuid.UUID        `json:"requisition_id"`
	WorkerID        uuid.UUID        `json:"worker_id"`
	Score           int64            `json:"score"`
	OpenAssignments int              `json:"open_assignments"`
	Reason          string           `json:"reason"`
	LockedUntil     time.Time        `json:"locked_until"`
	Status          SuggestionStatus `json:"status"`
	CreatedBy       uuid.UUID        `json:"created_by"`
	CreatedAt       time.Time        `json:"created_at"`
}

// NewSuggestion creates a suggestion row for the given scheduling decision.
// The lock expires at lockedUntil; until then repeated Suggest calls for the
// same requisition must return this row instead of computing a new one.
func NewSuggestion(
	requisitionID, workerID uuid.UUID,
	score int64,
	openAssignments int,
	reason string,
	lockedUntil time.Time,
	createdBy uuid.UUID,
) (*Suggestion, error) {
	s := &Suggestion{
		ID:              uuid.New(),
		RequisitionID:   requisitionID,
		WorkerID:        workerID,
		Score:           score,
		OpenAssignments: openAssignments,
		Reason:          reason,
		LockedUntil:     lockedUntil.UTC(),
		Status:          SuggestionStatusSuggested,
		CreatedBy:       createdBy,
		CreatedAt:       time.Now().UTC(),
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}

	return s, nil
}

// Validate checks if the Suggestion has valid data.
func (s *Suggestion) Validate() error {
	if s.ID == uuid.Nil {
		return ErrEmptySuggestionID
	}

	if s.RequisitionID == uuid.Nil {
		return ErrEmptySuggestionTarget
	}

	if s.WorkerID == uuid.Nil {
		return ErrEmptySuggestionWorkerID
	}

	if !isValidSuggestionStatus(s.Status) {
		return ErrInvalidSuggestionStatus
	}

	return nil
}

// Expired reports whether the suggestion lock has lapsed at the given time.
func (s *Suggestion) Expired(now time.Time) bool {
	return now.After(s.LockedUntil)
}

// Consume transitions the suggestion out of suggested into accepted or
// override. Any other transition fails with ErrSuggestionConsumed.
func (s *Suggestion) Consume(to SuggestionStatus) error {
	if to != SuggestionStatusAccepted && to != SuggestionStatusOverride {
		return ErrInvalidSuggestionStatus
	}

	if s.Status != SuggestionStatusSuggested {
		return ErrSuggestionConsumed
	}

	s.Status = to
	return nil
}

// isValidSuggestionStatus checks if the given status is a valid SuggestionStatus.
func isValidSuggestionStatus(status SuggestionStatus) bool {
	switch status {
	case SuggestionStatusSuggested, SuggestionStatusAccepted, SuggestionStatusOverride:
		return true
	default:
		return false
	}
}
