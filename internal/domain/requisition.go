package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for Requisition
var (
	ErrEmptyRequisitionID         = errors.New("requisition ID cannot be empty")
	ErrEmptyDocumentNumber        = errors.New("requisition document number cannot be empty")
	ErrEmptyRequisitionLocations  = errors.New("requisition origin and destination cannot be empty")
	ErrInvalidRequisitionStatus   = errors.New("invalid requisition status")
	ErrEmptyRequisitionContentSum = errors.New("requisition content hash cannot be empty")
)

// Requisition represents a warehouse pick document. It is created once by
// import and afterwards mutated only through status propagation from its
// lines; it is never deleted, only moved into a terminal state.
type Requisition struct {
	ID                   uuid.UUID  `json:"id"`
	DocumentNumber       string     `json:"document_number"`
	DocumentDate         time.Time  `json:"document_date"`
	OriginID             string     `json:"origin_id"`
	DestinationID        string     `json:"destination_id"`
	Status               Status     `json:"status"`
	AllowIncompleteClose bool       `json:"allow_incomplete_close"`
	ContentHash          string     `json:"-"`
	ClosedBy             *uuid.UUID `json:"closed_by,omitempty"`
	ClosedAt             *time.Time `json:"closed_at,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// NewRequisition creates a new Requisition in status new with the given
// document identity and routing. The content hash is supplied by the importer
// and keys idempotent re-imports.
// Returns an error if validation fails.
func NewRequisition(
	documentNumber string,
	documentDate time.Time,
	originID, destinationID string,
	allowIncompleteClose bool,
	contentHash string,
) (*Requisition, error) {
	req := &Requisition{
		ID:                   uuid.New(),
		DocumentNumber:       documentNumber,
		DocumentDate:         documentDate,
		OriginID:             originID,
		DestinationID:        destinationID,
		Status:               StatusNew,
		AllowIncompleteClose: allowIncompleteClose,
		ContentHash:          contentHash,
		CreatedAt:            time.Now().UTC(),
		UpdatedAt:            time.Now().UTC(),
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}

	return req, nil
}

// Validate checks if the Requisition has valid data.
// Returns an error if any field fails validation.
func (r *Requisition) Validate() error {
	if r.ID == uuid.Nil {
		return ErrEmptyRequisitionID
	}

	if r.DocumentNumber == "" {
		return ErrEmptyDocumentNumber
	}

	if r.OriginID == "" || r.DestinationID == "" {
		return ErrEmptyRequisitionLocations
	}

	if r.ContentHash == "" {
		return ErrEmptyRequisitionContentSum
	}

	if !isValidStatus(r.Status) {
		return ErrInvalidRequisitionStatus
	}

	return nil
}

// SetStatus moves the requisition to the given status and bumps UpdatedAt.
// Returns ErrAlreadyTerminal if the requisition is already terminal and the
// new status differs, or an error if the status is invalid.
func (r *Requisition) SetStatus(status Status) error {
	if !isValidStatus(status) {
		return ErrInvalidRequisitionStatus
	}

	if r.Status.IsTerminal() && status != r.Status {
		return ErrAlreadyTerminal
	}

	r.Status = status
	r.UpdatedAt = time.Now().UTC()
	return nil
}

// Close marks the requisition done and stamps the closing actor and time.
// Close is only ever driven by propagation once every line is terminal.
func (r *Requisition) Close(actorID uuid.UUID, now time.Time) error {
	if err := r.SetStatus(StatusDone); err != nil {
		return err
	}

	closedAt := now.UTC()
	r.ClosedBy = &actorID
	r.ClosedAt = &closedAt
	return nil
}

// Fail moves the requisition into the failed terminal state. This is an
// explicit supervisor action, never a propagation outcome.
func (r *Requisition) Fail() error {
	if r.Status.IsTerminal() {
		return ErrAlreadyTerminal
	}
	return r.SetStatus(StatusFailed)
}
