package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ScanClassification is the outcome of comparing a scanned barcode against
// the article expected on an assignment line.
type ScanClassification string

// Possible scan classifications
const (
	// ScanMatch: the expected article, within the requested quantity.
	ScanMatch ScanClassification = "match"
	// ScanMismatch: a different article than the line expects.
	ScanMismatch ScanClassification = "mismatch"
	// ScanDuplicate: the expected article, but the quantity would overshoot
	// the requested quantity.
	ScanDuplicate ScanClassification = "duplicate"
)

// Common validation errors for ScanRecord
var (
	ErrEmptyScanID             = errors.New("scan record ID cannot be empty")
	ErrEmptyScanLineID         = errors.New("scan record assignment line ID cannot be empty")
	ErrEmptyScanBarcode        = errors.New("scan record barcode cannot be empty")
	ErrEmptyScanActor          = errors.New("scan record actor ID cannot be empty")
	ErrInvalidScanResult       = errors.New("invalid scan classification")
	ErrNonPositiveScanQuantity = errors.New("scan quantity must be positive")
)

// ScanRecord is one entry in the immutable scan log. Every scan is appended
// regardless of classification so operators can diagnose repeated failures
// without losing history.
type ScanRecord struct {
	ID               uuid.UUID          `json:"id"`
	AssignmentLineID uuid.UUID          `json:"assignment_line_id"`
	Barcode          string             `json:"barcode"`
	Quantity         int64              `json:"quantity"`
	Result           ScanClassification `json:"result"`
	ActorID          uuid.UUID          `json:"actor_id"`
	CreatedAt        time.Time          `json:"created_at"`
}

// NewScanRecord creates an entry for the scan log.
// Returns an error if validation fails.
func NewScanRecord(
	assignmentLineID uuid.UUID,
	barcode string,
	quantity int64,
	result ScanClassification,
	actorID uuid.UUID,
) (*ScanRecord, error) {
	rec := &ScanRecord{
		ID:               uuid.New(),
		AssignmentLineID: assignmentLineID,
		Barcode:          barcode,
		Quantity:         quantity,
		Result:           result,
		ActorID:          actorID,
		CreatedAt:        time.Now().UTC(),
	}

	if err := rec.Validate(); err != nil {
		return nil, err
	}

	return rec, nil
}

// Validate checks if the ScanRecord has valid data.
func (r *ScanRecord) Validate() error {
	if r.ID == uuid.Nil {
		return ErrEmptyScanID
	}

	if r.AssignmentLineID == uuid.Nil {
		return ErrEmptyScanLineID
	}

	if r.Barcode == "" {
		return ErrEmptyScanBarcode
	}

	if r.Quantity <= 0 {
		return ErrNonPositiveScanQuantity
	}

	if r.ActorID == uuid.Nil {
		return ErrEmptyScanActor
	}

	switch r.Result {
	case ScanMatch, ScanMismatch, ScanDuplicate:
	default:
		return ErrInvalidScanResult
	}

	return nil
}
