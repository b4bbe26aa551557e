package api

import (
	"time"

	"github.com/magacin-io/wms-api/internal/domain"
)

// Common request/response structures

// ImportLineRequest is one article line of an imported pick document.
type ImportLineRequest struct {
	ArticleCode string `json:"article_code" validate:"required"`
	Quantity    int64  `json:"quantity"     validate:"required,gt=0"`
}

// ImportRequisitionRequest defines the payload for the requisition import
// endpoint.
type ImportRequisitionRequest struct {
	DocumentNumber       string              `json:"document_number" validate:"required"`
	DocumentDate         time.Time           `json:"document_date"   validate:"required"`
	OriginID             string              `json:"origin_id"       validate:"required"`
	DestinationID        string              `json:"destination_id"  validate:"required"`
	AllowIncompleteClose bool                `json:"allow_incomplete_close"`
	Lines                []ImportLineRequest `json:"lines"           validate:"required,min=1,dive"`
}

// ImportRequisitionResponse reports the imported requisition. Created is
// false when the request replayed an identical earlier import.
type ImportRequisitionResponse struct {
	Requisition *domain.Requisition `json:"requisition"`
	Created     bool                `json:"created"`
}

// RequisitionDetailResponse is the full read model for one requisition.
type RequisitionDetailResponse struct {
	Requisition *domain.Requisition       `json:"requisition"`
	Lines       []*domain.RequisitionLine `json:"lines"`
	Assignments []*domain.Assignment      `json:"assignments"`
}

// ReasonRequest carries the mandatory reason for supervisor actions that
// need one (failing a requisition or an assignment).
type ReasonRequest struct {
	Reason string `json:"reason" validate:"required,min=1"`
}

// SuggestResponse reports a scheduler suggestion and whether it came from the
// lock-window cache.
type SuggestResponse struct {
	Suggestion *domain.Suggestion `json:"suggestion"`
	Cached     bool               `json:"cached"`
}

// OverrideRequest defines the payload for a supervisor override of a
// scheduler suggestion.
type OverrideRequest struct {
	WorkerID string `json:"worker_id" validate:"required,uuid"`
	Reason   string `json:"reason"    validate:"required,min=1"`
}

// AssignmentDetailResponse is the read model for one assignment and its
// lines.
type AssignmentDetailResponse struct {
	Assignment *domain.Assignment       `json:"assignment"`
	Lines      []*domain.AssignmentLine `json:"lines"`
}

// ScanRequest defines the payload for registering a barcode scan against an
// assignment line.
type ScanRequest struct {
	Barcode  string `json:"barcode"  validate:"required"`
	Quantity int64  `json:"quantity" validate:"required,gt=0"`
}

// ScanResponse reports what the registrar did with a scan. Rejected scans
// still carry the logged record; Rejection explains why nothing was applied.
type ScanResponse struct {
	Accepted  bool                   `json:"accepted"`
	Rejection string                 `json:"rejection,omitempty"`
	Record    *domain.ScanRecord     `json:"record"`
	Line      *domain.AssignmentLine `json:"line,omitempty"`
}

// ShortCloseRequest defines the payload for closing a requisition line short
// of its requested quantity.
type ShortCloseRequest struct {
	FoundQty int64  `json:"found_qty" validate:"gte=0"`
	Kind     string `json:"kind"      validate:"required,oneof=short_pick not_found damaged wrong_barcode other"`
	Reason   string `json:"reason"`
}

// MarkRemainingZeroRequest defines the payload for zeroing out the unpicked
// remainder of a requisition line.
type MarkRemainingZeroRequest struct {
	Reason string `json:"reason"`
}
