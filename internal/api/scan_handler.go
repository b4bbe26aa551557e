package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/magacin-io/wms-api/internal/api/shared"
	"github.com/magacin-io/wms-api/internal/domain"
	"github.com/magacin-io/wms-api/internal/platform/logger"
	"github.com/magacin-io/wms-api/internal/platform/metrics"
	"github.com/magacin-io/wms-api/internal/service"
)

// ScanHandler handles barcode scan HTTP requests
type ScanHandler struct {
	scanService service.ScanService
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

// NewScanHandler creates a new ScanHandler. The metrics collector may be nil
// when instrumentation is disabled.
func NewScanHandler(
	scanService service.ScanService,
	m *metrics.Metrics,
	logger *slog.Logger,
) *ScanHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for ScanHandler")
	}

	return &ScanHandler{
		scanService: scanService,
		metrics:     m,
		logger:      logger.With(slog.String("component", "scan_handler")),
	}
}

// RegisterScan handles POST /assignment-lines/{id}/scans requests.
// A matching scan applies its quantity to the line; mismatched and duplicate
// scans are logged but apply nothing, and respond with the logged record so
// the device can show the operator what happened.
func (h *ScanHandler) RegisterScan(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	actorID, ok := r.Context().Value(shared.ActorIDContextKey).(uuid.UUID)
	if !ok || actorID == uuid.Nil {
		log.Warn("actor ID not found or invalid in request context")
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Actor ID not found or invalid")
		return
	}

	assignmentLineID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid assignment line ID")
		return
	}

	var req ScanRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	result, err := h.scanService.RegisterScan(r.Context(), service.ScanInput{
		AssignmentLineID: assignmentLineID,
		Barcode:          req.Barcode,
		Quantity:         req.Quantity,
		ActorID:          actorID,
	})

	// Rejected scans still carry the logged record.
	if err != nil && result != nil && result.Record != nil &&
		(errors.Is(err, service.ErrArticleMismatch) ||
			errors.Is(err, service.ErrScanExceedsRequested) ||
			errors.Is(err, domain.ErrAlreadyTerminal)) {
		h.countScan(string(result.Record.Result))
		log.Debug("scan rejected",
			slog.String("assignment_line_id", assignmentLineID.String()),
			slog.String("result", string(result.Record.Result)))
		shared.RespondWithJSON(w, r, MapErrorToStatusCode(err), ScanResponse{
			Accepted:  false,
			Rejection: GetSafeErrorMessage(err),
			Record:    result.Record,
		})
		return
	}
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	h.countScan(string(result.Record.Result))
	log.Debug("scan applied",
		slog.String("assignment_line_id", assignmentLineID.String()),
		slog.Int64("quantity", req.Quantity))
	shared.RespondWithJSON(w, r, http.StatusCreated, ScanResponse{
		Accepted: true,
		Record:   result.Record,
		Line:     result.Line,
	})
}

// History handles GET /assignment-lines/{id}/scans requests, returning the
// line's scan log oldest first.
func (h *ScanHandler) History(w http.ResponseWriter, r *http.Request) {
	assignmentLineID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid assignment line ID")
		return
	}

	records, err := h.scanService.History(r.Context(), assignmentLineID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, records)
}

func (h *ScanHandler) countScan(result string) {
	if h.metrics != nil {
		h.metrics.ScansTotal.WithLabelValues(result).Inc()
	}
}
