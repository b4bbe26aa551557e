package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/magacin-io/wms-api/internal/api/shared"
	"github.com/magacin-io/wms-api/internal/domain"
	"github.com/magacin-io/wms-api/internal/platform/logger"
	"github.com/magacin-io/wms-api/internal/service"
)

// CompletionHandler handles partial-completion HTTP requests
type CompletionHandler struct {
	completionService service.CompletionService
	logger            *slog.Logger
}

// NewCompletionHandler creates a new CompletionHandler
func NewCompletionHandler(
	completionService service.CompletionService,
	logger *slog.Logger,
) *CompletionHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for CompletionHandler")
	}

	return &CompletionHandler{
		completionService: completionService,
		logger:            logger.With(slog.String("component", "completion_handler")),
	}
}

// ShortClose handles POST /requisition-lines/{id}/complete-partial requests.
// Closes the line at the found quantity with a discrepancy record; open
// delegations of the line are force-closed in the same transaction.
func (h *CompletionHandler) ShortClose(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	actorID, ok := r.Context().Value(shared.ActorIDContextKey).(uuid.UUID)
	if !ok || actorID == uuid.Nil {
		log.Warn("actor ID not found or invalid in request context")
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Actor ID not found or invalid")
		return
	}

	lineID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid requisition line ID")
		return
	}

	var req ShortCloseRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	line, err := h.completionService.ShortClose(r.Context(), service.ShortCloseInput{
		RequisitionLineID: lineID,
		FoundQty:          req.FoundQty,
		Kind:              domain.DiscrepancyKind(req.Kind),
		Reason:            req.Reason,
		ActorID:           actorID,
	})
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	log.Info("requisition line short-closed",
		slog.String("requisition_line_id", lineID.String()),
		slog.Int64("found_qty", req.FoundQty),
		slog.String("kind", req.Kind),
		slog.String("actor_id", actorID.String()))
	shared.RespondWithJSON(w, r, http.StatusOK, line)
}

// MarkRemainingZero handles POST /requisition-lines/{id}/mark-remaining-zero
// requests. Closes the line at what has been picked so far, recording the
// remainder as not found.
func (h *CompletionHandler) MarkRemainingZero(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	actorID, ok := r.Context().Value(shared.ActorIDContextKey).(uuid.UUID)
	if !ok || actorID == uuid.Nil {
		log.Warn("actor ID not found or invalid in request context")
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Actor ID not found or invalid")
		return
	}

	lineID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid requisition line ID")
		return
	}

	var req MarkRemainingZeroRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	line, err := h.completionService.MarkRemainingZero(r.Context(), lineID, actorID, req.Reason)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	log.Info("requisition line remainder zeroed",
		slog.String("requisition_line_id", lineID.String()),
		slog.String("actor_id", actorID.String()))
	shared.RespondWithJSON(w, r, http.StatusOK, line)
}
