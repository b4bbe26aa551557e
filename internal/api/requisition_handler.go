package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/magacin-io/wms-api/internal/api/shared"
	"github.com/magacin-io/wms-api/internal/platform/logger"
	"github.com/magacin-io/wms-api/internal/service"
)

// RequisitionHandler handles requisition-related HTTP requests
type RequisitionHandler struct {
	requisitionService service.RequisitionService
	logger             *slog.Logger
}

// NewRequisitionHandler creates a new RequisitionHandler
func NewRequisitionHandler(
	requisitionService service.RequisitionService,
	logger *slog.Logger,
) *RequisitionHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for RequisitionHandler")
	}

	return &RequisitionHandler{
		requisitionService: requisitionService,
		logger:             logger.With(slog.String("component", "requisition_handler")),
	}
}

// ImportRequisition handles POST /requisitions requests.
// Re-importing a document with identical content replays the original result
// with status 200; a new document responds 201.
func (h *RequisitionHandler) ImportRequisition(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req ImportRequisitionRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		log.Debug("failed to decode import request", slog.String("error", err.Error()))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	input := service.RequisitionImport{
		DocumentNumber:       req.DocumentNumber,
		DocumentDate:         req.DocumentDate,
		OriginID:             req.OriginID,
		DestinationID:        req.DestinationID,
		AllowIncompleteClose: req.AllowIncompleteClose,
		Lines:                make([]service.RequisitionImportLine, 0, len(req.Lines)),
	}
	for _, line := range req.Lines {
		input.Lines = append(input.Lines, service.RequisitionImportLine{
			ArticleCode: line.ArticleCode,
			Quantity:    line.Quantity,
		})
	}

	requisition, created, err := h.requisitionService.Import(r.Context(), input)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}

	log.Debug("requisition import handled",
		slog.String("requisition_id", requisition.ID.String()),
		slog.String("document_number", requisition.DocumentNumber),
		slog.Bool("created", created))
	shared.RespondWithJSON(w, r, status, ImportRequisitionResponse{
		Requisition: requisition,
		Created:     created,
	})
}

// GetRequisition handles GET /requisitions/{id} requests.
func (h *RequisitionHandler) GetRequisition(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid requisition ID")
		return
	}

	detail, err := h.requisitionService.Get(r.Context(), id)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, RequisitionDetailResponse{
		Requisition: detail.Requisition,
		Lines:       detail.Lines,
		Assignments: detail.Assignments,
	})
}

// FailRequisition handles POST /requisitions/{id}/fail requests.
// Failing is a supervisor action and requires a reason.
func (h *RequisitionHandler) FailRequisition(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	actorID, ok := r.Context().Value(shared.ActorIDContextKey).(uuid.UUID)
	if !ok || actorID == uuid.Nil {
		log.Warn("actor ID not found or invalid in request context")
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Actor ID not found or invalid")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid requisition ID")
		return
	}

	var req ReasonRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	if err := h.requisitionService.Fail(r.Context(), id, actorID, req.Reason); err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	log.Info("requisition failed by supervisor",
		slog.String("requisition_id", id.String()),
		slog.String("actor_id", actorID.String()))
	w.WriteHeader(http.StatusNoContent)
}
