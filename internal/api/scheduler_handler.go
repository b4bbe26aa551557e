package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/magacin-io/wms-api/internal/api/shared"
	"github.com/magacin-io/wms-api/internal/platform/logger"
	"github.com/magacin-io/wms-api/internal/platform/metrics"
	"github.com/magacin-io/wms-api/internal/service"
)

// SchedulerHandler handles scheduling-related HTTP requests
type SchedulerHandler struct {
	schedulerService service.SchedulerService
	metrics          *metrics.Metrics
	logger           *slog.Logger
}

// NewSchedulerHandler creates a new SchedulerHandler. The metrics collector
// may be nil when instrumentation is disabled.
func NewSchedulerHandler(
	schedulerService service.SchedulerService,
	m *metrics.Metrics,
	logger *slog.Logger,
) *SchedulerHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for SchedulerHandler")
	}

	return &SchedulerHandler{
		schedulerService: schedulerService,
		metrics:          m,
		logger:           logger.With(slog.String("component", "scheduler_handler")),
	}
}

func (h *SchedulerHandler) actorID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	actorID, ok := r.Context().Value(shared.ActorIDContextKey).(uuid.UUID)
	if !ok || actorID == uuid.Nil {
		h.logger.Warn("actor ID not found or invalid in request context")
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Actor ID not found or invalid")
		return uuid.Nil, false
	}
	return actorID, true
}

// Suggest handles POST /requisitions/{id}/suggest-assignment requests.
// Within the lock window repeated calls return the cached suggestion.
func (h *SchedulerHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	actorID, ok := h.actorID(w, r)
	if !ok {
		return
	}

	requisitionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid requisition ID")
		return
	}

	suggestion, cached, err := h.schedulerService.Suggest(r.Context(), requisitionID, actorID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	if h.metrics != nil {
		source := "computed"
		if cached {
			source = "cached"
		}
		h.metrics.SuggestionsTotal.WithLabelValues(source).Inc()
	}

	log.Debug("suggestion served",
		slog.String("requisition_id", requisitionID.String()),
		slog.String("worker_id", suggestion.WorkerID.String()),
		slog.Bool("cached", cached))
	shared.RespondWithJSON(w, r, http.StatusOK, SuggestResponse{
		Suggestion: suggestion,
		Cached:     cached,
	})
}

// GetSuggestion handles GET /requisitions/{id}/suggestion requests,
// returning the current unexpired suggestion if one is live.
func (h *SchedulerHandler) GetSuggestion(w http.ResponseWriter, r *http.Request) {
	requisitionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid requisition ID")
		return
	}

	suggestion, err := h.schedulerService.GetActiveSuggestion(r.Context(), requisitionID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, suggestion)
}

// AcceptSuggestion handles POST /suggestions/{id}/accept requests.
// Accepting turns the suggestion into an assignment for the suggested worker.
func (h *SchedulerHandler) AcceptSuggestion(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	actorID, ok := h.actorID(w, r)
	if !ok {
		return
	}

	suggestionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid suggestion ID")
		return
	}

	assignment, err := h.schedulerService.Accept(r.Context(), suggestionID, actorID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	log.Info("suggestion accepted",
		slog.String("suggestion_id", suggestionID.String()),
		slog.String("assignment_id", assignment.ID.String()),
		slog.String("actor_id", actorID.String()))
	shared.RespondWithJSON(w, r, http.StatusCreated, assignment)
}

// Override handles POST /requisitions/{id}/override requests.
// A supervisor assigns a worker of their choosing; the live suggestion, if
// any, is marked overridden and the decision is audited with the reason.
func (h *SchedulerHandler) Override(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	actorID, ok := h.actorID(w, r)
	if !ok {
		return
	}

	requisitionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid requisition ID")
		return
	}

	var req OverrideRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	workerID, err := uuid.Parse(req.WorkerID)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid worker ID")
		return
	}

	assignment, err := h.schedulerService.Override(r.Context(), requisitionID, workerID, actorID, req.Reason)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	log.Info("scheduler suggestion overridden",
		slog.String("requisition_id", requisitionID.String()),
		slog.String("worker_id", workerID.String()),
		slog.String("actor_id", actorID.String()))
	shared.RespondWithJSON(w, r, http.StatusCreated, assignment)
}

// GetAssignment handles GET /assignments/{id} requests.
func (h *SchedulerHandler) GetAssignment(w http.ResponseWriter, r *http.Request) {
	assignmentID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid assignment ID")
		return
	}

	detail, err := h.schedulerService.GetAssignment(r.Context(), assignmentID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, AssignmentDetailResponse{
		Assignment: detail.Assignment,
		Lines:      detail.Lines,
	})
}

// FailAssignment handles POST /assignments/{id}/fail requests.
// Failing releases the assignment's unprocessed reservation back to the
// requisition. Requires a reason.
func (h *SchedulerHandler) FailAssignment(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	actorID, ok := h.actorID(w, r)
	if !ok {
		return
	}

	assignmentID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid assignment ID")
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

	if err := h.schedulerService.FailAssignment(r.Context(), assignmentID, actorID, req.Reason); err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	log.Info("assignment failed by supervisor",
		slog.String("assignment_id", assignmentID.String()),
		slog.String("actor_id", actorID.String()))
	w.WriteHeader(http.StatusNoContent)
}
