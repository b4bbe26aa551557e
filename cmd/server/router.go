package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/magacin-io/wms-api/internal/api"
	apiMiddleware "github.com/magacin-io/wms-api/internal/api/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// setupRouter creates and configures the application router with all routes
// and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)
	if app.metrics != nil {
		r.Use(app.metrics.Middleware)
	}

	requisitionHandler := api.NewRequisitionHandler(app.requisitionService, app.logger)
	schedulerHandler := api.NewSchedulerHandler(app.schedulerService, app.metrics, app.logger)
	scanHandler := api.NewScanHandler(app.scanService, app.metrics, app.logger)
	completionHandler := api.NewCompletionHandler(app.completionService, app.logger)

	authMiddleware := apiMiddleware.NewAuthMiddleware(app.tokenService)
	idempotency := apiMiddleware.NewIdempotencyMiddleware(app.idempotencyStore)

	r.Route("/api", func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)

		// Document intake and reads
		r.With(idempotency.Handle).Post("/requisitions", requisitionHandler.ImportRequisition)
		r.Get("/requisitions/{id}", requisitionHandler.GetRequisition)

		// Scheduling
		r.With(idempotency.Handle).
			Post("/requisitions/{id}/suggest-assignment", schedulerHandler.Suggest)
		r.Get("/requisitions/{id}/suggestion", schedulerHandler.GetSuggestion)
		r.With(idempotency.Handle).
			Post("/suggestions/{id}/accept", schedulerHandler.AcceptSuggestion)
		r.Get("/assignments/{id}", schedulerHandler.GetAssignment)

		// Scanning
		r.With(idempotency.Handle).
			Post("/assignment-lines/{id}/scans", scanHandler.RegisterScan)
		r.Get("/assignment-lines/{id}/scans", scanHandler.History)

		// Supervisor actions
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.RequireCapability("supervisor"))

			r.With(idempotency.Handle).
				Post("/requisitions/{id}/override", schedulerHandler.Override)
			r.With(idempotency.Handle).
				Post("/requisitions/{id}/fail", requisitionHandler.FailRequisition)
			r.With(idempotency.Handle).
				Post("/assignments/{id}/fail", schedulerHandler.FailAssignment)
			r.With(idempotency.Handle).
				Post("/requisition-lines/{id}/complete-partial", completionHandler.ShortClose)
			r.With(idempotency.Handle).
				Post("/requisition-lines/{id}/mark-remaining-zero", completionHandler.MarkRemainingZero)
		})
	})

	if app.metricsRegistry != nil {
		r.Get("/metrics", promhttp.HandlerFor(
			app.metricsRegistry,
			promhttp.HandlerOpts{},
		).ServeHTTP)
	}

	// Health check endpoint
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, err := w.Write([]byte("OK"))
		if err != nil {
			app.logger.Error("failed to write health check response", "error", err)
		}
	})

	return r
}
