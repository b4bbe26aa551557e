package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/magacin-io/wms-api/internal/config"
	"github.com/magacin-io/wms-api/internal/platform/metrics"
	"github.com/magacin-io/wms-api/internal/platform/postgres"
	"github.com/magacin-io/wms-api/internal/service"
	"github.com/magacin-io/wms-api/internal/service/auth"
	"github.com/magacin-io/wms-api/internal/store"
	"github.com/prometheus/client_golang/prometheus"
)

// application holds the initialized dependencies of the server: the database,
// the stores, the services, and the HTTP-facing pieces built on top of them.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	requisitionStore store.RequisitionStore
	assignmentStore  store.AssignmentStore
	suggestionStore  store.SuggestionStore
	scanLogStore     store.ScanLogStore
	workerStore      store.WorkerStore
	auditStore       store.AuditStore
	idempotencyStore store.IdempotencyStore

	tokenService       auth.TokenService
	requisitionService service.RequisitionService
	schedulerService   service.SchedulerService
	scanService        service.ScanService
	completionService  service.CompletionService

	metrics         *metrics.Metrics
	metricsRegistry *prometheus.Registry
}

// newApplication wires the stores and services together. Every dependency is
// constructed here so the wiring is visible in one place.
func newApplication(cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	app.requisitionStore = postgres.NewPostgresRequisitionStore(db, logger)
	app.assignmentStore = postgres.NewPostgresAssignmentStore(db, logger)
	app.suggestionStore = postgres.NewPostgresSuggestionStore(db, logger)
	app.scanLogStore = postgres.NewPostgresScanLogStore(db, logger)
	app.workerStore = postgres.NewPostgresWorkerStore(db, logger)
	app.auditStore = postgres.NewPostgresAuditStore(db, logger)
	app.idempotencyStore = postgres.NewPostgresIdempotencyStore(db, logger)

	articleStore := postgres.NewPostgresArticleStore(db, logger)

	tokenService, err := auth.NewTokenService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create token service: %w", err)
	}
	app.tokenService = tokenService

	app.requisitionService, err = service.NewRequisitionService(
		db,
		app.requisitionStore,
		app.assignmentStore,
		app.auditStore,
		articleStore,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create requisition service: %w", err)
	}

	app.schedulerService, err = service.NewSchedulerService(
		db,
		app.requisitionStore,
		app.assignmentStore,
		app.suggestionStore,
		app.workerStore,
		app.auditStore,
		service.SchedulerConfig{
			LockWindow:        time.Duration(cfg.Scheduler.LockWindowSeconds) * time.Second,
			LockRetryAttempts: cfg.Scheduler.LockRetryAttempts,
		},
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler service: %w", err)
	}

	app.scanService, err = service.NewScanService(
		db,
		app.requisitionStore,
		app.assignmentStore,
		app.scanLogStore,
		articleStore,
		cfg.Scheduler.LockRetryAttempts,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scan service: %w", err)
	}

	app.completionService, err = service.NewCompletionService(
		db,
		app.requisitionStore,
		app.assignmentStore,
		app.auditStore,
		cfg.Scheduler.LockRetryAttempts,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create completion service: %w", err)
	}

	if cfg.Server.MetricsEnabled {
		app.metricsRegistry = prometheus.NewRegistry()
		app.metrics = metrics.New(app.metricsRegistry)
	}

	return app, nil
}

// cleanup releases resources held by the application.
func (app *application) cleanup() {
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("failed to close database connection", "error", err)
		}
	}
}
