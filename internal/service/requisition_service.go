package service

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/magacin-io/wms-api/internal/catalog"
	"github.com/magacin-io/wms-api/internal/domain"
	"github.com/magacin-io/wms-api/internal/platform/logger"
	"github.com/magacin-io/wms-api/internal/store"
)

// RequisitionImportLine is one article line of an import payload.
type RequisitionImportLine struct {
	ArticleCode string
	Quantity    int64
}

// RequisitionImport is the payload accepted from the upstream document
// system. Lines reference articles by code; the importer resolves them
// through the catalog before anything is persisted.
type RequisitionImport struct {
	DocumentNumber       string
	DocumentDate         time.Time
	OriginID             string
	DestinationID        string
	AllowIncompleteClose bool
	Lines                []RequisitionImportLine
}

// RequisitionDetail is the read model for one requisition: the document, its
// lines, and the assignments raised against it.
type RequisitionDetail struct {
	Requisition *domain.Requisition
	Lines       []*domain.RequisitionLine
	Assignments []*domain.Assignment
}

// RequisitionService imports and reads pick documents and handles the
// explicit supervisor failure action.
type RequisitionService interface {
	// Import persists a new requisition with its lines. Re-importing a
	// byte-identical document is idempotent and returns the existing
	// requisition with created=false; the same document number with
	// different content fails with store.ErrDocumentNumberExists.
	Import(ctx context.Context, input RequisitionImport) (req *domain.Requisition, created bool, err error)

	// Get retrieves a requisition with its lines and assignments.
	Get(ctx context.Context, id uuid.UUID) (*RequisitionDetail, error)

	// Fail moves a requisition into the failed terminal state. Requires a
	// reason, which lands in the audit trail.
	Fail(ctx context.Context, id, actorID uuid.UUID, reason string) error
}

type requisitionServiceImpl struct {
	db           *sql.DB
	requisitions store.RequisitionStore
	assignments  store.AssignmentStore
	audits       store.AuditStore
	resolver     catalog.Resolver
	logger       *slog.Logger
}

// NewRequisitionService creates a new RequisitionService.
func NewRequisitionService(
	db *sql.DB,
	requisitions store.RequisitionStore,
	assignments store.AssignmentStore,
	audits store.AuditStore,
	resolver catalog.Resolver,
	logger *slog.Logger,
) (RequisitionService, error) {
	if db == nil {
		return nil, errors.New("db cannot be nil")
	}
	if requisitions == nil {
		return nil, errors.New("requisition store cannot be nil")
	}
	if assignments == nil {
		return nil, errors.New("assignment store cannot be nil")
	}
	if audits == nil {
		return nil, errors.New("audit store cannot be nil")
	}
	if resolver == nil {
		return nil, errors.New("catalog resolver cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &requisitionServiceImpl{
		db:           db,
		requisitions: requisitions,
		assignments:  assignments,
		audits:       audits,
		resolver:     resolver,
		logger:       logger.With(slog.String("component", "requisition_service")),
	}, nil
}

// contentHash is the idempotency key for re-imports: the same document
// content always hashes identically regardless of line order.
func contentHash(input RequisitionImport) string {
	parts := make([]string, 0, len(input.Lines)+4)
	parts = append(parts,
		input.DocumentNumber,
		input.DocumentDate.UTC().Format(time.RFC3339),
		input.OriginID,
		input.DestinationID,
	)

	lines := make([]string, 0, len(input.Lines))
	for _, l := range input.Lines {
		lines = append(lines, l.ArticleCode+":"+strconv.FormatInt(l.Quantity, 10))
	}
	sort.Strings(lines)
	parts = append(parts, lines...)

	sum := sha256.Sum256([]byte(strings.Join(parts, "\n")))
	return hex.EncodeToString(sum[:])
}

// Import implements RequisitionService.Import
func (s *requisitionServiceImpl) Import(
	ctx context.Context,
	input RequisitionImport,
) (*domain.Requisition, bool, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if len(input.Lines) == 0 {
		return nil, false, domain.ErrInvalidQuantity
	}

	hash := contentHash(input)

	// Replay check before resolving articles so a re-import of a document
	// whose articles have since changed upstream still replays cleanly.
	existing, err := s.requisitions.GetByDocumentNumber(ctx, input.DocumentNumber)
	if err == nil {
		if existing.ContentHash == hash {
			log.Debug("requisition import replayed",
				slog.String("document_number", input.DocumentNumber))
			return existing, false, nil
		}
		return nil, false, fmt.Errorf("%w: %s", store.ErrDocumentNumberExists, input.DocumentNumber)
	}
	if !store.IsNotFoundError(err) {
		return nil, false, fmt.Errorf("failed to check document number: %w", err)
	}

	req, err := domain.NewRequisition(
		input.DocumentNumber,
		input.DocumentDate,
		input.OriginID,
		input.DestinationID,
		input.AllowIncompleteClose,
		hash,
	)
	if err != nil {
		return nil, false, err
	}

	lines := make([]*domain.RequisitionLine, 0, len(input.Lines))
	for _, in := range input.Lines {
		article, err := s.resolver.Resolve(ctx, in.ArticleCode)
		if err != nil {
			if errors.Is(err, catalog.ErrUnavailable) {
				return nil, false, fmt.Errorf("%w: %v", ErrDependencyUnavailable, err)
			}
			return nil, false, fmt.Errorf("article %q: %w", in.ArticleCode, err)
		}

		barcode := ""
		if len(article.Barcodes) > 0 {
			barcode = article.Barcodes[0]
		}

		line, err := domain.NewRequisitionLine(
			req.ID,
			article.ID,
			article.Code,
			article.Name,
			barcode,
			in.Quantity,
		)
		if err != nil {
			return nil, false, fmt.Errorf("line %q: %w", in.ArticleCode, err)
		}
		lines = append(lines, line)
	}

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return s.requisitions.WithTx(tx).Create(ctx, req, lines)
	})
	if err != nil {
		// A concurrent import of the same document can slip past the
		// replay check; surface it the same way.
		if errors.Is(err, store.ErrDocumentNumberExists) {
			winner, getErr := s.requisitions.GetByDocumentNumber(ctx, input.DocumentNumber)
			if getErr == nil && winner.ContentHash == hash {
				return winner, false, nil
			}
		}
		return nil, false, err
	}

	log.Info("requisition imported",
		slog.String("requisition_id", req.ID.String()),
		slog.String("document_number", req.DocumentNumber),
		slog.Int("lines", len(lines)))
	return req, true, nil
}

// Get implements RequisitionService.Get
func (s *requisitionServiceImpl) Get(ctx context.Context, id uuid.UUID) (*RequisitionDetail, error) {
	req, err := s.requisitions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	lines, err := s.requisitions.ListLines(ctx, id)
	if err != nil {
		return nil, err
	}

	assignments, err := s.assignments.ListByRequisition(ctx, id)
	if err != nil {
		return nil, err
	}

	return &RequisitionDetail{
		Requisition: req,
		Lines:       lines,
		Assignments: assignments,
	}, nil
}

// Fail implements RequisitionService.Fail
func (s *requisitionServiceImpl) Fail(ctx context.Context, id, actorID uuid.UUID, reason string) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if reason == "" {
		return domain.ErrReasonRequired
	}

	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txReqs := s.requisitions.WithTx(tx)

		req, err := txReqs.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}

		if err := req.Fail(); err != nil {
			return err
		}

		if err := txReqs.Update(ctx, req); err != nil {
			return err
		}

		return s.audits.WithTx(tx).Append(ctx, &store.AuditEvent{
			ID:         uuid.New(),
			EntityKind: "requisition",
			EntityID:   id,
			Action:     "fail",
			Outcome:    "applied",
			Detail:     reason,
			ActorID:    actorID,
			CreatedAt:  time.Now().UTC(),
		})
	})
	if err != nil {
		return err
	}

	log.Info("requisition failed by supervisor",
		slog.String("requisition_id", id.String()),
		slog.String("actor_id", actorID.String()))
	return nil
}
