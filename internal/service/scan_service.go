package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/magacin-io/wms-api/internal/catalog"
	"github.com/magacin-io/wms-api/internal/domain"
	"github.com/magacin-io/wms-api/internal/platform/logger"
	"github.com/magacin-io/wms-api/internal/store"
)

// ScanInput is one barcode scan against an assignment line.
type ScanInput struct {
	AssignmentLineID uuid.UUID
	Barcode          string
	Quantity         int64
	ActorID          uuid.UUID
}

// ScanResult reports what the registrar did with a scan. On a rejected scan
// the record is still present: every scan lands in the log regardless of
// outcome.
type ScanResult struct {
	Record *domain.ScanRecord
	Line   *domain.AssignmentLine
}

// ScanService validates and applies barcode scans, the only write path for
// pick quantities.
type ScanService interface {
	// RegisterScan classifies one scan and, on a match, applies its
	// quantity to the assignment line and rolls the change up the chain.
	// Mismatch and duplicate scans are persisted in the scan log but apply
	// nothing; they surface as ErrArticleMismatch and
	// ErrScanExceedsRequested with the logged record in the result. A scan
	// against a closed line or assignment is logged the same way and
	// surfaces domain.ErrAlreadyTerminal.
	RegisterScan(ctx context.Context, input ScanInput) (*ScanResult, error)

	// History retrieves the scan log of one assignment line, oldest first.
	History(ctx context.Context, assignmentLineID uuid.UUID) ([]*domain.ScanRecord, error)
}

type scanServiceImpl struct {
	db           *sql.DB
	requisitions store.RequisitionStore
	assignments  store.AssignmentStore
	scans        store.ScanLogStore
	resolver     catalog.Resolver
	retries      int
	logger       *slog.Logger
	now          func() time.Time
}

// NewScanService creates a new ScanService.
func NewScanService(
	db *sql.DB,
	requisitions store.RequisitionStore,
	assignments store.AssignmentStore,
	scans store.ScanLogStore,
	resolver catalog.Resolver,
	retries int,
	logger *slog.Logger,
) (ScanService, error) {
	if db == nil {
		return nil, errors.New("db cannot be nil")
	}
	if requisitions == nil {
		return nil, errors.New("requisition store cannot be nil")
	}
	if assignments == nil {
		return nil, errors.New("assignment store cannot be nil")
	}
	if scans == nil {
		return nil, errors.New("scan log store cannot be nil")
	}
	if resolver == nil {
		return nil, errors.New("catalog resolver cannot be nil")
	}

	if retries < 1 {
		retries = 3
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &scanServiceImpl{
		db:           db,
		requisitions: requisitions,
		assignments:  assignments,
		scans:        scans,
		resolver:     resolver,
		retries:      retries,
		logger:       logger.With(slog.String("component", "scan_service")),
		now:          func() time.Time { return time.Now().UTC() },
	}, nil
}

// RegisterScan implements ScanService.RegisterScan
func (s *scanServiceImpl) RegisterScan(ctx context.Context, input ScanInput) (*ScanResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if input.Quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}

	// Resolve before taking any locks; a slow catalog must not hold a row
	// lock. An unknown code is a mismatch, not a failure.
	article, err := s.resolver.Resolve(ctx, input.Barcode)
	if err != nil {
		if errors.Is(err, catalog.ErrUnavailable) {
			return nil, fmt.Errorf("%w: %v", ErrDependencyUnavailable, err)
		}
		if !errors.Is(err, catalog.ErrNotFound) {
			return nil, err
		}
		article = nil
	}

	// A rejected scan still commits its log record; the transaction
	// function returns nil for those and the rejection is surfaced after
	// the commit.
	var result *ScanResult
	var rejection error

	err = store.RunInLockingTransaction(ctx, s.db, s.retries,
		func(ctx context.Context, tx *sql.Tx) error {
			result, rejection = nil, nil

			txReqs := s.requisitions.WithTx(tx)
			txAssignments := s.assignments.WithTx(tx)
			txScans := s.scans.WithTx(tx)

			line, err := txAssignments.GetLineForUpdate(ctx, input.AssignmentLineID)
			if err != nil {
				return err
			}

			assignment, err := txAssignments.GetByID(ctx, line.AssignmentID)
			if err != nil {
				return err
			}
			if assignment.Status.IsTerminal() || line.Status.IsTerminal() {
				// A re-scan of a finished line is the most common repeated
				// failure on the floor; the attempt still lands in the log.
				record, err := domain.NewScanRecord(
					line.ID,
					input.Barcode,
					input.Quantity,
					domain.ScanDuplicate,
					input.ActorID,
				)
				if err != nil {
					return err
				}
				if err := txScans.Append(ctx, record); err != nil {
					return err
				}
				result = &ScanResult{Record: record, Line: line}
				rejection = fmt.Errorf("%w: assignment line is closed", domain.ErrAlreadyTerminal)
				return nil
			}

			reqLine, err := txReqs.GetLine(ctx, line.RequisitionLineID)
			if err != nil {
				return err
			}

			classification := domain.ScanMatch
			switch {
			case article == nil || article.ID != reqLine.ArticleID:
				classification = domain.ScanMismatch
			case line.WouldExceed(input.Quantity):
				classification = domain.ScanDuplicate
			}

			record, err := domain.NewScanRecord(
				line.ID,
				input.Barcode,
				input.Quantity,
				classification,
				input.ActorID,
			)
			if err != nil {
				return err
			}
			if err := txScans.Append(ctx, record); err != nil {
				return err
			}

			result = &ScanResult{Record: record, Line: line}

			switch classification {
			case domain.ScanMismatch:
				rejection = fmt.Errorf("%w: scanned %q, line expects %s",
					ErrArticleMismatch, input.Barcode, reqLine.ArticleCode)
				return nil
			case domain.ScanDuplicate:
				rejection = fmt.Errorf("%w: %d remaining, scanned %d",
					ErrScanExceedsRequested, line.Remaining(), input.Quantity)
				return nil
			}

			if err := line.RegisterPick(input.Quantity, input.Barcode); err != nil {
				return err
			}
			if err := txAssignments.UpdateLine(ctx, line); err != nil {
				return err
			}

			return propagateFromLeaf(
				ctx,
				txReqs,
				txAssignments,
				line.AssignmentID,
				line.RequisitionLineID,
				input.ActorID,
				s.now(),
			)
		})
	if err != nil {
		return nil, err
	}

	if rejection != nil {
		log.Warn("scan rejected",
			slog.String("assignment_line_id", input.AssignmentLineID.String()),
			slog.String("result", string(result.Record.Result)),
			slog.String("barcode", input.Barcode))
		return result, rejection
	}

	log.Debug("scan applied",
		slog.String("assignment_line_id", input.AssignmentLineID.String()),
		slog.Int64("quantity", input.Quantity),
		slog.String("line_status", string(result.Line.Status)))
	return result, nil
}

// History implements ScanService.History
func (s *scanServiceImpl) History(
	ctx context.Context,
	assignmentLineID uuid.UUID,
) ([]*domain.ScanRecord, error) {
	return s.scans.ListByAssignmentLine(ctx, assignmentLineID)
}
