package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/magacin-io/wms-api/internal/catalog"
	"github.com/magacin-io/wms-api/internal/domain"
	"github.com/magacin-io/wms-api/internal/store"
	"github.com/stretchr/testify/require"
)

// newTxDB returns a sqlmock database that tolerates any sequence of
// transactions. The stores under test are in-memory fakes, so only the
// begin/commit/rollback calls ever reach the mock.
func newTxDB(t *testing.T) *sql.DB {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	mock.MatchExpectationsInOrder(false)
	for i := 0; i < 32; i++ {
		mock.ExpectBegin()
		mock.ExpectCommit()
		mock.ExpectRollback()
	}
	return db
}

// fakeRequisitionStore is an in-memory store.RequisitionStore. WithTx
// returns the same instance; transactionality is not what these tests
// exercise.
type fakeRequisitionStore struct {
	mu    sync.Mutex
	reqs  map[uuid.UUID]*domain.Requisition
	lines map[uuid.UUID]*domain.RequisitionLine
}

func newFakeRequisitionStore() *fakeRequisitionStore {
	return &fakeRequisitionStore{
		reqs:  make(map[uuid.UUID]*domain.Requisition),
		lines: make(map[uuid.UUID]*domain.RequisitionLine),
	}
}

func copyRequisition(r *domain.Requisition) *domain.Requisition {
	c := *r
	return &c
}

func copyRequisitionLine(l *domain.RequisitionLine) *domain.RequisitionLine {
	c := *l
	return &c
}

func (f *fakeRequisitionStore) Create(
	ctx context.Context,
	req *domain.Requisition,
	lines []*domain.RequisitionLine,
) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.reqs {
		if existing.DocumentNumber == req.DocumentNumber {
			return store.ErrDocumentNumberExists
		}
	}
	f.reqs[req.ID] = copyRequisition(req)
	for _, l := range lines {
		f.lines[l.ID] = copyRequisitionLine(l)
	}
	return nil
}

func (f *fakeRequisitionStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Requisition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reqs[id]
	if !ok {
		return nil, store.ErrRequisitionNotFound
	}
	return copyRequisition(r), nil
}

func (f *fakeRequisitionStore) GetByDocumentNumber(
	ctx context.Context,
	documentNumber string,
) (*domain.Requisition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.reqs {
		if r.DocumentNumber == documentNumber {
			return copyRequisition(r), nil
		}
	}
	return nil, store.ErrRequisitionNotFound
}

func (f *fakeRequisitionStore) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Requisition, error) {
	return f.GetByID(ctx, id)
}

func (f *fakeRequisitionStore) Update(ctx context.Context, req *domain.Requisition) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.reqs[req.ID]; !ok {
		return store.ErrRequisitionNotFound
	}
	f.reqs[req.ID] = copyRequisition(req)
	return nil
}

func (f *fakeRequisitionStore) ListLines(
	ctx context.Context,
	requisitionID uuid.UUID,
) ([]*domain.RequisitionLine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var lines []*domain.RequisitionLine
	for _, l := range f.lines {
		if l.RequisitionID == requisitionID {
			lines = append(lines, copyRequisitionLine(l))
		}
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].ID.String() < lines[j].ID.String() })
	return lines, nil
}

func (f *fakeRequisitionStore) GetLine(ctx context.Context, lineID uuid.UUID) (*domain.RequisitionLine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.lines[lineID]
	if !ok {
		return nil, store.ErrRequisitionLineNotFound
	}
	return copyRequisitionLine(l), nil
}

func (f *fakeRequisitionStore) GetLineForUpdate(
	ctx context.Context,
	lineID uuid.UUID,
) (*domain.RequisitionLine, error) {
	return f.GetLine(ctx, lineID)
}

func (f *fakeRequisitionStore) UpdateLine(ctx context.Context, line *domain.RequisitionLine) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.lines[line.ID]; !ok {
		return store.ErrRequisitionLineNotFound
	}
	f.lines[line.ID] = copyRequisitionLine(line)
	return nil
}

func (f *fakeRequisitionStore) WithTx(tx *sql.Tx) store.RequisitionStore { return f }

// fakeAssignmentStore is an in-memory store.AssignmentStore.
type fakeAssignmentStore struct {
	mu          sync.Mutex
	assignments map[uuid.UUID]*domain.Assignment
	lines       map[uuid.UUID]*domain.AssignmentLine
}

func newFakeAssignmentStore() *fakeAssignmentStore {
	return &fakeAssignmentStore{
		assignments: make(map[uuid.UUID]*domain.Assignment),
		lines:       make(map[uuid.UUID]*domain.AssignmentLine),
	}
}

func copyAssignment(a *domain.Assignment) *domain.Assignment {
	c := *a
	return &c
}

func copyAssignmentLine(l *domain.AssignmentLine) *domain.AssignmentLine {
	c := *l
	return &c
}

func (f *fakeAssignmentStore) Create(
	ctx context.Context,
	assignment *domain.Assignment,
	lines []*domain.AssignmentLine,
) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.assignments[assignment.ID] = copyAssignment(assignment)
	for _, l := range lines {
		f.lines[l.ID] = copyAssignmentLine(l)
	}
	return nil
}

func (f *fakeAssignmentStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Assignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.assignments[id]
	if !ok {
		return nil, store.ErrAssignmentNotFound
	}
	return copyAssignment(a), nil
}

func (f *fakeAssignmentStore) Update(ctx context.Context, assignment *domain.Assignment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.assignments[assignment.ID]; !ok {
		return store.ErrAssignmentNotFound
	}
	f.assignments[assignment.ID] = copyAssignment(assignment)
	return nil
}

func (f *fakeAssignmentStore) ListByRequisition(
	ctx context.Context,
	requisitionID uuid.UUID,
) ([]*domain.Assignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Assignment
	for _, a := range f.assignments {
		if a.RequisitionID == requisitionID {
			out = append(out, copyAssignment(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (f *fakeAssignmentStore) ListLines(
	ctx context.Context,
	assignmentID uuid.UUID,
) ([]*domain.AssignmentLine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.AssignmentLine
	for _, l := range f.lines {
		if l.AssignmentID == assignmentID {
			out = append(out, copyAssignmentLine(l))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (f *fakeAssignmentStore) ListLinesByRequisitionLine(
	ctx context.Context,
	requisitionLineID uuid.UUID,
) ([]*domain.AssignmentLine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.AssignmentLine
	for _, l := range f.lines {
		if l.RequisitionLineID == requisitionLineID {
			out = append(out, copyAssignmentLine(l))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (f *fakeAssignmentStore) GetLine(ctx context.Context, lineID uuid.UUID) (*domain.AssignmentLine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.lines[lineID]
	if !ok {
		return nil, store.ErrAssignmentLineNotFound
	}
	return copyAssignmentLine(l), nil
}

func (f *fakeAssignmentStore) GetLineForUpdate(
	ctx context.Context,
	lineID uuid.UUID,
) (*domain.AssignmentLine, error) {
	return f.GetLine(ctx, lineID)
}

func (f *fakeAssignmentStore) UpdateLine(ctx context.Context, line *domain.AssignmentLine) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.lines[line.ID]; !ok {
		return store.ErrAssignmentLineNotFound
	}
	f.lines[line.ID] = copyAssignmentLine(line)
	return nil
}

func (f *fakeAssignmentStore) WorkerLoads(
	ctx context.Context,
	workerIDs []uuid.UUID,
) (map[uuid.UUID]store.WorkerLoad, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	wanted := make(map[uuid.UUID]bool, len(workerIDs))
	for _, id := range workerIDs {
		wanted[id] = true
	}

	loads := make(map[uuid.UUID]store.WorkerLoad)
	for _, a := range f.assignments {
		if !wanted[a.WorkerID] {
			continue
		}
		if a.Status != domain.StatusAssigned && a.Status != domain.StatusInProgress {
			continue
		}
		load := loads[a.WorkerID]
		load.WorkerID = a.WorkerID
		load.OpenAssignments++
		for _, l := range f.lines {
			if l.AssignmentID != a.ID {
				continue
			}
			if l.Status != domain.StatusAssigned && l.Status != domain.StatusInProgress {
				continue
			}
			load.RemainingQty += l.RequestedQty - l.ProcessedQty
		}
		loads[a.WorkerID] = load
	}
	return loads, nil
}

func (f *fakeAssignmentStore) WithTx(tx *sql.Tx) store.AssignmentStore { return f }

// fakeSuggestionStore is an in-memory store.SuggestionStore.
type fakeSuggestionStore struct {
	mu          sync.Mutex
	suggestions map[uuid.UUID]*domain.Suggestion
}

func newFakeSuggestionStore() *fakeSuggestionStore {
	return &fakeSuggestionStore{suggestions: make(map[uuid.UUID]*domain.Suggestion)}
}

func copySuggestion(s *domain.Suggestion) *domain.Suggestion {
	c := *s
	return &c
}

func (f *fakeSuggestionStore) Create(ctx context.Context, suggestion *domain.Suggestion) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.suggestions[suggestion.ID] = copySuggestion(suggestion)
	return nil
}

func (f *fakeSuggestionStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Suggestion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.suggestions[id]
	if !ok {
		return nil, store.ErrSuggestionNotFound
	}
	return copySuggestion(s), nil
}

func (f *fakeSuggestionStore) GetActiveByRequisition(
	ctx context.Context,
	requisitionID uuid.UUID,
	now time.Time,
) (*domain.Suggestion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var newest *domain.Suggestion
	for _, s := range f.suggestions {
		if s.RequisitionID != requisitionID ||
			s.Status != domain.SuggestionStatusSuggested ||
			s.Expired(now) {
			continue
		}
		if newest == nil || s.CreatedAt.After(newest.CreatedAt) {
			newest = s
		}
	}
	if newest == nil {
		return nil, store.ErrSuggestionNotFound
	}
	return copySuggestion(newest), nil
}

func (f *fakeSuggestionStore) UpdateStatus(
	ctx context.Context,
	id uuid.UUID,
	status domain.SuggestionStatus,
) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.suggestions[id]
	if !ok {
		return store.ErrSuggestionNotFound
	}
	s.Status = status
	return nil
}

func (f *fakeSuggestionStore) WithTx(tx *sql.Tx) store.SuggestionStore { return f }

// fakeScanLogStore is an in-memory store.ScanLogStore.
type fakeScanLogStore struct {
	mu      sync.Mutex
	records []*domain.ScanRecord
}

func newFakeScanLogStore() *fakeScanLogStore { return &fakeScanLogStore{} }

func (f *fakeScanLogStore) Append(ctx context.Context, record *domain.ScanRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := *record
	f.records = append(f.records, &c)
	return nil
}

func (f *fakeScanLogStore) ListByAssignmentLine(
	ctx context.Context,
	assignmentLineID uuid.UUID,
) ([]*domain.ScanRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.ScanRecord
	for _, r := range f.records {
		if r.AssignmentLineID == assignmentLineID {
			c := *r
			out = append(out, &c)
		}
	}
	return out, nil
}

func (f *fakeScanLogStore) WithTx(tx *sql.Tx) store.ScanLogStore { return f }

// fakeWorkerStore is an in-memory store.WorkerStore.
type fakeWorkerStore struct {
	workers map[uuid.UUID]*domain.Worker
}

func newFakeWorkerStore(workers ...*domain.Worker) *fakeWorkerStore {
	f := &fakeWorkerStore{workers: make(map[uuid.UUID]*domain.Worker)}
	for _, w := range workers {
		f.workers[w.ID] = w
	}
	return f
}

func (f *fakeWorkerStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Worker, error) {
	w, ok := f.workers[id]
	if !ok {
		return nil, store.ErrWorkerNotFound
	}
	return w, nil
}

func (f *fakeWorkerStore) ListActiveWithCapability(
	ctx context.Context,
	capability domain.Capability,
) ([]*domain.Worker, error) {
	var out []*domain.Worker
	for _, w := range f.workers {
		if w.Active && w.HasCapability(capability) {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

// fakeAuditStore is an in-memory store.AuditStore.
type fakeAuditStore struct {
	mu     sync.Mutex
	events []*store.AuditEvent
}

func newFakeAuditStore() *fakeAuditStore { return &fakeAuditStore{} }

func (f *fakeAuditStore) Append(ctx context.Context, event *store.AuditEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := *event
	f.events = append(f.events, &c)
	return nil
}

func (f *fakeAuditStore) ListByEntity(
	ctx context.Context,
	entityKind string,
	entityID uuid.UUID,
) ([]*store.AuditEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*store.AuditEvent
	for _, e := range f.events {
		if e.EntityKind == entityKind && e.EntityID == entityID {
			c := *e
			out = append(out, &c)
		}
	}
	return out, nil
}

func (f *fakeAuditStore) WithTx(tx *sql.Tx) store.AuditStore { return f }

// fakeResolver is an in-memory catalog.Resolver keyed by code and barcode.
type fakeResolver struct {
	articles    map[string]*catalog.Article
	unavailable bool
}

func newFakeResolver(articles ...*catalog.Article) *fakeResolver {
	f := &fakeResolver{articles: make(map[string]*catalog.Article)}
	for _, a := range articles {
		f.articles[a.Code] = a
		for _, bc := range a.Barcodes {
			f.articles[bc] = a
		}
	}
	return f
}

func (f *fakeResolver) Resolve(ctx context.Context, code string) (*catalog.Article, error) {
	if f.unavailable {
		return nil, fmt.Errorf("%w: connection refused", catalog.ErrUnavailable)
	}
	a, ok := f.articles[code]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return a, nil
}
