package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/magacin-io/wms-api/internal/api/shared"
	"github.com/magacin-io/wms-api/internal/domain"
	"github.com/magacin-io/wms-api/internal/service"
	"github.com/magacin-io/wms-api/internal/store"
)

// mockRequisitionService is a mock implementation of the RequisitionService interface
type mockRequisitionService struct {
	importFn func(ctx context.Context, input service.RequisitionImport) (*domain.Requisition, bool, error)
	getFn    func(ctx context.Context, id uuid.UUID) (*service.RequisitionDetail, error)
	failFn   func(ctx context.Context, id, actorID uuid.UUID, reason string) error
}

func (m *mockRequisitionService) Import(
	ctx context.Context,
	input service.RequisitionImport,
) (*domain.Requisition, bool, error) {
	return m.importFn(ctx, input)
}

func (m *mockRequisitionService) Get(ctx context.Context, id uuid.UUID) (*service.RequisitionDetail, error) {
	return m.getFn(ctx, id)
}

func (m *mockRequisitionService) Fail(ctx context.Context, id, actorID uuid.UUID, reason string) error {
	return m.failFn(ctx, id, actorID, reason)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// withActor injects an authenticated actor the way the auth middleware would.
func withActor(r *http.Request, actorID uuid.UUID) *http.Request {
	ctx := context.WithValue(r.Context(), shared.ActorIDContextKey, actorID)
	return r.WithContext(ctx)
}

func sampleRequisition() *domain.Requisition {
	return &domain.Requisition{
		ID:             uuid.New(),
		DocumentNumber: "REQ-2026-0001",
		DocumentDate:   time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		OriginID:       "WH-MAIN",
		DestinationID:  "STORE-17",
		Status:         domain.StatusNew,
		CreatedAt:      time.Now().UTC(),
		UpdatedAt:      time.Now().UTC(),
	}
}

func importBody(t *testing.T) *bytes.Buffer {
	t.Helper()
	body, err := json.Marshal(ImportRequisitionRequest{
		DocumentNumber: "REQ-2026-0001",
		DocumentDate:   time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		OriginID:       "WH-MAIN",
		DestinationID:  "STORE-17",
		Lines: []ImportLineRequest{
			{ArticleCode: "ART-100", Quantity: 5},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	return bytes.NewBuffer(body)
}

func TestImportRequisition(t *testing.T) {
	requisition := sampleRequisition()

	tests := []struct {
		name           string
		body           io.Reader
		created        bool
		serviceError   error
		expectedStatus int
	}{
		{
			name:           "Created",
			created:        true,
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "Replayed",
			created:        false,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Document Number Conflict",
			serviceError:   store.ErrDocumentNumberExists,
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "Invalid JSON",
			body:           bytes.NewBufferString("{not json"),
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Missing Lines",
			body:           bytes.NewBufferString(`{"document_number":"REQ-1","document_date":"2026-03-10T00:00:00Z","origin_id":"A","destination_id":"B","lines":[]}`),
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			mockService := &mockRequisitionService{
				importFn: func(ctx context.Context, input service.RequisitionImport) (*domain.Requisition, bool, error) {
					if tc.serviceError != nil {
						return nil, false, tc.serviceError
					}
					return requisition, tc.created, nil
				},
			}
			handler := NewRequisitionHandler(mockService, testLogger())

			body := tc.body
			if body == nil {
				body = importBody(t)
			}
			req := httptest.NewRequest("POST", "/requisitions", body)
			rr := httptest.NewRecorder()

			handler.ImportRequisition(rr, req)

			if rr.Code != tc.expectedStatus {
				t.Errorf("status = %d, want %d (body: %s)", rr.Code, tc.expectedStatus, rr.Body.String())
			}

			if tc.expectedStatus == http.StatusCreated || tc.expectedStatus == http.StatusOK {
				var resp ImportRequisitionResponse
				if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
					t.Fatalf("failed to decode response: %v", err)
				}
				if resp.Created != tc.created {
					t.Errorf("created = %v, want %v", resp.Created, tc.created)
				}
				if resp.Requisition.DocumentNumber != requisition.DocumentNumber {
					t.Errorf("document number = %q, want %q",
						resp.Requisition.DocumentNumber, requisition.DocumentNumber)
				}
			}
		})
	}
}

func TestGetRequisition(t *testing.T) {
	requisition := sampleRequisition()

	tests := []struct {
		name           string
		id             string
		serviceError   error
		expectedStatus int
	}{
		{"Found", requisition.ID.String(), nil, http.StatusOK},
		{"Not Found", uuid.NewString(), store.ErrRequisitionNotFound, http.StatusNotFound},
		{"Invalid ID", "not-a-uuid", nil, http.StatusBadRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			mockService := &mockRequisitionService{
				getFn: func(ctx context.Context, id uuid.UUID) (*service.RequisitionDetail, error) {
					if tc.serviceError != nil {
						return nil, tc.serviceError
					}
					return &service.RequisitionDetail{
						Requisition: requisition,
						Lines:       []*domain.RequisitionLine{},
						Assignments: []*domain.Assignment{},
					}, nil
				},
			}
			handler := NewRequisitionHandler(mockService, testLogger())

			router := chi.NewRouter()
			router.Get("/requisitions/{id}", handler.GetRequisition)

			req := httptest.NewRequest("GET", "/requisitions/"+tc.id, nil)
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			if rr.Code != tc.expectedStatus {
				t.Errorf("status = %d, want %d", rr.Code, tc.expectedStatus)
			}
		})
	}
}

func TestFailRequisition(t *testing.T) {
	requisitionID := uuid.New()
	actorID := uuid.New()

	tests := []struct {
		name           string
		actor          uuid.UUID
		body           string
		serviceError   error
		expectedStatus int
	}{
		{"Success", actorID, `{"reason":"document cancelled upstream"}`, nil, http.StatusNoContent},
		{"Missing Reason", actorID, `{"reason":""}`, nil, http.StatusBadRequest},
		{"Already Terminal", actorID, `{"reason":"cancel"}`, domain.ErrAlreadyTerminal, http.StatusConflict},
		{"No Actor", uuid.Nil, `{"reason":"cancel"}`, nil, http.StatusUnauthorized},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			mockService := &mockRequisitionService{
				failFn: func(ctx context.Context, id, gotActor uuid.UUID, reason string) error {
					if id != requisitionID {
						t.Errorf("unexpected requisition ID %s", id)
					}
					if gotActor != actorID {
						t.Errorf("unexpected actor ID %s", gotActor)
					}
					return tc.serviceError
				},
			}
			handler := NewRequisitionHandler(mockService, testLogger())

			router := chi.NewRouter()
			router.Post("/requisitions/{id}/fail", handler.FailRequisition)

			req := httptest.NewRequest(
				"POST",
				"/requisitions/"+requisitionID.String()+"/fail",
				bytes.NewBufferString(tc.body),
			)
			if tc.actor != uuid.Nil {
				req = withActor(req, tc.actor)
			}
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			if rr.Code != tc.expectedStatus {
				t.Errorf("status = %d, want %d (body: %s)", rr.Code, tc.expectedStatus, rr.Body.String())
			}
		})
	}
}
