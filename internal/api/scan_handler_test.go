package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/magacin-io/wms-api/internal/domain"
	"github.com/magacin-io/wms-api/internal/platform/metrics"
	"github.com/magacin-io/wms-api/internal/service"
	"github.com/magacin-io/wms-api/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// mockScanService is a mock implementation of the ScanService interface
type mockScanService struct {
	registerFn func(ctx context.Context, input service.ScanInput) (*service.ScanResult, error)
	historyFn  func(ctx context.Context, assignmentLineID uuid.UUID) ([]*domain.ScanRecord, error)
}

func (m *mockScanService) RegisterScan(
	ctx context.Context,
	input service.ScanInput,
) (*service.ScanResult, error) {
	return m.registerFn(ctx, input)
}

func (m *mockScanService) History(
	ctx context.Context,
	assignmentLineID uuid.UUID,
) ([]*domain.ScanRecord, error) {
	return m.historyFn(ctx, assignmentLineID)
}

func scanRecord(lineID uuid.UUID, result domain.ScanClassification) *domain.ScanRecord {
	return &domain.ScanRecord{
		ID:               uuid.New(),
		AssignmentLineID: lineID,
		Barcode:          "4006381333931",
		Quantity:         2,
		Result:           result,
		ActorID:          uuid.New(),
		CreatedAt:        time.Now().UTC(),
	}
}

func TestRegisterScan(t *testing.T) {
	lineID := uuid.New()
	actorID := uuid.New()

	tests := []struct {
		name           string
		result         *service.ScanResult
		serviceError   error
		expectedStatus int
		expectedLabel  string
		wantAccepted   bool
	}{
		{
			name: "Match Applied",
			result: &service.ScanResult{
				Record: scanRecord(lineID, domain.ScanMatch),
				Line:   &domain.AssignmentLine{ID: lineID, ProcessedQty: 2, Status: domain.StatusInProgress},
			},
			expectedStatus: http.StatusCreated,
			expectedLabel:  "match",
			wantAccepted:   true,
		},
		{
			name: "Mismatch Logged Not Applied",
			result: &service.ScanResult{
				Record: scanRecord(lineID, domain.ScanMismatch),
			},
			serviceError:   service.ErrArticleMismatch,
			expectedStatus: http.StatusConflict,
			expectedLabel:  "mismatch",
		},
		{
			name: "Duplicate Logged Not Applied",
			result: &service.ScanResult{
				Record: scanRecord(lineID, domain.ScanDuplicate),
			},
			serviceError:   service.ErrScanExceedsRequested,
			expectedStatus: http.StatusBadRequest,
			expectedLabel:  "duplicate",
		},
		{
			name:           "Line Not Found",
			serviceError:   store.ErrAssignmentLineNotFound,
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "Terminal",
			serviceError:   domain.ErrAlreadyTerminal,
			expectedStatus: http.StatusConflict,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			mockService := &mockScanService{
				registerFn: func(ctx context.Context, input service.ScanInput) (*service.ScanResult, error) {
					if input.AssignmentLineID != lineID {
						t.Errorf("unexpected assignment line ID %s", input.AssignmentLineID)
					}
					if input.ActorID != actorID {
						t.Errorf("unexpected actor ID %s", input.ActorID)
					}
					return tc.result, tc.serviceError
				},
			}

			reg := prometheus.NewRegistry()
			m := metrics.New(reg)
			handler := NewScanHandler(mockService, m, testLogger())

			router := chi.NewRouter()
			router.Post("/assignment-lines/{id}/scans", handler.RegisterScan)

			req := httptest.NewRequest(
				"POST",
				"/assignment-lines/"+lineID.String()+"/scans",
				bytes.NewBufferString(`{"barcode":"4006381333931","quantity":2}`),
			)
			req = withActor(req, actorID)
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			if rr.Code != tc.expectedStatus {
				t.Fatalf("status = %d, want %d (body: %s)", rr.Code, tc.expectedStatus, rr.Body.String())
			}

			if tc.expectedLabel != "" {
				var resp ScanResponse
				if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
					t.Fatalf("failed to decode response: %v", err)
				}
				if resp.Accepted != tc.wantAccepted {
					t.Errorf("accepted = %v, want %v", resp.Accepted, tc.wantAccepted)
				}
				if resp.Record == nil {
					t.Fatal("response is missing the logged record")
				}
				if !tc.wantAccepted && resp.Rejection == "" {
					t.Error("rejected scan response is missing the rejection message")
				}
				got := testutil.ToFloat64(m.ScansTotal.WithLabelValues(tc.expectedLabel))
				if got != 1 {
					t.Errorf("scans counter for %q = %v, want 1", tc.expectedLabel, got)
				}
			}
		})
	}
}

func TestRegisterScanValidation(t *testing.T) {
	handler := NewScanHandler(&mockScanService{}, nil, testLogger())

	router := chi.NewRouter()
	router.Post("/assignment-lines/{id}/scans", handler.RegisterScan)

	tests := []struct {
		name string
		path string
		body string
	}{
		{"Zero Quantity", "/assignment-lines/" + uuid.NewString() + "/scans", `{"barcode":"X","quantity":0}`},
		{"Missing Barcode", "/assignment-lines/" + uuid.NewString() + "/scans", `{"quantity":1}`},
		{"Bad Line ID", "/assignment-lines/nope/scans", `{"barcode":"X","quantity":1}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", tc.path, bytes.NewBufferString(tc.body))
			req = withActor(req, uuid.New())
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			if rr.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", rr.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestScanHistory(t *testing.T) {
	lineID := uuid.New()
	records := []*domain.ScanRecord{
		scanRecord(lineID, domain.ScanMatch),
		scanRecord(lineID, domain.ScanMismatch),
	}

	mockService := &mockScanService{
		historyFn: func(ctx context.Context, gotLineID uuid.UUID) ([]*domain.ScanRecord, error) {
			return records, nil
		},
	}
	handler := NewScanHandler(mockService, nil, testLogger())

	router := chi.NewRouter()
	router.Get("/assignment-lines/{id}/scans", handler.History)

	req := httptest.NewRequest("GET", "/assignment-lines/"+lineID.String()+"/scans", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}

	var resp []*domain.ScanRecord
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp) != 2 {
		t.Errorf("history length = %d, want 2", len(resp))
	}
}
