package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/magacin-io/wms-api/internal/domain"
	"github.com/magacin-io/wms-api/internal/service"
	"github.com/magacin-io/wms-api/internal/store"
)

// mockCompletionService is a mock implementation of the CompletionService interface
type mockCompletionService struct {
	shortCloseFn        func(ctx context.Context, input service.ShortCloseInput) (*domain.RequisitionLine, error)
	markRemainingZeroFn func(ctx context.Context, lineID, actorID uuid.UUID, reason string) (*domain.RequisitionLine, error)
}

func (m *mockCompletionService) ShortClose(
	ctx context.Context,
	input service.ShortCloseInput,
) (*domain.RequisitionLine, error) {
	return m.shortCloseFn(ctx, input)
}

func (m *mockCompletionService) MarkRemainingZero(
	ctx context.Context,
	lineID, actorID uuid.UUID,
	reason string,
) (*domain.RequisitionLine, error) {
	return m.markRemainingZeroFn(ctx, lineID, actorID, reason)
}

func TestShortClose(t *testing.T) {
	lineID := uuid.New()
	actorID := uuid.New()

	closedLine := &domain.RequisitionLine{
		ID:              lineID,
		RequestedQty:    10,
		FulfilledQty:    6,
		FoundQty:        6,
		DiscrepancyKind: domain.DiscrepancyShortPick,
		Reason:          "bin empty",
		Status:          domain.StatusDone,
	}

	tests := []struct {
		name           string
		body           string
		serviceError   error
		expectedStatus int
	}{
		{
			name:           "Applied",
			body:           `{"found_qty":6,"kind":"short_pick","reason":"bin empty"}`,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Policy Forbids",
			body:           `{"found_qty":6,"kind":"short_pick","reason":"bin empty"}`,
			serviceError:   service.ErrIncompleteCloseNotAllowed,
			expectedStatus: http.StatusForbidden,
		},
		{
			name:           "Invalid Kind",
			body:           `{"found_qty":6,"kind":"vanished","reason":"x"}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Reason Required For Other",
			body:           `{"found_qty":6,"kind":"other"}`,
			serviceError:   domain.ErrReasonRequired,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Found Above Requested",
			body:           `{"found_qty":99,"kind":"short_pick","reason":"x"}`,
			serviceError:   domain.ErrInvalidQuantity,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Line Not Found",
			body:           `{"found_qty":6,"kind":"short_pick","reason":"x"}`,
			serviceError:   store.ErrRequisitionLineNotFound,
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			mockService := &mockCompletionService{
				shortCloseFn: func(ctx context.Context, input service.ShortCloseInput) (*domain.RequisitionLine, error) {
					if input.RequisitionLineID != lineID {
						t.Errorf("unexpected line ID %s", input.RequisitionLineID)
					}
					if input.ActorID != actorID {
						t.Errorf("unexpected actor ID %s", input.ActorID)
					}
					if tc.serviceError != nil {
						return nil, tc.serviceError
					}
					return closedLine, nil
				},
			}
			handler := NewCompletionHandler(mockService, testLogger())

			router := chi.NewRouter()
			router.Post("/requisition-lines/{id}/complete-partial", handler.ShortClose)

			req := httptest.NewRequest(
				"POST",
				"/requisition-lines/"+lineID.String()+"/complete-partial",
				bytes.NewBufferString(tc.body),
			)
			req = withActor(req, actorID)
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			if rr.Code != tc.expectedStatus {
				t.Fatalf("status = %d, want %d (body: %s)", rr.Code, tc.expectedStatus, rr.Body.String())
			}

			if tc.expectedStatus == http.StatusOK {
				var resp domain.RequisitionLine
				if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
					t.Fatalf("failed to decode response: %v", err)
				}
				if resp.Status != domain.StatusDone {
					t.Errorf("line status = %s, want %s", resp.Status, domain.StatusDone)
				}
				if resp.DiscrepancyKind != domain.DiscrepancyShortPick {
					t.Errorf("discrepancy kind = %s, want %s", resp.DiscrepancyKind, domain.DiscrepancyShortPick)
				}
			}
		})
	}
}

func TestMarkRemainingZero(t *testing.T) {
	lineID := uuid.New()
	actorID := uuid.New()

	tests := []struct {
		name           string
		serviceError   error
		expectedStatus int
	}{
		{"Applied", nil, http.StatusOK},
		{"Already Terminal", domain.ErrAlreadyTerminal, http.StatusConflict},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			mockService := &mockCompletionService{
				markRemainingZeroFn: func(ctx context.Context, gotLineID, gotActorID uuid.UUID, reason string) (*domain.RequisitionLine, error) {
					if reason != "aisle blocked" {
						t.Errorf("unexpected reason %q", reason)
					}
					if tc.serviceError != nil {
						return nil, tc.serviceError
					}
					return &domain.RequisitionLine{
						ID:              lineID,
						Status:          domain.StatusDone,
						DiscrepancyKind: domain.DiscrepancyNotFound,
					}, nil
				},
			}
			handler := NewCompletionHandler(mockService, testLogger())

			router := chi.NewRouter()
			router.Post("/requisition-lines/{id}/mark-remaining-zero", handler.MarkRemainingZero)

			req := httptest.NewRequest(
				"POST",
				"/requisition-lines/"+lineID.String()+"/mark-remaining-zero",
				bytes.NewBufferString(`{"reason":"aisle blocked"}`),
			)
			req = withActor(req, actorID)
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			if rr.Code != tc.expectedStatus {
				t.Errorf("status = %d, want %d (body: %s)", rr.Code, tc.expectedStatus, rr.Body.String())
			}
		})
	}
}
