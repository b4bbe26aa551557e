package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/magacin-io/wms-api/internal/api/shared"
	"github.com/magacin-io/wms-api/internal/config"
	"github.com/magacin-io/wms-api/internal/service/auth"
)

func newTestTokenService(t *testing.T) auth.TokenService {
	t.Helper()
	svc, err := auth.NewTokenService(config.AuthConfig{
		JWTSecret:            "0123456789abcdef0123456789abcdef",
		TokenLifetimeMinutes: 60,
	})
	if err != nil {
		t.Fatalf("failed to create token service: %v", err)
	}
	return svc
}

func TestAuthenticate(t *testing.T) {
	tokenService := newTestTokenService(t)
	actorID := uuid.New()

	token, err := tokenService.GenerateToken(context.Background(), actorID, []string{"picker"})
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	tests := []struct {
		name           string
		authHeader     string
		expectedStatus int
		expectActor    bool
	}{
		{"Valid Token", "Bearer " + token, http.StatusOK, true},
		{"Missing Header", "", http.StatusUnauthorized, false},
		{"Wrong Scheme", "Basic " + token, http.StatusUnauthorized, false},
		{"Garbage Token", "Bearer not.a.token", http.StatusUnauthorized, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			middleware := NewAuthMiddleware(tokenService)

			var gotActor uuid.UUID
			var actorPresent bool
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotActor, actorPresent = GetActorID(r)
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest("GET", "/requisitions", nil)
			if tc.authHeader != "" {
				req.Header.Set("Authorization", tc.authHeader)
			}
			rr := httptest.NewRecorder()

			middleware.Authenticate(next).ServeHTTP(rr, req)

			if rr.Code != tc.expectedStatus {
				t.Errorf("status = %d, want %d", rr.Code, tc.expectedStatus)
			}
			if actorPresent != tc.expectActor {
				t.Errorf("actor present = %v, want %v", actorPresent, tc.expectActor)
			}
			if tc.expectActor && gotActor != actorID {
				t.Errorf("actor = %s, want %s", gotActor, actorID)
			}
		})
	}
}

func TestRequireCapability(t *testing.T) {
	middleware := NewAuthMiddleware(newTestTokenService(t))

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	guarded := middleware.RequireCapability("supervisor")(next)

	tests := []struct {
		name           string
		capabilities   []string
		expectedStatus int
	}{
		{"Has Capability", []string{"picker", "supervisor"}, http.StatusOK},
		{"Missing Capability", []string{"picker"}, http.StatusForbidden},
		{"No Capabilities In Context", nil, http.StatusUnauthorized},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/requisitions/x/override", nil)
			if tc.capabilities != nil {
				ctx := context.WithValue(req.Context(), shared.ActorCapabilitiesContextKey, tc.capabilities)
				req = req.WithContext(ctx)
			}
			rr := httptest.NewRecorder()

			guarded.ServeHTTP(rr, req)

			if rr.Code != tc.expectedStatus {
				t.Errorf("status = %d, want %d", rr.Code, tc.expectedStatus)
			}
		})
	}
}
