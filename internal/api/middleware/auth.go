package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/magacin-io/wms-api/internal/api/shared"
	"github.com/magacin-io/wms-api/internal/redact"
	"github.com/magacin-io/wms-api/internal/service/auth"
)

// AuthMiddleware provides token authentication for routes.
type AuthMiddleware struct {
	tokenService auth.TokenService
}

// NewAuthMiddleware creates a new AuthMiddleware with the given dependencies.
func NewAuthMiddleware(tokenService auth.TokenService) *AuthMiddleware {
	return &AuthMiddleware{
		tokenService: tokenService,
	}
}

// Authenticate validates tokens from the Authorization header and adds the
// actor ID and granted capabilities to the request context.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Authorization header required")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid authorization format")
			return
		}

		token := parts[1]

		claims, err := m.tokenService.ValidateToken(r.Context(), token)
		if err != nil {
			switch err {
			case auth.ErrExpiredToken:
				shared.RespondWithError(w, r, http.StatusUnauthorized, "Token expired")
			case auth.ErrInvalidToken:
				shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid token")
			default:
				slog.Error("failed to validate token", "error", redact.Error(err))
				shared.RespondWithError(
					w,
					r,
					http.StatusInternalServerError,
					"Authentication error",
				)
			}
			return
		}

		ctx := context.WithValue(r.Context(), shared.ActorIDContextKey, claims.ActorID)
		ctx = context.WithValue(ctx, shared.ActorCapabilitiesContextKey, claims.Capabilities)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireCapability returns a middleware that rejects requests whose token
// does not carry the given capability. It must run after Authenticate.
func (m *AuthMiddleware) RequireCapability(capability string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			capabilities, ok := r.Context().Value(shared.ActorCapabilitiesContextKey).([]string)
			if !ok {
				shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
				return
			}

			for _, c := range capabilities {
				if c == capability {
					next.ServeHTTP(w, r)
					return
				}
			}

			shared.RespondWithError(w, r, http.StatusForbidden, "Insufficient capabilities")
		})
	}
}

// GetActorID extracts the authenticated actor ID from the request context.
// Returns the actor ID and a boolean indicating if it was found.
func GetActorID(r *http.Request) (uuid.UUID, bool) {
	actorID, ok := r.Context().Value(shared.ActorIDContextKey).(uuid.UUID)
	return actorID, ok
}
