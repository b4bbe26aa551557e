// Package auth issues and validates the bearer tokens carried by terminal
// and dispatcher clients. A token names the acting worker and the
// capabilities granted by the identity provider.
package auth

import (
	"context"

	"github.com/google/uuid"
)

// Claims holds the identity carried by a validated token.
type Claims struct {
	// ActorID is the worker or dispatcher performing the request.
	ActorID uuid.UUID

	// Capabilities are the roles granted to the actor.
	Capabilities []string
}

// HasCapability reports whether the claims include the given capability.
func (c *Claims) HasCapability(capability string) bool {
	for _, have := range c.Capabilities {
		if have == capability {
			return true
		}
	}
	return false
}

// TokenService issues and validates bearer tokens.
type TokenService interface {
	// GenerateToken creates a signed token for the given actor.
	GenerateToken(ctx context.Context, actorID uuid.UUID, capabilities []string) (string, error)

	// ValidateToken checks a token and returns its claims.
	// Returns ErrExpiredToken or ErrInvalidToken on failure.
	ValidateToken(ctx context.Context, token string) (*Claims, error)
}
