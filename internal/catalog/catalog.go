// Package catalog defines the consumed article-lookup interface. The core
// resolves scanned barcodes through it; the master data itself is maintained
// elsewhere.
package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// Resolver errors
var (
	// ErrNotFound is returned when no article matches the scanned code.
	ErrNotFound = errors.New("article not found")

	// ErrUnavailable is returned when the catalog backend cannot be
	// reached. Callers surface it as a dependency failure, never as an
	// article mismatch.
	ErrUnavailable = errors.New("catalog unavailable")
)

// Article is the canonical article identity a code resolves to.
type Article struct {
	ID       uuid.UUID
	Code     string
	Name     string
	Barcodes []string
}

// Resolver resolves an article code or barcode to its canonical identity.
type Resolver interface {
	// Resolve returns the article matching the given code or barcode.
	// Returns ErrNotFound when nothing matches and ErrUnavailable when the
	// catalog backend fails.
	Resolve(ctx context.Context, code string) (*Article, error)
}
