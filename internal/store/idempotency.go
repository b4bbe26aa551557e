package store

import (
	"context"
	"time"
)

// IdempotencyRecord captures the response of a completed mutating request so
// a retry carrying the same key can be replayed instead of double-applied.
type IdempotencyRecord struct {
	Key        string
	Method     string
	Path       string
	StatusCode int
	Body       []byte
	CreatedAt  time.Time
}

// IdempotencyStore defines the interface for idempotency key persistence.
type IdempotencyStore interface {
	// Get retrieves the stored response for a key.
	// Returns ErrNotFound if the key has not been seen.
	Get(ctx context.Context, key string) (*IdempotencyRecord, error)

	// Put stores the response for a key. A concurrent duplicate insert is
	// not an error; the first write wins.
	Put(ctx context.Context, record *IdempotencyRecord) error
}
