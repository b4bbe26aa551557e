package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/magacin-io/wms-api/internal/platform/logger"
	"github.com/magacin-io/wms-api/internal/store"
)

// PostgresIdempotencyStore implements the store.IdempotencyStore interface
// using a PostgreSQL database as the storage backend.
type PostgresIdempotencyStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresIdempotencyStore creates a new PostgreSQL implementation of the
// IdempotencyStore interface.
func NewPostgresIdempotencyStore(db store.DBTX, logger *slog.Logger) *PostgresIdempotencyStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresIdempotencyStore{
		db:     db,
		logger: logger.With(slog.String("component", "idempotency_store")),
	}
}

// Ensure PostgresIdempotencyStore implements store.IdempotencyStore
var _ store.IdempotencyStore = (*PostgresIdempotencyStore)(nil)

// Get implements store.IdempotencyStore.Get
func (s *PostgresIdempotencyStore) Get(ctx context.Context, key string) (*store.IdempotencyRecord, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT key, method, path, status_code, body, created_at
		FROM idempotency_keys
		WHERE key = $1
	`
	var rec store.IdempotencyRecord
	err := s.db.QueryRowContext(ctx, query, key).Scan(
		&rec.Key,
		&rec.Method,
		&rec.Path,
		&rec.StatusCode,
		&rec.Body,
		&rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		log.Error("failed to get idempotency record",
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	return &rec, nil
}

// Put implements store.IdempotencyStore.Put
// A concurrent duplicate insert is swallowed; the first stored response wins
// and later retries replay it.
func (s *PostgresIdempotencyStore) Put(ctx context.Context, record *store.IdempotencyRecord) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		INSERT INTO idempotency_keys (key, method, path, status_code, body, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (key) DO NOTHING
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		record.Key,
		record.Method,
		record.Path,
		record.StatusCode,
		record.Body,
		record.CreatedAt,
	)
	if err != nil {
		log.Error("failed to store idempotency record",
			slog.String("error", err.Error()))
		return MapError(err)
	}

	return nil
}
