package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/magacin-io/wms-api/internal/catalog"
	"github.com/magacin-io/wms-api/internal/platform/logger"
	"github.com/magacin-io/wms-api/internal/store"
)

// PostgresArticleStore implements the catalog.Resolver interface backed by
// the articles table, a local replica of the master-data catalog.
type PostgresArticleStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresArticleStore creates a new PostgreSQL implementation of the
// catalog.Resolver interface.
func NewPostgresArticleStore(db store.DBTX, logger *slog.Logger) *PostgresArticleStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresArticleStore{
		db:     db,
		logger: logger.With(slog.String("component", "article_store")),
	}
}

// Ensure PostgresArticleStore implements catalog.Resolver
var _ catalog.Resolver = (*PostgresArticleStore)(nil)

// Resolve implements catalog.Resolver.Resolve
// A code matches on the article code or any of its registered barcodes.
// Backend failures map to catalog.ErrUnavailable so the scan registrar can
// tell an unreachable catalog apart from a genuine mismatch.
func (s *PostgresArticleStore) Resolve(ctx context.Context, code string) (*catalog.Article, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, code, name, barcodes
		FROM articles
		WHERE code = $1 OR $1 = ANY(barcodes)
	`
	var article catalog.Article

	err := s.db.QueryRowContext(ctx, query, code).Scan(
		&article.ID,
		&article.Code,
		&article.Name,
		pgTypeMap.SQLScanner(&article.Barcodes),
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", catalog.ErrNotFound, code)
		}
		log.Error("article lookup failed",
			slog.String("error", err.Error()),
			slog.String("code", code))
		return nil, fmt.Errorf("%w: %v", catalog.ErrUnavailable, err)
	}

	return &article, nil
}
