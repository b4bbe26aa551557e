package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/magacin-io/wms-api/internal/platform/logger"
)

// ErrBusy is returned when a transaction keeps losing a row-level lock race
// after the bounded number of retries. Callers should treat it as a
// transient condition and retry the whole operation.
var ErrBusy = errors.New("resource busy")

// PostgreSQL error codes that signal lock or serialization contention.
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
)

// defaultRetryBackoff is the pause between contention retries.
const defaultRetryBackoff = 25 * time.Millisecond

// RunInLockingTransaction executes fn like RunInTransaction, but retries a
// bounded number of times when the transaction fails on lock contention or a
// serialization conflict. Once the attempts are exhausted the error is
// surfaced as ErrBusy. Any non-contention error aborts immediately.
func RunInLockingTransaction(ctx context.Context, db *sql.DB, attempts int, fn TxFn) error {
	log := logger.FromContext(ctx)

	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; ; attempt++ {
		err = RunInTransaction(ctx, db, fn)
		if err == nil || !IsLockContention(err) {
			return err
		}

		if attempt >= attempts {
			break
		}

		log.Debug("retrying transaction after lock contention",
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(defaultRetryBackoff):
		}
	}

	log.Warn("transaction still contended after retries",
		slog.Int("attempts", attempts),
		slog.String("error", err.Error()))
	return fmt.Errorf("%w: %v", ErrBusy, err)
}

// IsLockContention reports whether the error is a PostgreSQL lock or
// serialization failure worth retrying.
func IsLockContention(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}

	switch pgErr.Code {
	case pgSerializationFailure, pgDeadlockDetected, pgLockNotAvailable:
		return true
	default:
		return false
	}
}
