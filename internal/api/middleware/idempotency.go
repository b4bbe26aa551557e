package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"time"

	"github.com/magacin-io/wms-api/internal/api/shared"
	"github.com/magacin-io/wms-api/internal/redact"
	"github.com/magacin-io/wms-api/internal/store"
)

// IdempotencyKeyHeader is the request header carrying the client-chosen key.
const IdempotencyKeyHeader = "Idempotency-Key"

// maxIdempotencyKeyLength bounds the key so it fits the storage column.
const maxIdempotencyKeyLength = 255

// IdempotencyMiddleware replays stored responses for repeated mutating
// requests that carry the same Idempotency-Key header. Requests without the
// header pass through untouched.
type IdempotencyMiddleware struct {
	store store.IdempotencyStore
}

// NewIdempotencyMiddleware creates a new IdempotencyMiddleware backed by the
// given store.
func NewIdempotencyMiddleware(idempotencyStore store.IdempotencyStore) *IdempotencyMiddleware {
	return &IdempotencyMiddleware{
		store: idempotencyStore,
	}
}

// Handle wraps a handler with idempotency key replay. Only successful
// responses (2xx) are recorded; a failed attempt may be retried with the same
// key.
func (m *IdempotencyMiddleware) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(IdempotencyKeyHeader)
		if key == "" {
			next.ServeHTTP(w, r)
			return
		}

		if len(key) > maxIdempotencyKeyLength {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Idempotency key too long")
			return
		}

		record, err := m.store.Get(r.Context(), key)
		if err == nil {
			// Replay the stored response verbatim.
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Idempotency-Replayed", "true")
			w.WriteHeader(record.StatusCode)
			if _, writeErr := w.Write(record.Body); writeErr != nil {
				slog.Error("failed to write replayed response", "error", writeErr)
			}
			return
		}
		if !store.IsNotFoundError(err) {
			slog.Error("idempotency lookup failed", "error", redact.Error(err))
			shared.RespondWithError(w, r, http.StatusInternalServerError, "An unexpected error occurred")
			return
		}

		recorder := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		if recorder.status < 200 || recorder.status >= 300 {
			return
		}

		putErr := m.store.Put(r.Context(), &store.IdempotencyRecord{
			Key:        key,
			Method:     r.Method,
			Path:       r.URL.Path,
			StatusCode: recorder.status,
			Body:       recorder.body.Bytes(),
			CreatedAt:  time.Now().UTC(),
		})
		if putErr != nil {
			// The response already went out; losing the record only costs
			// replay on a later retry.
			slog.Warn("failed to record idempotency key", "error", redact.Error(putErr))
		}
	})
}

// responseRecorder captures the status and body while passing them through to
// the underlying writer.
type responseRecorder struct {
	http.ResponseWriter
	status      int
	body        bytes.Buffer
	wroteHeader bool
}

func (r *responseRecorder) WriteHeader(status int) {
	if !r.wroteHeader {
		r.status = status
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}
