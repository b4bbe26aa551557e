package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/magacin-io/wms-api/internal/store"
)

// fakeIdempotencyStore keeps records in memory for middleware tests.
type fakeIdempotencyStore struct {
	mu      sync.Mutex
	records map[string]*store.IdempotencyRecord
}

func newFakeIdempotencyStore() *fakeIdempotencyStore {
	return &fakeIdempotencyStore{records: make(map[string]*store.IdempotencyRecord)}
}

func (s *fakeIdempotencyStore) Get(ctx context.Context, key string) (*store.IdempotencyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return record, nil
}

func (s *fakeIdempotencyStore) Put(ctx context.Context, record *store.IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[record.Key]; ok {
		return nil
	}
	s.records[record.Key] = record
	return nil
}

func TestIdempotencyReplay(t *testing.T) {
	idempotencyStore := newFakeIdempotencyStore()
	middleware := NewIdempotencyMiddleware(idempotencyStore)

	var calls int
	handler := middleware.Handle(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"abc"}`))
	}))

	newRequest := func() *http.Request {
		req := httptest.NewRequest("POST", "/requisitions", nil)
		req.Header.Set(IdempotencyKeyHeader, "key-1")
		return req
	}

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, newRequest())

	if first.Code != http.StatusCreated {
		t.Fatalf("first status = %d, want %d", first.Code, http.StatusCreated)
	}
	if calls != 1 {
		t.Fatalf("handler calls = %d, want 1", calls)
	}

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, newRequest())

	if calls != 1 {
		t.Errorf("handler ran again on replay, calls = %d", calls)
	}
	if second.Code != http.StatusCreated {
		t.Errorf("replay status = %d, want %d", second.Code, http.StatusCreated)
	}
	if second.Body.String() != `{"id":"abc"}` {
		t.Errorf("replay body = %q, want original body", second.Body.String())
	}
	if second.Header().Get("Idempotency-Replayed") != "true" {
		t.Error("replay response is missing the Idempotency-Replayed header")
	}
}

func TestIdempotencyWithoutKeyPassesThrough(t *testing.T) {
	middleware := NewIdempotencyMiddleware(newFakeIdempotencyStore())

	var calls int
	handler := middleware.Handle(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))

	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest("POST", "/requisitions", nil))
		if rr.Code != http.StatusCreated {
			t.Fatalf("status = %d, want %d", rr.Code, http.StatusCreated)
		}
	}

	if calls != 2 {
		t.Errorf("handler calls = %d, want 2", calls)
	}
}

func TestIdempotencyDoesNotRecordFailures(t *testing.T) {
	idempotencyStore := newFakeIdempotencyStore()
	middleware := NewIdempotencyMiddleware(idempotencyStore)

	status := http.StatusConflict
	var calls int
	handler := middleware.Handle(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(status)
	}))

	newRequest := func() *http.Request {
		req := httptest.NewRequest("POST", "/requisitions", nil)
		req.Header.Set(IdempotencyKeyHeader, "key-2")
		return req
	}

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, newRequest())

	// The failed attempt is not recorded, so the retry reaches the handler.
	status = http.StatusCreated
	second := httptest.NewRecorder()
	handler.ServeHTTP(second, newRequest())

	if calls != 2 {
		t.Errorf("handler calls = %d, want 2", calls)
	}
	if second.Code != http.StatusCreated {
		t.Errorf("retry status = %d, want %d", second.Code, http.StatusCreated)
	}
}

func TestIdempotencyRejectsOversizedKey(t *testing.T) {
	middleware := NewIdempotencyMiddleware(newFakeIdempotencyStore())

	handler := middleware.Handle(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not run for an oversized key")
	}))

	req := httptest.NewRequest("POST", "/requisitions", nil)
	req.Header.Set(IdempotencyKeyHeader, strings.Repeat("k", maxIdempotencyKeyLength+1))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}
