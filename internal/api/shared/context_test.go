package shared

import (
	"context"
	"testing"
)

func TestSetAndGetTraceID(t *testing.T) {
	ctx := SetTraceID(context.Background())

	traceID := GetTraceID(ctx)
	if traceID == "" {
		t.Fatal("expected a trace ID in the context")
	}
	if len(traceID) != TraceIDLength*2 {
		t.Errorf("trace ID length = %d, want %d hex characters", len(traceID), TraceIDLength*2)
	}

	other := SetTraceID(context.Background())
	if GetTraceID(other) == traceID {
		t.Error("two contexts received the same trace ID")
	}
}

func TestGetTraceIDMissing(t *testing.T) {
	if got := GetTraceID(context.Background()); got != "" {
		t.Errorf("GetTraceID on empty context = %q, want empty string", got)
	}
}
