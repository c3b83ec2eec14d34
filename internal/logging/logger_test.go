package logging

import (
	"context"
	"testing"
)

func TestFromContextReturnsNopWhenAbsent(t *testing.T) {
	logger := FromContext(context.Background())
	if logger == nil {
		t.Fatal("expected a non-nil no-op logger")
	}
}

func TestWithFieldsRoundTrips(t *testing.T) {
	base, err := New(true)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := WithLogger(context.Background(), base)
	ctx = WithFields(ctx, "correlationId", "C1")

	if FromContext(ctx) == base {
		t.Fatal("expected WithFields to derive a new logger, not reuse the base one")
	}
}
