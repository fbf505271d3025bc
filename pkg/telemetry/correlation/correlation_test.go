package correlation

import (
	"context"
	"testing"

	"github.com/oklog/ulid/v2"
)

func TestEnsureCorrelationIDGeneratesULID(t *testing.T) {
	ctx, cid := EnsureCorrelationID(context.Background())
	if _, err := ulid.ParseStrict(cid); err != nil {
		t.Fatalf("expected ulid, got %q: %v", cid, err)
	}
	if got := ExtractCorrelationID(ctx); got != cid {
		t.Fatalf("expected %q on context, got %q", cid, got)
	}
}

func TestEnsureCorrelationIDKeepsExisting(t *testing.T) {
	ctx := ContextWithCorrelationID(context.Background(), "upstream-id")
	_, cid := EnsureCorrelationID(ctx)
	if cid != "upstream-id" {
		t.Fatalf("expected upstream-id, got %q", cid)
	}
	if ContextWithCorrelationID(ctx, "") != ctx {
		t.Fatalf("empty id must not replace the context")
	}
}
