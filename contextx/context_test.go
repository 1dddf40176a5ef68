package contextx

import (
	"context"
	"testing"
)

func TestRunContext(t *testing.T) {
	ctx := context.Background()
	if got := GetRunID(ctx); got != "" {
		t.Errorf("GetRunID on empty context = %q", got)
	}
	if got := GetSize(ctx); got != -1 {
		t.Errorf("GetSize on empty context = %d", got)
	}
	if WithRunID(ctx, "") != ctx {
		t.Error("empty run id must not derive a new context")
	}

	ctx = WithSize(WithBacking(WithRunID(ctx, "R1"), "deque"), 21)
	if got := GetRunID(ctx); got != "R1" {
		t.Errorf("GetRunID = %q", got)
	}
	if got := GetBacking(ctx); got != "deque" {
		t.Errorf("GetBacking = %q", got)
	}
	if got := GetSize(ctx); got != 21 {
		t.Errorf("GetSize = %d", got)
	}
}

func TestFields(t *testing.T) {
	if f := Fields(context.Background()); len(f) != 0 {
		t.Errorf("Fields on empty context = %v", f)
	}

	ctx := WithBacking(WithRunID(context.Background(), "R7"), "slice")
	f := Fields(ctx)
	want := []any{"run_id", "R7", "backing", "slice"}
	if len(f) != len(want) {
		t.Fatalf("Fields = %v, want %v", f, want)
	}
	for i := range want {
		if f[i] != want[i] {
			t.Errorf("Fields[%d] = %v, want %v", i, f[i], want[i])
		}
	}
}
