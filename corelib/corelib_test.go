package corelib

import (
	"context"
	"testing"
	"time"
)

func TestUUID_NilAndRoundTrip(t *testing.T) {
	if !NilUUID.IsNil() {
		t.Fatalf("expected NilUUID.IsNil() true")
	}
	id := NewUUID()
	if id.IsNil() {
		t.Fatalf("expected freshly generated UUID to be non-nil")
	}
	parsed, err := ParseUUID(id.String())
	if err != nil {
		t.Fatalf("ParseUUID failed: %v", err)
	}
	if parsed != id {
		t.Fatalf("round trip mismatch: got %v want %v", parsed, id)
	}
}

func TestUUID_HashCodeStable(t *testing.T) {
	id := NewUUID()
	if id.HashCode() != id.HashCode() {
		t.Fatalf("HashCode must be stable across calls")
	}
}

func TestError_WrapAndKindOf(t *testing.T) {
	base := New(TableNotFound, "no such table")
	if KindOf(base) != TableNotFound {
		t.Fatalf("expected TableNotFound, got %v", KindOf(base))
	}
	if KindOf(nil) != Unknown {
		t.Fatalf("expected Unknown for nil error")
	}
	if KindOf(context.Canceled) != External {
		t.Fatalf("expected External for a foreign error, got %v", KindOf(context.Canceled))
	}
}

func TestIsTransient_TableNotFoundAndTimeout(t *testing.T) {
	if !IsTransient(New(TableNotFound, "gone")) {
		t.Fatalf("TableNotFound must be treated as transient (DropTable tie-break)")
	}
	if IsTransient(context.DeadlineExceeded) {
		t.Fatalf("context deadline should not be retried forever")
	}
}

func TestTaskRunner_LimitsConcurrency(t *testing.T) {
	tr := NewTaskRunner(context.Background(), 2)
	var active, maxActive int32
	var mu = make(chan struct{}, 1)
	mu <- struct{}{}
	incr := func(d int32) {
		<-mu
		active += d
		if active > maxActive {
			maxActive = active
		}
		mu <- struct{}{}
	}
	for i := 0; i < 6; i++ {
		tr.Go(func() error {
			incr(1)
			time.Sleep(5 * time.Millisecond)
			incr(-1)
			return nil
		})
	}
	if err := tr.Wait(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if maxActive > 2 {
		t.Fatalf("expected at most 2 concurrent tasks, observed %d", maxActive)
	}
}
