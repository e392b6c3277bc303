package hyperspace

import (
	"context"
	"testing"

	"github.com/rangedb/htcore/corelib"
)

func TestFake_AcquireLockWatchRelease(t *testing.T) {
	f := NewFake()
	ctx := context.Background()

	var events []Event
	if err := f.Watch(ctx, "/servers/rs1", func(ev Event) { events = append(events, ev) }); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	h, err := f.AcquireLock(ctx, "/servers/rs1")
	if err != nil {
		t.Fatalf("AcquireLock failed: %v", err)
	}
	if !f.IsLockHeld("/servers/rs1") {
		t.Fatalf("expected lock to be held")
	}

	if _, err := f.AcquireLock(ctx, "/servers/rs1"); err == nil {
		t.Fatalf("expected second AcquireLock to fail while held")
	}

	if err := h.Release(ctx); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if f.IsLockHeld("/servers/rs1") {
		t.Fatalf("expected lock to be released")
	}

	if len(events) != 2 {
		t.Fatalf("expected 2 events (acquired, released), got %d", len(events))
	}
	if events[0].Kind != LockAcquired || events[1].Kind != LockReleased {
		t.Fatalf("unexpected event sequence: %+v", events)
	}
	if events[0].Generation != events[1].Generation {
		t.Fatalf("expected generation to stay stable across acquire/release")
	}
}

func TestFake_AttributesAndCreate(t *testing.T) {
	f := NewFake()
	ctx := context.Background()

	if _, err := f.GetAttribute(ctx, "/tables/1", "schema"); corelib.KindOf(err) != corelib.HyperspaceNotFound {
		t.Fatalf("expected HyperspaceNotFound before Create, got %v", err)
	}

	if err := f.Create(ctx, "/tables/1", false); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := f.Create(ctx, "/tables/1", false); corelib.KindOf(err) != corelib.HyperspaceBadPath {
		t.Fatalf("expected HyperspaceBadPath on duplicate non-idempotent create, got %v", err)
	}
	if err := f.Create(ctx, "/tables/1", true); err != nil {
		t.Fatalf("idempotent Create should not error: %v", err)
	}

	if err := f.SetAttribute(ctx, "/tables/1", "schema", []byte("<Schema/>")); err != nil {
		t.Fatalf("SetAttribute failed: %v", err)
	}
	v, err := f.GetAttribute(ctx, "/tables/1", "schema")
	if err != nil {
		t.Fatalf("GetAttribute failed: %v", err)
	}
	if string(v) != "<Schema/>" {
		t.Fatalf("unexpected attribute value: %q", v)
	}

	if err := f.Remove(ctx, "/tables/1"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if err := f.Remove(ctx, "/tables/missing"); err != nil {
		t.Fatalf("Remove of missing path must succeed: %v", err)
	}
}
