package scanner

import (
	"testing"
	"time"
)

func TestMap_PutGetRemove(t *testing.T) {
	m := New(nil)
	id := m.Put("cursor-state", "r1", "logs")

	e, ok := m.Get(id)
	if !ok {
		t.Fatal("expected scanner to be found")
	}
	if e.Table != "logs" || e.Range != "r1" {
		t.Fatalf("got %+v, want table=logs range=r1", e)
	}

	m.Remove(id)
	if _, ok := m.Get(id); ok {
		t.Fatal("scanner still present after Remove")
	}
}

func TestMap_PurgeExpiredDropsOnlyIdleScanners(t *testing.T) {
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now := func() time.Time { return clock }
	m := New(now)

	stale := m.Put(nil, "r1", "logs")
	clock = clock.Add(time.Minute)
	fresh := m.Put(nil, "r2", "logs")

	clock = clock.Add(time.Minute)
	n := m.PurgeExpired(90 * time.Second)
	if n != 1 {
		t.Fatalf("PurgeExpired removed %d, want 1", n)
	}
	if _, ok := m.Get(stale); ok {
		t.Fatal("stale scanner should have been purged")
	}
	if _, ok := m.Get(fresh); !ok {
		t.Fatal("fresh scanner should have survived purge")
	}
}

func TestMap_GetRefreshesLastAccess(t *testing.T) {
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now := func() time.Time { return clock }
	m := New(now)

	id := m.Put(nil, "r1", "logs")
	clock = clock.Add(time.Minute)
	if _, ok := m.Get(id); !ok {
		t.Fatal("expected scanner present")
	}
	clock = clock.Add(time.Minute)

	if n := m.PurgeExpired(90 * time.Second); n != 0 {
		t.Fatalf("PurgeExpired removed %d scanners, want 0 (refreshed by Get)", n)
	}
}
