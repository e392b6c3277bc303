package barrier

import (
	"testing"
	"time"
)

func TestBarrier_OpenReleasesWaiters(t *testing.T) {
	b := New()
	done := make(chan bool, 1)
	go func() {
		done <- b.Wait(User, time.Time{})
	}()

	time.Sleep(20 * time.Millisecond)
	select {
	case <-done:
		t.Fatal("waiter returned before phase was opened")
	default:
	}

	b.Open(User)
	if ok := <-done; !ok {
		t.Fatal("Wait should return true once phase opens")
	}
}

// TestBarrier_OpenCascadesEarlierPhases matches the original's
// root->metadata->system->user ordering: opening a later phase implies every
// earlier phase is passable too.
func TestBarrier_OpenCascadesEarlierPhases(t *testing.T) {
	b := New()
	b.Open(System)

	for _, p := range []Phase{Root, Metadata, System} {
		if !b.IsOpen(p) {
			t.Fatalf("phase %d should be open once System opened", p)
		}
	}
	if b.IsOpen(User) {
		t.Fatal("User phase should still be closed")
	}
}

func TestBarrier_WaitTimesOut(t *testing.T) {
	b := New()
	start := time.Now()
	ok := b.Wait(User, start.Add(30*time.Millisecond))
	if ok {
		t.Fatal("Wait should time out when the phase never opens")
	}
	if elapsed := time.Since(start); elapsed < 25*time.Millisecond {
		t.Fatalf("Wait returned too early: %s", elapsed)
	}
}

func TestBarrier_CloseResetsPhases(t *testing.T) {
	b := New()
	b.Open(User)
	b.Close()
	if b.IsOpen(Root) || b.IsOpen(User) {
		t.Fatal("Close should reset every phase")
	}
}
