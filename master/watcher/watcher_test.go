package watcher

import (
	"context"
	"sync"
	"testing"

	"github.com/rangedb/htcore/hyperspace"
	"github.com/rangedb/htcore/master/ops"
)

// fakeEnqueuer records Add/Unblock calls without running a real processor,
// isolating the watcher's event-translation logic from scheduling.
type fakeEnqueuer struct {
	mu       sync.Mutex
	added    []*ops.Operation
	unblocks []string
}

func (f *fakeEnqueuer) Add(op *ops.Operation) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.added = append(f.added, op)
}

func (f *fakeEnqueuer) Unblock(label string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unblocks = append(f.unblocks, label)
}

func (f *fakeEnqueuer) kinds() []ops.Kind {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]ops.Kind, 0, len(f.added))
	for _, op := range f.added {
		out = append(out, op.Kind)
	}
	return out
}

func TestWatcher_LockReleasedEnqueuesRecover(t *testing.T) {
	hs := hyperspace.NewFake()
	enq := &fakeEnqueuer{}
	w := New(hs, enq, nil, "")

	if err := w.Watch(context.Background(), "rs1"); err != nil {
		t.Fatal(err)
	}
	handle, err := hs.AcquireLock(context.Background(), "rs1")
	if err != nil {
		t.Fatal(err)
	}
	// AcquireLock itself fires LockAcquired — expect a blocker + RegisterServer.
	kinds := enq.kinds()
	if len(kinds) != 2 || kinds[0] != ops.RegisterServerBlocker || kinds[1] != ops.RegisterServer {
		t.Fatalf("after lock acquired, added kinds = %v", kinds)
	}

	if err := handle.Release(context.Background()); err != nil {
		t.Fatal(err)
	}
	kinds = enq.kinds()
	if len(kinds) != 3 || kinds[2] != ops.Recover {
		t.Fatalf("after lock released, added kinds = %v, want trailing Recover", kinds)
	}
	if !w.recovering["rs1"] {
		t.Fatal("expected recovering[rs1] to be true after lock release")
	}
}

func TestWatcher_ReconnectDuringGracePeriodCancelsRecover(t *testing.T) {
	hs := hyperspace.NewFake()
	enq := &fakeEnqueuer{}
	w := New(hs, enq, nil, "")
	if err := w.Watch(context.Background(), "rs1"); err != nil {
		t.Fatal(err)
	}

	handle, err := hs.AcquireLock(context.Background(), "rs1")
	if err != nil {
		t.Fatal(err)
	}
	if err := handle.Release(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !w.recovering["rs1"] {
		t.Fatal("expected recovering state after release")
	}

	if _, err := hs.AcquireLock(context.Background(), "rs1"); err != nil {
		t.Fatal(err)
	}

	enq.mu.Lock()
	unblocks := append([]string(nil), enq.unblocks...)
	enq.mu.Unlock()
	if len(unblocks) != 1 || unblocks[0] != "recovery-barrier:rs1" {
		t.Fatalf("unblocks = %v, want [\"recovery-barrier:rs1\"]", unblocks)
	}
	if w.recovering["rs1"] {
		t.Fatal("recovering[rs1] should be cleared after reconnect handling")
	}
}
