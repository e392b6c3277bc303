package processor

import (
	"context"
	"testing"
	"time"

	"github.com/rangedb/htcore/comm"
	"github.com/rangedb/htcore/hyperspace"
	"github.com/rangedb/htcore/master/mlog"
	"github.com/rangedb/htcore/master/ops"
)

func newTestProcessor(t *testing.T) *Processor {
	t.Helper()
	opsCtx, err := ops.NewContext(hyperspace.NewFake(), comm.NewFakeDispatcher(), time.Second)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	return New(mlog.NewMemLog(), opsCtx, 4)
}

func TestProcessor_BootstrapSeedsBarrierAndCompletesAfterTwoDrains(t *testing.T) {
	p := newTestProcessor(t)
	ctx := context.Background()
	if err := p.Bootstrap(ctx); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}

	if _, err := p.Drain(ctx); err != nil { // INITIAL -> HOLDING
		t.Fatalf("Drain 1: %v", err)
	}
	if p.graph.Len() != 1 {
		t.Fatalf("graph.Len() = %d after first drain, want 1 (barrier still holding)", p.graph.Len())
	}

	if _, err := p.Drain(ctx); err != nil { // HOLDING -> COMPLETE
		t.Fatalf("Drain 2: %v", err)
	}
	if p.graph.Len() != 0 {
		t.Fatalf("graph.Len() = %d after barrier completes, want 0", p.graph.Len())
	}
}

// TestProcessor_RegisterServerWaitsBehindBlockerUntilItSelfReleases exercises
// the common join path: with no Recover in flight, the RegisterServerBlocker
// still makes RegisterServer wait one extra tick (its obstruction is
// published before anyone checks whether it still applies), then
// self-releases once Obstructed reports the recovery-barrier label clear.
func TestProcessor_RegisterServerWaitsBehindBlockerUntilItSelfReleases(t *testing.T) {
	p := newTestProcessor(t)
	ctx := context.Background()

	blocker := ops.NewOperation(ops.RegisterServerBlocker, &ops.RegisterServerBlockerPayload{Location: "rs1"})
	server := ops.NewOperation(ops.RegisterServer, &ops.RegisterServerPayload{Location: "rs1"})
	p.Add(blocker)
	p.Add(server)

	if _, err := p.Drain(ctx); err != nil { // INITIAL transitions for both
		t.Fatalf("Drain 1: %v", err)
	}
	if _, err := p.Drain(ctx); err != nil { // blocker self-releases; server still blocked this tick
		t.Fatalf("Drain 2: %v", err)
	}
	if _, ok := p.refs.Get(blocker.HashCode); ok {
		t.Fatal("blocker should have self-released once nothing obstructed its recovery-barrier")
	}
	if p.ctx.Servers.IsRegistered("rs1") {
		t.Fatal("server registered before its dependency cleared")
	}

	if _, err := p.Drain(ctx); err != nil { // server now unblocked
		t.Fatalf("Drain 3: %v", err)
	}
	if !p.ctx.Servers.IsRegistered("rs1") {
		t.Fatal("server not registered after blocker cleared")
	}
	if _, ok := p.refs.Get(server.HashCode); ok {
		t.Fatal("RegisterServer should be removed once complete")
	}
}

// TestProcessor_UnblockCancelsInFlightRecover covers the reconnect path of
// the watcher's onLockAcquired (spec §5): cancelling a Recover's recovery-barrier obstruction
// removes it without ever reassigning ranges.
func TestProcessor_UnblockCancelsInFlightRecover(t *testing.T) {
	p := newTestProcessor(t)
	ctx := context.Background()

	rec := ops.NewOperation(ops.Recover, &ops.RecoverPayload{Location: "rs1"})
	p.Add(rec)
	if _, err := p.Drain(ctx); err != nil { // INITIAL -> WAIT_GRACE_PERIOD, publishes obstruction
		t.Fatalf("Drain 1: %v", err)
	}
	if !p.ctx.Obstructed("recovery-barrier:rs1") {
		t.Fatal("expected recovery-barrier:rs1 to be obstructed after Recover's first tick")
	}

	p.Unblock("recovery-barrier:rs1")
	if _, ok := p.refs.Get(rec.HashCode); ok {
		t.Fatal("Recover still tracked after Unblock")
	}
	if p.ctx.Obstructed("recovery-barrier:rs1") {
		t.Fatal("recovery-barrier:rs1 still obstructed after Unblock")
	}
}

func TestProcessor_DrainOnEmptyFrontierIsNoop(t *testing.T) {
	p := newTestProcessor(t)
	n, err := p.Drain(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("Drain() on empty graph ran %d operations, want 0", n)
	}
}

// TestProcessor_RecreateIndexTablesWaitsForSubOpBeforeAdvancing exercises the
// Yield gating fix directly: RecreateIndexTables must sit in TOGGLE_OFF for
// as many drains as its ToggleTableMaintenance sub-op needs, not advance on
// the very next tick regardless of whether the sub-op has run.
func TestProcessor_RecreateIndexTablesWaitsForSubOpBeforeAdvancing(t *testing.T) {
	p := newTestProcessor(t)
	ctx := context.Background()

	p.ctx.Tables.Put(&ops.TableEntry{Name: "orders", ID: "t1"})

	parent := ops.NewOperation(ops.RecreateIndexTables, &ops.RecreateIndexTablesPayload{
		TableName: "orders",
		Parts:     ops.PartPrimary | ops.PartValueIndex,
	})
	p.Add(parent)

	if _, err := p.Drain(ctx); err != nil { // INITIAL -> TOGGLE_OFF, yields ToggleTableMaintenance
		t.Fatalf("Drain 1: %v", err)
	}
	if parent.State != "TOGGLE_OFF" {
		t.Fatalf("parent state = %q after first drain, want TOGGLE_OFF", parent.State)
	}
	if len(parent.SubOps) != 1 {
		t.Fatalf("expected one sub-op yielded, got %d", len(parent.SubOps))
	}
	sub := parent.SubOps[0]
	if _, ok := p.refs.Get(sub.HashCode); !ok {
		t.Fatal("sub-op not tracked after being yielded")
	}

	if _, err := p.Drain(ctx); err != nil { // only the sub-op is ready this tick
		t.Fatalf("Drain 2: %v", err)
	}
	if parent.State != "TOGGLE_OFF" {
		t.Fatalf("parent advanced to %q before its sub-op completed", parent.State)
	}
	if _, ok := p.refs.Get(sub.HashCode); ok {
		t.Fatal("sub-op should have completed and been removed")
	}

	if _, err := p.Drain(ctx); err != nil { // sub-op's obstruction cleared, parent now ready
		t.Fatalf("Drain 3: %v", err)
	}
	if parent.State != "DROP_INDICES" {
		t.Fatalf("parent state = %q after sub-op completed, want DROP_INDICES", parent.State)
	}
}

func TestProcessor_SnapshotReflectsLiveOperations(t *testing.T) {
	p := newTestProcessor(t)
	op := ops.NewOperation(ops.RegisterServer, &ops.RegisterServerPayload{Location: "rs1"})
	p.Add(op)

	snap := p.snapshot()
	if len(snap.LiveOperations) != 1 {
		t.Fatalf("snapshot has %d live operations, want 1", len(snap.LiveOperations))
	}
	if len(snap.ReadyIDs) != 1 || snap.ReadyIDs[0] != op.ID {
		t.Fatalf("snapshot ready ids = %v, want [%d]", snap.ReadyIDs, op.ID)
	}
}
