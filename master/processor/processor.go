// Package processor implements the master's Operation Processor (spec §3): a
// fixed-size worker pool that repeatedly drains the Dependency Graph's ready
// frontier, calls Execute on each ready Operation, persists the resulting
// state to the MML, and feeds newly yielded sub-operations and newly
// satisfied dependents back into the graph. Grounded on corelib.TaskRunner's
// errgroup-backed bounded worker pool (in_red_ck's two_phase_commit_transaction.go
// uses the same structured-logging idiom, "log/slog" aliased as log).
package processor

import (
	"context"
	log "log/slog"
	"sync"

	"github.com/rangedb/htcore/corelib"
	"github.com/rangedb/htcore/master/depgraph"
	"github.com/rangedb/htcore/master/ops"
	"github.com/rangedb/htcore/master/refmgr"
)

// Processor owns the Dependency Graph, Reference Manager and MML for one
// master instance, and drives the Execute loop.
type Processor struct {
	mu  sync.Mutex
	log ops.Log
	ctx *ops.Context

	graph  *depgraph.Graph
	refs   *refmgr.Manager
	maxRun int
}

// New builds a Processor around an already-open MML and Operation Context.
// maxRunning caps how many operations Execute concurrently per Drain call
// (spec §3's "Master.MaxOperationThreads" config knob).
func New(mmlog ops.Log, opsCtx *ops.Context, maxRunning int) *Processor {
	p := &Processor{
		log:    mmlog,
		ctx:    opsCtx,
		graph:  depgraph.New(),
		refs:   refmgr.New(),
		maxRun: maxRunning,
	}
	opsCtx.Snapshot = p.snapshot
	opsCtx.Obstructed = p.graph.IsObstructed
	return p
}

// Bootstrap replays the MML, rehydrates the dependency graph and reference
// manager, and inserts the synthetic master-init barrier the Dependency::INIT
// open question was resolved to (spec §7). An AlterTable takes a dependency
// on it in its INITIAL transition; a replayed AlterTable already past INITIAL
// resumes from its persisted state without that dependency. The barrier only
// completes once replay itself (this call) has returned.
func (p *Processor) Bootstrap(ctx context.Context) error {
	live, err := p.log.Replay(ctx)
	if err != nil {
		return err
	}

	p.mu.Lock()
	for _, op := range live {
		p.refs.Add(op)
		p.graph.Insert(op)
	}
	p.mu.Unlock()

	barrier := ops.NewMasterInitBarrier()
	// The barrier's UntilUnixMilli is in the past, so its first HOLDING tick
	// completes it immediately and releases every AlterTable waiting on it.
	barrier.Payload.(*ops.TimedBarrierPayload).UntilUnixMilli = p.ctx.Now().Add(-1).UnixMilli()
	p.Add(barrier)

	log.Info("master init barrier seeded", "live_operations", len(live))
	return nil
}

// Add registers a new top-level operation with the Reference Manager and
// Dependency Graph, making it eligible for the next Drain.
func (p *Processor) Add(op *ops.Operation) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refs.Add(op)
	p.graph.Insert(op)
}

// Unblock releases every operation obstructing label (RegisterServerBlocker's
// WAIT_RELEASE, or an in-flight Recover's recovery-barrier) from both the
// Reference Manager and Dependency Graph.
func (p *Processor) Unblock(label string) {
	p.mu.Lock()
	removed := p.graph.Unblock(label)
	for _, hashCode := range removed {
		p.refs.ForceRemove(hashCode)
	}
	p.mu.Unlock()

	for _, hashCode := range removed {
		if err := p.log.Tombstone(context.Background(), hashCode); err != nil {
			log.Error("mml tombstone failed after unblock", "id", hashCode, "err", err)
		}
	}
}

// Drain runs one scheduling pass: every currently ready operation executes
// exactly once, concurrently, bounded by maxRun. It returns the number of
// operations executed, so callers (cmd/master's run loop) can back off when
// the frontier is empty.
func (p *Processor) Drain(ctx context.Context) (int, error) {
	p.mu.Lock()
	ready := p.graph.ReadyFrontier()
	p.mu.Unlock()

	if len(ready) == 0 {
		return 0, nil
	}

	runner := corelib.NewTaskRunner(ctx, p.maxRun)
	for _, hashCode := range ready {
		hashCode := hashCode
		runner.Go(func() error {
			p.step(hashCode)
			return nil
		})
	}
	if err := runner.Wait(); err != nil {
		return 0, err
	}
	return len(ready), nil
}

// step executes one Operation's single transition and reconciles the graph
// and MML with the outcome.
func (p *Processor) step(hashCode uint64) {
	p.mu.Lock()
	op, ok := p.refs.Get(hashCode)
	p.mu.Unlock()
	if !ok {
		return
	}

	outcome, err := op.Execute(p.ctx)
	if err != nil {
		log.Warn("operation execute error", "kind", op.Kind.String(), "id", op.ID, "err", err)
	}

	if logErr := p.log.RecordState(context.Background(), op); logErr != nil {
		log.Error("mml record state failed", "kind", op.Kind.String(), "id", op.ID, "err", logErr)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	switch outcome {
	case ops.OutcomeYielded:
		sub := op.SubOps[len(op.SubOps)-1]
		p.refs.Add(sub)
		p.graph.Insert(sub)
		p.graph.Insert(op)
	case ops.OutcomeComplete, ops.OutcomeError:
		if tombErr := p.log.Tombstone(context.Background(), op.ID); tombErr != nil {
			log.Error("mml tombstone failed", "id", op.ID, "err", tombErr)
		}
		p.graph.Remove(op.HashCode)
		p.refs.ForceRemove(op.HashCode)
	default: // OutcomeContinue
		p.graph.Insert(op)
	}
}

// snapshot builds the read-only view the Status operation exposes.
func (p *Processor) snapshot() *ops.StatusSnapshot {
	p.mu.Lock()
	all := p.refs.All()
	ready := p.graph.ReadyFrontier()
	p.mu.Unlock()

	snap := &ops.StatusSnapshot{
		LiveOperations: make([]ops.OperationSummary, 0, len(all)),
		ReadyIDs:       make([]uint64, 0, len(ready)),
	}
	for _, op := range all {
		snap.LiveOperations = append(snap.LiveOperations, ops.OperationSummary{
			ID: op.ID, Kind: op.Kind.String(), State: op.State,
		})
	}
	snap.ReadyIDs = append(snap.ReadyIDs, ready...)
	return snap
}
