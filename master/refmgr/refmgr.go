// Package refmgr implements the master's Reference Manager (spec §3/§9): a
// hash-code keyed registry of live Operations. Every other subsystem
// (dependency graph, processor, RecreateIndexTables's sub-op hint) refers to
// an Operation by its HashCode rather than holding a pointer directly, so a
// removed or replaced Operation can never be referenced after the fact.
// Grounded on the mutex-protected map idiom in master/ops/registry.go,
// generalized from table/server registries to a generic operation registry.
package refmgr

import (
	"sync"

	"github.com/rangedb/htcore/master/ops"
)

// Manager is the Reference Manager: a concurrency-safe map from HashCode to
// the live *ops.Operation it names.
type Manager struct {
	mu  sync.RWMutex
	ops map[uint64]*ops.Operation
}

// New returns an empty Manager.
func New() *Manager {
	return &Manager{ops: make(map[uint64]*ops.Operation)}
}

// Add registers op under its HashCode, replacing anything already there.
func (m *Manager) Add(op *ops.Operation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops[op.HashCode] = op
}

// Get resolves hashCode to its live Operation, or (nil, false) if it has been
// removed or never existed — callers must treat a miss as "no longer live",
// not as an error, since sub-op hints (spec §9) expect to go stale.
func (m *Manager) Get(hashCode uint64) (*ops.Operation, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	op, ok := m.ops[hashCode]
	return op, ok
}

// RequestRemoval ORs approverBit into op's RemoveApprovalMask. Removal only
// happens once every interested party (the processor, the dependency graph,
// any parent operation tracking this as a sub-op) has approved, preventing a
// premature removal while another subsystem still holds a HashCode reference
// it expects to resolve.
func (m *Manager) RequestRemoval(hashCode uint64, approverBit uint32, requiredMask uint32) (removed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	op, ok := m.ops[hashCode]
	if !ok {
		return false
	}
	op.RemoveApprovalMask |= approverBit
	if op.RemoveApprovalMask&requiredMask != requiredMask {
		return false
	}
	delete(m.ops, hashCode)
	return true
}

// ForceRemove deletes hashCode unconditionally. The processor calls it when it
// retires an operation, before the tombstone is written and whether or not
// that write succeeds.
func (m *Manager) ForceRemove(hashCode uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.ops, hashCode)
}

// Len reports how many operations are currently live.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.ops)
}

// All returns a snapshot slice of every live operation, used by the
// processor to build a StatusSnapshot without holding the Manager's lock
// while it walks the dependency graph.
func (m *Manager) All() []*ops.Operation {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*ops.Operation, 0, len(m.ops))
	for _, op := range m.ops {
		out = append(out, op)
	}
	return out
}
