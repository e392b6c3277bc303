package refmgr

import (
	"testing"

	"github.com/rangedb/htcore/master/ops"
)

func TestManager_AddGetForceRemove(t *testing.T) {
	m := New()
	op := ops.NewOperation(ops.RegisterServer, &ops.RegisterServerPayload{Location: "rs1"})
	m.Add(op)

	got, ok := m.Get(op.HashCode)
	if !ok || got != op {
		t.Fatalf("Get returned (%v, %v), want (%v, true)", got, ok, op)
	}
	if m.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", m.Len())
	}

	m.ForceRemove(op.HashCode)
	if _, ok := m.Get(op.HashCode); ok {
		t.Fatal("operation still resolvable after ForceRemove")
	}
}

func TestManager_RequestRemovalWaitsForFullApprovalMask(t *testing.T) {
	const (
		approverProcessor uint32 = 1 << 0
		approverParentOp  uint32 = 1 << 1
		required          uint32 = approverProcessor | approverParentOp
	)

	m := New()
	op := ops.NewOperation(ops.DropTable, &ops.DropTablePayload{Name: "logs"})
	m.Add(op)

	if removed := m.RequestRemoval(op.HashCode, approverProcessor, required); removed {
		t.Fatal("removed with only one of two required approvals")
	}
	if _, ok := m.Get(op.HashCode); !ok {
		t.Fatal("operation removed prematurely")
	}

	if removed := m.RequestRemoval(op.HashCode, approverParentOp, required); !removed {
		t.Fatal("expected removal once both approvals are present")
	}
	if _, ok := m.Get(op.HashCode); ok {
		t.Fatal("operation still resolvable after full approval")
	}
}

func TestManager_RequestRemovalOfUnknownHashCodeIsNoop(t *testing.T) {
	m := New()
	if removed := m.RequestRemoval(999, 1, 1); removed {
		t.Fatal("RequestRemoval on unknown hash-code reported removal")
	}
}

func TestManager_AllSnapshotsCurrentSet(t *testing.T) {
	m := New()
	a := ops.NewOperation(ops.RegisterServer, &ops.RegisterServerPayload{Location: "rs1"})
	b := ops.NewOperation(ops.RegisterServer, &ops.RegisterServerPayload{Location: "rs2"})
	m.Add(a)
	m.Add(b)

	all := m.All()
	if len(all) != 2 {
		t.Fatalf("All() returned %d operations, want 2", len(all))
	}
}
