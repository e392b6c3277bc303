package ops

import (
	"context"

	"github.com/rangedb/htcore/corelib"
)

// executeToggleTableMaintenance flips a table's maintenance_disabled
// Hyperspace attribute in one step, used as a RecreateIndexTables sub-op
// (spec §4.4).
func executeToggleTableMaintenance(op *Operation, ctx *Context) (Outcome, error) {
	p := op.Payload.(*ToggleTableMaintenancePayload)

	switch op.State {
	case "INITIAL":
		entry, exists := ctx.Tables.Get(p.Name)
		if !exists {
			return op.Fail("table not found: " + p.Name), corelib.New(corelib.TableNotFound, p.Name)
		}
		value := []byte{0}
		if !p.Enable {
			value = []byte{1}
		}
		if err := ctx.Hyperspace.SetAttribute(context.Background(), "/tables/"+entry.ID, "maintenance_disabled", value); err != nil {
			return op.Fail(err.Error()), nil
		}
		entry.MaintenanceDisabled = !p.Enable
		ctx.Tables.Put(entry)
		return op.Finish(), nil

	default:
		return op.Fail("unreachable ToggleTableMaintenance state: " + op.State), nil
	}
}
