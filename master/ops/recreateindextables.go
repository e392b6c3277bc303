package ops

// executeRecreateIndexTables implements spec §4.4: orchestrates, in order,
// ToggleTableMaintenance(off) -> DropTable(indices) -> CreateTable(indices) ->
// ToggleTableMaintenance(on). The processor persists each transition with a
// RecordState of the parent alone; no batch ties it to the new sub-op or to
// the previous sub-op's tombstone. SubopHash and Step record the current
// sub-op and its position, but nothing reads them: after a replay the parent
// continues from its persisted State, without looking the sub-op up in the
// Reference Manager or rebuilding it.
func executeRecreateIndexTables(op *Operation, ctx *Context) (Outcome, error) {
	p := op.Payload.(*RecreateIndexTablesPayload)
	op.AddExclusivity("table-path:" + p.TableName)

	switch op.State {
	case "INITIAL":
		sub := NewOperation(ToggleTableMaintenance, &ToggleTableMaintenancePayload{Name: p.TableName, Enable: false})
		p.SubopHash = sub.HashCode
		p.Step = 1
		op.State = "TOGGLE_OFF"
		return op.Yield(sub, "maintenance-toggled:"+p.TableName+":off"), nil

	case "TOGGLE_OFF":
		sub := NewOperation(DropTable, &DropTablePayload{Name: p.TableName, IfExists: true, Parts: p.Parts &^ PartPrimary})
		p.SubopHash = sub.HashCode
		p.Step = 2
		op.State = "DROP_INDICES"
		return op.Yield(sub, "table-dropped:"+sub.Payload.(*DropTablePayload).Name), nil

	case "DROP_INDICES":
		sub := NewOperation(CreateTable, &CreateTablePayload{Name: p.TableName, Parts: p.Parts &^ PartPrimary})
		p.SubopHash = sub.HashCode
		p.Step = 3
		op.State = "CREATE_INDICES"
		return op.Yield(sub, "table-created:"+sub.Payload.(*CreateTablePayload).Name), nil

	case "CREATE_INDICES":
		sub := NewOperation(ToggleTableMaintenance, &ToggleTableMaintenancePayload{Name: p.TableName, Enable: true})
		p.SubopHash = sub.HashCode
		p.Step = 4
		op.State = "TOGGLE_ON"
		return op.Yield(sub, "maintenance-toggled:"+p.TableName+":on"), nil

	case "TOGGLE_ON":
		return op.Finish(), nil

	default:
		return op.Fail("unreachable RecreateIndexTables state: " + op.State), nil
	}
}
