package ops

import (
	"context"

	"github.com/rangedb/htcore/corelib"
)

// executeCreateTable implements spec §4.4 CreateTable:
// INITIAL -> ASSIGN_ID -> WRITE_METADATA -> ASSIGN_LOCATION -> LOAD_RANGE -> ACKNOWLEDGE -> COMPLETE.
// The optional CREATE_INDEX/CREATE_QUALIFIER_INDEX sub-op steps apply only
// when the payload requests VALUE_INDEX/QUALIFIER_INDEX parts.
func executeCreateTable(op *Operation, ctx *Context) (Outcome, error) {
	p := op.Payload.(*CreateTablePayload)
	op.AddExclusivity("table-path:" + p.Name)

	switch op.State {
	case "INITIAL":
		if _, exists := ctx.Tables.Get(p.Name); exists {
			return op.Fail("table already exists: " + p.Name), nil
		}
		op.State = "ASSIGN_ID"
		return OutcomeContinue, nil

	case "ASSIGN_ID":
		p.TableID = ctx.Tables.NewTableID()
		if p.Parts == 0 {
			p.Parts = PartPrimary
		}
		if p.Parts.Has(PartValueIndex) {
			sub := NewOperation(CreateTable, &CreateTablePayload{Name: p.Name + ".value_index", Parts: PartPrimary})
			op.State = "CREATE_INDEX"
			return op.Yield(sub, "table-created:"+sub.Payload.(*CreateTablePayload).Name), nil
		}
		op.State = "CREATE_INDEX"
		return OutcomeContinue, nil

	case "CREATE_INDEX":
		if p.Parts.Has(PartQualifierIndex) {
			sub := NewOperation(CreateTable, &CreateTablePayload{Name: p.Name + ".qualifier_index", Parts: PartPrimary})
			op.State = "CREATE_QUALIFIER_INDEX"
			return op.Yield(sub, "table-created:"+sub.Payload.(*CreateTablePayload).Name), nil
		}
		op.State = "WRITE_METADATA"
		return OutcomeContinue, nil

	case "CREATE_QUALIFIER_INDEX":
		op.State = "WRITE_METADATA"
		return OutcomeContinue, nil

	case "WRITE_METADATA":
		path := "/tables/" + p.TableID
		err := ctx.Hyperspace.Create(context.Background(), path, p.IdempotentCreate)
		if err != nil {
			if corelib.KindOf(err) == corelib.HyperspaceBadPath && p.IdempotentCreate {
				// tolerate "exists" under idempotence flag
			} else {
				return op.Fail(err.Error()), nil
			}
		}
		if err := ctx.Hyperspace.SetAttribute(context.Background(), path, "schema", []byte(p.Schema)); err != nil {
			return op.Fail(err.Error()), nil
		}
		op.State = "ASSIGN_LOCATION"
		return OutcomeContinue, nil

	case "ASSIGN_LOCATION":
		locations := ctx.Servers.Locations()
		if len(locations) == 0 {
			// No servers registered yet. There is no operation to gate a
			// Dependency label on here (any future RegisterServer would do,
			// but none exists yet to publish the obstruction), so this
			// re-checks on every Drain tick rather than blocking on a label.
			return OutcomeContinue, nil
		}
		p.Location = locations[0]
		ctx.Servers.AssignHosting(p.Name, p.Location)
		op.State = "LOAD_RANGE"
		return OutcomeContinue, nil

	case "LOAD_RANGE":
		addr, ok := ctx.Servers.Address(p.Location)
		if !ok {
			op.State = "ASSIGN_LOCATION"
			return OutcomeContinue, nil
		}
		_, err := sendAndWait(ctx, addr, rpcLoadRange, []byte(p.Name))
		if err != nil {
			if corelib.IsTransient(err) {
				op.State = "ASSIGN_LOCATION"
				return OutcomeContinue, nil
			}
			return op.Fail(err.Error()), nil
		}
		op.State = "ACKNOWLEDGE"
		return OutcomeContinue, nil

	case "ACKNOWLEDGE":
		schema, err := ParseSchema(p.Schema)
		if err != nil {
			return op.Fail(err.Error()), nil
		}
		ctx.Tables.Put(&TableEntry{Name: p.Name, ID: p.TableID, Schema: schema, Location: p.Location})
		return op.Finish(), nil

	default:
		return op.Fail("unreachable CreateTable state: " + op.State), nil
	}
}
