package ops

import (
	"context"

	"github.com/rangedb/htcore/corelib"
)

// masterInitBarrier is the distinguished Dependency::INIT label (spec §7 open
// question resolution): a synthetic bootstrap operation holds it as an
// obstruction until MML replay completes, so AlterTable cannot run against a
// master that hasn't finished recovering its operation state.
const masterInitBarrier = "master-init-barrier"

// executeAlterTable implements spec §4.4 AlterTable:
// INITIAL -> VALIDATE_SCHEMA -> SCAN_METADATA -> ISSUE_REQUESTS -> UPDATE_HYPERSPACE -> COMPLETE.
func executeAlterTable(op *Operation, ctx *Context) (Outcome, error) {
	p := op.Payload.(*AlterTablePayload)
	op.AddExclusivity("table-path:" + p.Name)

	switch op.State {
	case "INITIAL":
		op.AddDependency(masterInitBarrier)
		op.State = "VALIDATE_SCHEMA"
		return OutcomeContinue, nil

	case "VALIDATE_SCHEMA":
		entry, exists := ctx.Tables.Get(p.Name)
		if !exists {
			return op.Fail("table not found: " + p.Name), corelib.New(corelib.TableNotFound, p.Name)
		}
		p.TableID = entry.ID
		newSchema, err := ParseSchema(p.Schema)
		if err != nil {
			return op.Fail(err.Error()), nil
		}
		if err := ctx.Validator.Validate(entry.Schema, newSchema); err != nil {
			return op.Fail(err.Error()), err
		}
		op.RemoveDependency(masterInitBarrier)
		op.AddDependency("metadata-scanned:" + p.Name)
		op.State = "SCAN_METADATA"
		return OutcomeContinue, nil

	case "SCAN_METADATA":
		p.Servers = remainingAfterCompletion(ctx.Servers.HostsOf(p.Name), p.Completed)
		op.RemoveDependency("metadata-scanned:" + p.Name)
		op.State = "ISSUE_REQUESTS"
		return OutcomeContinue, nil

	case "ISSUE_REQUESTS":
		remaining := p.Servers[:0]
		for _, srv := range p.Servers {
			addr, ok := ctx.Servers.Address(srv)
			if !ok {
				p.Completed = append(p.Completed, srv)
				continue
			}
			_, err := sendAndWait(ctx, addr, rpcAlterTable, []byte(p.TableID+"\x00"+p.Schema))
			if err == nil || corelib.KindOf(err) == corelib.TableNotFound {
				p.Completed = append(p.Completed, srv)
				continue
			}
			if corelib.IsTransient(err) {
				remaining = append(remaining, srv)
				continue
			}
			return op.Fail(err.Error()), nil
		}
		p.Servers = remaining
		if len(p.Servers) > 0 {
			op.State = "SCAN_METADATA"
			return OutcomeContinue, nil
		}
		op.State = "UPDATE_HYPERSPACE"
		return OutcomeContinue, nil

	case "UPDATE_HYPERSPACE":
		if err := ctx.Hyperspace.SetAttribute(context.Background(), "/tables/"+p.TableID, "schema", []byte(p.Schema)); err != nil {
			return op.Fail(err.Error()), nil
		}
		entry, _ := ctx.Tables.Get(p.Name)
		newSchema, _ := ParseSchema(p.Schema)
		entry.Schema = newSchema
		ctx.Tables.Put(entry)
		return op.Finish(), nil

	default:
		return op.Fail("unreachable AlterTable state: " + op.State), nil
	}
}
