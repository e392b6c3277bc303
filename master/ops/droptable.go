package ops

import (
	"context"

	"github.com/rangedb/htcore/corelib"
)

// executeDropTable implements spec §4.4 DropTable:
// INITIAL -> UPDATE_HYPERSPACE -> SCAN_METADATA -> ISSUE_REQUESTS -> COMPLETE,
// with the SCAN_METADATA/ISSUE_REQUESTS retry loop described there: servers
// that error are retried by resetting state back to SCAN_METADATA; servers
// that succeed or report TABLE_NOT_FOUND move to Completed (tie-break: a
// server that has already forgotten the table counts as dropped there too).
func executeDropTable(op *Operation, ctx *Context) (Outcome, error) {
	p := op.Payload.(*DropTablePayload)
	op.AddExclusivity("table-path:" + p.Name)

	switch op.State {
	case "INITIAL":
		entry, exists := ctx.Tables.Get(p.Name)
		if !exists {
			if p.IfExists {
				return op.Finish(), nil
			}
			return op.Fail("table not found: " + p.Name), corelib.New(corelib.TableNotFound, p.Name)
		}
		p.TableID = entry.ID
		if p.Parts == 0 {
			p.Parts = PartPrimary
		}
		if p.Parts.Has(PartValueIndex) {
			sub := NewOperation(DropTable, &DropTablePayload{Name: p.Name + ".value_index", IfExists: true})
			op.State = "DROP_VALUE_INDEX"
			return op.Yield(sub, "table-dropped:"+sub.Payload.(*DropTablePayload).Name), nil
		}
		op.State = "UPDATE_HYPERSPACE"
		return OutcomeContinue, nil

	case "DROP_VALUE_INDEX":
		if p.Parts.Has(PartQualifierIndex) {
			sub := NewOperation(DropTable, &DropTablePayload{Name: p.Name + ".qualifier_index", IfExists: true})
			op.State = "DROP_QUALIFIER_INDEX"
			return op.Yield(sub, "table-dropped:"+sub.Payload.(*DropTablePayload).Name), nil
		}
		op.State = "UPDATE_HYPERSPACE"
		return OutcomeContinue, nil

	case "DROP_QUALIFIER_INDEX":
		op.State = "UPDATE_HYPERSPACE"
		return OutcomeContinue, nil

	case "UPDATE_HYPERSPACE":
		if err := ctx.Hyperspace.Remove(context.Background(), "/tables/"+p.TableID); err != nil &&
			corelib.KindOf(err) != corelib.HyperspaceNotFound {
			return op.Fail(err.Error()), nil
		}
		op.State = "SCAN_METADATA"
		return OutcomeContinue, nil

	case "SCAN_METADATA":
		hosts := ctx.Servers.HostsOf(p.Name)
		p.Servers = remainingAfterCompletion(hosts, p.Completed)
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
			_, err := sendAndWait(ctx, addr, rpcDropTable, []byte(p.TableID))
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
		ctx.Tables.Remove(p.Name)
		ctx.Servers.ClearHosting(p.Name)
		return op.Finish(), nil

	default:
		return op.Fail("unreachable DropTable state: " + op.State), nil
	}
}

// remainingAfterCompletion returns hosts minus any already recorded in completed.
func remainingAfterCompletion(hosts, completed []string) []string {
	done := make(map[string]struct{}, len(completed))
	for _, c := range completed {
		done[c] = struct{}{}
	}
	out := make([]string, 0, len(hosts))
	for _, h := range hosts {
		if _, ok := done[h]; !ok {
			out = append(out, h)
		}
	}
	return out
}
