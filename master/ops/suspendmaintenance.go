package ops

import (
	"context"
	"time"

	"github.com/rangedb/htcore/corelib"
)

// maintenanceRetryBackoff is how long SUSPEND/RESUME_MAINTENANCE_RANGESERVER
// waits before re-attempting servers left over after a transient failure.
const maintenanceRetryBackoff = 5 * time.Second

// executeSuspendMaintenance implements spec §4.4 SuspendMaintenance:
// INITIAL -> SUSPEND_MAINTENANCE_HYPERSPACE -> SUSPEND_SCAN_METADATA ->
// SUSPEND_MAINTENANCE_RANGESERVER -> RESUME_MAINTENANCE_HYPERSPACE ->
// RESUME_SCAN_METADATA -> RESUME_MAINTENANCE_RANGESERVER -> COMPLETE.
// Hyperspace's maintenance_disabled attribute makes the suspension survive a
// master restart; range-server requests retry with a five-second back-off
// (maintenanceRetryBackoff) against servers left over after a transient
// error before the fan-out re-attempts them.
func executeSuspendMaintenance(op *Operation, ctx *Context) (Outcome, error) {
	p := op.Payload.(*SuspendMaintenancePayload)
	op.AddExclusivity("table-path:" + p.Name)

	switch op.State {
	case "INITIAL":
		entry, exists := ctx.Tables.Get(p.Name)
		if !exists {
			return op.Fail("table not found: " + p.Name), corelib.New(corelib.TableNotFound, p.Name)
		}
		p.TableID = entry.ID
		op.State = "SUSPEND_MAINTENANCE_HYPERSPACE"
		return OutcomeContinue, nil

	case "SUSPEND_MAINTENANCE_HYPERSPACE":
		if err := ctx.Hyperspace.SetAttribute(context.Background(), "/tables/"+p.TableID, "maintenance_disabled", []byte{1}); err != nil {
			return op.Fail(err.Error()), nil
		}
		entry, _ := ctx.Tables.Get(p.Name)
		entry.MaintenanceDisabled = true
		ctx.Tables.Put(entry)
		op.State = "SUSPEND_SCAN_METADATA"
		return OutcomeContinue, nil

	case "SUSPEND_SCAN_METADATA":
		p.Servers = remainingAfterCompletion(ctx.Servers.HostsOf(p.Name), p.Completed)
		op.State = "SUSPEND_MAINTENANCE_RANGESERVER"
		return OutcomeContinue, nil

	case "SUSPEND_MAINTENANCE_RANGESERVER":
		if ctx.Now().UnixMilli() < p.RetryAfterUnixMilli {
			return OutcomeContinue, nil
		}
		if done := fanOutToggle(op, ctx, p, rpcSuspendMaint); !done {
			p.RetryAfterUnixMilli = ctx.Now().Add(maintenanceRetryBackoff).UnixMilli()
			op.State = "SUSPEND_SCAN_METADATA"
			return OutcomeContinue, nil
		}
		op.State = "RESUME_MAINTENANCE_HYPERSPACE"
		return OutcomeContinue, nil

	case "RESUME_MAINTENANCE_HYPERSPACE":
		if err := ctx.Hyperspace.SetAttribute(context.Background(), "/tables/"+p.TableID, "maintenance_disabled", []byte{0}); err != nil {
			return op.Fail(err.Error()), nil
		}
		entry, _ := ctx.Tables.Get(p.Name)
		entry.MaintenanceDisabled = false
		ctx.Tables.Put(entry)
		op.State = "RESUME_SCAN_METADATA"
		p.Completed = nil
		return OutcomeContinue, nil

	case "RESUME_SCAN_METADATA":
		p.Servers = remainingAfterCompletion(ctx.Servers.HostsOf(p.Name), p.Completed)
		op.State = "RESUME_MAINTENANCE_RANGESERVER"
		return OutcomeContinue, nil

	case "RESUME_MAINTENANCE_RANGESERVER":
		if ctx.Now().UnixMilli() < p.RetryAfterUnixMilli {
			return OutcomeContinue, nil
		}
		if done := fanOutToggle(op, ctx, p, rpcResumeMaint); !done {
			p.RetryAfterUnixMilli = ctx.Now().Add(maintenanceRetryBackoff).UnixMilli()
			op.State = "RESUME_SCAN_METADATA"
			return OutcomeContinue, nil
		}
		return op.Finish(), nil

	default:
		return op.Fail("unreachable SuspendMaintenance state: " + op.State), nil
	}
}

// fanOutToggle sends command to every server in p.Servers, moving servers that
// acknowledge it, or have no known address, into p.Completed; servers whose
// send failed stay in p.Servers. It returns true once none remain.
func fanOutToggle(op *Operation, ctx *Context, p *SuspendMaintenancePayload, command int32) bool {
	remaining := p.Servers[:0]
	for _, srv := range p.Servers {
		addr, ok := ctx.Servers.Address(srv)
		if !ok {
			p.Completed = append(p.Completed, srv)
			continue
		}
		_, err := sendAndWait(ctx, addr, command, []byte(p.TableID))
		if err == nil {
			p.Completed = append(p.Completed, srv)
			continue
		}
		remaining = append(remaining, srv)
	}
	p.Servers = remaining
	return len(p.Servers) == 0
}
