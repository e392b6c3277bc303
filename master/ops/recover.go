package ops

// executeRecover implements spec §4.6 Recover: created by the watcher when a
// registered range server's lock is released. Advances a global recovery
// barrier into the future by GracePeriod to give the server a chance to
// return, then reassigns its ranges to the remaining servers.
func executeRecover(op *Operation, ctx *Context) (Outcome, error) {
	p := op.Payload.(*RecoverPayload)

	switch op.State {
	case "INITIAL":
		// Mark the location unavailable immediately (spec §4.6 step (i)):
		// until a reconnect re-registers it, nothing should consider this
		// server a candidate host, and WAIT_GRACE_PERIOD's own
		// IsRegistered check below only makes sense once this is false.
		ctx.Servers.Unregister(p.Location)
		p.BarrierUnixMilli = ctx.Now().Add(ctx.GracePeriod).UnixMilli()
		op.AddObstruction("recovery-barrier:" + p.Location)
		op.State = "WAIT_GRACE_PERIOD"
		return OutcomeContinue, nil

	case "WAIT_GRACE_PERIOD":
		if ctx.Now().UnixMilli() < p.BarrierUnixMilli {
			return OutcomeContinue, nil
		}
		if ctx.Servers.IsRegistered(p.Location) {
			// The server came back before the grace period elapsed; short-circuit
			// (spec §8 scenario 3; the watcher's onLockAcquired may also call
			// Unblock early on this same obstruction label).
			return op.Finish(), nil
		}
		op.State = "REASSIGN_RANGES"
		return OutcomeContinue, nil

	case "REASSIGN_RANGES":
		for _, t := range ctx.Tables.List() {
			if t.Location == p.Location {
				remaining := ctx.Servers.Locations()
				if len(remaining) > 0 {
					t.Location = remaining[0]
					ctx.Tables.Put(t)
				}
			}
		}
		return op.Finish(), nil

	default:
		return op.Fail("unreachable Recover state: " + op.State), nil
	}
}
