package ops

// executeRegisterServerBlocker is the ephemeral operation inserted on
// lock_acquired (spec §4.6) to guard against a fast reconnect racing an
// in-flight Recover for the same location: it publishes the obstruction
// "RegisterServerBlocker <location>" and sits in WAIT_RELEASE until no
// operation obstructs "recovery-barrier:<location>" any longer, i.e. until
// any Recover that was reassigning this location's ranges has finished or
// been cancelled (the watcher's onLockAcquired cancels it explicitly; a Recover
// that runs to completion clears its own obstruction on Finish).
func executeRegisterServerBlocker(op *Operation, ctx *Context) (Outcome, error) {
	p := op.Payload.(*RegisterServerBlockerPayload)
	op.Ephemeral = true

	switch op.State {
	case "INITIAL":
		op.AddObstruction("RegisterServerBlocker " + p.Location)
		op.State = "WAIT_RELEASE"
		return OutcomeContinue, nil

	case "WAIT_RELEASE":
		if ctx.Obstructed == nil || !ctx.Obstructed("recovery-barrier:"+p.Location) {
			return op.Finish(), nil
		}
		return OutcomeContinue, nil

	default:
		return op.Fail("unreachable RegisterServerBlocker state: " + op.State), nil
	}
}
