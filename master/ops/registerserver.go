package ops

// executeRegisterServer completes once the server's lock-holding generation
// has been observed by the watcher (spec §4.6): it waits behind any
// RegisterServerBlocker("<location>") obstruction so a concurrent death/rebirth
// cycle is fully processed first.
func executeRegisterServer(op *Operation, ctx *Context) (Outcome, error) {
	p := op.Payload.(*RegisterServerPayload)

	switch op.State {
	case "INITIAL":
		op.AddDependency("RegisterServerBlocker " + p.Location)
		op.State = "REGISTER"
		return OutcomeContinue, nil

	case "REGISTER":
		ctx.Servers.Register(p.Location, p.Location)
		return op.Finish(), nil

	default:
		return op.Fail("unreachable RegisterServer state: " + op.State), nil
	}
}
