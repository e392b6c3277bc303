package ops

// executeTimedBarrier backs the synthetic bootstrap operation that holds the
// masterInitBarrier obstruction until replay completes (spec §7 open question
// resolution for Dependency::INIT) or, more generally, any operation that
// must simply hold an obstruction open until a wall-clock deadline passes.
func executeTimedBarrier(op *Operation, ctx *Context) (Outcome, error) {
	p := op.Payload.(*TimedBarrierPayload)

	switch op.State {
	case "INITIAL":
		op.AddObstruction(p.Label)
		op.State = "HOLDING"
		return OutcomeContinue, nil

	case "HOLDING":
		if ctx.Now().UnixMilli() >= p.UntilUnixMilli {
			return op.Finish(), nil
		}
		return OutcomeContinue, nil

	default:
		return op.Fail("unreachable TimedBarrier state: " + op.State), nil
	}
}

// NewMasterInitBarrier returns the synthetic bootstrap operation that
// obstructs masterInitBarrier until untilUnixMilli (spec §7): the Operation
// Processor completes it immediately after a successful MML replay by
// setting UntilUnixMilli to a time already in the past.
func NewMasterInitBarrier() *Operation {
	return NewOperation(TimedBarrier, &TimedBarrierPayload{Label: masterInitBarrier})
}
