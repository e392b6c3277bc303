package ops

// OperationSummary is one entry in a StatusSnapshot (OperationStatus.cc,
// supplemented from original_source/ per SPEC_FULL §5).
type OperationSummary struct {
	ID    uint64
	Kind  string
	State string
}

// StatusSnapshot is a read-only view of the processor's live operation list
// and the dependency graph's ready frontier at the moment Status ran.
type StatusSnapshot struct {
	LiveOperations []OperationSummary
	ReadyIDs       []uint64
}

// executeStatus snapshots the processor's live set without mutating any
// cluster state, matching OperationStatus.cc's read-only contract.
func executeStatus(op *Operation, ctx *Context) (Outcome, error) {
	p := op.Payload.(*StatusPayload)
	if ctx.Snapshot != nil {
		p.Result = ctx.Snapshot()
	}
	return op.Finish(), nil
}
