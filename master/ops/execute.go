package ops

import "github.com/rangedb/htcore/corelib"

// Execute runs one transition of op and returns what the processor should do
// next (spec §4.4's common execution contract). It must return after either
// persisting a new state or completing/erroring.
func (op *Operation) Execute(ctx *Context) (Outcome, error) {
	switch op.Kind {
	case CreateTable:
		return executeCreateTable(op, ctx)
	case DropTable:
		return executeDropTable(op, ctx)
	case AlterTable:
		return executeAlterTable(op, ctx)
	case RecreateIndexTables:
		return executeRecreateIndexTables(op, ctx)
	case SuspendMaintenance:
		return executeSuspendMaintenance(op, ctx)
	case ToggleTableMaintenance:
		return executeToggleTableMaintenance(op, ctx)
	case Recover:
		return executeRecover(op, ctx)
	case RegisterServer:
		return executeRegisterServer(op, ctx)
	case RegisterServerBlocker:
		return executeRegisterServerBlocker(op, ctx)
	case Status:
		return executeStatus(op, ctx)
	case TimedBarrier:
		return executeTimedBarrier(op, ctx)
	default:
		return op.Fail("unknown operation kind"), corelib.New(corelib.InvalidOperation, "unknown operation kind")
	}
}
