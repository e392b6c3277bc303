package ops

import "context"

// Log is the persistence contract an Operation's processor writes through
// (spec §4.1, C1). Defined here rather than in master/mlog so this package
// has no import on its own persistence backend; master/mlog's implementations
// satisfy this interface structurally.
type Log interface {
	RecordState(ctx context.Context, op *Operation) error
	RecordBatch(ctx context.Context, ops []*Operation) error
	Tombstone(ctx context.Context, id uint64) error
	Replay(ctx context.Context) (map[uint64]*Operation, error)
}
