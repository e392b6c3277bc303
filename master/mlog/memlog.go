package mlog

import (
	"context"
	"sync"

	"github.com/rangedb/htcore/master/ops"
)

// MemLog is an in-memory ops.Log for tests, mirroring the corpus's
// mocked-transaction-log idiom (in_red_ck/cassandra's in-memory mocks) rather
// than talking to a real Cassandra cluster.
type MemLog struct {
	mu      sync.Mutex
	records map[uint64]record
}

// NewMemLog returns an empty MemLog.
func NewMemLog() *MemLog {
	return &MemLog{records: make(map[uint64]record)}
}

func (l *MemLog) RecordState(ctx context.Context, op *ops.Operation) error {
	r, err := encodeRecord(op)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records[r.ID] = r
	return nil
}

func (l *MemLog) RecordBatch(ctx context.Context, batch []*ops.Operation) error {
	encoded := make([]record, 0, len(batch))
	for _, op := range batch {
		r, err := encodeRecord(op)
		if err != nil {
			return err
		}
		encoded = append(encoded, r)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, r := range encoded {
		l.records[r.ID] = r
	}
	return nil
}

func (l *MemLog) Tombstone(ctx context.Context, id uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records[id] = encodeTombstone(id)
	return nil
}

func (l *MemLog) Replay(ctx context.Context) (map[uint64]*ops.Operation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	live := make(map[uint64]*ops.Operation)
	var maxID uint64
	for id, r := range l.records {
		if id > maxID {
			maxID = id
		}
		if r.isTombstone() {
			continue
		}
		op, err := decodeOperation(r)
		if err != nil {
			return nil, err
		}
		live[id] = op
	}
	ops.SeedOperationID(maxID)
	return live, nil
}

// RawBytes exposes the on-wire encoding of id's current record, for tests
// that exercise truncation handling (spec §4.1).
func (l *MemLog) RawBytes(id uint64) ([]byte, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.records[id]
	if !ok {
		return nil, false
	}
	return marshalBytes(r), true
}

// LoadRaw replaces id's record from a raw on-wire byte slice, simulating a
// truncated or corrupted trailing MML entry read back from disk.
func (l *MemLog) LoadRaw(b []byte) (ok bool, err error) {
	r, complete, err := unmarshalBytes(b)
	if err != nil || !complete {
		return false, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records[r.ID] = r
	return true, nil
}
