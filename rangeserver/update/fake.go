package update

import (
	"context"
	"sync"

	"github.com/rangedb/htcore/corelib"
)

// MemRangeMap is an in-memory RangeMap for tests: rows are routed by an
// explicit assignment rather than a real split-point search.
type MemRangeMap struct {
	mu      sync.Mutex
	byRow   map[string]string
	blocked map[string]bool
}

// NewMemRangeMap returns a RangeMap with no assignments.
func NewMemRangeMap() *MemRangeMap {
	return &MemRangeMap{byRow: make(map[string]string), blocked: make(map[string]bool)}
}

// Assign routes table/row to rangeID.
func (m *MemRangeMap) Assign(table, row, rangeID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byRow[table+"/"+row] = rangeID
}

// SetBlocked marks rangeID as blocked or unblocked.
func (m *MemRangeMap) SetBlocked(rangeID string, blocked bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blocked[rangeID] = blocked
}

func (m *MemRangeMap) Resolve(table, row string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byRow[table+"/"+row]
	return id, ok
}

func (m *MemRangeMap) Blocked(rangeID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.blocked[rangeID]
}

// AppliedCell is one cell the commit stage applied to a MemCellCache.
type AppliedCell struct {
	Key  Key
	Data []byte
}

// MemCellCache is an in-memory CellCache for tests, recording every applied
// cell in application order per range.
type MemCellCache struct {
	mu      sync.Mutex
	applied map[string][]AppliedCell
}

// NewMemCellCache returns an empty MemCellCache.
func NewMemCellCache() *MemCellCache {
	return &MemCellCache{applied: make(map[string][]AppliedCell)}
}

func (c *MemCellCache) Apply(rangeID string, key Key, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.applied[rangeID] = append(c.applied[rangeID], AppliedCell{Key: key, Data: append([]byte(nil), data...)})
	return nil
}

// Applied returns every cell applied to rangeID so far, in application order.
func (c *MemCellCache) Applied(rangeID string) []AppliedCell {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]AppliedCell(nil), c.applied[rangeID]...)
}

// MemCommitLog is an in-memory CommitLog for tests, optionally simulating a
// single fatal write failure via FailNextAppend.
type MemCommitLog struct {
	mu       sync.Mutex
	groups   [][]byte
	failNext bool
}

// NewMemCommitLog returns an empty MemCommitLog.
func NewMemCommitLog() *MemCommitLog {
	return &MemCommitLog{}
}

func (l *MemCommitLog) Append(ctx context.Context, group []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failNext {
		l.failNext = false
		return corelib.New(corelib.External, "simulated commit log failure")
	}
	l.groups = append(l.groups, append([]byte(nil), group...))
	return nil
}

// FailNextAppend makes the next Append call fail, simulating a disk error.
func (l *MemCommitLog) FailNextAppend() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failNext = true
}

// Groups returns every group appended so far, in append order.
func (l *MemCommitLog) Groups() [][]byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([][]byte(nil), l.groups...)
}
