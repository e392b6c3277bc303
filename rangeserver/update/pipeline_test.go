package update

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rangedb/htcore/fsbroker"
	"github.com/rangedb/htcore/master/ops"
	"github.com/rangedb/htcore/rangeserver/memtrack"
)

// fakeResponse is an in-memory comm.ResponseCallback for tests.
type fakeResponse struct {
	mu      sync.Mutex
	done    chan struct{}
	ok      bool
	payload []byte
	code    int32
	message string
}

func newFakeResponse() *fakeResponse {
	return &fakeResponse{done: make(chan struct{})}
}

func (r *fakeResponse) Respond(ctx context.Context, payload []byte) error {
	r.mu.Lock()
	r.ok = true
	r.payload = payload
	r.mu.Unlock()
	close(r.done)
	return nil
}

func (r *fakeResponse) Error(ctx context.Context, code int32, message string) error {
	r.mu.Lock()
	r.ok = false
	r.code = code
	r.message = message
	r.mu.Unlock()
	close(r.done)
	return nil
}

func (r *fakeResponse) wait(t *testing.T) {
	t.Helper()
	select {
	case <-r.done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for response")
	}
}

func newTestPipeline(t *testing.T, coalesceLimit int) (*Pipeline, *MemRangeMap, *MemCellCache, *MemCommitLog, *fsbroker.Fake) {
	t.Helper()
	rangeMap := NewMemRangeMap()
	cellCache := NewMemCellCache()
	commitLog := NewMemCommitLog()
	broker := fsbroker.NewFake()
	tracker := memtrack.New(1 << 30)

	cfg := Config{
		QualifyWorkers:   2,
		CommitWorkers:    1,
		RespondWorkers:   2,
		CoalesceLimit:    coalesceLimit,
		CommitQueueBound: 8,
		MaxClockSkew:     time.Hour,
	}
	p := New(cfg, rangeMap, nil, commitLog, cellCache, broker, tracker)
	t.Cleanup(p.Shutdown)
	return p, rangeMap, cellCache, commitLog, broker
}

func TestPipeline_QualifiedRequestAppliesToCellCache(t *testing.T) {
	p, rangeMap, cellCache, commitLog, _ := newTestPipeline(t, 1<<20)
	rangeMap.Assign("logs", "row1", "r1")

	resp := newFakeResponse()
	p.Submit("logs", []UpdateRequest{{Row: "row1", Family: "cf", Qualifier: "q", Value: []byte("hello")}}, resp)
	resp.wait(t)

	if !resp.ok {
		t.Fatalf("expected success response, got error %d: %s", resp.code, resp.message)
	}
	applied := cellCache.Applied("r1")
	if len(applied) != 1 || string(applied[0].Data) != "hello" {
		t.Fatalf("unexpected applied cells: %+v", applied)
	}
	if len(commitLog.Groups()) != 1 {
		t.Fatalf("expected exactly one commit-log group, got %d", len(commitLog.Groups()))
	}
}

func TestPipeline_UnresolvableRowReportsErrorWithoutAborting(t *testing.T) {
	p, _, _, _, _ := newTestPipeline(t, 1<<20)

	resp := newFakeResponse()
	p.Submit("logs", []UpdateRequest{{Row: "missing", Family: "cf", Value: []byte("x")}}, resp)
	resp.wait(t)

	if resp.ok {
		t.Fatal("expected error response for unresolvable row")
	}
}

// TestPipeline_BlockedRangeRedirectsToTransferLog is spec §8 scenario 4: a
// batch targeting a blocked range still gets an OK response, durable via
// the transfer log instead of the cell cache.
func TestPipeline_BlockedRangeRedirectsToTransferLog(t *testing.T) {
	p, rangeMap, cellCache, _, broker := newTestPipeline(t, 1<<20)
	rangeMap.Assign("logs", "row1", "r1")
	rangeMap.Assign("logs", "row2", "r2")
	rangeMap.SetBlocked("r2", true)

	resp := newFakeResponse()
	p.Submit("logs", []UpdateRequest{
		{Row: "row1", Family: "cf", Value: []byte("aaa")},
		{Row: "row2", Family: "cf", Value: []byte("bbb")},
	}, resp)
	resp.wait(t)

	if !resp.ok {
		t.Fatalf("expected OK response even with one blocked range, got error %s", resp.message)
	}
	if len(cellCache.Applied("r1")) != 1 {
		t.Fatal("expected r1's slice applied to the cell cache")
	}
	if len(cellCache.Applied("r2")) != 0 {
		t.Fatal("r2 is blocked, should not have been applied to the cell cache")
	}

	data, err := broker.Length(context.Background(), transferLogPath("r2"))
	if err != nil || data == 0 {
		t.Fatalf("expected r2's slice durable in its transfer log, length=%d err=%v", data, err)
	}
}

// TestPipeline_RevisionsAreMonotonePerRange is property P6.
func TestPipeline_RevisionsAreMonotonePerRange(t *testing.T) {
	p, rangeMap, cellCache, _, _ := newTestPipeline(t, 1<<20)
	rangeMap.Assign("logs", "row1", "r1")

	for i := 0; i < 5; i++ {
		resp := newFakeResponse()
		p.Submit("logs", []UpdateRequest{{Row: "row1", Family: "cf", Value: []byte{byte(i)}}}, resp)
		resp.wait(t)
		if !resp.ok {
			t.Fatalf("submit %d failed: %s", i, resp.message)
		}
	}

	applied := cellCache.Applied("r1")
	if len(applied) != 5 {
		t.Fatalf("expected 5 applied cells, got %d", len(applied))
	}
	for i := 1; i < len(applied); i++ {
		if applied[i].Key.Revision <= applied[i-1].Key.Revision {
			t.Fatalf("revision did not increase monotonically: %d -> %d", applied[i-1].Key.Revision, applied[i].Key.Revision)
		}
	}
}

func TestPipeline_RevisionRegressionRejectedWithTimestampOrderError(t *testing.T) {
	rangeMap := NewMemRangeMap()
	rangeMap.Assign("logs", "row1", "r1")
	cellCache := NewMemCellCache()
	commitLog := NewMemCommitLog()
	broker := fsbroker.NewFake()
	tracker := memtrack.New(1 << 30)
	clockBase := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	cfg := Config{
		QualifyWorkers: 1, CommitWorkers: 1, RespondWorkers: 1,
		CoalesceLimit: 1 << 20, CommitQueueBound: 8, MaxClockSkew: time.Hour,
		Now: func() time.Time { return clockBase },
	}
	p := New(cfg, rangeMap, nil, commitLog, cellCache, broker, tracker)
	defer p.Shutdown()

	first := newFakeResponse()
	p.Submit("logs", []UpdateRequest{{Row: "row1", Family: "cf", Value: []byte("a"), Revision: clockBase.UnixNano()}}, first)
	first.wait(t)
	if !first.ok {
		t.Fatalf("first submit should succeed, got %s", first.message)
	}

	second := newFakeResponse()
	p.Submit("logs", []UpdateRequest{{Row: "row1", Family: "cf", Value: []byte("b"), Revision: clockBase.UnixNano() - int64(time.Minute)}}, second)
	second.wait(t)
	if second.ok {
		t.Fatal("expected regression to be rejected")
	}
}

// TestPipeline_CommitLogFailureInvokesOnFatal is spec §7: a commit-log
// write error is fatal.
func TestPipeline_CommitLogFailureInvokesOnFatal(t *testing.T) {
	rangeMap := NewMemRangeMap()
	rangeMap.Assign("logs", "row1", "r1")
	cellCache := NewMemCellCache()
	commitLog := NewMemCommitLog()
	commitLog.FailNextAppend()
	broker := fsbroker.NewFake()
	tracker := memtrack.New(1 << 30)

	fatalCh := make(chan error, 1)
	cfg := Config{
		QualifyWorkers: 1, CommitWorkers: 1, RespondWorkers: 1,
		CoalesceLimit: 1 << 20, CommitQueueBound: 8, MaxClockSkew: time.Hour,
		OnFatal: func(err error) { fatalCh <- err },
	}
	p := New(cfg, rangeMap, nil, commitLog, cellCache, broker, tracker)
	defer p.Shutdown()

	resp := newFakeResponse()
	p.Submit("logs", []UpdateRequest{{Row: "row1", Family: "cf", Value: []byte("x")}}, resp)

	select {
	case err := <-fatalCh:
		if err == nil {
			t.Fatal("expected non-nil fatal error")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for OnFatal to be invoked")
	}
}

// TestPipeline_CoalescesAdjacentContextsIntoOneCommitLogGroup exercises the
// update_coalesce_limit grouping: several small batches submitted back to
// back land in one append rather than one apiece, as long as the drain
// happens to catch them queued together.
func TestPipeline_CoalescesAdjacentContextsIntoOneCommitLogGroup(t *testing.T) {
	p, rangeMap, _, commitLog, _ := newTestPipeline(t, 1<<20)
	rangeMap.Assign("logs", "row1", "r1")

	const n = 20
	resps := make([]*fakeResponse, n)
	for i := 0; i < n; i++ {
		resps[i] = newFakeResponse()
		p.Submit("logs", []UpdateRequest{{Row: "row1", Family: "cf", Value: []byte{byte(i)}}}, resps[i])
	}
	for _, r := range resps {
		r.wait(t)
	}

	var total int
	for _, g := range commitLog.Groups() {
		total += len(g)
	}
	if total != n {
		t.Fatalf("commit log groups carry %d bytes total, want %d", total, n)
	}
	if got := len(commitLog.Groups()); got > n {
		t.Fatalf("more commit-log groups (%d) than submissions (%d)", got, n)
	}
}

func TestTransformKey_InvertsRevisionForDescendingTimeOrderFamily(t *testing.T) {
	schema := &ops.Schema{Families: map[string]*ops.ColumnFamily{
		"cf": {Name: "cf", TimeOrder: true},
	}}
	k := TransformKey(Key{Family: "cf", Revision: 100}, schema)
	if k.Revision != int64(^uint64(100)) {
		t.Fatalf("expected inverted revision, got %d", k.Revision)
	}

	plain := TransformKey(Key{Family: "other", Revision: 100}, schema)
	if plain.Revision != 100 {
		t.Fatalf("expected unchanged revision for non-time-order family, got %d", plain.Revision)
	}
}
