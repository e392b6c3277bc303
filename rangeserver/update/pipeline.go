package update

import (
	"context"
	log "log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rangedb/htcore/comm"
	"github.com/rangedb/htcore/corelib"
	"github.com/rangedb/htcore/fsbroker"
	"github.com/rangedb/htcore/master/ops"
	"github.com/rangedb/htcore/rangeserver/memtrack"
)

// Config tunes one Pipeline instance. Every field except OnFatal and Now
// corresponds to a Hypertable.RangeServer.Update config property
// (config.Config).
type Config struct {
	QualifyWorkers   int
	CommitWorkers    int
	RespondWorkers   int
	CoalesceLimit    int
	CommitQueueBound int
	MaxClockSkew     time.Duration
	// OnFatal is invoked instead of os.Exit(1) when the commit log reports a
	// write error (spec §7, "a commit-log write error is fatal"). Tests
	// override it to observe the failure instead of terminating the process.
	OnFatal func(error)
	// Now overrides the wall clock revision assignment reads against;
	// defaults to time.Now. Tests use this to exercise clock-skew rejection
	// deterministically.
	Now func() time.Time
}

// Pipeline is the range server's qualify → commit → respond write path
// (spec §4.1), three errgroup-backed worker sets connected by buffered
// channels acting as the hand-off queues. The channel chain itself supplies
// the back-pressure spec §4.2 calls for: once the commit channel fills to
// its CommitQueueBound, a qualify worker's send blocks until commit drains
// it.
type Pipeline struct {
	cfg       Config
	rangeMap  RangeMap
	schema    *ops.Schema
	commitLog CommitLog
	cellCache CellCache
	broker    fsbroker.Broker
	tracker   *memtrack.Tracker
	now       func() time.Time

	qualifyCh chan *rawBatch
	commitCh  chan *UpdateContext
	respondCh chan *UpdateContext

	mu           sync.Mutex
	nextID       uint64
	lastRevision map[string]int64

	qualifyEg *errgroup.Group
	commitEg  *errgroup.Group
	respondEg *errgroup.Group
}

// New constructs and starts a Pipeline. schema may be nil if the table's
// schema hasn't been loaded yet; transform_key then passes every key through
// unchanged, since the schema is fixed for the Pipeline's lifetime.
func New(cfg Config, rangeMap RangeMap, schema *ops.Schema, commitLog CommitLog, cellCache CellCache, broker fsbroker.Broker, tracker *memtrack.Tracker) *Pipeline {
	if cfg.QualifyWorkers <= 0 {
		cfg.QualifyWorkers = 1
	}
	if cfg.CommitWorkers <= 0 {
		cfg.CommitWorkers = 1
	}
	if cfg.RespondWorkers <= 0 {
		cfg.RespondWorkers = 1
	}
	if cfg.CoalesceLimit <= 0 {
		cfg.CoalesceLimit = 1 << 20
	}
	if cfg.CommitQueueBound <= 0 {
		cfg.CommitQueueBound = 32
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	p := &Pipeline{
		cfg:          cfg,
		rangeMap:     rangeMap,
		schema:       schema,
		commitLog:    commitLog,
		cellCache:    cellCache,
		broker:       broker,
		tracker:      tracker,
		now:          cfg.Now,
		qualifyCh:    make(chan *rawBatch, cfg.QualifyWorkers*2),
		commitCh:     make(chan *UpdateContext, cfg.CommitQueueBound),
		respondCh:    make(chan *UpdateContext, cfg.RespondWorkers*2),
		lastRevision: make(map[string]int64),
	}

	p.qualifyEg = new(errgroup.Group)
	for i := 0; i < cfg.QualifyWorkers; i++ {
		p.qualifyEg.Go(func() error { p.qualifyLoop(); return nil })
	}
	go func() { p.qualifyEg.Wait(); close(p.commitCh) }()

	p.commitEg = new(errgroup.Group)
	for i := 0; i < cfg.CommitWorkers; i++ {
		p.commitEg.Go(func() error { p.commitLoop(); return nil })
	}
	go func() { p.commitEg.Wait(); close(p.respondCh) }()

	p.respondEg = new(errgroup.Group)
	for i := 0; i < cfg.RespondWorkers; i++ {
		p.respondEg.Go(func() error { p.respondLoop(); return nil })
	}

	return p
}

// Submit enqueues a batch of requests targeting table for qualification.
// Submit itself never blocks past the qualify channel's buffer; back-
// pressure downstream surfaces as a blocked commit channel, which in turn
// blocks a qualify worker, which in turn fills this channel.
func (p *Pipeline) Submit(table string, requests []UpdateRequest, resp comm.ResponseCallback) {
	p.mu.Lock()
	p.nextID++
	id := p.nextID
	p.mu.Unlock()

	p.qualifyCh <- &rawBatch{id: id, table: table, requests: requests, resp: resp}
}

// Shutdown closes the qualify channel and waits for every in-flight context
// to drain through commit and respond before returning (spec §4.2:
// "in-flight contexts complete before the shutdown returns").
func (p *Pipeline) Shutdown() {
	close(p.qualifyCh)
	_ = p.respondEg.Wait()
}

func (p *Pipeline) qualifyLoop() {
	for batch := range p.qualifyCh {
		uc, err := p.qualify(batch)
		if err != nil {
			_ = batch.resp.Error(context.Background(), int32(corelib.KindOf(err)), err.Error())
			continue
		}
		p.commitCh <- uc
	}
}

func (p *Pipeline) qualify(batch *rawBatch) (*UpdateContext, error) {
	uc := &UpdateContext{
		ID:     batch.id,
		Table:  batch.table,
		Ranges: make(map[string]*UpdateRecRangeList),
		Errors: make(map[string]error),
		Resp:   batch.resp,
	}

	buf := make([]byte, 0, 256)
	for _, req := range batch.requests {
		rangeID, ok := p.rangeMap.Resolve(batch.table, req.Row)
		if !ok {
			uc.Errors[req.Row] = corelib.New(corelib.InvalidOperation, "no range owns row "+req.Row)
			continue
		}

		rev, err := p.assignRevision(rangeID, req.Revision)
		if err != nil {
			uc.Errors[rangeID] = err
			continue
		}

		key := TransformKey(Key{Row: req.Row, Family: req.Family, Qualifier: req.Qualifier, Revision: rev}, p.schema)

		off := len(buf)
		buf = append(buf, req.Value...)

		list, ok := uc.Ranges[rangeID]
		if !ok {
			list = &UpdateRecRangeList{RangeID: rangeID}
			uc.Ranges[rangeID] = list
		}
		list.Slices = append(list.Slices, UpdateRecRange{Offset: off, Len: len(req.Value), Key: key})
	}
	uc.Buffer = buf

	if !p.tracker.Admit(int64(len(uc.Buffer))) {
		return nil, corelib.New(corelib.InvalidOperation, "update batch exceeds memory tracker limit")
	}
	p.tracker.Add(int64(len(uc.Buffer)))

	return uc, nil
}

// assignRevision enforces monotone non-decreasing revisions per range
// (spec §4.1), bounded by MaxClockSkew, rejecting with TimestampOrderError
// on regression or on a requested revision too far from wall-clock time.
func (p *Pipeline) assignRevision(rangeID string, requested int64) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	last := p.lastRevision[rangeID]
	now := p.now().UnixNano()

	rev := requested
	if rev == 0 {
		rev = now
		if rev <= last {
			rev = last + 1
		}
	} else if rev <= last {
		return 0, corelib.New(corelib.TimestampOrderError, "revision regresses past last assigned revision for range "+rangeID)
	}

	skew := p.cfg.MaxClockSkew.Nanoseconds()
	if skew > 0 {
		if d := rev - now; d > skew || d < -skew {
			return 0, corelib.New(corelib.TimestampOrderError, "revision outside permitted clock skew for range "+rangeID)
		}
	}

	p.lastRevision[rangeID] = rev
	return rev, nil
}

func (p *Pipeline) commitLoop() {
	for {
		first, ok := <-p.commitCh
		if !ok {
			return
		}
		group := []*UpdateContext{first}
		size := len(first.Buffer)

	drain:
		for size < p.cfg.CoalesceLimit {
			select {
			case uc, ok := <-p.commitCh:
				if !ok {
					p.finishGroup(group)
					return
				}
				group = append(group, uc)
				size += len(uc.Buffer)
			default:
				break drain
			}
		}
		p.finishGroup(group)
	}
}

// finishGroup appends every context's buffer as one commit-log write (one
// fsync for the whole coalesced group), applies each context's slices, and
// hands each off to the respond stage.
func (p *Pipeline) finishGroup(group []*UpdateContext) {
	merged := make([]byte, 0, p.cfg.CoalesceLimit)
	for _, uc := range group {
		merged = append(merged, uc.Buffer...)
	}

	if err := p.commitLog.Append(context.Background(), merged); err != nil {
		p.fatal(corelib.Wrap(corelib.External, "commit log append", err))
		return
	}

	for _, uc := range group {
		p.applyRanges(uc)
		p.respondCh <- uc
	}
}

func (p *Pipeline) applyRanges(uc *UpdateContext) {
	for rangeID, list := range uc.Ranges {
		if p.rangeMap.Blocked(rangeID) {
			p.redirectToTransferLog(uc, list)
			continue
		}
		for _, slice := range list.Slices {
			data := uc.Buffer[slice.Offset : slice.Offset+slice.Len]
			if err := p.cellCache.Apply(rangeID, slice.Key, data); err != nil {
				uc.Errors[rangeID] = err
			}
		}
	}
}

// redirectToTransferLog writes a blocked range's slices to its transfer
// log instead of the cell cache (spec §4.1/§4.3): the caller still observes
// success once the slices are durable there.
func (p *Pipeline) redirectToTransferLog(uc *UpdateContext, list *UpdateRecRangeList) {
	if list.TransferLog == nil {
		h, err := p.broker.Create(context.Background(), transferLogPath(list.RangeID), false)
		if err != nil {
			uc.Errors[list.RangeID] = err
			return
		}
		list.TransferLog = h
	}
	for _, slice := range list.Slices {
		data := uc.Buffer[slice.Offset : slice.Offset+slice.Len]
		if _, err := list.TransferLog.Append(data); err != nil {
			uc.Errors[list.RangeID] = err
			return
		}
	}
	if err := list.TransferLog.Flush(context.Background()); err != nil {
		uc.Errors[list.RangeID] = err
	}
}

func transferLogPath(rangeID string) string {
	return "/transfer/" + rangeID + ".log"
}

func (p *Pipeline) respondLoop() {
	for uc := range p.respondCh {
		p.respond(uc)
	}
}

func (p *Pipeline) respond(uc *UpdateContext) {
	defer p.releaseTransferLogs(uc)
	p.tracker.Subtract(int64(len(uc.Buffer)))

	ctx := context.Background()
	if len(uc.Errors) > 0 {
		msgs := make([]string, 0, len(uc.Errors))
		for id, err := range uc.Errors {
			msgs = append(msgs, id+": "+err.Error())
		}
		_ = uc.Resp.Error(ctx, int32(corelib.InvalidOperation), strings.Join(msgs, "; "))
		return
	}
	_ = uc.Resp.Respond(ctx, []byte("ok"))
}

func (p *Pipeline) releaseTransferLogs(uc *UpdateContext) {
	for _, list := range uc.Ranges {
		if list.TransferLog != nil {
			_ = list.TransferLog.Close(context.Background())
		}
	}
}

// fatal handles a commit-log write failure, which spec §7 treats as
// unconditionally fatal since partial durability within a coalesced group
// can't be distinguished without a replay.
func (p *Pipeline) fatal(err error) {
	if p.cfg.OnFatal != nil {
		p.cfg.OnFatal(err)
		return
	}
	log.Error("commit log write failed, aborting", "err", err)
	os.Exit(1)
}
