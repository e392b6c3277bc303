// Package memtrack implements the range server's per-process memory
// accounting (spec §4.4, MemoryTracker.h), used by the update pipeline's
// qualify stage to refuse new cell-batch admission once tracked usage
// crosses a configured ceiling.
//
// Grounded on two teacher idioms: cachefactory.go's register-once/resolve-
// many factory registry (here, named external accounting sources instead of
// cache constructors) and cacherestarthelper.go's mutex-guarded running
// total updated by small deltas rather than recomputed from scratch.
package memtrack

import "sync"

// Source reports bytes currently attributed to an external subsystem, e.g.
// a block cache or query cache, that Tracker folds into its balance without
// owning. Mirrors MemoryTracker.h's block_cache/query_cache members, made
// pluggable rather than hardwired to two fixed caches.
type Source func() int64

// Tracker accounts in-flight update-pipeline memory against a hard ceiling.
type Tracker struct {
	mu      sync.Mutex
	used    int64
	limit   int64
	sources map[string]Source
}

// New returns a Tracker with no self-owned usage and no registered sources.
func New(limit int64) *Tracker {
	return &Tracker{limit: limit, sources: make(map[string]Source)}
}

// RegisterSource attaches an external accounting source under name,
// replacing any prior registration of the same name.
func (t *Tracker) RegisterSource(name string, s Source) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sources[name] = s
}

// Add accounts amount bytes of newly claimed self-owned memory. amount may
// be negative to release memory (MemoryTracker.h's add/subtract, unified
// into one delta call).
func (t *Tracker) Add(amount int64) {
	t.mu.Lock()
	t.used += amount
	t.mu.Unlock()
}

// Subtract releases amount bytes of previously claimed memory.
func (t *Tracker) Subtract(amount int64) {
	t.Add(-amount)
}

// Balance returns self-owned usage plus every registered source's current
// reading (MemoryTracker.h's balance()).
func (t *Tracker) Balance() int64 {
	t.mu.Lock()
	total := t.used
	sources := make([]Source, 0, len(t.sources))
	for _, s := range t.sources {
		sources = append(sources, s)
	}
	t.mu.Unlock()

	for _, s := range sources {
		total += s()
	}
	return total
}

// Admit reports whether a batch of size bytes can be accepted without
// pushing Balance past the configured limit. The qualify stage calls this
// before admitting a new cell batch.
func (t *Tracker) Admit(size int64) bool {
	return t.Balance()+size <= t.Limit()
}

// Limit returns the current ceiling.
func (t *Tracker) Limit() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.limit
}

// SetLimit adjusts the ceiling, e.g. in response to an updated resource
// configuration.
func (t *Tracker) SetLimit(limit int64) {
	t.mu.Lock()
	t.limit = limit
	t.mu.Unlock()
}
