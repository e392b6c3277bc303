// Package gc implements the Access-Group Garbage Tracker (spec §4.8): the
// per-access-group adaptive decision of whether a major compaction is worth
// running now, and how the byte/time targets should move after one runs (or
// is skipped). Grounded on the teacher's plain-struct-with-methods idiom for
// per-entity adaptive state (no corpus dependency covers this narrow
// numerical concern, so it is deliberately stdlib-only; see DESIGN.md).
package gc

import "time"

// Tracker is one access group's garbage-driven compaction scheduler
// (spec §4.2 "Access-Group Garbage Tracker" entity).
type Tracker struct {
	GarbageThreshold float64 // fraction in [0,1]

	ElapsedTarget        time.Duration
	ElapsedTargetMinimum time.Duration
	AccumDataTarget      int64 // bytes
	AccumDataTargetMin   int64 // bytes

	LastResetTime      time.Time
	LastResetDiskUsage int64
	CurrentDiskUsage   int64

	StoredDeletes    int64
	StoredExpirable  int64
	MinTTL           time.Duration
	MaxTTL           time.Duration
	HaveMaxVersions  bool
	InMemoryBytes    int64
}

// New returns a Tracker reset at t with the given targets and their floors.
func New(threshold float64, elapsedTarget, elapsedMin time.Duration, accumTarget, accumMin int64, t time.Time) *Tracker {
	return &Tracker{
		GarbageThreshold:     threshold,
		ElapsedTarget:        elapsedTarget,
		ElapsedTargetMinimum: elapsedMin,
		AccumDataTarget:      accumTarget,
		AccumDataTargetMin:   accumMin,
		LastResetTime:        t,
	}
}

// accumulatedBytes is the in-memory plus net disk growth since the last
// reset (spec §4.8's "bytes accumulated since the last reset").
func (t *Tracker) accumulatedBytes() int64 {
	diskGrowth := t.CurrentDiskUsage - t.LastResetDiskUsage
	if diskGrowth < 0 {
		diskGrowth = 0
	}
	return t.InMemoryBytes + diskGrowth
}

// expirableFraction is the potentially-TTL-expirable share of the current
// footprint.
func (t *Tracker) expirableFraction() float64 {
	total := t.CurrentDiskUsage + t.InMemoryBytes
	if total <= 0 {
		return 0
	}
	return float64(t.StoredExpirable) / float64(total)
}

// CheckNeeded answers spec §4.8's single question for now: is a major
// compaction worth doing?
func (t *Tracker) CheckNeeded(now time.Time) bool {
	if (t.StoredDeletes > 0 || t.HaveMaxVersions) && t.accumulatedBytes() >= t.AccumDataTarget {
		return true
	}
	if t.MinTTL > 0 && t.expirableFraction() >= t.GarbageThreshold {
		elapsed := now.Sub(t.LastResetTime)
		if elapsed >= t.ElapsedTarget {
			return true
		}
	}
	return false
}

// AdjustTargets updates the adaptive targets after a compaction ran (or was
// evaluated) observing total bytes scanned and garbage bytes reclaimed
// (spec §4.8 — P8 convergence). Below the threshold both targets double, the
// byte target capped at the estimate total*threshold/fraction; at or above it
// both are scaled to that estimate.
func (t *Tracker) AdjustTargets(now time.Time, total, garbage int64) {
	var observedFraction float64
	if total > 0 {
		observedFraction = float64(garbage) / float64(total)
	}

	if observedFraction < t.GarbageThreshold {
		t.AccumDataTarget *= 2
		t.ElapsedTarget *= 2
		if observedFraction > 0 {
			if estimate := int64(float64(total) * t.GarbageThreshold / observedFraction); t.AccumDataTarget > estimate {
				t.AccumDataTarget = estimate
			}
		}
	} else if observedFraction > 0 {
		estimate := int64(float64(total) * t.GarbageThreshold / observedFraction)
		t.AccumDataTarget = estimate
		t.ElapsedTarget = time.Duration(float64(t.ElapsedTarget) * t.GarbageThreshold / observedFraction)
	}

	if t.AccumDataTarget < t.AccumDataTargetMin {
		t.AccumDataTarget = t.AccumDataTargetMin
	}
	if t.ElapsedTarget < t.ElapsedTargetMinimum {
		t.ElapsedTarget = t.ElapsedTargetMinimum
	}
}

// Reset records the new baseline immediately after a compaction completes.
func (t *Tracker) Reset(now time.Time, diskUsage int64) {
	t.LastResetTime = now
	t.LastResetDiskUsage = diskUsage
	t.InMemoryBytes = 0
}
