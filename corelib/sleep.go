package corelib

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// Now is a lambda for time.Now so tests can inject replayable time, grounded
// on the teacher's package-level `Now` override in two_phase_commit_transaction.go.
var Now = time.Now

var jitterRNG = rand.New(rand.NewSource(time.Now().UnixNano()))

// SetJitterRNG overrides the jitter source for deterministic tests.
func SetJitterRNG(r *rand.Rand) {
	if r != nil {
		jitterRNG = r
	}
}

// Sleep blocks for d or until ctx is done, whichever happens first.
func Sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	c, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	<-c.Done()
}

// RandomSleep jitters a retrying caller between 1x and 4x unit, used to stagger
// conflicting operations retrying the same exclusivity/dependency label.
func RandomSleep(ctx context.Context, unit time.Duration) {
	mult := jitterRNG.Intn(5)
	if mult == 0 {
		mult = 1
	}
	Sleep(ctx, time.Duration(mult)*unit)
}

// TimedOut reports whether ctx is done or elapsed since start exceeds max.
func TimedOut(ctx context.Context, name string, start time.Time, max time.Duration) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if Now().Sub(start) > max {
		return fmt.Errorf("%s timed out (max=%v)", name, max)
	}
	return nil
}
