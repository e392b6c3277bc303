package corelib

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// TaskRunner is a slot-limited worker pool: at most maxThreadCount tasks run
// concurrently, extras block on Go until a slot frees up. Grounded on the
// teacher's task_runner.go, reused unmodified here as the common primitive
// backing the Operation Processor (C5) and the three Update Pipeline stages
// (C7).
type TaskRunner struct {
	eg          *errgroup.Group
	limiterChan chan struct{}
	ctx         context.Context
}

// NewTaskRunner creates a TaskRunner bound to ctx, allowing up to
// maxThreadCount tasks to run at once.
func NewTaskRunner(ctx context.Context, maxThreadCount int) *TaskRunner {
	eg, ctx2 := errgroup.WithContext(ctx)
	return &TaskRunner{
		eg:          eg,
		limiterChan: make(chan struct{}, maxThreadCount),
		ctx:         ctx2,
	}
}

// Context returns the errgroup-derived context, cancelled on first task error.
func (tr *TaskRunner) Context() context.Context {
	return tr.ctx
}

// Go occupies a slot and runs task in a new goroutine, freeing the slot when
// task returns (even on error).
func (tr *TaskRunner) Go(task func() error) {
	tr.limiterChan <- struct{}{}
	tr.eg.Go(func() error {
		defer func() { <-tr.limiterChan }()
		return task()
	})
}

// Wait blocks until every dispatched task has returned, returning the first
// non-nil error observed.
func (tr *TaskRunner) Wait() error {
	return tr.eg.Wait()
}
