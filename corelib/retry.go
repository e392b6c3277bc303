package corelib

import (
	"context"
	"errors"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/sethvargo/go-retry"
)

// Retry executes task with Fibonacci backoff up to maxRetries attempts. If
// retries are exhausted, gaveUp (when non-nil) is invoked before the final
// error is returned. Grounded on the teacher's sop.Retry.
func Retry(ctx context.Context, maxRetries uint64, task func(ctx context.Context) error, gaveUp func(ctx context.Context)) error {
	b := retry.NewFibonacci(100 * time.Millisecond)
	if err := retry.Do(ctx, retry.WithMaxRetries(maxRetries, b), task); err != nil {
		if gaveUp != nil {
			gaveUp(ctx)
		}
		return err
	}
	return nil
}

// ShouldRetry reports whether err is a transient condition worth retrying,
// as opposed to a permanent failure (bad path, quota exceeded, read-only FS).
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, os.ErrNotExist) || errors.Is(err, os.ErrPermission) ||
		errors.Is(err, os.ErrClosed) || errors.Is(err, os.ErrExist) {
		return false
	}
	switch {
	case errors.Is(err, syscall.EROFS),
		errors.Is(err, syscall.ENOSPC),
		errors.Is(err, syscall.EDQUOT),
		errors.Is(err, syscall.EACCES),
		errors.Is(err, syscall.EPERM),
		errors.Is(err, syscall.EINVAL):
		return false
	}
	if strings.Contains(err.Error(), "read-only file system") {
		return false
	}
	return true
}
