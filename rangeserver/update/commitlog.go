package update

import (
	"context"
	"os"
	"sync"

	"github.com/ncw/directio"
	"github.com/sethvargo/go-retry"

	"github.com/rangedb/htcore/corelib"
)

// CommitLog is the per-range-server append-only commit log the commit stage
// writes coalesced groups to, one fsync per group (spec §4.2).
type CommitLog interface {
	Append(ctx context.Context, group []byte) error
}

// DirectCommitLog appends coalesced update groups to a single append-only
// file opened with O_DIRECT, grounded on the teacher's fs.DirectIO wrapper
// around github.com/ncw/directio (_examples/SharedCode-sop/fs/directio.go):
// aligned buffers via directio.AlignedBlock, writes retried through
// corelib.Retry for transient I/O errors.
type DirectCommitLog struct {
	mu   sync.Mutex
	file *os.File
}

// OpenDirectCommitLog opens (creating if needed) the commit log file at path.
func OpenDirectCommitLog(path string) (*DirectCommitLog, error) {
	f, err := directio.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, corelib.Wrap(corelib.External, "open commit log "+path, err)
	}
	return &DirectCommitLog{file: f}, nil
}

// Append writes group, padded up to the O_DIRECT block size, and fsyncs
// once. A write or sync failure here is the pipeline's fatal condition
// (spec §7): partial durability within a coalesced group can't be
// distinguished from full durability without replaying the log.
func (l *DirectCommitLog) Append(ctx context.Context, group []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	aligned := directio.AlignedBlock(alignUp(len(group), directio.BlockSize))
	copy(aligned, group)

	err := corelib.Retry(ctx, 3, func(ctx context.Context) error {
		_, werr := l.file.Write(aligned)
		if werr != nil && corelib.ShouldRetry(werr) {
			return retry.RetryableError(werr)
		}
		return werr
	}, nil)
	if err != nil {
		return corelib.Wrap(corelib.External, "commit log write", err)
	}
	return l.file.Sync()
}

// Close releases the underlying file handle.
func (l *DirectCommitLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

func alignUp(n, block int) int {
	if n == 0 {
		return block
	}
	if r := n % block; r != 0 {
		n += block - r
	}
	return n
}
