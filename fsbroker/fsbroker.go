// Package fsbroker defines the named interface the range servers and master
// use for distributed-filesystem-backed file storage (HDFS-broker equivalent,
// spec §1/§6). Internals of the real broker RPC protocol are out of scope;
// this package carries the contract plus an S3-backed implementation and an
// in-memory fake for tests.
package fsbroker

import "context"

// Handle represents an open file on the broker. A Handle opened via Create is
// append-only until Close/Flush; one opened via Open is read-only.
type Handle interface {
	Read(p []byte) (int, error)
	Append(p []byte) (int, error)
	Flush(ctx context.Context) error
	Close(ctx context.Context) error
}

// Broker is the subset of the DFS broker protocol the Update Pipeline's
// transfer-log redirection (spec §4.3) and the master's table-file
// housekeeping depend on.
type Broker interface {
	// Create opens path for writing, truncating any existing content when
	// overwrite is true.
	Create(ctx context.Context, path string, overwrite bool) (Handle, error)
	// Open opens path for reading.
	Open(ctx context.Context, path string) (Handle, error)
	// Mkdirs creates path and any missing parents; no-op if it already exists.
	Mkdirs(ctx context.Context, path string) error
	// Remove deletes a single file. Missing files are not an error.
	Remove(ctx context.Context, path string) error
	// Rmdir recursively removes path and everything beneath it.
	Rmdir(ctx context.Context, path string) error
	// Readdir lists the immediate children of path.
	Readdir(ctx context.Context, path string) ([]string, error)
	// Length reports the current size in bytes of path.
	Length(ctx context.Context, path string) (int64, error)
}
