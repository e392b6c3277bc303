// Package hyperspace defines the named interface through which the master
// and range servers consume the cluster's lock/metadata service. Hyperspace
// itself is an out-of-scope external collaborator (spec §1); this package
// carries only the contract the in-scope components need plus a Redis-backed
// stand-in used for tests and local runs.
package hyperspace

import (
	"context"
	"time"
)

// EventKind identifies the two lock-file callback events the Range-Server
// Hyperspace Watcher (C6) reacts to (spec §4.6/§6).
type EventKind int

const (
	LockAcquired EventKind = iota
	LockReleased
)

// Event is delivered to a Watch callback when a range server's lock file at
// <toplevel>/servers/<location> changes state.
type Event struct {
	Kind      EventKind
	Location  string
	Generation uint64
	At        time.Time
}

// Callback is invoked for every Event observed on a watched path.
type Callback func(Event)

// Service is the subset of Hyperspace the core depends on: exclusive
// ephemeral locks on range-server entries, watches on those locks, and
// persistent attributes on table files (schema, maintenance_disabled).
type Service interface {
	// AcquireLock takes the exclusive lock backing <toplevel>/servers/<location>,
	// held for the lifetime of the session represented by the returned handle.
	AcquireLock(ctx context.Context, location string) (LockHandle, error)
	// Watch registers cb to be invoked on LockAcquired/LockReleased for location.
	Watch(ctx context.Context, location string, cb Callback) error

	// SetAttribute persists a named attribute (e.g. "schema", "maintenance_disabled")
	// on <toplevel>/tables/<id>.
	SetAttribute(ctx context.Context, path, name string, value []byte) error
	// GetAttribute reads a previously persisted attribute. A missing file or
	// attribute returns corelib.HyperspaceNotFound wrapped as an error.
	GetAttribute(ctx context.Context, path, name string) ([]byte, error)
	// Create creates <toplevel>/tables/<id>; idempotent=false surfaces
	// "exists" as an error to the caller (spec §4.4 CreateTable).
	Create(ctx context.Context, path string, idempotent bool) error
	// Remove deletes path. A missing path is treated as success (spec §7.iii).
	Remove(ctx context.Context, path string) error
}

// LockHandle represents a held exclusive lock; Release drops it, which is
// what ultimately fires a LockReleased event for any watcher.
type LockHandle interface {
	Release(ctx context.Context) error
	Generation() uint64
}
