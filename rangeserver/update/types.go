// Package update implements the range server's Update Pipeline (spec §4.1):
// a three-stage qualify → commit → respond write path connected by buffered
// channels, with revision assignment, transfer-log redirection for blocked
// ranges, and coalesced commit-log fsyncs.
package update

import (
	"github.com/rangedb/htcore/comm"
	"github.com/rangedb/htcore/fsbroker"
)

// Key identifies one cell within a range after qualification: row, family,
// qualifier plus the assigned (and possibly transform_key-inverted)
// revision.
type Key struct {
	Row       string
	Family    string
	Qualifier string
	Revision  int64
}

// UpdateRequest is one client-submitted mutation destined for a single cell.
// A zero Revision means "assign the current time", mirroring the client
// leaving the timestamp unset.
type UpdateRequest struct {
	Row       string
	Family    string
	Qualifier string
	Value     []byte
	Revision  int64
}

// UpdateRecRange is one request's slice within a context's shared transfer
// buffer, scoped to the range it was routed to (spec §4.1).
type UpdateRecRange struct {
	Offset int
	Len    int
	Key    Key
}

// UpdateRecRangeList collects every slice destined for one range within a
// context, plus the transfer log handle opened if that range is blocked.
type UpdateRecRangeList struct {
	RangeID     string
	Slices      []UpdateRecRange
	TransferLog fsbroker.Handle
}

// UpdateContext is one batch of UpdateRequests qualified together and
// carried as a unit through commit and respond (spec §4.1).
type UpdateContext struct {
	ID     uint64
	Table  string
	Buffer []byte
	Ranges map[string]*UpdateRecRangeList
	// Errors maps a range id (or, for unresolvable rows, the row itself) to
	// the error qualification or commit encountered for it. Populated
	// per-range entries don't fail the whole context; blocked-range
	// redirection is not an error.
	Errors map[string]error
	Resp   comm.ResponseCallback
}

// rawBatch is what Submit hands to the qualify stage before ranges have
// been resolved.
type rawBatch struct {
	id       uint64
	table    string
	requests []UpdateRequest
	resp     comm.ResponseCallback
}
