// Package comm defines the RPC transport surface the range-server pipeline
// and master dispatch against. The reactor/framing layer itself is an
// out-of-scope external collaborator; this package carries only the request
// header shape and a Dispatcher contract a response callback fulfills
// through.
package comm

import (
	"context"
	"time"
)

// Header is the fixed fields carried by every inbound RPC message (spec §6
// "RPC events"). The serialization key GroupID derives from the connection's
// file descriptor and the request's gid so a single logical sender's calls
// are processed in order even when interleaved with other senders on the
// same connection.
type Header struct {
	Command   int32
	GID       uint32
	ID        uint32
	TimeoutMs uint32
	Flags     uint32
	FD        int64
}

// GroupID packs fd and gid into the serialization key the range server's
// qualify stage routes on: group_id = (fd << 32) | gid.
func (h Header) GroupID() uint64 {
	return (uint64(h.FD) << 32) | uint64(h.GID)
}

// Deadline converts the header's TimeoutMs into an absolute deadline from now,
// matching Operation.ExpirationTime's use of a request's TimeoutMs.
func (h Header) Deadline(now time.Time) time.Time {
	return now.Add(time.Duration(h.TimeoutMs) * time.Millisecond)
}

// ResponseCallback is the handle the respond stage uses to acknowledge a
// request back to its originating client connection.
type ResponseCallback interface {
	// Respond sends a success reply carrying payload.
	Respond(ctx context.Context, payload []byte) error
	// Error sends a failure reply carrying the given error kind code and message.
	Error(ctx context.Context, code int32, message string) error
}

// Dispatcher is the subset of the comm reactor the master and range server
// depend on: sending a request to a peer and waiting on its eventual reply or
// timeout (spec §6 "wait_for_completion(deadline)").
type Dispatcher interface {
	// Send transmits payload to the peer identified by addr under header h,
	// returning a Pending handle to await the reply.
	Send(ctx context.Context, addr string, h Header, payload []byte) (Pending, error)
}

// Pending represents an in-flight RPC awaiting its reply.
type Pending interface {
	// WaitForCompletion blocks until the reply arrives or deadline passes,
	// returning false on timeout. Callers treat a timeout the same as a
	// transient per-server error and retry through the owning operation's
	// state-reset loop.
	WaitForCompletion(deadline time.Time) (reply []byte, ok bool, err error)
}
