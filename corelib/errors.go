package corelib

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorKind enumerates the error taxonomy of spec §7. It identifies the
// *category* of failure, not a specific Go type, so that a completed-with-error
// Operation can surface one of these codes to the client regardless of which
// internal collaborator raised it.
type ErrorKind int

const (
	Unknown ErrorKind = iota
	TableNotFound
	BadSchema
	SchemaGenerationMismatch
	SyntaxError
	InvalidOperation
	UnsupportedOperation
	HyperspaceNotFound
	HyperspaceBadPath
	TimestampOrderError
	BlockCompressorBadHeader
	BlockCompressorChecksumMismatch
	TooManyColumns
	External
	CommandParseError
)

func (k ErrorKind) String() string {
	switch k {
	case TableNotFound:
		return "TableNotFound"
	case BadSchema:
		return "BadSchema"
	case SchemaGenerationMismatch:
		return "SchemaGenerationMismatch"
	case SyntaxError:
		return "SyntaxError"
	case InvalidOperation:
		return "InvalidOperation"
	case UnsupportedOperation:
		return "UnsupportedOperation"
	case HyperspaceNotFound:
		return "HyperspaceNotFound"
	case HyperspaceBadPath:
		return "HyperspaceBadPath"
	case TimestampOrderError:
		return "TimestampOrderError"
	case BlockCompressorBadHeader:
		return "BlockCompressorBadHeader"
	case BlockCompressorChecksumMismatch:
		return "BlockCompressorChecksumMismatch"
	case TooManyColumns:
		return "TooManyColumns"
	case External:
		return "External"
	case CommandParseError:
		return "CommandParseError"
	default:
		return "Unknown"
	}
}

// Error is the error type propagated out of every operation and pipeline
// stage. Err, when set, is wrapped with github.com/pkg/errors at the point of
// origin so a stack trace survives across goroutine boundaries (MML I/O,
// Cassandra/Redis round-trips).
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds a Kind-tagged error with a message, no wrapped cause.
func New(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap attaches kind/message to cause, wrapping cause with a pkg/errors stack
// trace captured at this call.
func Wrap(kind ErrorKind, message string, cause error) *Error {
	if cause == nil {
		return New(kind, message)
	}
	return &Error{Kind: kind, Message: message, Err: errors.WithStack(cause)}
}

// KindOf extracts the ErrorKind from err, defaulting to External for any
// error that did not originate as a corelib.Error (e.g. it surfaced from a
// named external collaborator such as Hyperspace or the FS broker).
func KindOf(err error) ErrorKind {
	if err == nil {
		return Unknown
	}
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return External
}

// IsTransient reports whether err is one of the transient RPC failure
// classes absorbed by an operation's retry-via-state-reset loop (spec §7.i):
// timeout, connection reset, or the server already having forgotten the
// table (TABLE_NOT_FOUND, treated as success by DropTable's tie-break rule).
func IsTransient(err error) bool {
	switch KindOf(err) {
	case TableNotFound:
		return true
	default:
		return ShouldRetry(err)
	}
}
