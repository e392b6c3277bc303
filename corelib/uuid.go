// Package corelib provides the small set of cross-cutting primitives (ids, error
// kinds, retry/sleep helpers, a bounded task runner) shared by the master and
// range-server packages.
package corelib

import (
	"bytes"
	"time"

	"github.com/google/uuid"
)

// UUID is a thin wrapper over github.com/google/uuid.UUID, used as the
// Reference Manager's hash-code key and for transfer-log handle ids.
type UUID uuid.UUID

// NilUUID is the zero-value UUID.
var NilUUID UUID

// NewUUID returns a new randomly generated UUID, retrying briefly on the
// (practically unreachable) error path rather than ever surfacing it to callers.
func NewUUID() UUID {
	var err error
	for i := 0; i < 10; i++ {
		var id uuid.UUID
		id, err = uuid.NewRandom()
		if err == nil {
			return UUID(id)
		}
		time.Sleep(time.Millisecond)
	}
	panic(err)
}

// ParseUUID parses a canonical UUID string.
func ParseUUID(s string) (UUID, error) {
	u, err := uuid.Parse(s)
	return UUID(u), err
}

// IsNil reports whether id is the zero-value UUID.
func (id UUID) IsNil() bool {
	return bytes.Equal(id[:], NilUUID[:])
}

// String returns the canonical string representation of id.
func (id UUID) String() string {
	return uuid.UUID(id).String()
}

// HashCode reduces id to the 64-bit key used by the Reference Manager (§9:
// "every other reference is a copy of the hash-code, a weak index").
func (id UUID) HashCode() uint64 {
	b := id[:]
	var h uint64
	for i := 0; i < 8; i++ {
		h = h<<8 | uint64(b[i])
	}
	for i := 8; i < 16; i++ {
		h ^= uint64(b[i]) << (8 * uint(i-8))
	}
	return h
}
