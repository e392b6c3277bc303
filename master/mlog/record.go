// Package mlog implements the master's persistent operation log (the "MML",
// spec §4.1/§6): a durable, append-only journal of Operation state snapshots
// and tombstones, replayed at master startup to recover the live operation
// set. Concrete backends: a Cassandra-backed log (cassandra_log.go) and an
// in-memory fake for tests (memlog.go).
package mlog

import (
	"encoding/binary"

	"github.com/rangedb/htcore/corelib"
	"github.com/rangedb/htcore/master/ops"
)

// recordFlags bit layout within the MML fixed header (spec §6).
const flagTombstone uint8 = 0x01

// encodingVersion is every kind's current MML payload version; bumped
// whenever a payload's wire layout changes.
const encodingVersion uint16 = 1

// record is the fixed header plus payload for one MML entry (spec §6):
// {entity-type: u16, version: u16, length: u32, id: u64, flags: u8}.
type record struct {
	EntityType uint16
	Version    uint16
	ID         uint64
	Flags      uint8
	Payload    []byte
}

// encodeRecord serializes op as a snapshot record.
func encodeRecord(op *ops.Operation) (record, error) {
	payload, err := ops.EncodePayload(op)
	if err != nil {
		return record{}, err
	}
	return record{
		EntityType: uint16(op.Kind),
		Version:    encodingVersion,
		ID:         op.ID,
		Flags:      0,
		Payload:    payload,
	}, nil
}

// encodeTombstone serializes a tombstone record for id.
func encodeTombstone(id uint64) record {
	return record{ID: id, Flags: flagTombstone}
}

// marshalBytes renders r into the flat on-disk/on-wire layout (the Cassandra
// backend stores the same fields as separate columns and does not call it).
func marshalBytes(r record) []byte {
	out := make([]byte, 2+2+4+8+1+len(r.Payload))
	binary.BigEndian.PutUint16(out[0:2], r.EntityType)
	binary.BigEndian.PutUint16(out[2:4], r.Version)
	binary.BigEndian.PutUint32(out[4:8], uint32(len(r.Payload)))
	binary.BigEndian.PutUint64(out[8:16], r.ID)
	out[16] = r.Flags
	copy(out[17:], r.Payload)
	return out
}

// unmarshalBytes parses the layout marshalBytes produces. A short header or a
// truncated trailing record (fewer bytes than the declared length) returns
// (record{}, false, nil) per spec §4.1's "partial trailing record is
// truncated" rule; the error result is always nil.
func unmarshalBytes(b []byte) (record, bool, error) {
	const headerLen = 17
	if len(b) < headerLen {
		return record{}, false, nil
	}
	r := record{
		EntityType: binary.BigEndian.Uint16(b[0:2]),
		Version:    binary.BigEndian.Uint16(b[2:4]),
		ID:         binary.BigEndian.Uint64(b[8:16]),
		Flags:      b[16],
	}
	length := binary.BigEndian.Uint32(b[4:8])
	if len(b)-headerLen < int(length) {
		return record{}, false, nil
	}
	r.Payload = b[headerLen : headerLen+int(length)]
	return r, true, nil
}

func (r record) isTombstone() bool { return r.Flags&flagTombstone != 0 }

// decodeOperation reconstructs an Operation from a non-tombstone record.
func decodeOperation(r record) (*ops.Operation, error) {
	op, err := ops.DecodePayload(r.ID, ops.Kind(r.EntityType), r.Payload)
	if err != nil {
		return nil, corelib.Wrap(corelib.External, "decode mml record", err)
	}
	return op, nil
}
