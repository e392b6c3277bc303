package mlog

import (
	"context"
	"fmt"

	"github.com/gocql/gocql"

	"github.com/rangedb/htcore/corelib"
	"github.com/rangedb/htcore/master/ops"
)

// mmlConsistency mirrors the teacher's transaction log: the MML only needs
// enough consistency to survive a master failover, not strict linearizability
// across readers, since only one master ever replays it at a time.
const mmlConsistency = gocql.LocalQuorum

// CassandraLog is the production ops.Log backend, storing one row per
// operation id in a single wide table keyed by id with the latest record
// (snapshot or tombstone) winning on replay.
type CassandraLog struct {
	session  *gocql.Session
	keyspace string
}

// NewCassandraLog wraps an already-open session. The caller owns connection
// lifecycle (see cassandra.OpenConnection in the corpus for the pattern).
func NewCassandraLog(session *gocql.Session, keyspace string) *CassandraLog {
	return &CassandraLog{session: session, keyspace: keyspace}
}

func (l *CassandraLog) table() string {
	return fmt.Sprintf("%s.master_op_log", l.keyspace)
}

// RecordState upserts op's current snapshot.
func (l *CassandraLog) RecordState(ctx context.Context, op *ops.Operation) error {
	r, err := encodeRecord(op)
	if err != nil {
		return err
	}
	stmt := fmt.Sprintf("INSERT INTO %s (id, entity_type, version, flags, payload) VALUES (?,?,?,?,?);", l.table())
	q := l.session.Query(stmt, int64(r.ID), int32(r.EntityType), int32(r.Version), int32(r.Flags), r.Payload).
		WithContext(ctx).Consistency(mmlConsistency)
	if err := q.Exec(); err != nil {
		return corelib.Wrap(corelib.External, "mml record state", err)
	}
	return nil
}

// RecordBatch upserts every operation in one logged batch; the Cassandra
// backend issues them as a single gocql.LoggedBatch to keep replay
// all-or-nothing for operations that spawned sub-ops in the same tick.
func (l *CassandraLog) RecordBatch(ctx context.Context, batch []*ops.Operation) error {
	b := l.session.NewBatch(gocql.LoggedBatch).WithContext(ctx)
	stmt := fmt.Sprintf("INSERT INTO %s (id, entity_type, version, flags, payload) VALUES (?,?,?,?,?);", l.table())
	for _, op := range batch {
		r, err := encodeRecord(op)
		if err != nil {
			return err
		}
		b.Query(stmt, int64(r.ID), int32(r.EntityType), int32(r.Version), int32(r.Flags), r.Payload)
	}
	if err := l.session.ExecuteBatch(b); err != nil {
		return corelib.Wrap(corelib.External, "mml record batch", err)
	}
	return nil
}

// Tombstone marks id removed; replay skips tombstoned ids entirely rather
// than deleting the row, so a late-arriving stale write can never resurrect
// a removed operation.
func (l *CassandraLog) Tombstone(ctx context.Context, id uint64) error {
	r := encodeTombstone(id)
	stmt := fmt.Sprintf("INSERT INTO %s (id, entity_type, version, flags, payload) VALUES (?,?,?,?,?);", l.table())
	q := l.session.Query(stmt, int64(r.ID), int32(r.EntityType), int32(r.Version), int32(r.Flags), []byte{}).
		WithContext(ctx).Consistency(mmlConsistency)
	if err := q.Exec(); err != nil {
		return corelib.Wrap(corelib.External, "mml tombstone", err)
	}
	return nil
}

// Replay scans the full table and reconstructs the live operation set,
// dropping any id whose latest record is a tombstone.
func (l *CassandraLog) Replay(ctx context.Context) (map[uint64]*ops.Operation, error) {
	stmt := fmt.Sprintf("SELECT id, entity_type, version, flags, payload FROM %s;", l.table())
	iter := l.session.Query(stmt).WithContext(ctx).Consistency(mmlConsistency).Iter()

	live := make(map[uint64]*ops.Operation)
	var maxID uint64
	var id int64
	var entityType, version, flags int32
	var payload []byte
	for iter.Scan(&id, &entityType, &version, &flags, &payload) {
		r := record{
			EntityType: uint16(entityType),
			Version:    uint16(version),
			ID:         uint64(id),
			Flags:      uint8(flags),
			Payload:    payload,
		}
		if uint64(id) > maxID {
			maxID = uint64(id)
		}
		if r.isTombstone() {
			delete(live, r.ID)
			continue
		}
		op, err := decodeOperation(r)
		if err != nil {
			return nil, err
		}
		live[r.ID] = op
	}
	if err := iter.Close(); err != nil {
		return nil, corelib.Wrap(corelib.External, "mml replay scan", err)
	}
	ops.SeedOperationID(maxID)
	return live, nil
}
