package update

import "github.com/rangedb/htcore/master/ops"

// TransformKey applies the qualify stage's transform_key step (spec §4.1):
// for column families marked descending time-order, the revision bits are
// inverted so a cell store's natural ascending byte-order sort still yields
// descending-time semantics on disk. schema may be nil, e.g. for a table
// whose schema hasn't loaded yet, in which case the key passes through
// unchanged.
func TransformKey(k Key, schema *ops.Schema) Key {
	if schema == nil {
		return k
	}
	cf, ok := schema.Families[k.Family]
	if !ok || !cf.TimeOrder {
		return k
	}
	out := k
	out.Revision = int64(^uint64(k.Revision))
	return out
}
