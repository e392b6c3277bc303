package update

// RangeMap resolves a row to its owning range and reports whether that
// range currently redirects writes to its transfer log, e.g. mid-split
// (spec §4.1/§4.3). The real implementation backing this against the
// master's range metadata is out of scope; this core depends only on the
// contract.
type RangeMap interface {
	// Resolve returns the id of the range owning row within table.
	Resolve(table, row string) (rangeID string, ok bool)
	// Blocked reports whether rangeID is currently refusing direct commits.
	Blocked(rangeID string) bool
}
