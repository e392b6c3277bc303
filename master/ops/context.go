package ops

import (
	"time"

	"github.com/rangedb/htcore/comm"
	"github.com/rangedb/htcore/hyperspace"
)

// Context is the ambient handle every Operation's Execute transition reads
// and mutates shared master state through (spec §9 design note: "pass a
// single immutable Context handle by reference; every piece that requires
// mutation is a standalone actor protected by its own mutex").
type Context struct {
	Hyperspace  hyperspace.Service
	Dispatcher  comm.Dispatcher
	Tables      *TableRegistry
	Servers     *ServerRegistry
	Validator   *SchemaValidator
	GracePeriod time.Duration
	Now         func() time.Time

	// Snapshot is wired by the Operation Processor (master/processor) at
	// startup; Status reads through it rather than the processor reading
	// through ops, avoiding an import cycle (ops cannot depend on processor).
	Snapshot func() *StatusSnapshot

	// Obstructed is wired by the Operation Processor; RegisterServerBlocker
	// polls it to tell whether a Recover is still actively obstructing the
	// same location, rather than waiting on an external, timing-sensitive
	// Unblock call.
	Obstructed func(label string) bool
}

// NewContext builds a Context with a real SchemaValidator and time.Now.
func NewContext(hs hyperspace.Service, dispatcher comm.Dispatcher, gracePeriod time.Duration) (*Context, error) {
	v, err := NewSchemaValidator()
	if err != nil {
		return nil, err
	}
	return &Context{
		Hyperspace:  hs,
		Dispatcher:  dispatcher,
		Tables:      NewTableRegistry(),
		Servers:     NewServerRegistry(),
		Validator:   v,
		GracePeriod: gracePeriod,
		Now:         time.Now,
	}, nil
}
