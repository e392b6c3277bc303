package ops

import (
	"sync"

	"github.com/rangedb/htcore/corelib"
)

// TableEntry is the master's in-memory view of one table's identity and
// current schema, mutated by CreateTable/AlterTable/DropTable.
type TableEntry struct {
	Name                string
	ID                  string
	Schema              *Schema
	Location            string
	MaintenanceDisabled bool
}

// TableRegistry is the master's name map (table name -> id/schema), mutex
// protected, grounded on the teacher's cassandra/registry.go map-of-entries idiom.
type TableRegistry struct {
	mu     sync.RWMutex
	tables map[string]*TableEntry
	nextID int
}

func NewTableRegistry() *TableRegistry {
	return &TableRegistry{tables: make(map[string]*TableEntry)}
}

func (r *TableRegistry) NewTableID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	return corelib.NewUUID().String()[:8]
}

func (r *TableRegistry) Put(e *TableEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tables[e.Name] = e
}

func (r *TableRegistry) Get(name string) (*TableEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.tables[name]
	return e, ok
}

func (r *TableRegistry) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tables, name)
}

func (r *TableRegistry) List() []*TableEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*TableEntry, 0, len(r.tables))
	for _, e := range r.tables {
		out = append(out, e)
	}
	return out
}

// ServerRegistry tracks known range servers and which tables they host,
// consulted by DropTable/AlterTable's SCAN_METADATA transition and by the
// watcher (C6) on lock events.
type ServerRegistry struct {
	mu      sync.RWMutex
	servers map[string]string // location -> address
	// hosting maps table name -> set of server locations hosting it.
	hosting map[string]map[string]struct{}
	// registered tracks whether a RegisterServer completed for a location.
	registered map[string]bool
}

func NewServerRegistry() *ServerRegistry {
	return &ServerRegistry{
		servers:    make(map[string]string),
		hosting:    make(map[string]map[string]struct{}),
		registered: make(map[string]bool),
	}
}

func (s *ServerRegistry) Register(location, address string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.servers[location] = address
	s.registered[location] = true
}

func (s *ServerRegistry) Unregister(location string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registered[location] = false
}

func (s *ServerRegistry) IsRegistered(location string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registered[location]
}

func (s *ServerRegistry) Address(location string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.servers[location]
	return a, ok
}

// Locations returns every currently-registered server location.
func (s *ServerRegistry) Locations() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.registered))
	for loc, up := range s.registered {
		if up {
			out = append(out, loc)
		}
	}
	return out
}

func (s *ServerRegistry) AssignHosting(table, location string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.hosting[table]
	if !ok {
		set = make(map[string]struct{})
		s.hosting[table] = set
	}
	set[location] = struct{}{}
}

// HostsOf returns the set of server locations currently hosting table.
func (s *ServerRegistry) HostsOf(table string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set := s.hosting[table]
	out := make([]string, 0, len(set))
	for loc := range set {
		out = append(out, loc)
	}
	return out
}

func (s *ServerRegistry) ClearHosting(table string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.hosting, table)
}
