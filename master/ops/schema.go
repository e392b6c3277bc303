package ops

import (
	"strings"

	"github.com/rangedb/htcore/corelib"
)

// ColumnFamily is the subset of Hypertable schema attributes AlterTable's
// validator (§4.4) needs to reason about permitted mutations.
type ColumnFamily struct {
	Name        string
	Deleted     bool
	Modified    bool
	TimeOrder   bool // true => descending time order
	Counter     bool
	MaxVersions int
	TTLSeconds  int64
}

// Schema is a minimal in-memory model of a table's Hypertable schema: a
// generation number plus its column families, parsed from the vstr "schema"
// field carried in MML payloads in the line format ParseSchema documents;
// nothing serializes a Schema back to that format (schema XML parsing itself
// is an explicit spec Non-goal).
type Schema struct {
	Generation int
	Families   map[string]*ColumnFamily
}

// ParseSchema decodes the compact line format this core uses in place of the
// real Hypertable schema XML (schema parsing is an explicit Non-goal; spec §1).
// Format: "generation=<n>;family=<name>,deleted=<0|1>,time_order=<0|1>,counter=<0|1>,max_versions=<n>,ttl=<n>;..."
func ParseSchema(s string) (*Schema, error) {
	sc := &Schema{Families: make(map[string]*ColumnFamily)}
	parts := strings.Split(s, ";")
	if len(parts) == 0 {
		return nil, corelib.New(corelib.BadSchema, "empty schema")
	}
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if strings.HasPrefix(part, "generation=") {
			n := 0
			for _, c := range strings.TrimPrefix(part, "generation=") {
				if c < '0' || c > '9' {
					return nil, corelib.New(corelib.BadSchema, "bad generation in schema")
				}
				n = n*10 + int(c-'0')
			}
			sc.Generation = n
			continue
		}
		if strings.HasPrefix(part, "family=") {
			cf, err := parseFamily(strings.TrimPrefix(part, "family="))
			if err != nil {
				return nil, err
			}
			sc.Families[cf.Name] = cf
			continue
		}
	}
	if sc.Generation == 0 {
		return nil, corelib.New(corelib.BadSchema, "schema missing generation")
	}
	return sc, nil
}

func parseFamily(s string) (*ColumnFamily, error) {
	fields := strings.Split(s, ",")
	if len(fields) == 0 {
		return nil, corelib.New(corelib.BadSchema, "empty family spec")
	}
	cf := &ColumnFamily{Name: fields[0]}
	for _, kv := range fields[1:] {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		switch k {
		case "deleted":
			cf.Deleted = v == "1"
		case "modified":
			cf.Modified = v == "1"
		case "time_order":
			cf.TimeOrder = v == "1"
		case "counter":
			cf.Counter = v == "1"
		case "max_versions":
			cf.MaxVersions = atoiSafe(v)
		case "ttl":
			cf.TTLSeconds = int64(atoiSafe(v))
		}
	}
	return cf, nil
}

func atoiSafe(s string) int {
	n := 0
	neg := false
	for i, c := range s {
		if i == 0 && c == '-' {
			neg = true
			continue
		}
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + int(c-'0')
	}
	if neg {
		n = -n
	}
	return n
}
