package ops

import (
	"reflect"

	"github.com/google/cel-go/cel"

	"github.com/rangedb/htcore/corelib"
)

// SchemaValidator expresses AlterTable's permitted-column-mutation rule (spec
// §4.4) as a compiled CEL predicate, the same declarative-rule mechanism the
// teacher's cel.Evaluator applies to comparison predicates, generalized here
// to a per-family allow/deny check instead of a three-way comparator.
type SchemaValidator struct {
	program cel.Program
}

// familyChangeExpr disallows changing TIME_ORDER or COUNTER on an existing
// family and disallows un-deleting a family (spec §4.4 disallowed list);
// max_versions/ttl changes and families new to the schema fall outside this
// predicate, and Validate does not restrict them.
const familyChangeExpr = `oldFamily.time_order == newFamily.time_order && ` +
	`oldFamily.counter == newFamily.counter && ` +
	`(!oldFamily.deleted || newFamily.deleted)`

// NewSchemaValidator compiles the CEL program once; reuse the returned
// validator across AlterTable executions.
func NewSchemaValidator() (*SchemaValidator, error) {
	env, err := cel.NewEnv(
		cel.Variable("oldFamily", cel.MapType(cel.StringType, cel.AnyType)),
		cel.Variable("newFamily", cel.MapType(cel.StringType, cel.AnyType)),
	)
	if err != nil {
		return nil, corelib.Wrap(corelib.External, "cel env", err)
	}
	ast, issues := env.Compile(familyChangeExpr)
	if issues != nil && issues.Err() != nil {
		return nil, corelib.Wrap(corelib.External, "cel compile", issues.Err())
	}
	prog, err := env.Program(ast)
	if err != nil {
		return nil, corelib.Wrap(corelib.External, "cel program", err)
	}
	return &SchemaValidator{program: prog}, nil
}

func familyToMap(cf *ColumnFamily) map[string]any {
	return map[string]any{
		"time_order": cf.TimeOrder,
		"counter":    cf.Counter,
		"deleted":    cf.Deleted,
	}
}

// FamilyChangeAllowed evaluates the compiled predicate for one family's
// before/after state.
func (v *SchemaValidator) FamilyChangeAllowed(oldFamily, newFamily *ColumnFamily) (bool, error) {
	out, _, err := v.program.Eval(map[string]any{
		"oldFamily": familyToMap(oldFamily),
		"newFamily": familyToMap(newFamily),
	})
	if err != nil {
		return false, corelib.Wrap(corelib.External, "cel eval", err)
	}
	nv, err := out.ConvertToNative(reflect.TypeOf(false))
	if err != nil {
		return false, corelib.Wrap(corelib.External, "cel result conversion", err)
	}
	allowed, ok := nv.(bool)
	if !ok {
		return false, corelib.New(corelib.External, "cel predicate did not return bool")
	}
	return allowed, nil
}

// Validate checks newSchema against oldSchema per spec §4.4: the generation
// must advance by exactly one, and every family present in both schemas must
// pass FamilyChangeAllowed. A family deleted in oldSchema and not deleted in
// newSchema is rejected whether or not it is marked Modified; families absent
// from oldSchema are not checked.
func (v *SchemaValidator) Validate(oldSchema, newSchema *Schema) error {
	if newSchema.Generation != oldSchema.Generation+1 {
		return corelib.New(corelib.SchemaGenerationMismatch, "alter schema generation must be exactly one greater than current")
	}
	for name, newFamily := range newSchema.Families {
		oldFamily, existed := oldSchema.Families[name]
		if !existed {
			continue
		}
		if oldFamily.Deleted && !newFamily.Modified && !newFamily.Deleted {
			return corelib.New(corelib.UnsupportedOperation, "cannot re-add deleted family "+name+" without marking it modified")
		}
		allowed, err := v.FamilyChangeAllowed(oldFamily, newFamily)
		if err != nil {
			return err
		}
		if !allowed {
			return corelib.New(corelib.UnsupportedOperation, "disallowed change to family "+name+" (TIME_ORDER/COUNTER immutable, cannot undelete)")
		}
	}
	return nil
}
