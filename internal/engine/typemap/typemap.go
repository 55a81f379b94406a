// Package typemap rewrites type references in an assembled module through a
// mapping table loaded from a `.tym` TOML file.
package typemap

import (
	"ssd/internal/engine/ast"
)

// Mapping maps canonical "::"-joined type names to their replacements.
type Mapping map[string]string

// Rewrite returns a copy of m with every mapped type reference replaced:
// data properties, function arguments and return types, event arguments.
// List modifiers, attributes and comments are kept. Declaration names,
// dependencies and enum variants are never touched. A nil or empty mapping
// returns m unchanged.
func Rewrite(m ast.Module, mapping Mapping) ast.Module {
	if len(mapping) == 0 {
		return m
	}
	out := m.Clone()
	for i := range out.DataTypes {
		rewriteAll(out.DataTypes[i].Value.Properties, mapping)
	}
	for i := range out.Services {
		svc := &out.Services[i].Value
		for j := range svc.Functions {
			fn := &svc.Functions[j].Value
			rewriteAll(fn.Arguments, mapping)
			if fn.ReturnType != nil {
				rewriteOne(fn.ReturnType, mapping)
			}
		}
		for j := range svc.Events {
			rewriteAll(svc.Events[j].Value.Arguments, mapping)
		}
	}
	return out
}

func rewriteAll(types ast.OrderedMap[ast.TypeName], mapping Mapping) {
	for i := range types {
		rewriteOne(&types[i].Value, mapping)
	}
}

func rewriteOne(t *ast.TypeName, mapping Mapping) {
	if to, ok := mapping[t.Typ.String()]; ok {
		t.Typ = ast.NewNamespace(to)
	}
}
