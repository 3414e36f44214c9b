package graph

import (
	"maps"

	"github.com/graphql-go/graphql/language/ast"
)

// restoreNulls puts back the input object keys a client sent as null.
//
// WHY IS THIS NEEDED?
// graphql-go drops null fields while coercing input objects, so in
// ResolveParams.Args an omitted key and an explicit null look the same.
// Partial updates need the difference: null clears a column, omission
// keeps the stored value. The keys are recovered from the field's argument
// literals, or from the raw variables when the argument is a variable.
//
// Only the first level of each object argument is restored; that is where
// every nullable input field of the board lives.
func restoreNulls(raw map[string]any, fields []*ast.Field, variables map[string]any) map[string]any {
	if len(fields) == 0 {
		return raw
	}

	var out map[string]any
	for _, arg := range fields[0].Arguments {
		if arg == nil || arg.Name == nil {
			continue
		}
		name := arg.Name.Value
		obj, ok := raw[name].(map[string]any)
		if !ok {
			continue
		}

		var restored map[string]any
		for _, key := range nullKeys(arg.Value, variables) {
			if _, set := obj[key]; set {
				continue
			}
			if restored == nil {
				restored = maps.Clone(obj)
			}
			restored[key] = nil
		}
		if restored == nil {
			continue
		}

		if out == nil {
			out = maps.Clone(raw)
		}
		out[name] = restored
	}

	if out == nil {
		return raw
	}
	return out
}

// nullKeys lists the keys of an object value that are null.
func nullKeys(v ast.Value, variables map[string]any) []string {
	var keys []string
	switch v := v.(type) {
	case *ast.ObjectValue:
		for _, f := range v.Fields {
			if f == nil || f.Name == nil || f.Value == nil {
				continue
			}
			if f.Value.GetKind() == "NullValue" {
				keys = append(keys, f.Name.Value)
			}
		}
	case *ast.Variable:
		if v.Name == nil {
			return nil
		}
		obj, _ := variables[v.Name.Value].(map[string]any)
		for key, value := range obj {
			if value == nil {
				keys = append(keys, key)
			}
		}
	}
	return keys
}
