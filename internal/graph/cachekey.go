package graph

import (
	"encoding/base64"
	"encoding/json"
	"slices"
	"sort"
	"strings"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"
)

// CacheKey identifies a cached field result:
//
//	{field}-{leaf paths, sorted, comma separated}[_{base64(args JSON)}]
//
// e.g. "earthPornImages-id,thumbnailUrl,url". Queries selecting different
// subfields of the same field get separate entries. encoding/json writes map
// keys in sorted order, so argument order never changes the key.
func CacheKey(field string, paths []string, args map[string]any) string {
	sorted := append([]string(nil), paths...)
	sort.Strings(sorted)
	sorted = slices.Compact(sorted)

	key := field + "-" + strings.Join(sorted, ",")
	if len(args) > 0 {
		raw, err := json.Marshal(args)
		if err == nil {
			key += "_" + base64.StdEncoding.EncodeToString(raw)
		}
	}
	return key
}

// requestedPaths lists the dotted leaf paths selected under the field being
// resolved, relative to it: { id image { url } } gives ["id", "image.url"].
// Aliases are ignored; fragments are expanded.
func requestedPaths(info graphql.ResolveInfo) []string {
	if len(info.FieldASTs) == 0 {
		return nil
	}
	var paths []string
	collectPaths(info.FieldASTs[0].SelectionSet, "", info.Fragments, &paths)
	return paths
}

func collectPaths(set *ast.SelectionSet, prefix string, fragments map[string]ast.Definition, out *[]string) {
	if set == nil {
		return
	}
	for _, sel := range set.Selections {
		switch s := sel.(type) {
		case *ast.Field:
			name := s.Name.Value
			if strings.HasPrefix(name, "__") {
				continue
			}
			if s.SelectionSet != nil && len(s.SelectionSet.Selections) > 0 {
				collectPaths(s.SelectionSet, prefix+name+".", fragments, out)
				continue
			}
			*out = append(*out, prefix+name)
		case *ast.InlineFragment:
			collectPaths(s.SelectionSet, prefix, fragments, out)
		case *ast.FragmentSpread:
			if def, ok := fragments[s.Name.Value].(*ast.FragmentDefinition); ok {
				collectPaths(def.SelectionSet, prefix, fragments, out)
			}
		}
	}
}
