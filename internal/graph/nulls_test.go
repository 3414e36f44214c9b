package graph

import (
	"testing"

	"github.com/graphql-go/graphql/language/ast"
	"github.com/graphql-go/graphql/language/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func firstField(t *testing.T, query string) []*ast.Field {
	t.Helper()
	doc, err := parser.Parse(parser.ParseParams{Source: query})
	require.NoError(t, err)
	op := doc.Definitions[0].(*ast.OperationDefinition)
	return []*ast.Field{op.SelectionSet.Selections[0].(*ast.Field)}
}

func TestRestoreNulls_FromVariables(t *testing.T) {
	fields := firstField(t, `mutation($link: LinkInput!) { saveLink(link: $link) { errors { msg } } }`)
	raw := map[string]any{"link": map[string]any{"title": "Go"}}
	variables := map[string]any{"link": map[string]any{"title": "Go", "linkGroupId": nil}}

	got := restoreNulls(raw, fields, variables)

	assert.Equal(t, map[string]any{"link": map[string]any{"title": "Go", "linkGroupId": nil}}, got)
	// The coerced arguments are left alone.
	assert.Equal(t, map[string]any{"link": map[string]any{"title": "Go"}}, raw)
}

func TestRestoreNulls_NothingToRestore(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		raw       map[string]any
		variables map[string]any
	}{
		{
			name:  "literal without nulls",
			query: `mutation { saveLink(link: {title: "Go"}) { errors { msg } } }`,
			raw:   map[string]any{"link": map[string]any{"title": "Go"}},
		},
		{
			name:      "variable without nulls",
			query:     `mutation($link: LinkInput!) { saveLink(link: $link) { errors { msg } } }`,
			raw:       map[string]any{"link": map[string]any{"title": "Go"}},
			variables: map[string]any{"link": map[string]any{"title": "Go"}},
		},
		{
			name:  "scalar argument",
			query: `mutation { deleteLink(id: 3) { errors { msg } } }`,
			raw:   map[string]any{"id": 3},
		},
		{
			name:  "no arguments",
			query: `{ sections { id } }`,
			raw:   map[string]any{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := restoreNulls(tt.raw, firstField(t, tt.query), tt.variables)
			assert.Equal(t, tt.raw, got)
		})
	}
}
