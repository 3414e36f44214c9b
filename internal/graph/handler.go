// Package graph is the GraphQL surface of the board.
//
// FIELD RESOLUTION PIPELINE:
// Every query and mutation field is a Handler. The Pipeline runs each one
// through the same states:
//
//	Bind → CacheCheck → Validating → Resolving → Caching → Done
//
//  1. Bind: decode the raw GraphQL arguments into the handler's typed args
//     and run the structural rules (bind.go).
//  2. CacheCheck: fields with a CacheExpiry look up a cached result first.
//     A hit ends the resolution.
//  3. Validating: anonymous callers of RequireUser fields get the
//     authentication error, before anything else. Then a failed Bind is
//     reported. Then Authorize runs the ownership checks.
//  4. Resolving: the business logic, in the field's own transaction, which
//     is committed when Resolve succeeds.
//  5. Caching: the result is written back in the background.
//
// Rejections (validation and authorization failures) are data: the field
// returns a MutationResult listing them. Anything else is a fault and fails
// the whole request with a 500.
package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/graphql-go/graphql"
)

// Handler implements one GraphQL field.
//
// A is the field's typed arguments, R its result. Bind must return an
// *apperror.ValidationError for input the client got wrong; Authorize
// returns one to reject the request. Both run before Resolve, which may then
// assume the request is acceptable.
type Handler[A, R any] interface {
	Bind(raw map[string]any) (A, error)
	Authorize(ctx context.Context, s *Scope, args A) error
	Resolve(ctx context.Context, s *Scope, args A) (R, error)
}

// FieldOptions registers a handler under a GraphQL field.
type FieldOptions struct {
	Name        string
	Description string
	Mutation    bool
	Type        graphql.Output
	Args        graphql.FieldConfigArgument

	// CacheExpiry > 0 caches results for that long, keyed by arguments and
	// requested subfields. Only for fields that answer the same for every
	// caller.
	CacheExpiry time.Duration
	// RequireUser answers anonymous callers with the authentication error.
	RequireUser bool
}

// entry is a registered handler with its type parameters erased.
type entry struct {
	opts      FieldOptions
	bind      func(raw map[string]any) (any, error)
	authorize func(ctx context.Context, s *Scope, args any) error
	resolve   func(ctx context.Context, s *Scope, args any) (any, error)
	decode    func(raw []byte) (any, error)
}

// Registry maps field names to handlers.
type Registry struct {
	entries map[string]*entry
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

// Register adds h under opts.Name. It panics on duplicate names, which can
// only be a programming error.
func Register[A, R any](reg *Registry, opts FieldOptions, h Handler[A, R]) {
	if _, dup := reg.entries[opts.Name]; dup {
		panic(fmt.Sprintf("graph: field %q registered twice", opts.Name))
	}

	reg.entries[opts.Name] = &entry{
		opts: opts,
		bind: func(raw map[string]any) (any, error) {
			return h.Bind(raw)
		},
		authorize: func(ctx context.Context, s *Scope, args any) error {
			return h.Authorize(ctx, s, args.(A))
		},
		resolve: func(ctx context.Context, s *Scope, args any) (any, error) {
			return h.Resolve(ctx, s, args.(A))
		},
		decode: func(raw []byte) (any, error) {
			var r R
			if err := json.Unmarshal(raw, &r); err != nil {
				return nil, err
			}
			return r, nil
		},
	}
}

// sorted returns the entries in name order, for a stable schema.
func (reg *Registry) sorted() []*entry {
	out := make([]*entry, 0, len(reg.entries))
	for _, e := range reg.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].opts.Name < out[j].opts.Name })
	return out
}
