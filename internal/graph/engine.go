package graph

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/graphql-go/graphql"

	"github.com/sakif/linkboard/internal/auth"
	"github.com/sakif/linkboard/internal/repository"
)

// Request is a GraphQL request as posted by clients.
type Request struct {
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables"`
	OperationName string         `json:"operationName"`
}

// Engine executes GraphQL requests against the board schema.
type Engine struct {
	schema   graphql.Schema
	store    repository.Store
	pipeline *Pipeline
	logger   *slog.Logger
}

// NewEngine builds the schema for reg. Fields resolve through pipeline and
// open their transactions on sessions of store.
func NewEngine(reg *Registry, pipeline *Pipeline, store repository.Store, logger *slog.Logger) (*Engine, error) {
	schema, err := NewSchema(reg, pipeline)
	if err != nil {
		return nil, err
	}
	return &Engine{
		schema:   schema,
		store:    store,
		pipeline: pipeline,
		logger:   logger,
	}, nil
}

// Execute runs req for identity (nil for anonymous callers).
//
// PER-REQUEST SESSION:
// One store session is opened per request and closed when Execute returns.
// Every field runs its own transaction on it, so a failing mutation never
// undoes the mutations before it.
//
// A non-nil error means a field hit an infrastructure fault; the result must
// then be discarded and the request answered with a server error. Rejections
// and GraphQL syntax errors are part of the result, not errors.
func (e *Engine) Execute(ctx context.Context, identity *auth.Identity, req Request) (*graphql.Result, error) {
	session := e.store.NewSession()
	defer func() {
		if err := session.Close(); err != nil {
			e.logger.Warn("closing store session", slog.String("error", err.Error()))
		}
	}()

	st := &requestState{session: session, variables: req.Variables}
	if identity != nil && identity.UserID > 0 {
		st.identity = *identity
		st.authenticated = true
	}

	result := graphql.Do(graphql.Params{
		Schema:         e.schema,
		RequestString:  req.Query,
		VariableValues: req.Variables,
		OperationName:  req.OperationName,
		Context:        withState(ctx, st),
	})

	if st.fault != nil {
		return nil, fmt.Errorf("graph: executing %q: %w", req.OperationName, st.fault)
	}
	return result, nil
}
