package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/graphql-go/graphql"

	"github.com/sakif/linkboard/internal/apperror"
	"github.com/sakif/linkboard/internal/auth"
	"github.com/sakif/linkboard/internal/graph"
)

// maxGraphQLBody caps POST bodies. Board mutations are small; the largest
// legitimate payload is a favicon data URL.
const maxGraphQLBody = 1 << 20

// Executor runs GraphQL requests. *graph.Engine implements it.
type Executor interface {
	Execute(ctx context.Context, identity *auth.Identity, req graph.Request) (*graphql.Result, error)
}

// GraphQLHandler serves /api/graphql.
//
// HTTP CONTRACT:
//   - 200 with the GraphQL result for everything GraphQL can express:
//     data, syntax errors, and rejected mutations (their errors list).
//   - 400 when the body is not a GraphQL request at all.
//   - 500 {"error":"internal_error"} when a field hit an infrastructure
//     fault. The partial result is dropped so clients never act on it.
type GraphQLHandler struct {
	exec   Executor
	logger *slog.Logger
}

func NewGraphQLHandler(exec Executor, logger *slog.Logger) *GraphQLHandler {
	return &GraphQLHandler{exec: exec, logger: logger}
}

// HandleGraphQL answers GET ?query=...&variables=... and POST JSON bodies.
func (h *GraphQLHandler) HandleGraphQL(w http.ResponseWriter, r *http.Request) {
	req, err := decodeGraphQLRequest(w, r)
	if err != nil {
		writeError(w, err)
		return
	}

	var identity *auth.Identity
	if id, ok := auth.IdentityFromContext(r.Context()); ok {
		identity = &id
	}

	result, err := h.exec.Execute(r.Context(), identity, req)
	if err != nil {
		h.logger.Error("graphql request failed",
			slog.String("operation", req.OperationName),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func decodeGraphQLRequest(w http.ResponseWriter, r *http.Request) (graph.Request, error) {
	var req graph.Request

	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		req.Query = q.Get("query")
		req.OperationName = q.Get("operationName")
		if vars := q.Get("variables"); vars != "" {
			if err := json.Unmarshal([]byte(vars), &req.Variables); err != nil {
				return req, apperror.ValidationFailed("variables", "variables must be a JSON object")
			}
		}
	default:
		r.Body = http.MaxBytesReader(w, r.Body, maxGraphQLBody)
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return req, apperror.ValidationFailed("body", "invalid GraphQL request body")
		}
	}

	if req.Query == "" {
		return req, apperror.ValidationFailed("query", "query is required")
	}
	return req, nil
}
