package graph

import (
	"context"
	"fmt"
	"sync"

	"github.com/sakif/linkboard/internal/auth"
	"github.com/sakif/linkboard/internal/repository"
)

// requestState is shared by every field of one GraphQL request.
type requestState struct {
	identity      auth.Identity
	authenticated bool
	session       repository.Session
	// variables are the request's variables as the client sent them.
	variables map[string]any

	// mu serializes field resolutions: they share one store connection.
	mu    sync.Mutex
	fault error
}

type stateKey struct{}

func withState(ctx context.Context, st *requestState) context.Context {
	return context.WithValue(ctx, stateKey{}, st)
}

func stateFrom(ctx context.Context) (*requestState, bool) {
	st, ok := ctx.Value(stateKey{}).(*requestState)
	return st, ok
}

// recordFault keeps the first infrastructure failure of the request.
// Caller holds st.mu.
func (st *requestState) recordFault(err error) {
	if st.fault == nil {
		st.fault = err
	}
}

// Scope is what a field handler sees of its request: the caller and one
// transaction on the request's store session.
//
// The transaction is begun on first use, so fields that never touch the
// store (ping, version, cache hits) never take a connection.
type Scope struct {
	identity      auth.Identity
	authenticated bool
	session       repository.Session
	tx            repository.Tx
}

func newScope(st *requestState) *Scope {
	return &Scope{
		identity:      st.identity,
		authenticated: st.authenticated,
		session:       st.session,
	}
}

// Identity returns the caller, or false for anonymous requests.
func (s *Scope) Identity() (auth.Identity, bool) {
	return s.identity, s.authenticated
}

// Authenticated reports whether the request carries a valid session.
func (s *Scope) Authenticated() bool {
	return s.authenticated
}

// UserID is the caller's id, 0 when anonymous.
func (s *Scope) UserID() int64 {
	if !s.authenticated {
		return 0
	}
	return s.identity.UserID
}

// Tx returns the field's transaction, beginning it on first call.
func (s *Scope) Tx(ctx context.Context) (repository.Tx, error) {
	if s.tx != nil {
		return s.tx, nil
	}
	tx, err := s.session.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("graph: beginning transaction: %w", err)
	}
	s.tx = tx
	return tx, nil
}

func (s *Scope) commit() error {
	if s.tx == nil {
		return nil
	}
	tx := s.tx
	s.tx = nil
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("graph: committing: %w", err)
	}
	return nil
}

// rollback ends an open transaction. It is a no-op after commit.
func (s *Scope) rollback() {
	if s.tx == nil {
		return
	}
	_ = s.tx.Rollback()
	s.tx = nil
}
