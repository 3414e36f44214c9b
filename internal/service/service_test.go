package service

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sakif/linkboard/internal/apperror"
	"github.com/sakif/linkboard/internal/model"
	"github.com/sakif/linkboard/internal/repository"
	"github.com/sakif/linkboard/internal/repository/sqlstore"
)

// =========================================================================
// HELPERS
// =========================================================================
//
// WHY A REAL DATABASE?
// The rules here are mostly ownership joins and cascades, which live in SQL.
// A fake repository would have to re-implement those joins, and the test
// would then check the fake. An in-memory SQLite database is just as fast
// and runs the real statements.

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) *sqlstore.DB {
	t.Helper()
	db, err := sqlstore.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// inTx runs fn on a fresh session and commits when fn returns nil.
// Whatever fn returns is handed back so tests can assert on it.
func inTx(t *testing.T, store repository.Store, fn func(tx repository.Tx) error) error {
	t.Helper()
	ctx := context.Background()

	session := store.NewSession()
	defer session.Close()

	tx, err := session.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	require.NoError(t, tx.Commit())
	return nil
}

func mustTx(t *testing.T, store repository.Store, fn func(tx repository.Tx) error) {
	t.Helper()
	require.NoError(t, inTx(t, store, fn))
}

func seedUser(t *testing.T, store repository.Store, sub string) int64 {
	t.Helper()
	u := &model.User{UserInfo: model.UserInfo{Sub: sub}}
	mustTx(t, store, func(tx repository.Tx) error {
		return tx.UpsertUser(context.Background(), u)
	})
	return u.ID
}

func seedSection(t *testing.T, store repository.Store, userID int64, name string, rank int) int64 {
	t.Helper()
	s := &model.Section{Name: name, UserID: userID, Rank: rank}
	mustTx(t, store, func(tx repository.Tx) error {
		return tx.CreateSection(context.Background(), s)
	})
	return s.ID
}

func seedLink(t *testing.T, store repository.Store, l model.Link) int64 {
	t.Helper()
	if l.Title == "" {
		l.Title = "link"
	}
	if l.Type == "" {
		l.Type = model.LinkTypeSingle
		if l.URL == nil {
			l.URL = strPtr("https://example.com")
		}
	}
	mustTx(t, store, func(tx repository.Tx) error {
		return tx.CreateLink(context.Background(), &l)
	})
	return l.ID
}

func loadLink(t *testing.T, store repository.Store, id int64) *model.Link {
	t.Helper()
	var link *model.Link
	mustTx(t, store, func(tx repository.Tx) error {
		var err error
		link, err = tx.GetLink(context.Background(), id)
		return err
	})
	return link
}

// linkOwned reports whether the link still exists and belongs to userID.
func linkOwned(t *testing.T, store repository.Store, id, userID int64) bool {
	t.Helper()
	var n int
	mustTx(t, store, func(tx repository.Tx) error {
		var err error
		n, err = tx.CountOwnedLinks(context.Background(), id, userID)
		return err
	})
	return n == 1
}

// rejectionMsg asserts err is a validation rejection and returns its message.
func rejectionMsg(t *testing.T, err error) string {
	t.Helper()
	require.Error(t, err)
	verr, ok := apperror.AsValidation(err)
	require.True(t, ok, "expected a validation rejection, got %v", err)
	result, ok := verr.Result.(*apperror.MutationResult)
	require.True(t, ok)
	require.Len(t, result.Errors, 1)
	return result.Errors[0].Msg
}

func strPtr(s string) *string { return &s }
func idPtr(id int64) *int64    { return &id }
