// Package sqlstore implements the repository interfaces on database/sql.
//
// TWO BACKENDS, ONE SET OF QUERIES:
// The same SQL runs on SQLite (modernc.org/sqlite, pure Go, the default for
// development and tests) and on PostgreSQL (lib/pq, for deployments). The
// queries are written with `?` placeholders and stick to syntax both engines
// share: INSERT ... RETURNING, ON CONFLICT ... DO UPDATE, plain joins.
// The only differences are the placeholder style (Postgres wants $1, $2, ...)
// and the DDL, both handled by dialect below.
//
// Which backend is used is decided by the database URL:
//
//	sqlite:data/linkboard.db    → SQLite file
//	:memory:                    → SQLite in memory (tests)
//	postgres://user:pw@host/db  → PostgreSQL
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	// Both drivers register themselves with database/sql at init time:
	// "postgres" from lib/pq and "sqlite" from modernc.org/sqlite.
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/sakif/linkboard/internal/repository"
)

var _ repository.Store = (*DB)(nil)

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

func (d dialect) String() string {
	if d == dialectPostgres {
		return "postgres"
	}
	return "sqlite"
}

// rebind rewrites `?` placeholders into `$n` for Postgres.
func (d dialect) rebind(query string) string {
	if d != dialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// DB wraps a sql.DB connection pool.
type DB struct {
	conn    *sql.DB
	dialect dialect
}

// New opens the database behind databaseURL and runs migrations.
func New(databaseURL string) (*DB, error) {
	d, driver, dsn, err := parseURL(databaseURL)
	if err != nil {
		return nil, err
	}

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: opening %s database: %w", d, err)
	}

	switch {
	case d == dialectSQLite && strings.HasPrefix(dsn, ":memory:"):
		// Every new connection to ":memory:" is a brand new, empty database.
		// One connection keeps the whole pool looking at the same data.
		conn.SetMaxOpenConns(1)
	case d == dialectPostgres:
		conn.SetMaxOpenConns(25)
		conn.SetMaxIdleConns(5)
		conn.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlstore: pinging %s database: %w", d, err)
	}

	db := &DB{conn: conn, dialect: d}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlstore: running migrations: %w", err)
	}

	return db, nil
}

// parseURL maps a database URL onto a dialect, a driver name and a DSN.
//
// SQLite pragmas are per connection, so they go into the DSN (modernc's
// _pragma parameters) where every pooled connection picks them up. Foreign
// keys matter here: the cascades on sections and links depend on them.
func parseURL(databaseURL string) (dialect, string, string, error) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return dialectPostgres, "postgres", databaseURL, nil

	case databaseURL == ":memory:":
		return dialectSQLite, "sqlite", ":memory:?_pragma=foreign_keys(1)", nil

	case strings.HasPrefix(databaseURL, "sqlite:"):
		path := strings.TrimPrefix(strings.TrimPrefix(databaseURL, "sqlite:"), "//")
		if path == "" {
			return 0, "", "", fmt.Errorf("sqlstore: empty sqlite path in %q", databaseURL)
		}
		if path == ":memory:" {
			return dialectSQLite, "sqlite", ":memory:?_pragma=foreign_keys(1)", nil
		}
		return dialectSQLite, "sqlite", path + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", nil

	default:
		return 0, "", "", fmt.Errorf("sqlstore: unsupported database url %q", databaseURL)
	}
}

// Ping checks that the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// NewSession returns a request-scoped session. No connection is taken from
// the pool until the first Begin.
func (db *DB) NewSession() repository.Session {
	return &Session{db: db}
}

// Session pins one pooled connection for the lifetime of a request.
type Session struct {
	db   *DB
	conn *sql.Conn
}

// Begin starts a transaction on the session's connection.
//
// The transaction is bound to ctx: if the request is cancelled before Commit,
// database/sql rolls it back.
func (s *Session) Begin(ctx context.Context) (repository.Tx, error) {
	if s.conn == nil {
		conn, err := s.db.conn.Conn(ctx)
		if err != nil {
			return nil, fmt.Errorf("sqlstore: acquiring connection: %w", err)
		}
		s.conn = conn
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: beginning transaction: %w", err)
	}

	return &Tx{tx: tx, dialect: s.db.dialect}, nil
}

// Close returns the connection to the pool. Any transaction begun on the
// session must be committed or rolled back first.
func (s *Session) Close() error {
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

// Tx is a transaction plus the dialect its queries must be written in.
//
// *sql.Tx serialises concurrent statements on its connection, so the
// goroutines of one resolution may share a Tx.
type Tx struct {
	tx      *sql.Tx
	dialect dialect
}

var _ repository.Tx = (*Tx)(nil)

func (t *Tx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("sqlstore: committing: %w", err)
	}
	return nil
}

// Rollback aborts the transaction. Rolling back a finished transaction is a
// no-op.
func (t *Tx) Rollback() error {
	if err := t.tx.Rollback(); err != nil && err != sql.ErrTxDone {
		return fmt.Errorf("sqlstore: rolling back: %w", err)
	}
	return nil
}

func (t *Tx) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return t.tx.ExecContext(ctx, t.dialect.rebind(query), args...)
}

func (t *Tx) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return t.tx.QueryContext(ctx, t.dialect.rebind(query), args...)
}

func (t *Tx) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return t.tx.QueryRowContext(ctx, t.dialect.rebind(query), args...)
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// int64Args converts ids into a []any for a variadic query call.
func int64Args(ids []int64, extra ...any) []any {
	args := make([]any, 0, len(ids)+len(extra))
	for _, id := range ids {
		args = append(args, id)
	}
	return append(args, extra...)
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func int64Ptr(ni sql.NullInt64) *int64 {
	if !ni.Valid {
		return nil
	}
	v := ni.Int64
	return &v
}
