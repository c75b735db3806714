// Package storagetest provides an in-memory storage.Conn for tests. It runs
// real SQL on SQLite, with named parameters bound through database/sql, so
// executor and analysis tests need no server.
package storagetest

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"mlbstats/internal/storage"

	_ "modernc.org/sqlite"
)

// SQLite is a storage.Conn over an in-memory SQLite database. The schema
// "lahman" is attached so production queries run unchanged.
type SQLite struct {
	db *sql.DB

	mu      sync.Mutex
	queries []string
	opens   int
	closes  int
}

var _ storage.Conn = (*SQLite)(nil)

// NewSQLite opens a fresh database and runs setup statements in order. The
// database is closed when the test ends.
func NewSQLite(tb testing.TB, setup ...string) *SQLite {
	tb.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	// One connection keeps every statement on the same in-memory database.
	db.SetMaxOpenConns(1)
	tb.Cleanup(func() { _ = db.Close() })

	stmts := append([]string{`ATTACH DATABASE ':memory:' AS lahman`}, setup...)
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			tb.Fatalf("setup %q: %v", stmt, err)
		}
	}
	return &SQLite{db: db}
}

// Queries returns the query texts received so far.
func (s *SQLite) Queries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.queries...)
}

// Open hands out s itself, counting the call. It lets *SQLite stand in for a
// storage.Provider.
func (s *SQLite) Open(ctx context.Context) (storage.Conn, error) {
	s.mu.Lock()
	s.opens++
	s.mu.Unlock()
	return s, nil
}

// Balance returns the number of Open and Close calls.
func (s *SQLite) Balance() (opens, closes int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opens, s.closes
}

func (s *SQLite) Query(ctx context.Context, q string, params map[string]any) (storage.Rows, error) {
	s.mu.Lock()
	s.queries = append(s.queries, q)
	s.mu.Unlock()

	args := make([]any, 0, len(params))
	for k, v := range params {
		args = append(args, sql.Named(k, v))
	}
	rs, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	cols, err := rs.Columns()
	if err != nil {
		_ = rs.Close()
		return nil, err
	}
	return &rows{rs: rs, cols: cols}, nil
}

func (s *SQLite) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Close counts the call; the database itself lives until the test ends.
func (s *SQLite) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closes++
	s.mu.Unlock()
	return nil
}

type rows struct {
	rs   *sql.Rows
	cols []string
}

func (r *rows) Columns() []string { return r.cols }
func (r *rows) Next() bool        { return r.rs.Next() }
func (r *rows) Err() error        { return r.rs.Err() }
func (r *rows) Close()            { _ = r.rs.Close() }

func (r *rows) Values() ([]any, error) {
	vals := make([]any, len(r.cols))
	ptrs := make([]any, len(r.cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	if err := r.rs.Scan(ptrs...); err != nil {
		return nil, err
	}
	return vals, nil
}
