// Package postgres is the Postgres backend for the storage package, built on
// a single pgx v5 connection. Parameters are bound with pgx.NamedArgs, so
// queries reference them as @name.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/big"

	"mlbstats/internal/storage"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// pgConnLike is the subset of *pgx.Conn used by Conn. Tests substitute a fake.
type pgConnLike interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Close(ctx context.Context) error
}

// Conn is a storage.Conn over one pgx connection.
type Conn struct {
	conn pgConnLike
}

var _ storage.Conn = (*Conn)(nil)

// Open connects to dsn. Callers own the returned Conn and must Close it.
func Open(ctx context.Context, dsn string) (*Conn, error) {
	c, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, describe(err)
	}
	return &Conn{conn: c}, nil
}

func newConnFrom(c pgConnLike) *Conn { return &Conn{conn: c} }

// Query runs sql with params bound as named arguments.
func (c *Conn) Query(ctx context.Context, sql string, params map[string]any) (storage.Rows, error) {
	var args []any
	if len(params) > 0 {
		args = append(args, pgx.NamedArgs(params))
	}
	rs, err := c.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, describe(err)
	}
	return &rows{rs: rs}, nil
}

// Ping runs SELECT 1 and drains the result.
func (c *Conn) Ping(ctx context.Context) error {
	rs, err := c.conn.Query(ctx, "SELECT 1")
	if err != nil {
		return describe(err)
	}
	for rs.Next() {
	}
	rs.Close()
	return describe(rs.Err())
}

func (c *Conn) Close(ctx context.Context) error {
	return c.conn.Close(ctx)
}

// rows adapts pgx.Rows to storage.Rows.
type rows struct {
	rs pgx.Rows
}

func (r *rows) Columns() []string {
	fds := r.rs.FieldDescriptions()
	out := make([]string, len(fds))
	for i, fd := range fds {
		out[i] = fd.Name
	}
	return out
}

func (r *rows) Next() bool { return r.rs.Next() }

// Values decodes the current row, converting pgx-specific types to plain Go
// values the table package understands.
func (r *rows) Values() ([]any, error) {
	vals, err := r.rs.Values()
	if err != nil {
		return nil, describe(err)
	}
	for i, v := range vals {
		vals[i] = normalize(v)
	}
	return vals, nil
}

func (r *rows) Err() error { return describe(r.rs.Err()) }

func (r *rows) Close() { r.rs.Close() }

func normalize(v any) any {
	switch x := v.(type) {
	case pgtype.Numeric:
		return numericValue(x)
	case [16]byte:
		return uuid.UUID(x).String()
	default:
		return v
	}
}

// numericValue returns int64 for integral numerics that fit, float64 otherwise,
// and nil for NULL or NaN.
func numericValue(n pgtype.Numeric) any {
	if !n.Valid || n.NaN {
		return nil
	}
	if n.InfinityModifier != pgtype.Finite {
		return math.Inf(int(n.InfinityModifier))
	}
	if n.Int == nil {
		return int64(0)
	}
	if n.Exp >= 0 {
		scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n.Exp)), nil)
		v := new(big.Int).Mul(n.Int, scale)
		if v.IsInt64() {
			return v.Int64()
		}
	}
	f, err := n.Float64Value()
	if err != nil || !f.Valid {
		return nil
	}
	return f.Float64
}

// serverError carries a Postgres error with its detail and SQLSTATE folded
// into the message.
type serverError struct {
	msg string
	err *pgconn.PgError
}

func (e *serverError) Error() string { return e.msg }
func (e *serverError) Unwrap() error { return e.err }

func describe(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	msg := fmt.Sprintf("postgres: %s (SQLSTATE %s)", pgErr.Message, pgErr.Code)
	if pgErr.Detail != "" {
		msg += ": " + pgErr.Detail
	}
	if pgErr.Hint != "" {
		msg += " (hint: " + pgErr.Hint + ")"
	}
	return &serverError{msg: msg, err: pgErr}
}
