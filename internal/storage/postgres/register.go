package postgres

import (
	"context"

	"mlbstats/internal/storage"
)

// connect is a test hook that points at pgx by default.
var connect = func(ctx context.Context, dsn string) (pgConnLike, error) {
	c, err := Open(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return c.conn, nil
}

// init registers the "postgres" kind so callers reach this backend through
// storage.NewProvider without importing the package directly.
func init() {
	storage.Register("postgres", func(ctx context.Context, dsn string) (storage.Conn, error) {
		c, err := connect(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return newConnFrom(c), nil
	})
}
