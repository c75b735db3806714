package storage

import (
	"context"
	"fmt"
	"log"
	"time"

	"mlbstats/internal/config"
	"mlbstats/internal/metrics"
)

// ConnectivityError reports a failure to connect to, or prove liveness of, a
// backend. Err carries the driver diagnostic.
type ConnectivityError struct {
	Kind string
	Err  error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("storage: cannot reach %s backend: %v", e.Kind, e.Err)
}

func (e *ConnectivityError) Unwrap() error { return e.Err }

// Provider opens connections for one configured backend. It holds no live
// resources itself; every Open returns a fresh Conn owned by the caller.
type Provider struct {
	kind    string
	dsn     string
	job     string
	factory Factory
}

// NewProvider resolves the backend named in cfg. It fails with a
// *config.MissingSettingError when no connection string is configured.
func NewProvider(cfg config.Config) (*Provider, error) {
	if err := cfg.RequireDatabase(); err != nil {
		return nil, err
	}
	kind := cfg.StorageKind
	if kind == "" {
		kind = "postgres"
	}
	f, err := lookup(kind)
	if err != nil {
		return nil, err
	}
	return &Provider{kind: kind, dsn: cfg.DatabaseURL, job: cfg.Job, factory: f}, nil
}

// Kind returns the backend kind.
func (p *Provider) Kind() string { return p.kind }

// Open connects and runs the liveness check. The returned Conn is only handed
// out after the check passes; on failure the half-open connection is closed
// and a *ConnectivityError is returned. Open never retries.
func (p *Provider) Open(ctx context.Context) (conn Conn, err error) {
	start := time.Now()
	defer func() { metrics.RecordStep(p.job, "connect", err, time.Since(start)) }()

	c, err := p.factory(ctx, p.dsn)
	if err != nil {
		log.Printf("storage: connect failed kind=%s: %v", p.kind, err)
		return nil, &ConnectivityError{Kind: p.kind, Err: err}
	}
	if err := c.Ping(ctx); err != nil {
		_ = c.Close(ctx)
		log.Printf("storage: liveness check failed kind=%s: %v", p.kind, err)
		return nil, &ConnectivityError{Kind: p.kind, Err: fmt.Errorf("liveness check: %w", err)}
	}
	log.Printf("storage: connected kind=%s", p.kind)
	return c, nil
}

// With opens a connection, runs fn, and closes the connection whether or not
// fn succeeds.
func (p *Provider) With(ctx context.Context, fn func(Conn) error) error {
	conn, err := p.Open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := conn.Close(ctx); cerr != nil {
			log.Printf("storage: close kind=%s: %v", p.kind, cerr)
		}
	}()
	return fn(conn)
}
