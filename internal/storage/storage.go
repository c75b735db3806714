// Package storage is the connection layer: it resolves a backend by kind,
// opens a single connection, and proves it usable with a liveness round trip
// before handing it out.
//
// Backends register a Factory from their init function (see storage/all).
// Callers depend only on Conn and Rows, which keeps the query executor free of
// driver imports and lets tests substitute an in-process database.
//
// A Conn is single-owner. It must not be shared by concurrent queries and must
// be closed by the caller that opened it, typically:
//
//	conn, err := provider.Open(ctx)
//	if err != nil { ... }
//	defer conn.Close(ctx)
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Rows iterates over a materializing query result. Columns is valid before
// the first call to Next.
type Rows interface {
	Columns() []string
	Next() bool
	// Values returns the current row as driver values (nil for SQL NULL).
	Values() ([]any, error)
	Err() error
	Close()
}

// Conn is one live database session.
type Conn interface {
	// Query sends sql with named parameters bound by the backend's native
	// mechanism. Parameters are referenced as @name in the query text.
	Query(ctx context.Context, sql string, params map[string]any) (Rows, error)
	// Ping runs a trivial query that succeeds on any healthy backend.
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// Factory opens a backend connection for a connection string.
type Factory func(ctx context.Context, dsn string) (Conn, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register makes a backend available under kind. Registering the same kind
// twice panics, mirroring database/sql.Register.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	if f == nil {
		panic("storage: Register factory is nil")
	}
	if _, dup := factories[kind]; dup {
		panic("storage: Register called twice for kind " + kind)
	}
	factories[kind] = f
}

// Kinds lists registered backend kinds in sorted order.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	return keysLocked()
}

func lookup(kind string) (Factory, error) {
	mu.RLock()
	defer mu.RUnlock()
	f, ok := factories[kind]
	if !ok {
		return nil, fmt.Errorf("storage: unknown kind %q (registered: %v)", kind, keysLocked())
	}
	return f, nil
}

func keysLocked() []string {
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
