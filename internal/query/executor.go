package query

import (
	"context"
	"fmt"
	"log"
	"time"

	"mlbstats/internal/metrics"
	"mlbstats/internal/storage"
	"mlbstats/internal/table"
)

// ExecutionError wraps a backend failure for the query identified by
// Fingerprint. No partial table accompanies it.
type ExecutionError struct {
	Fingerprint string
	Err         error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("query: execution failed id=%s: %v", e.Fingerprint, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// Executor runs descriptors. Job labels its metrics.
type Executor struct {
	Job string
}

// Execute runs d on conn with the default job label.
func Execute(ctx context.Context, conn storage.Conn, d Descriptor) (*table.Table, error) {
	return (&Executor{Job: "mlbstats"}).Execute(ctx, conn, d)
}

// Execute validates d, sends it on conn and reads every row. An invalid
// descriptor fails with ErrInvalidQuery without touching conn. The result has
// one column per select-list entry, in order, and rows in the order the
// backend returned them.
func (e *Executor) Execute(ctx context.Context, conn storage.Conn, d Descriptor) (t *table.Table, err error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if conn == nil {
		return nil, fmt.Errorf("%w: no connection", ErrInvalidQuery)
	}

	id := d.Fingerprint()
	start := time.Now()
	defer func() { metrics.RecordStep(e.Job, "query", err, time.Since(start)) }()

	log.Printf("query: executing id=%s sql=%q", id, d.Preview())

	t, err = fetch(ctx, conn, d)
	if err != nil {
		log.Printf("query: failed id=%s: %v", id, err)
		return nil, &ExecutionError{Fingerprint: id, Err: err}
	}

	metrics.RecordRows(e.Job, "fetched", int64(t.NumRows()))
	log.Printf("query: fetched id=%s rows=%d cols=%d took=%s", id, t.NumRows(), t.NumCols(), time.Since(start).Round(time.Millisecond))
	return t, nil
}

func fetch(ctx context.Context, conn storage.Conn, d Descriptor) (*table.Table, error) {
	rows, err := conn.Query(ctx, d.text, d.params)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols := rows.Columns()
	b := table.NewBuilder(cols...)
	cells := make([]table.Cell, len(cols))
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", b.Len(), err)
		}
		if len(vals) != len(cols) {
			return nil, fmt.Errorf("row %d: got %d values for %d columns", b.Len(), len(vals), len(cols))
		}
		for i, v := range vals {
			cells[i] = table.Of(v)
		}
		if err := b.Append(cells...); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return b.Build(), nil
}
