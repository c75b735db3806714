// Package analysis defines the questions mlbstats answers. Each Analysis
// pairs one parameterized query with the shaping that turns its raw rows into
// the table handed to the report writer.
package analysis

import (
	"context"
	"fmt"
	"log"
	"time"

	"mlbstats/internal/metrics"
	"mlbstats/internal/query"
	"mlbstats/internal/storage"
	"mlbstats/internal/table"
	"mlbstats/internal/validate"
)

// Analysis is one named question.
type Analysis struct {
	Name  string
	Title string
	Query query.Descriptor
	// Shape turns the raw result into the finished table.
	Shape func(raw *table.Table) (*table.Table, error)
	// Notes, when set, derives human-readable observations.
	Notes func(raw, shaped *table.Table, rep validate.Report) ([]string, error)
}

// Result is the outcome of running an Analysis.
type Result struct {
	Name   string
	Title  string
	Raw    *table.Table
	Report validate.Report
	Table  *table.Table
	Notes  []string
}

// Opener hands out connections; *storage.Provider is the production one.
type Opener interface {
	Open(ctx context.Context) (storage.Conn, error)
}

// Runner executes analyses. Every Run opens its own connection and closes it
// as soon as the rows are read, so Runs may proceed concurrently.
type Runner struct {
	Opener Opener
	Job    string
	// RequireRows turns an empty result into an error wrapping
	// validate.ErrEmptyResult instead of a logged finding.
	RequireRows bool
}

// Run executes a with the default runner settings.
func Run(ctx context.Context, o Opener, a Analysis) (*Result, error) {
	return (&Runner{Opener: o, Job: "mlbstats"}).Run(ctx, a)
}

// Run fetches, validates and shapes a. Errors are wrapped with the analysis
// name and keep their type for errors.As.
func (r *Runner) Run(ctx context.Context, a Analysis) (*Result, error) {
	raw, err := r.fetch(ctx, a)
	if err != nil {
		return nil, fmt.Errorf("analysis %s: %w", a.Name, err)
	}

	start := time.Now()
	rep := validate.Validate(raw)
	rep.Log(a.Name)
	var verr error
	if r.RequireRows {
		verr = rep.RequireRows()
	}
	metrics.RecordStep(r.Job, "validate", verr, time.Since(start))
	if verr != nil {
		return nil, fmt.Errorf("analysis %s: %w", a.Name, verr)
	}

	start = time.Now()
	shaped, err := a.Shape(raw)
	metrics.RecordStep(r.Job, "shape", err, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("analysis %s: %w", a.Name, err)
	}
	metrics.RecordRows(r.Job, "shaped", int64(shaped.NumRows()))
	log.Printf("analysis: %s shaped rows=%d cols=%d", a.Name, shaped.NumRows(), shaped.NumCols())

	res := &Result{Name: a.Name, Title: a.Title, Raw: raw, Report: rep, Table: shaped}
	if a.Notes != nil {
		notes, err := a.Notes(raw, shaped, rep)
		if err != nil {
			return nil, fmt.Errorf("analysis %s: notes: %w", a.Name, err)
		}
		res.Notes = notes
	}
	return res, nil
}

// fetch holds the connection only for the duration of the query.
func (r *Runner) fetch(ctx context.Context, a Analysis) (*table.Table, error) {
	conn, err := r.Opener.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := conn.Close(ctx); cerr != nil {
			log.Printf("analysis: %s close connection: %v", a.Name, cerr)
		}
	}()
	return (&query.Executor{Job: r.Job}).Execute(ctx, conn, a.Query)
}
