// Package validate inspects a materialized table for quality signals without
// changing it. Nothing here fails on bad data; callers decide what to
// escalate.
package validate

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"mlbstats/internal/table"
)

// ErrEmptyResult lets callers escalate an empty result with errors.Is.
var ErrEmptyResult = errors.New("validate: result has no rows")

// FindingKind classifies a Finding.
type FindingKind string

const (
	FindingEmpty      FindingKind = "empty_result"
	FindingNulls      FindingKind = "null_values"
	FindingAllNull    FindingKind = "all_null"
	FindingMixedTypes FindingKind = "mixed_types"
)

// Finding is one quality signal. Column is empty for table-level findings.
type Finding struct {
	Kind    FindingKind
	Column  string
	Message string
}

func (f Finding) String() string {
	if f.Column == "" {
		return fmt.Sprintf("%s: %s", f.Kind, f.Message)
	}
	return fmt.Sprintf("%s %s: %s", f.Kind, f.Column, f.Message)
}

// ColumnReport describes one column.
type ColumnReport struct {
	Name string
	// Type is the column's merged type.
	Type       table.Type
	Nulls      int
	TypeCounts map[table.Type]int
}

// Report describes a table. It is produced next to the table, never stored in it.
type Report struct {
	RowCount int
	Columns  []ColumnReport
	Findings []Finding
}

// Empty reports whether the table had no rows.
func (r Report) Empty() bool { return r.RowCount == 0 }

// NullCounts maps column name to null count. With duplicate names the first
// column wins.
func (r Report) NullCounts() map[string]int {
	out := make(map[string]int, len(r.Columns))
	for _, c := range r.Columns {
		if _, seen := out[c.Name]; !seen {
			out[c.Name] = c.Nulls
		}
	}
	return out
}

// Types maps column name to merged type.
func (r Report) Types() map[string]table.Type {
	out := make(map[string]table.Type, len(r.Columns))
	for _, c := range r.Columns {
		if _, seen := out[c.Name]; !seen {
			out[c.Name] = c.Type
		}
	}
	return out
}

// RequireRows returns an error wrapping ErrEmptyResult when the table was empty.
func (r Report) RequireRows() error {
	if r.Empty() {
		return ErrEmptyResult
	}
	return nil
}

// Validate computes the report for t.
func Validate(t *table.Table) Report {
	rep := Report{RowCount: t.NumRows()}
	if rep.RowCount == 0 {
		rep.Findings = append(rep.Findings, Finding{Kind: FindingEmpty, Message: "query returned no rows"})
	}

	for j := 0; j < t.NumCols(); j++ {
		col := t.Column(j)
		cr := ColumnReport{Name: col.Name, Type: col.Type, TypeCounts: map[table.Type]int{}}
		for i := 0; i < col.Len(); i++ {
			c := col.Cell(i)
			cr.TypeCounts[c.Type()]++
			if c.IsNull() {
				cr.Nulls++
			}
		}
		rep.Columns = append(rep.Columns, cr)

		switch {
		case rep.RowCount > 0 && cr.Nulls == rep.RowCount:
			rep.Findings = append(rep.Findings, Finding{
				Kind: FindingAllNull, Column: col.Name,
				Message: fmt.Sprintf("all %d values are null", cr.Nulls),
			})
		case cr.Nulls > 0:
			rep.Findings = append(rep.Findings, Finding{
				Kind: FindingNulls, Column: col.Name,
				Message: fmt.Sprintf("%d of %d values are null", cr.Nulls, rep.RowCount),
			})
		}
		if cr.TypeCounts[table.TypeText] > 0 && cr.TypeCounts[table.TypeInt]+cr.TypeCounts[table.TypeFloat] > 0 {
			rep.Findings = append(rep.Findings, Finding{
				Kind: FindingMixedTypes, Column: col.Name,
				Message: "column mixes text and numeric values",
			})
		}
	}
	return rep
}

// Log writes a one-line summary and one line per finding.
func (r Report) Log(name string) {
	cols := make([]string, len(r.Columns))
	for i, c := range r.Columns {
		cols[i] = c.Name + ":" + c.Type.String()
	}
	log.Printf("validate: %s rows=%d columns=[%s]", name, r.RowCount, strings.Join(cols, " "))
	for _, f := range r.Findings {
		log.Printf("validate: %s %s", name, f)
	}
}
