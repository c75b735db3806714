// Package transformer reshapes validated tables into the form an analysis
// needs: Aggregate, Rank, Pivot and Correlate. Every operation is pure; it
// reads its input and returns a new table.
//
// Missing numbers (NULL, empty or unparseable text) are data sparsity and are
// coerced the same way everywhere:
//
//   - sum and count style work reads them as 0 (Aggregate sum, Rank values,
//     Pivot cells);
//   - statistics that describe a distribution exclude them (mean, median,
//     quantile, max, min, count_at_least, Correlate).
//
// Structural problems never are: a column that does not exist is a
// *SchemaError, and a mathematically undefined result is a
// *TransformationError.
package transformer

import (
	"fmt"

	"mlbstats/internal/table"
)

// SchemaError reports a reference to a column the input table lacks.
type SchemaError struct {
	Op     string
	Column string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("transformer: %s: column %q not found", e.Op, e.Column)
}

// TransformationError reports an input the operation cannot produce a result
// for, such as a correlation over fewer than two complete rows.
type TransformationError struct {
	Op     string
	Reason string
}

func (e *TransformationError) Error() string {
	return fmt.Sprintf("transformer: %s: %s", e.Op, e.Reason)
}

func failf(op, format string, args ...any) error {
	return &TransformationError{Op: op, Reason: fmt.Sprintf(format, args...)}
}

// resolve maps names to column positions, failing on the first missing one.
func resolve(op string, t *table.Table, names ...string) ([]int, error) {
	idx := make([]int, len(names))
	for i, n := range names {
		j, ok := t.Lookup(n)
		if !ok {
			return nil, &SchemaError{Op: op, Column: n}
		}
		idx[i] = j
	}
	return idx, nil
}

// partitionKey joins the cell keys of row at cols. A NUL separator keeps
// ("a b", "c") and ("a", "b c") apart.
func partitionKey(t *table.Table, row int, cols []int) string {
	switch len(cols) {
	case 0:
		return ""
	case 1:
		return t.Cell(row, cols[0]).Key()
	}
	buf := make([]byte, 0, 32)
	for i, c := range cols {
		if i > 0 {
			buf = append(buf, 0)
		}
		buf = append(buf, t.Cell(row, c).Key()...)
	}
	return string(buf)
}

// partitions groups row indexes by key in first-seen order.
type partitions struct {
	order []string
	rows  map[string][]int
}

func partition(t *table.Table, cols []int) partitions {
	p := partitions{rows: map[string][]int{}}
	for i := 0; i < t.NumRows(); i++ {
		k := partitionKey(t, i, cols)
		if _, seen := p.rows[k]; !seen {
			p.order = append(p.order, k)
		}
		p.rows[k] = append(p.rows[k], i)
	}
	return p
}

// integral reports whether every present number in column col reads as an
// integer, so outputs derived from it can stay Int.
func integral(t *table.Table, col int) bool {
	for i := 0; i < t.NumRows(); i++ {
		c := t.Cell(i, col)
		if _, ok := c.Float(); !ok {
			continue
		}
		if _, ok := c.Int(); !ok {
			return false
		}
	}
	return true
}

func number(f float64, asInt bool) table.Cell {
	if asInt {
		return table.Int(int64(f))
	}
	return table.Float(f)
}
