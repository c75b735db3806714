package transformer

import (
	"sort"

	"mlbstats/internal/table"
)

// PivotSpec names the long-format columns of a pivot.
type PivotSpec struct {
	Row    string // becomes the first output column
	Column string // distinct values become output columns
	Value  string // fills the cells
	// SortByTotal orders rows by the sum of their cells, descending, instead
	// of by row key.
	SortByTotal bool
}

// Pivot turns (row, column, value) triples into a matrix. The first output
// column holds the distinct row keys and is named spec.Row; each distinct
// column key becomes a column named by its Key. Rows and columns are in
// ascending key order unless SortByTotal is set; ties in total keep key order.
//
// A combination with no triple is 0, and so is a triple whose value is
// missing, so every cell of the result is a number. Two triples for the same
// combination, a null key, or a column key equal to spec.Row is a
// *TransformationError.
func Pivot(t *table.Table, spec PivotSpec) (*table.Table, error) {
	const op = "pivot"

	idx, err := resolve(op, t, spec.Row, spec.Column, spec.Value)
	if err != nil {
		return nil, err
	}
	rc, cc, vc := idx[0], idx[1], idx[2]
	asInt := integral(t, vc)

	rowKeys := map[string]table.Cell{}
	colKeys := map[string]table.Cell{}
	cells := map[[2]string]float64{}
	for i := 0; i < t.NumRows(); i++ {
		r, c := t.Cell(i, rc), t.Cell(i, cc)
		if r.IsNull() || c.IsNull() {
			return nil, failf(op, "row %d has a null key", i)
		}
		k := [2]string{r.Key(), c.Key()}
		if _, dup := cells[k]; dup {
			return nil, failf(op, "duplicate entry for %s=%s, %s=%s", spec.Row, k[0], spec.Column, k[1])
		}
		cells[k] = t.Cell(i, vc).FloatOrZero()
		if _, seen := rowKeys[k[0]]; !seen {
			rowKeys[k[0]] = r
		}
		if _, seen := colKeys[k[1]]; !seen {
			if k[1] == spec.Row {
				return nil, failf(op, "column key %q collides with the row column name", k[1])
			}
			colKeys[k[1]] = c
		}
	}

	rows := sortedKeys(rowKeys)
	cols := sortedKeys(colKeys)

	if spec.SortByTotal {
		totals := make(map[string]float64, len(rows))
		for _, r := range rows {
			for _, c := range cols {
				totals[r] += cells[[2]string{r, c}]
			}
		}
		sort.SliceStable(rows, func(a, b int) bool { return totals[rows[a]] > totals[rows[b]] })
	}

	b := table.NewBuilder(append([]string{spec.Row}, cols...)...)
	for _, r := range rows {
		out := make([]table.Cell, 0, len(cols)+1)
		out = append(out, rowKeys[r])
		for _, c := range cols {
			out = append(out, number(cells[[2]string{r, c}], asInt))
		}
		if err := b.Append(out...); err != nil {
			return nil, err
		}
	}
	return b.Build(), nil
}

func sortedKeys(m map[string]table.Cell) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(a, b int) bool {
		if r := table.Compare(m[keys[a]], m[keys[b]]); r != 0 {
			return r < 0
		}
		return keys[a] < keys[b]
	})
	return keys
}
