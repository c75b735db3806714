package transformer

import (
	"math"

	"mlbstats/internal/table"

	"gonum.org/v1/gonum/stat"
)

// MetricColumn is the first column of a correlation matrix; it holds the
// metric name of each row.
const MetricColumn = "metric"

// Complete returns the rows of t where every metric reads as a number, with
// only the metric columns, all as Float.
func Complete(t *table.Table, metrics []string) (*table.Table, error) {
	idx, err := resolve("complete", t, metrics...)
	if err != nil {
		return nil, err
	}
	b := table.NewBuilder(metrics...)
	row := make([]table.Cell, len(idx))
next:
	for i := 0; i < t.NumRows(); i++ {
		for j, c := range idx {
			f, ok := t.Cell(i, c).Float()
			if !ok {
				continue next
			}
			row[j] = table.Float(f)
		}
		if err := b.Append(row...); err != nil {
			return nil, err
		}
	}
	return b.Build(), nil
}

// Correlate computes the Pearson correlation matrix of metrics over the rows
// where all of them are present. The result has MetricColumn followed by one
// Float column per metric, in the given order; row i is metric i. The matrix
// is symmetric with 1 on the diagonal.
//
// Fewer than two complete rows, or a metric that is constant over them, is a
// *TransformationError.
func Correlate(t *table.Table, metrics []string) (*table.Table, error) {
	const op = "correlate"

	if len(metrics) == 0 {
		return nil, failf(op, "no metrics given")
	}
	seen := map[string]bool{}
	for _, m := range metrics {
		if m == MetricColumn {
			return nil, failf(op, "metric may not be named %q", MetricColumn)
		}
		if seen[m] {
			return nil, failf(op, "metric %q listed twice", m)
		}
		seen[m] = true
	}
	if _, err := resolve(op, t, metrics...); err != nil {
		return nil, err
	}

	cc, err := Complete(t, metrics)
	if err != nil {
		return nil, err
	}
	n := cc.NumRows()
	if n < 2 {
		return nil, failf(op, "%d complete rows, need at least 2", n)
	}

	cols := make([][]float64, len(metrics))
	for j := range metrics {
		cols[j] = make([]float64, n)
		for i := 0; i < n; i++ {
			cols[j][i] = cc.Cell(i, j).FloatOrZero()
		}
		if stat.Variance(cols[j], nil) == 0 {
			return nil, failf(op, "metric %q is constant over %d complete rows", metrics[j], n)
		}
	}

	k := len(metrics)
	m := make([][]float64, k)
	for a := range m {
		m[a] = make([]float64, k)
		m[a][a] = 1
	}
	for a := 0; a < k; a++ {
		for b := a + 1; b < k; b++ {
			r := math.Max(-1, math.Min(1, stat.Correlation(cols[a], cols[b], nil)))
			m[a][b], m[b][a] = r, r
		}
	}

	out := table.NewBuilder(append([]string{MetricColumn}, metrics...)...)
	for a, name := range metrics {
		row := make([]table.Cell, 0, k+1)
		row = append(row, table.Text(name))
		for b := 0; b < k; b++ {
			row = append(row, table.Float(m[a][b]))
		}
		if err := out.Append(row...); err != nil {
			return nil, err
		}
	}
	return out.Build(), nil
}
