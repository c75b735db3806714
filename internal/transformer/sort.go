package transformer

import (
	"sort"

	"mlbstats/internal/table"
)

// Sort returns t with rows stably ordered by column col using table.Compare.
// Equal rows keep their input order.
func Sort(t *table.Table, col string, desc bool) (*table.Table, error) {
	idx, err := resolve("sort", t, col)
	if err != nil {
		return nil, err
	}
	c := idx[0]
	order := make([]int, t.NumRows())
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		r := table.Compare(t.Cell(order[a], c), t.Cell(order[b], c))
		if desc {
			return r > 0
		}
		return r < 0
	})
	return pick(t, order, nil)
}

// Head returns the first n rows of t.
func Head(t *table.Table, n int) *table.Table {
	if n < 0 || n > t.NumRows() {
		n = t.NumRows()
	}
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	out, _ := pick(t, order, nil)
	return out
}

// pick copies the given rows of t, in order, appending extra[i] to row i when
// extra is non-nil.
func pick(t *table.Table, rows []int, extra []table.Cell, extraName ...string) (*table.Table, error) {
	b := table.NewBuilder(append(t.Names(), extraName...)...)
	for i, r := range rows {
		row := t.Row(r)
		if extra != nil {
			row = append(row, extra[i])
		}
		if err := b.Append(row...); err != nil {
			return nil, err
		}
	}
	return b.Build(), nil
}
