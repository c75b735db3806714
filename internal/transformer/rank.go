package transformer

import (
	"sort"

	"mlbstats/internal/table"
)

// RankColumn is the column Rank appends.
const RankColumn = "rank"

// Rank numbers the rows of each partition 1, 2, 3... by value descending,
// like ROW_NUMBER() OVER (PARTITION BY partition ORDER BY value DESC). Rows
// with equal values keep input order, so the earlier row gets the lower
// number. Missing values rank as 0.
//
// Output keeps every input column plus RankColumn, grouped by partition in
// first-seen order and ordered by rank within each. When topK > 0 only ranks
// 1..topK are kept.
func Rank(t *table.Table, partitionBy []string, value string, topK int) (*table.Table, error) {
	const op = "rank"

	keyCols, err := resolve(op, t, partitionBy...)
	if err != nil {
		return nil, err
	}
	idx, err := resolve(op, t, value)
	if err != nil {
		return nil, err
	}
	if _, exists := t.Lookup(RankColumn); exists {
		return nil, failf(op, "input already has a %q column", RankColumn)
	}
	vc := idx[0]

	parts := partition(t, keyCols)
	var (
		order []int
		ranks []table.Cell
	)
	for _, k := range parts.order {
		rows := append([]int(nil), parts.rows[k]...)
		sort.SliceStable(rows, func(a, b int) bool {
			return t.Cell(rows[a], vc).FloatOrZero() > t.Cell(rows[b], vc).FloatOrZero()
		})
		for i, r := range rows {
			if topK > 0 && i >= topK {
				break
			}
			order = append(order, r)
			ranks = append(ranks, table.Int(int64(i+1)))
		}
	}
	if ranks == nil {
		ranks = []table.Cell{}
	}
	return pick(t, order, ranks, RankColumn)
}
