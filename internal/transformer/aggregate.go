package transformer

import (
	"math"
	"sort"

	"mlbstats/internal/table"

	"gonum.org/v1/gonum/stat"
)

// Func names an aggregation.
type Func string

const (
	Sum          Func = "sum"
	Count        Func = "count"
	Mean         Func = "mean"
	Median       Func = "median"
	Max          Func = "max"
	Min          Func = "min"
	Quantile     Func = "quantile"
	CountAtLeast Func = "count_at_least"
)

// Measure is one aggregated output column.
type Measure struct {
	// Column is the input column. Count may leave it empty to count rows.
	Column string
	Func   Func
	// Arg is p in [0, 1] for Quantile and the threshold for CountAtLeast.
	Arg float64
	// As names the output column; default is "<column>_<func>".
	As string
}

func (m Measure) name() string {
	if m.As != "" {
		return m.As
	}
	if m.Column == "" {
		return string(m.Func)
	}
	return m.Column + "_" + string(m.Func)
}

// Aggregate returns one row per distinct combination of keys, in first-seen
// order, holding the key cells followed by one column per measure. With no
// keys the whole table is a single partition.
//
// Sum reads missing values as 0 and Count counts rows. The other functions
// skip missing values and yield Null when a partition has none. Sum, Max and
// Min stay Int when every present input value is integral.
func Aggregate(t *table.Table, keys []string, measures ...Measure) (*table.Table, error) {
	const op = "aggregate"

	keyCols, err := resolve(op, t, keys...)
	if err != nil {
		return nil, err
	}
	valCols := make([]int, len(measures))
	asInt := make([]bool, len(measures))
	for i, m := range measures {
		valCols[i] = -1
		if m.Column == "" {
			if m.Func != Count {
				return nil, failf(op, "%s needs a column", m.Func)
			}
		} else {
			idx, err := resolve(op, t, m.Column)
			if err != nil {
				return nil, err
			}
			valCols[i] = idx[0]
			asInt[i] = integral(t, idx[0])
		}
		switch m.Func {
		case Sum, Count, Mean, Median, Max, Min, CountAtLeast:
		case Quantile:
			if m.Arg < 0 || m.Arg > 1 || math.IsNaN(m.Arg) {
				return nil, failf(op, "quantile %v outside [0, 1]", m.Arg)
			}
		default:
			return nil, failf(op, "unknown function %q", m.Func)
		}
	}

	names := append([]string(nil), keys...)
	for _, m := range measures {
		names = append(names, m.name())
	}
	b := table.NewBuilder(names...)

	var parts partitions
	if len(keys) == 0 {
		all := make([]int, t.NumRows())
		for i := range all {
			all[i] = i
		}
		parts = partitions{order: []string{""}, rows: map[string][]int{"": all}}
	} else {
		parts = partition(t, keyCols)
	}

	for _, k := range parts.order {
		rows := parts.rows[k]
		out := make([]table.Cell, 0, len(names))
		for _, c := range keyCols {
			out = append(out, t.Cell(rows[0], c))
		}
		for i, m := range measures {
			out = append(out, aggregate(t, rows, valCols[i], m, asInt[i]))
		}
		if err := b.Append(out...); err != nil {
			return nil, err
		}
	}
	return b.Build(), nil
}

func aggregate(t *table.Table, rows []int, col int, m Measure, asInt bool) table.Cell {
	if m.Func == Count {
		return table.Int(int64(len(rows)))
	}
	if m.Func == Sum {
		if asInt {
			var s int64
			for _, r := range rows {
				if i, ok := t.Cell(r, col).Int(); ok {
					s += i
				}
			}
			return table.Int(s)
		}
		var s float64
		for _, r := range rows {
			s += t.Cell(r, col).FloatOrZero()
		}
		return table.Float(s)
	}

	vals := present(t, rows, col)
	if m.Func == CountAtLeast {
		n := 0
		for _, v := range vals {
			if v >= m.Arg {
				n++
			}
		}
		return table.Int(int64(n))
	}
	if len(vals) == 0 {
		return table.Null()
	}
	switch m.Func {
	case Mean:
		return table.Float(stat.Mean(vals, nil))
	case Max:
		x := vals[0]
		for _, v := range vals[1:] {
			x = math.Max(x, v)
		}
		return number(x, asInt)
	case Min:
		x := vals[0]
		for _, v := range vals[1:] {
			x = math.Min(x, v)
		}
		return number(x, asInt)
	case Median:
		sort.Float64s(vals)
		return table.Float(quantile(vals, 0.5))
	case Quantile:
		sort.Float64s(vals)
		return table.Float(quantile(vals, m.Arg))
	default:
		return table.Null()
	}
}

// present returns the readable numbers of col at rows.
func present(t *table.Table, rows []int, col int) []float64 {
	vals := make([]float64, 0, len(rows))
	for _, r := range rows {
		if f, ok := t.Cell(r, col).Float(); ok {
			vals = append(vals, f)
		}
	}
	return vals
}

// quantile interpolates linearly at position p*(n-1) of sorted, which must be
// non-empty. stat.Quantile has no mode for this.
func quantile(sorted []float64, p float64) float64 {
	pos := p * float64(len(sorted)-1)
	lo := math.Floor(pos)
	hi := math.Ceil(pos)
	a, b := sorted[int(lo)], sorted[int(hi)]
	return a + (b-a)*(pos-lo)
}
