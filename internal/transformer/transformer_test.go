package transformer

import (
	"math"
	"testing"

	"mlbstats/internal/table"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// column returns the named column as strings, for compact assertions.
func column(t *testing.T, tb *table.Table, name string) []string {
	t.Helper()
	c, ok := tb.ColumnByName(name)
	require.True(t, ok, "column %q", name)
	out := make([]string, c.Len())
	for i := range out {
		out[i] = c.Cell(i).String()
	}
	return out
}

func TestSchemaErrors(t *testing.T) {
	t.Parallel()

	tb := table.MustFromValues([]string{"decade", "player", "hr"}, [][]any{{1990, "A", 10}})

	tests := []struct {
		name   string
		run    func() error
		op     string
		column string
	}{
		{"aggregate key", func() error { _, err := Aggregate(tb, []string{"year"}, Measure{Column: "hr", Func: Sum}); return err }, "aggregate", "year"},
		{"aggregate measure", func() error { _, err := Aggregate(tb, []string{"decade"}, Measure{Column: "HR", Func: Sum}); return err }, "aggregate", "HR"},
		{"rank partition", func() error { _, err := Rank(tb, []string{"era"}, "hr", 0); return err }, "rank", "era"},
		{"rank value", func() error { _, err := Rank(tb, []string{"decade"}, "total", 0); return err }, "rank", "total"},
		{"pivot value", func() error { _, err := Pivot(tb, PivotSpec{Row: "player", Column: "decade", Value: "count"}); return err }, "pivot", "count"},
		{"correlate metric", func() error { _, err := Correlate(tb, []string{"hr", "wins"}); return err }, "correlate", "wins"},
		{"sort", func() error { _, err := Sort(tb, "nope", false); return err }, "sort", "nope"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.run()
			var se *SchemaError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.op, se.Op)
			assert.Equal(t, tt.column, se.Column)
			assert.Contains(t, err.Error(), tt.column)
		})
	}
}

func TestAggregateSumCoercesMissingToZero(t *testing.T) {
	t.Parallel()

	tb := table.MustFromValues([]string{"key", "val"}, [][]any{
		{2010, "5"},
		{2010, ""},
		{2011, "3"},
	})
	got, err := Aggregate(tb, []string{"key"}, Measure{Column: "val", Func: Sum, As: "total"})
	require.NoError(t, err)

	assert.Equal(t, []string{"key", "total"}, got.Names())
	assert.Equal(t, []string{"2010", "2011"}, column(t, got, "key"))
	assert.Equal(t, []string{"5", "3"}, column(t, got, "total"))
	assert.Equal(t, table.TypeInt, got.Column(1).Type)
}

func TestAggregateStatistics(t *testing.T) {
	t.Parallel()

	tb := table.MustFromValues([]string{"decade", "hr"}, [][]any{
		{1990, 10},
		{1990, 250},
		{1990, nil},
		{1990, 120},
		{1990, 40},
		{2000, "n/a"},
		{1990, "abc"},
	})
	got, err := Aggregate(tb, []string{"decade"},
		Measure{Func: Count, As: "rows"},
		Measure{Column: "hr", Func: Count, As: "players"},
		Measure{Column: "hr", Func: Sum, As: "sum"},
		Measure{Column: "hr", Func: Mean, As: "mean"},
		Measure{Column: "hr", Func: Median, As: "median"},
		Measure{Column: "hr", Func: Quantile, Arg: 0.75, As: "q75"},
		Measure{Column: "hr", Func: Max, As: "max"},
		Measure{Column: "hr", Func: Min, As: "min"},
		Measure{Column: "hr", Func: CountAtLeast, Arg: 100, As: "ge100"},
		Measure{Column: "hr", Func: CountAtLeast, Arg: 200, As: "ge200"},
	)
	require.NoError(t, err)
	require.Equal(t, 2, got.NumRows())

	row := func(i int, name string) table.Cell {
		c, ok := got.Get(i, name)
		require.True(t, ok)
		return c
	}

	// 1990: values 10, 250, 120, 40 present; nil and "abc" excluded.
	assert.Equal(t, "1990", row(0, "decade").String())
	assert.Equal(t, "6", row(0, "rows").String())
	assert.Equal(t, "6", row(0, "players").String())
	assert.Equal(t, "420", row(0, "sum").String())
	assert.InDelta(t, 105.0, row(0, "mean").FloatOrZero(), 1e-9)
	assert.InDelta(t, 80.0, row(0, "median").FloatOrZero(), 1e-9)
	// sorted 10 40 120 250, pos 2.25 -> 120 + 0.25*130
	assert.InDelta(t, 152.5, row(0, "q75").FloatOrZero(), 1e-9)
	assert.Equal(t, "250", row(0, "max").String())
	assert.Equal(t, "10", row(0, "min").String())
	assert.Equal(t, "2", row(0, "ge100").String())
	assert.Equal(t, "1", row(0, "ge200").String())

	// 2000: nothing readable.
	assert.Equal(t, "1", row(1, "players").String())
	assert.Equal(t, "0", row(1, "sum").String())
	assert.True(t, row(1, "mean").IsNull())
	assert.True(t, row(1, "median").IsNull())
	assert.True(t, row(1, "max").IsNull())
	assert.Equal(t, "0", row(1, "ge100").String())
}

func TestAggregateWholeTableAndFloats(t *testing.T) {
	t.Parallel()

	tb := table.MustFromValues([]string{"avg"}, [][]any{{0.25}, {0.5}, {1}})
	got, err := Aggregate(tb, nil, Measure{Column: "avg", Func: Sum}, Measure{Column: "avg", Func: Max})
	require.NoError(t, err)
	require.Equal(t, 1, got.NumRows())
	assert.Equal(t, []string{"avg_sum", "avg_max"}, got.Names())
	assert.Equal(t, table.TypeFloat, got.Column(0).Type)
	assert.InDelta(t, 1.75, got.Cell(0, 0).FloatOrZero(), 1e-9)
	assert.InDelta(t, 1.0, got.Cell(0, 1).FloatOrZero(), 1e-9)
}

func TestAggregateCompositeKeyAndBadMeasures(t *testing.T) {
	t.Parallel()

	tb := table.MustFromValues([]string{"team", "year", "w"}, [][]any{
		{"NYA", 1998, 114},
		{"BOS", 1998, 92},
		{"NYA", 1998, 0},
		{"NYA", 1999, 98},
	})
	got, err := Aggregate(tb, []string{"team", "year"}, Measure{Column: "w", Func: Sum})
	require.NoError(t, err)
	assert.Equal(t, []string{"NYA", "BOS", "NYA"}, column(t, got, "team"))
	assert.Equal(t, []string{"114", "92", "98"}, column(t, got, "w_sum"))

	var te *TransformationError
	_, err = Aggregate(tb, nil, Measure{Column: "w", Func: "mode"})
	require.ErrorAs(t, err, &te)
	_, err = Aggregate(tb, nil, Measure{Column: "w", Func: Quantile, Arg: 1.5})
	require.ErrorAs(t, err, &te)
	_, err = Aggregate(tb, nil, Measure{Func: Mean})
	require.ErrorAs(t, err, &te)
}

func TestRankIsStableWithinPartition(t *testing.T) {
	t.Parallel()

	tb := table.MustFromValues([]string{"decade", "player", "hr"}, [][]any{
		{1990, "A", 30},
		{2000, "X", 5},
		{1990, "B", 50},
		{1990, "C", 30},
		{1990, "D", nil},
		{2000, "Y", 7},
	})
	got, err := Rank(tb, []string{"decade"}, "hr", 0)
	require.NoError(t, err)

	assert.Equal(t, []string{"decade", "player", "hr", RankColumn}, got.Names())
	assert.Equal(t, []string{"B", "A", "C", "D", "Y", "X"}, column(t, got, "player"))
	assert.Equal(t, []string{"1", "2", "3", "4", "1", "2"}, column(t, got, RankColumn))

	top, err := Rank(tb, []string{"decade"}, "hr", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "A", "Y", "X"}, column(t, top, "player"))

	_, err = Rank(got, []string{"decade"}, "hr", 0)
	var te *TransformationError
	require.ErrorAs(t, err, &te)
}

func TestRankEmptyInput(t *testing.T) {
	t.Parallel()

	got, err := Rank(table.Empty("decade", "hr"), []string{"decade"}, "hr", 10)
	require.NoError(t, err)
	assert.Equal(t, 0, got.NumRows())
	assert.Equal(t, []string{"decade", "hr", RankColumn}, got.Names())
}

func TestPivotZeroFills(t *testing.T) {
	t.Parallel()

	tb := table.MustFromValues([]string{"decade", "player", "count"}, [][]any{
		{"1990s", "Player A", 50},
		{"1990s", "Player B", 30},
		{"2000s", "Player A", 20},
	})
	got, err := Pivot(tb, PivotSpec{Row: "player", Column: "decade", Value: "count"})
	require.NoError(t, err)

	assert.Equal(t, []string{"player", "1990s", "2000s"}, got.Names())
	assert.Equal(t, []string{"Player A", "Player B"}, column(t, got, "player"))
	assert.Equal(t, []string{"50", "30"}, column(t, got, "1990s"))
	assert.Equal(t, []string{"20", "0"}, column(t, got, "2000s"))
	for j := 1; j < got.NumCols(); j++ {
		for i := 0; i < got.NumRows(); i++ {
			_, ok := got.Cell(i, j).Float()
			assert.True(t, ok, "cell (%d,%d) must be a number", i, j)
		}
	}
}

func TestPivotCellsMatchTriples(t *testing.T) {
	t.Parallel()

	triples := [][]any{
		{"r1", 1990, 1.5},
		{"r2", 2000, 4},
		{"r1", 2010, nil},
		{"r3", 1990, 2},
	}
	tb := table.MustFromValues([]string{"r", "c", "v"}, triples)
	got, err := Pivot(tb, PivotSpec{Row: "r", Column: "c", Value: "v"})
	require.NoError(t, err)

	want := map[[2]string]float64{
		{"r1", "1990"}: 1.5,
		{"r2", "2000"}: 4,
		{"r3", "1990"}: 2,
	}
	for i := 0; i < got.NumRows(); i++ {
		r := got.Cell(i, 0).String()
		for j := 1; j < got.NumCols(); j++ {
			c := got.Column(j).Name
			assert.InDelta(t, want[[2]string{r, c}], got.Cell(i, j).FloatOrZero(), 1e-9, "cell %s/%s", r, c)
		}
	}
	assert.Equal(t, []string{"r", "1990", "2000", "2010"}, got.Names())
	assert.Equal(t, table.TypeFloat, got.Column(1).Type)
}

func TestPivotSortByTotal(t *testing.T) {
	t.Parallel()

	tb := table.MustFromValues([]string{"player", "decade", "hr"}, [][]any{
		{"Aaron", 1960, 375},
		{"Bonds", 1990, 361},
		{"Bonds", 2000, 317},
		{"Mays", 1960, 350},
		{"Killebrew", 1960, 393},
	})
	got, err := Pivot(tb, PivotSpec{Row: "player", Column: "decade", Value: "hr", SortByTotal: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"Bonds", "Killebrew", "Aaron", "Mays"}, column(t, got, "player"))
	assert.Equal(t, []string{"player", "1960", "1990", "2000"}, got.Names())
}

func TestPivotStructuralErrors(t *testing.T) {
	t.Parallel()

	dup := table.MustFromValues([]string{"r", "c", "v"}, [][]any{{"a", "x", 1}, {"a", "x", 2}})
	_, err := Pivot(dup, PivotSpec{Row: "r", Column: "c", Value: "v"})
	var te *TransformationError
	require.ErrorAs(t, err, &te)
	assert.Contains(t, err.Error(), "duplicate")

	nullKey := table.MustFromValues([]string{"r", "c", "v"}, [][]any{{nil, "x", 1}})
	_, err = Pivot(nullKey, PivotSpec{Row: "r", Column: "c", Value: "v"})
	require.ErrorAs(t, err, &te)

	clash := table.MustFromValues([]string{"r", "c", "v"}, [][]any{{"a", "r", 1}, {"a", "x", 2}})
	_, err = Pivot(clash, PivotSpec{Row: "r", Column: "c", Value: "v"})
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "pivot", te.Op)
	assert.Contains(t, te.Reason, "collides")
}

func TestInfiniteValuesReadAsZero(t *testing.T) {
	t.Parallel()

	inf := math.Inf(1)

	t.Run("sum", func(t *testing.T) {
		t.Parallel()
		tb := table.MustFromValues([]string{"key", "val"}, [][]any{{2010, inf}, {2010, 3.0}, {2011, math.Inf(-1)}})
		got, err := Aggregate(tb, []string{"key"}, Measure{Column: "val", Func: Sum, As: "total"})
		require.NoError(t, err)
		assert.Equal(t, []string{"3", "0"}, column(t, got, "total"))
	})

	t.Run("pivot", func(t *testing.T) {
		t.Parallel()
		tb := table.MustFromValues([]string{"r", "c", "v"}, [][]any{{"a", "x", inf}, {"a", "y", 2}, {"b", "x", 4}})
		got, err := Pivot(tb, PivotSpec{Row: "r", Column: "c", Value: "v"})
		require.NoError(t, err)
		assert.Equal(t, []string{"0", "4"}, column(t, got, "x"))
		assert.Equal(t, []string{"2", "0"}, column(t, got, "y"))
	})

	t.Run("rank", func(t *testing.T) {
		t.Parallel()
		tb := table.MustFromValues([]string{"decade", "player", "hr"}, [][]any{
			{1990, "A", inf},
			{1990, "B", 5},
			{1990, "C", -1},
		})
		got, err := Rank(tb, []string{"decade"}, "hr", 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"B", "A", "C"}, column(t, got, "player"))
	})
}

func TestAggregateGroupsNullWithEmptyText(t *testing.T) {
	t.Parallel()

	tb := table.MustFromValues([]string{"team", "hr"}, [][]any{{nil, 1}, {"", 2}, {"NYA", 3}})
	got, err := Aggregate(tb, []string{"team"}, Measure{Column: "hr", Func: Sum, As: "total"})
	require.NoError(t, err)
	assert.Equal(t, []string{"3", "3"}, column(t, got, "total"))
	assert.Equal(t, 2, got.NumRows())
}

func TestAggregateSumKeepsIntegerPrecision(t *testing.T) {
	t.Parallel()

	big := int64(1) << 53
	tb := table.MustFromValues([]string{"key", "val"}, [][]any{{1, big}, {1, 1}, {1, nil}})
	got, err := Aggregate(tb, []string{"key"}, Measure{Column: "val", Func: Sum, As: "total"})
	require.NoError(t, err)
	assert.Equal(t, table.TypeInt, got.Column(1).Type)
	v, ok := got.Cell(0, 1).Int()
	require.True(t, ok)
	assert.Equal(t, big+1, v)
}

func TestCorrelateSymmetricAndBounded(t *testing.T) {
	t.Parallel()

	tb := table.MustFromValues([]string{"wins", "runs", "era", "errors"}, [][]any{
		{100, 850, 3.2, 90},
		{95, 800, 3.5, 100},
		{70, 650, 4.6, 120},
		{60, 600, 5.1, 80},
		{nil, 700, 4.0, 110},
		{88, "", 3.9, 95},
		{82, 720, 4.1, 130},
	})
	metrics := []string{"wins", "runs", "era", "errors"}
	got, err := Correlate(tb, metrics)
	require.NoError(t, err)

	assert.Equal(t, append([]string{MetricColumn}, metrics...), got.Names())
	assert.Equal(t, metrics, column(t, got, MetricColumn))
	for i := range metrics {
		for j := range metrics {
			v := got.Cell(i, j+1).FloatOrZero()
			assert.GreaterOrEqual(t, v, -1.0)
			assert.LessOrEqual(t, v, 1.0)
			assert.Equal(t, v, got.Cell(j, i+1).FloatOrZero(), "symmetry at %d,%d", i, j)
		}
		assert.Equal(t, 1.0, got.Cell(i, i+1).FloatOrZero())
	}
	assert.Greater(t, got.Cell(0, 2).FloatOrZero(), 0.9, "wins and runs move together")
	assert.Less(t, got.Cell(0, 3).FloatOrZero(), -0.9, "wins and ERA move apart")
}

func TestCorrelatePerfectLinear(t *testing.T) {
	t.Parallel()

	tb := table.MustFromValues([]string{"x", "y", "z"}, [][]any{
		{1, 2, 10},
		{2, 4, 8},
		{3, 6, 6},
	})
	got, err := Correlate(tb, []string{"x", "y", "z"})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, got.Cell(0, 2).FloatOrZero(), 1e-12)
	assert.InDelta(t, -1.0, got.Cell(0, 3).FloatOrZero(), 1e-12)
}

func TestCorrelateNeedsTwoCompleteRows(t *testing.T) {
	t.Parallel()

	tb := table.MustFromValues([]string{"a", "b"}, [][]any{
		{1, 2},
		{nil, 3},
		{4, ""},
	})
	_, err := Correlate(tb, []string{"a", "b"})
	var te *TransformationError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "correlate", te.Op)
	assert.Contains(t, te.Reason, "1 complete rows")

	constant := table.MustFromValues([]string{"a", "b"}, [][]any{{1, 5}, {2, 5}})
	_, err = Correlate(constant, []string{"a", "b"})
	require.ErrorAs(t, err, &te)

	_, err = Correlate(constant, nil)
	require.ErrorAs(t, err, &te)
	_, err = Correlate(constant, []string{"a", "a"})
	require.ErrorAs(t, err, &te)
}

func TestComplete(t *testing.T) {
	t.Parallel()

	tb := table.MustFromValues([]string{"id", "a", "b"}, [][]any{
		{"x", 1, "2.5"},
		{"y", nil, 3},
		{"z", 4, 5},
	})
	got, err := Complete(tb, []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got.Names())
	assert.Equal(t, []string{"1", "4"}, column(t, got, "a"))
	assert.Equal(t, []string{"2.5", "5"}, column(t, got, "b"))
	assert.True(t, math.Abs(got.Cell(0, 1).FloatOrZero()-2.5) < 1e-12)
}

func TestSortAndHead(t *testing.T) {
	t.Parallel()

	tb := table.MustFromValues([]string{"year", "hr"}, [][]any{
		{2012, 10},
		{2010, 30},
		{2011, 10},
	})
	asc, err := Sort(tb, "year", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"2010", "2011", "2012"}, column(t, asc, "year"))

	desc, err := Sort(tb, "hr", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"2010", "2012", "2011"}, column(t, desc, "year"), "ties keep input order")

	assert.Equal(t, 2, Head(tb, 2).NumRows())
	assert.Equal(t, 3, Head(tb, 10).NumRows())
	assert.Equal(t, 3, tb.NumRows(), "input is untouched")
}
