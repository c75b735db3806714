package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"mlbstats/internal/table"
	"mlbstats/internal/transformer"
	"mlbstats/internal/validate"
)

// Correlation is one metric's coefficient against a target metric.
type Correlation struct {
	Metric    string
	R         float64
	Strength  string
	Direction string
}

// Strength buckets |r|: above 0.7 very strong, above 0.5 strong, above 0.3
// moderate, otherwise weak.
func Strength(r float64) string {
	a := math.Abs(r)
	switch {
	case a > 0.7:
		return "very strong"
	case a > 0.5:
		return "strong"
	case a > 0.3:
		return "moderate"
	default:
		return "weak"
	}
}

// Direction is "positive" for r > 0 and "negative" otherwise.
func Direction(r float64) string {
	if r > 0 {
		return "positive"
	}
	return "negative"
}

// Coefficient reads cell (a, b) of a correlation matrix built by
// transformer.Correlate.
func Coefficient(matrix *table.Table, a, b string) (float64, error) {
	row, err := metricRow(matrix, a)
	if err != nil {
		return 0, err
	}
	c, ok := matrix.Get(row, b)
	if !ok || b == transformer.MetricColumn {
		return 0, &transformer.SchemaError{Op: "coefficient", Column: b}
	}
	return c.FloatOrZero(), nil
}

// CorrelationsWith lists every other metric's coefficient against target,
// strongest |r| first. Ties keep matrix order.
func CorrelationsWith(matrix *table.Table, target string) ([]Correlation, error) {
	row, err := metricRow(matrix, target)
	if err != nil {
		return nil, err
	}
	var out []Correlation
	for j := 0; j < matrix.NumCols(); j++ {
		name := matrix.Column(j).Name
		if name == transformer.MetricColumn || name == target {
			continue
		}
		r := matrix.Cell(row, j).FloatOrZero()
		out = append(out, Correlation{Metric: name, R: r, Strength: Strength(r), Direction: Direction(r)})
	}
	sort.SliceStable(out, func(a, b int) bool { return math.Abs(out[a].R) > math.Abs(out[b].R) })
	return out, nil
}

func metricRow(matrix *table.Table, metric string) (int, error) {
	col, ok := matrix.ColumnByName(transformer.MetricColumn)
	if !ok {
		return 0, &transformer.SchemaError{Op: "correlations", Column: transformer.MetricColumn}
	}
	for i := 0; i < col.Len(); i++ {
		if col.Cell(i).String() == metric {
			return i, nil
		}
	}
	return 0, &transformer.SchemaError{Op: "correlations", Column: metric}
}

// DecadeLeaders returns the top hitter of each decade from the raw
// distribution rows, ordered by decade.
func DecadeLeaders(raw *table.Table) (*table.Table, error) {
	top, err := transformer.Rank(raw, []string{"decade"}, "total_home_runs", 1)
	if err != nil {
		return nil, err
	}
	return transformer.Sort(top, "decade", false)
}

// Highlight names the decade holding the largest value of a statistic.
type Highlight struct {
	Stat   string
	Decade table.Cell
	Value  float64
}

// Highlights picks, from a DecadeSummary table, the decade with the highest
// median, the highest mean and the most players. The first decade wins ties.
func Highlights(summary *table.Table) ([]Highlight, error) {
	stats := []string{"median", "mean", "players"}
	idx := make([]int, 0, len(stats)+1)
	for _, name := range append([]string{"decade"}, stats...) {
		j, ok := summary.Lookup(name)
		if !ok {
			return nil, &transformer.SchemaError{Op: "highlights", Column: name}
		}
		idx = append(idx, j)
	}
	var out []Highlight
	for s, name := range stats {
		best := -1
		var bestV float64
		for i := 0; i < summary.NumRows(); i++ {
			v, ok := summary.Cell(i, idx[s+1]).Float()
			if ok && (best < 0 || v > bestV) {
				best, bestV = i, v
			}
		}
		if best >= 0 {
			out = append(out, Highlight{Stat: name, Decade: summary.Cell(best, idx[0]), Value: bestV})
		}
	}
	return out, nil
}

func homeRunNotes(raw, shaped *table.Table, _ validate.Report) ([]string, error) {
	if shaped.NumRows() == 0 {
		return []string{"no seasons in range"}, nil
	}
	peak, err := transformer.Sort(shaped, "total_home_runs", true)
	if err != nil {
		return nil, err
	}
	var total float64
	col, _ := shaped.ColumnByName("total_home_runs")
	for i := 0; i < col.Len(); i++ {
		total += col.Cell(i).FloatOrZero()
	}
	return []string{
		fmt.Sprintf("seasons: %d, total home runs: %.0f", shaped.NumRows(), total),
		fmt.Sprintf("peak season: %s (%s)", peak.Cell(0, 0), peak.Cell(0, 1)),
	}, nil
}

func topPerformerNotes(_, shaped *table.Table, _ validate.Report) ([]string, error) {
	if shaped.NumRows() == 0 {
		return []string{"no qualifying players"}, nil
	}
	decades := shaped.Names()[1:]
	return []string{
		fmt.Sprintf("players: %d across decades %s", shaped.NumRows(), strings.Join(decades, ", ")),
		fmt.Sprintf("leader: %s", shaped.Cell(0, 0)),
	}, nil
}

func distributionNotes(raw, shaped *table.Table, _ validate.Report) ([]string, error) {
	var notes []string
	for i := 0; i < shaped.NumRows(); i++ {
		get := func(name string) table.Cell {
			c, _ := shaped.Get(i, name)
			return c
		}
		notes = append(notes, fmt.Sprintf(
			"%ss: %s players, median=%.1f, mean=%.1f, max=%s, q75=%.1f, 100+=%s, 200+=%s",
			get("decade"), get("players"),
			get("median").FloatOrZero(), get("mean").FloatOrZero(),
			get("max"), get("q75").FloatOrZero(),
			get("players_100_plus"), get("players_200_plus")))
	}

	hl, err := Highlights(shaped)
	if err != nil {
		return nil, err
	}
	for _, h := range hl {
		notes = append(notes, fmt.Sprintf("highest %s: %ss (%.1f)", h.Stat, h.Decade, h.Value))
	}

	leaders, err := DecadeLeaders(raw)
	if err != nil {
		return nil, err
	}
	for i := 0; i < leaders.NumRows(); i++ {
		d, _ := leaders.Get(i, "decade")
		p, _ := leaders.Get(i, "playerID")
		hr, _ := leaders.Get(i, "total_home_runs")
		notes = append(notes, fmt.Sprintf("top hitter %ss: %s (%s HR)", d, p, hr))
	}
	return notes, nil
}

// notablePairs are printed alongside the wins ranking.
var notablePairs = [][2]string{
	{"runs_scored", "batting_average"},
	{"runs_allowed", "team_era"},
	{"home_runs", "runs_scored"},
	{"errors", "wins"},
}

func correlationNotes(raw, matrix *table.Table, rep validate.Report) ([]string, error) {
	var notes []string

	complete, err := transformer.Complete(raw, TeamMetrics)
	if err != nil {
		return nil, err
	}
	notes = append(notes, fmt.Sprintf("team seasons: %d, complete: %d", rep.RowCount, complete.NumRows()))
	for _, c := range rep.Columns {
		if c.Nulls > 0 && rep.RowCount > 0 {
			notes = append(notes, fmt.Sprintf("missing %s: %d (%.1f%%)", c.Name, c.Nulls, 100*float64(c.Nulls)/float64(rep.RowCount)))
		}
	}

	wins, err := CorrelationsWith(matrix, "wins")
	if err != nil {
		return nil, err
	}
	for _, c := range wins {
		notes = append(notes, fmt.Sprintf("wins vs %s: %.3f (%s %s)", c.Metric, c.R, c.Strength, c.Direction))
	}
	for _, p := range notablePairs {
		r, err := Coefficient(matrix, p[0], p[1])
		if err != nil {
			return nil, err
		}
		notes = append(notes, fmt.Sprintf("%s vs %s: %.3f", p[0], p[1], r))
	}
	return notes, nil
}
