package analysis

import (
	"fmt"
	"sort"

	"mlbstats/internal/query"
	"mlbstats/internal/table"
	"mlbstats/internal/transformer"
)

// Analysis names.
const (
	HomeRunsByYear      = "home-runs-by-year"
	TopPerformers       = "top-performers"
	HomeRunDistribution = "home-run-distribution"
	TeamCorrelation     = "team-correlation"
)

// Params tunes the analyses. Zero fields take the defaults from
// DefaultParams.
type Params struct {
	FromYear int
	ToYear   int
	Top      int
	MinHR    int
}

// DefaultParams returns the per-analysis defaults.
func DefaultParams(name string) Params {
	switch name {
	case HomeRunsByYear:
		return Params{FromYear: 2010, ToYear: 2024}
	case TopPerformers:
		return Params{FromYear: 1900, Top: 10}
	case HomeRunDistribution:
		return Params{FromYear: 1920, MinHR: 1}
	default:
		return Params{}
	}
}

func (p Params) withDefaults(name string) Params {
	d := DefaultParams(name)
	if p.FromYear == 0 {
		p.FromYear = d.FromYear
	}
	if p.ToYear == 0 {
		p.ToYear = d.ToYear
	}
	if p.Top == 0 {
		p.Top = d.Top
	}
	if p.MinHR == 0 {
		p.MinHR = d.MinHR
	}
	return p
}

type builder func(Params) (Analysis, error)

var catalog = map[string]builder{
	HomeRunsByYear:      homeRunsByYear,
	TopPerformers:       topPerformers,
	HomeRunDistribution: homeRunDistribution,
	TeamCorrelation:     teamCorrelation,
}

// Names lists the analyses in sorted order.
func Names() []string {
	out := make([]string, 0, len(catalog))
	for n := range catalog {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// New builds the named analysis.
func New(name string, p Params) (Analysis, error) {
	b, ok := catalog[name]
	if !ok {
		return Analysis{}, fmt.Errorf("analysis: unknown analysis %q (known: %v)", name, Names())
	}
	return b(p.withDefaults(name))
}

// hrTotal sums home runs per group. Lahman ships "HR" as text
// with empty strings for missing values.
const hrTotal = `SUM(CAST(COALESCE(NULLIF("HR", ''), '0') AS INTEGER))`

func homeRunsByYear(p Params) (Analysis, error) {
	if p.FromYear > p.ToYear {
		return Analysis{}, fmt.Errorf("analysis: from year %d is after to year %d", p.FromYear, p.ToYear)
	}
	return Analysis{
		Name:  HomeRunsByYear,
		Title: fmt.Sprintf("Total home runs by year (%d-%d)", p.FromYear, p.ToYear),
		Query: query.New(`
SELECT "yearID", "HR"
FROM lahman."Batting"
WHERE "yearID" BETWEEN @from_year AND @to_year
ORDER BY "yearID"`,
			map[string]any{"from_year": p.FromYear, "to_year": p.ToYear}),
		Shape: func(raw *table.Table) (*table.Table, error) {
			agg, err := transformer.Aggregate(raw, []string{"yearID"},
				transformer.Measure{Column: "HR", Func: transformer.Sum, As: "total_home_runs"})
			if err != nil {
				return nil, err
			}
			return transformer.Sort(agg, "yearID", false)
		},
		Notes: homeRunNotes,
	}, nil
}

func topPerformers(p Params) (Analysis, error) {
	if p.Top < 1 {
		return Analysis{}, fmt.Errorf("analysis: top must be positive, got %d", p.Top)
	}
	top := p.Top
	return Analysis{
		Name:  TopPerformers,
		Title: fmt.Sprintf("Top %d home run hitters by decade (since %d)", top, p.FromYear),
		Query: query.New(`
SELECT b.decade, TRIM(COALESCE(p."namefirst", '') || ' ' || COALESCE(p."namelast", '')) AS player_name, b.total_hr
FROM (
  SELECT "playerID", ("yearID" / 10) * 10 AS decade, `+hrTotal+` AS total_hr
  FROM lahman."Batting"
  WHERE "yearID" >= @from_year
  GROUP BY "playerID", ("yearID" / 10) * 10
) b
JOIN lahman."People" p ON b."playerID" = p."playerid"
WHERE b.total_hr > 0
ORDER BY b.decade, b.total_hr DESC, b."playerID"`,
			map[string]any{"from_year": p.FromYear}),
		Shape: func(raw *table.Table) (*table.Table, error) {
			ranked, err := transformer.Rank(raw, []string{"decade"}, "total_hr", top)
			if err != nil {
				return nil, err
			}
			return transformer.Pivot(ranked, transformer.PivotSpec{
				Row:         "player_name",
				Column:      "decade",
				Value:       "total_hr",
				SortByTotal: true,
			})
		},
		Notes: topPerformerNotes,
	}, nil
}

func homeRunDistribution(p Params) (Analysis, error) {
	return Analysis{
		Name:  HomeRunDistribution,
		Title: fmt.Sprintf("Home run distribution by decade (since %d, players with at least %d HR)", p.FromYear, p.MinHR),
		Query: query.New(`
SELECT "playerID", ("yearID" / 10) * 10 AS decade, `+hrTotal+` AS total_home_runs
FROM lahman."Batting"
WHERE "yearID" >= @from_year
GROUP BY "playerID", ("yearID" / 10) * 10
HAVING `+hrTotal+` >= @min_hr
ORDER BY decade, total_home_runs DESC, "playerID"`,
			map[string]any{"from_year": p.FromYear, "min_hr": p.MinHR}),
		Shape: DecadeSummary,
		Notes: distributionNotes,
	}, nil
}

// TeamMetrics are the team-season columns correlated by TeamCorrelation.
var TeamMetrics = []string{
	"wins", "runs_scored", "runs_allowed", "home_runs",
	"stolen_bases", "errors", "batting_average", "team_era",
}

func teamCorrelation(Params) (Analysis, error) {
	metrics := append([]string(nil), TeamMetrics...)
	return Analysis{
		Name:  TeamCorrelation,
		Title: "Correlation of team performance metrics",
		Query: query.New(`
SELECT
  yearid,
  teamid,
  w AS wins,
  r AS runs_scored,
  ra AS runs_allowed,
  hr AS home_runs,
  COALESCE(sb, 0) AS stolen_bases,
  e AS errors,
  CAST(h AS FLOAT) / NULLIF(ab, 0) AS batting_average,
  CAST(era AS FLOAT) AS team_era
FROM lahman."Teams"
WHERE ab > 0 AND era IS NOT NULL
ORDER BY yearid DESC, teamid`, nil),
		Shape: func(raw *table.Table) (*table.Table, error) {
			return transformer.Correlate(raw, metrics)
		},
		Notes: correlationNotes,
	}, nil
}

// DecadeSummary aggregates per-player decade totals into one row per decade.
func DecadeSummary(raw *table.Table) (*table.Table, error) {
	const v = "total_home_runs"
	agg, err := transformer.Aggregate(raw, []string{"decade"},
		transformer.Measure{Column: v, Func: transformer.Count, As: "players"},
		transformer.Measure{Column: v, Func: transformer.Median, As: "median"},
		transformer.Measure{Column: v, Func: transformer.Mean, As: "mean"},
		transformer.Measure{Column: v, Func: transformer.Max, As: "max"},
		transformer.Measure{Column: v, Func: transformer.Quantile, Arg: 0.75, As: "q75"},
		transformer.Measure{Column: v, Func: transformer.CountAtLeast, Arg: 100, As: "players_100_plus"},
		transformer.Measure{Column: v, Func: transformer.CountAtLeast, Arg: 200, As: "players_200_plus"},
	)
	if err != nil {
		return nil, err
	}
	return transformer.Sort(agg, "decade", false)
}
