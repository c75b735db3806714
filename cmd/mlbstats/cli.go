package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"mlbstats/internal/analysis"
	"mlbstats/internal/config"
	"mlbstats/internal/report"
	"mlbstats/internal/storage"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	getenv func(string) string
	stdout io.Writer
	stderr io.Writer

	// newOpener resolves the connection provider; tests replace it.
	newOpener func(config.Config) (analysis.Opener, error)

	cfg    *config.Config
	params analysis.Params
	strict bool
	runID  string
}

func defaultOpener(cfg config.Config) (analysis.Opener, error) {
	p, err := storage.NewProvider(cfg)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// execute runs the CLI and returns the process exit code.
func execute(args []string, getenv func(string) string, stdout, stderr io.Writer) int {
	a := &app{getenv: getenv, stdout: stdout, stderr: stderr, newOpener: defaultOpener}
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// commandAnalyses maps subcommands to analysis names.
var commandAnalyses = []struct {
	use, short, name string
}{
	{"home-runs", "Total home runs per season", analysis.HomeRunsByYear},
	{"top-performers", "Top home run hitters per decade as a player x decade matrix", analysis.TopPerformers},
	{"distribution", "Per-decade distribution of player home run totals", analysis.HomeRunDistribution},
	{"correlation", "Correlation matrix of team performance metrics", analysis.TeamCorrelation},
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "mlbstats",
		Short:         "Baseball statistics from the Lahman database",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			a.runID = uuid.NewString()
			log.SetOutput(a.stderr)
			log.SetFlags(log.LstdFlags | log.Lmsgprefix)
			log.SetPrefix("run=" + a.runID[:8] + " ")
		},
	}

	fs := root.PersistentFlags()
	a.cfg = config.Bind(fs, a.getenv)
	fs.IntVar(&a.params.FromYear, "from-year", 0, "First season (0 = analysis default)")
	fs.IntVar(&a.params.ToYear, "to-year", 0, "Last season for home-runs (0 = analysis default)")
	fs.IntVar(&a.params.Top, "top", 0, "Players per decade for top-performers (0 = 10)")
	fs.IntVar(&a.params.MinHR, "min-hr", 0, "Minimum decade home runs for distribution (0 = 1)")
	fs.BoolVar(&a.strict, "strict", false, "Fail when a query returns no rows")

	root.AddCommand(a.checkCmd())
	for _, c := range commandAnalyses {
		name := c.name
		root.AddCommand(&cobra.Command{
			Use:   c.use,
			Short: c.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.run(cmd.Context(), name)
			},
		})
	}
	root.AddCommand(&cobra.Command{
		Use:   "all",
		Short: "Run every analysis concurrently, each on its own connection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(cmd.Context(), analysis.Names()...)
		},
	})
	return root
}

func (a *app) checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Lint the configuration and verify the database is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			issues := config.Validate(*a.cfg)
			for _, iss := range issues {
				fmt.Fprintf(a.stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
			}
			if config.HasErrors(issues) {
				if err := a.cfg.RequireDatabase(); err != nil {
					return err
				}
				return errors.New("configuration is invalid")
			}

			o, err := a.newOpener(*a.cfg)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			conn, err := o.Open(ctx)
			if err != nil {
				return err
			}
			if err := conn.Close(ctx); err != nil {
				return fmt.Errorf("close: %w", err)
			}
			fmt.Fprintln(a.stdout, "ok: database reachable")
			return nil
		},
	}
}

// run executes the named analyses concurrently and writes their tables in
// the order given.
func (a *app) run(ctx context.Context, names ...string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	format, err := report.ParseFormat(a.cfg.Format)
	if err != nil {
		return err
	}

	analyses := make([]analysis.Analysis, len(names))
	for i, n := range names {
		if analyses[i], err = analysis.New(n, a.params); err != nil {
			return err
		}
	}

	o, err := a.newOpener(*a.cfg)
	if err != nil {
		return err
	}

	flush := setupMetrics(*a.cfg, a.runID)
	defer flush()

	runner := &analysis.Runner{Opener: o, Job: a.cfg.Job, RequireRows: a.strict}
	results := make([]*analysis.Result, len(analyses))
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	for i, an := range analyses {
		g.Go(func() error {
			res, err := runner.Run(gctx, an)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if a.cfg.Verbose {
		log.Printf("mlbstats: %d analyses completed in %s", len(results), time.Since(start).Truncate(time.Millisecond))
	}

	for _, res := range results {
		if err := a.emit(res, format); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) emit(res *analysis.Result, format report.Format) error {
	if a.cfg.OutputDir != "" {
		path, err := report.WriteFile(a.cfg.OutputDir, res.Name, res.Table, format)
		if err != nil {
			return err
		}
		log.Printf("report: wrote %s rows=%d", path, res.Table.NumRows())
		for _, n := range res.Notes {
			fmt.Fprintf(a.stdout, "%s: %s\n", res.Name, n)
		}
		return nil
	}

	if format == report.Text {
		fmt.Fprintf(a.stdout, "== %s ==\n", res.Title)
	}
	if err := report.Write(a.stdout, res.Table, format); err != nil {
		return err
	}
	notes := a.stdout
	if format != report.Text {
		// Keep stdout a clean CSV stream.
		notes = a.stderr
	}
	for _, n := range res.Notes {
		fmt.Fprintf(notes, "%s: %s\n", res.Name, n)
	}
	if format == report.Text {
		fmt.Fprintln(a.stdout)
	}
	return nil
}
