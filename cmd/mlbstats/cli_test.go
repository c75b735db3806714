package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mlbstats/internal/analysis"
	"mlbstats/internal/config"
	"mlbstats/internal/storage/storagetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var seasons = []string{
	`CREATE TABLE lahman."Batting" ("playerID" TEXT, "yearID" INTEGER, "HR" TEXT)`,
	`INSERT INTO lahman."Batting" VALUES
		('a', 2010, '5'), ('b', 2010, '2'), ('c', 2011, '3'), ('d', 2009, '40')`,
}

func env(kv map[string]string) func(string) string {
	return func(k string) string { return kv[k] }
}

// runCLI executes the command tree with the given opener standing in for the
// storage provider.
func runCLI(t *testing.T, o analysis.Opener, getenv func(string) string, args ...string) (stdout, stderr string, err error) {
	t.Helper()

	var out, errOut bytes.Buffer
	a := &app{getenv: getenv, stdout: &out, stderr: &errOut}
	a.newOpener = func(config.Config) (analysis.Opener, error) {
		if o == nil {
			return nil, errors.New("no database in this test")
		}
		return o, nil
	}
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(&errOut)
	err = root.Execute()
	return out.String(), errOut.String(), err
}

func TestCheckRequiresDatabaseURL(t *testing.T) {
	_, stderr, err := runCLI(t, nil, env(nil), "check")
	require.Error(t, err)

	var missing *config.MissingSettingError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, config.EnvDatabaseURL, missing.Setting)
	assert.Contains(t, stderr, config.EnvDatabaseURL)
}

func TestCheckReachesDatabase(t *testing.T) {
	db := storagetest.NewSQLite(t)

	stdout, _, err := runCLI(t, db, env(map[string]string{config.EnvDatabaseURL: "postgres://localhost/lahman"}), "check")
	require.NoError(t, err)
	assert.Contains(t, stdout, "database reachable")

	opens, closes := db.Balance()
	assert.Equal(t, 1, opens)
	assert.Equal(t, 1, closes)
}

func TestCheckAcceptsUppercaseFormat(t *testing.T) {
	db := storagetest.NewSQLite(t)

	stdout, stderr, err := runCLI(t, db, env(map[string]string{config.EnvDatabaseURL: "postgres://localhost/lahman"}),
		"check", "--format=CSV")
	require.NoError(t, err)
	assert.Contains(t, stdout, "database reachable")
	assert.NotContains(t, stderr, "format")
}

func TestVerboseLogsStepTimings(t *testing.T) {
	db := storagetest.NewSQLite(t, seasons...)

	_, stderr, err := runCLI(t, db, env(nil), "home-runs", "-v", "--from-year", "2010", "--to-year", "2011")
	require.NoError(t, err)

	for _, step := range []string{"query", "validate", "shape"} {
		assert.Contains(t, stderr, "step: "+step+" success took=")
	}
	assert.Contains(t, stderr, "analyses completed")
}

func TestHomeRunsText(t *testing.T) {
	db := storagetest.NewSQLite(t, seasons...)

	stdout, _, err := runCLI(t, db, env(nil), "home-runs", "--from-year", "2010", "--to-year", "2011")
	require.NoError(t, err)

	assert.Contains(t, stdout, "== Total home runs by year (2010-2011) ==")
	assert.Contains(t, stdout, "total_home_runs")
	assert.Contains(t, stdout, "home-runs-by-year: peak season: 2010 (7)")
	assert.NotContains(t, stdout, "2009")
}

func TestHomeRunsCSVKeepsStdoutClean(t *testing.T) {
	db := storagetest.NewSQLite(t, seasons...)

	stdout, stderr, err := runCLI(t, db, env(map[string]string{config.EnvFormat: "csv"}),
		"home-runs", "--from-year", "2010", "--to-year", "2011")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	assert.Equal(t, []string{"yearID,total_home_runs", "2010,7", "2011,3"}, lines)
	assert.Contains(t, stderr, "peak season")
}

func TestHomeRunsWritesFile(t *testing.T) {
	db := storagetest.NewSQLite(t, seasons...)
	dir := t.TempDir()

	_, _, err := runCLI(t, db, env(nil), "home-runs", "--from-year", "2010", "--to-year", "2011",
		"--out", dir, "--format", "csv")
	require.NoError(t, err)

	b, err := os.ReadFile(filepath.Join(dir, analysis.HomeRunsByYear+".csv"))
	require.NoError(t, err)
	assert.Equal(t, "yearID,total_home_runs\n2010,7\n2011,3\n", string(b))
}

func TestStrictFailsOnEmptyResult(t *testing.T) {
	db := storagetest.NewSQLite(t, seasons...)

	_, _, err := runCLI(t, db, env(nil), "home-runs", "--from-year", "1900", "--to-year", "1901", "--strict")
	require.Error(t, err)
	assert.Contains(t, err.Error(), analysis.HomeRunsByYear)
}

func TestRejectsBadFormat(t *testing.T) {
	_, _, err := runCLI(t, nil, env(nil), "home-runs", "--format", "xml")
	require.Error(t, err)
}

func TestExecuteExitCode(t *testing.T) {
	var out, errOut bytes.Buffer
	code := execute([]string{"home-runs", "--storage", "nope"}, env(nil), &out, &errOut)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut.String(), "Error: ")

	code = execute([]string{"--help"}, env(nil), &out, &errOut)
	assert.Equal(t, 0, code)
}
