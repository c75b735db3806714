// Package config centralizes process configuration for mlbstats. Tunables are
// defined as flags whose defaults are seeded from environment variables, so
// `--help` lists every knob and a 12-factor deployment can set everything
// from the environment.
//
// The database location is the exception: it is read only from POSTGRES_URL
// and never exposed as a flag, so credentials stay out of process listings.
//
// Typical usage:
//
//	cfg := config.Bind(cmd.PersistentFlags(), os.Getenv)
//	// ... cobra parses flags ...
//	if err := cfg.RequireDatabase(); err != nil { ... }
//
// For tests, prefer LoadFromArgs to keep them hermetic:
//
//	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
//	getenv := func(k string) string { return testEnv[k] }
//	cfg, err := config.LoadFromArgs(fs, getenv, []string{"--format=csv"})
package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
)

// Environment variable names.
const (
	EnvDatabaseURL    = "POSTGRES_URL"
	EnvStorageKind    = "MLBSTATS_STORAGE"
	EnvJob            = "MLBSTATS_JOB"
	EnvMetricsBackend = "METRICS_BACKEND"
	EnvPushgatewayURL = "PUSHGATEWAY_URL"
	EnvStatsdAddr     = "STATSD_ADDR"
	EnvOutputDir      = "MLBSTATS_OUT"
	EnvFormat         = "MLBSTATS_FORMAT"
	EnvVerbose        = "MLBSTATS_VERBOSE"
)

// Config holds all process configuration. All fields are plain values so the
// struct can be copied freely once flags are parsed.
type Config struct {
	// DatabaseURL is the connection string handed to the storage backend.
	DatabaseURL string
	// StorageKind selects the registered storage backend.
	StorageKind string

	// Job labels metrics and log lines for this run.
	Job string

	// Metrics backend: "none", "pushgateway" or "datadog".
	MetricsBackend string
	PushgatewayURL string
	StatsdAddr     string

	// OutputDir, when set, receives one file per analysis instead of stdout.
	OutputDir string
	// Format is the report format: "text" or "csv".
	Format string

	Verbose bool
}

// MissingSettingError reports a required setting that was not provided.
type MissingSettingError struct {
	Setting string
}

func (e *MissingSettingError) Error() string {
	return fmt.Sprintf("config: %s is not set", e.Setting)
}

// RequireDatabase returns a *MissingSettingError naming POSTGRES_URL when no
// connection string was configured.
func (c *Config) RequireDatabase() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return &MissingSettingError{Setting: EnvDatabaseURL}
	}
	return nil
}

// Bind defines all flags on fs, seeding their defaults from getenv, and
// returns the Config the flags write into. Values are final once fs has been
// parsed (by cobra or by LoadFromArgs).
func Bind(fs *pflag.FlagSet, getenv func(string) string) *Config {
	cfg := &Config{
		DatabaseURL: strings.TrimSpace(getenv(EnvDatabaseURL)),
	}

	envOr := func(k, d string) string {
		if v := getenv(k); v != "" {
			return v
		}
		return d
	}
	boolEnvOr := func(k string, d bool) bool {
		if v := strings.ToLower(getenv(k)); v != "" {
			switch v {
			case "1", "true", "yes", "on":
				return true
			case "0", "false", "no", "off":
				return false
			}
			if b, err := strconv.ParseBool(v); err == nil {
				return b
			}
		}
		return d
	}

	fs.StringVar(&cfg.StorageKind, "storage", envOr(EnvStorageKind, "postgres"), "Storage backend kind")
	fs.StringVar(&cfg.Job, "job", envOr(EnvJob, "mlbstats"), "Job name used for metrics and logs")

	fs.StringVar(&cfg.MetricsBackend, "metrics-backend", envOr(EnvMetricsBackend, "none"), "Metrics backend: none, pushgateway, datadog")
	fs.StringVar(&cfg.PushgatewayURL, "pushgateway-url", envOr(EnvPushgatewayURL, "http://localhost:9091"), "Prometheus Pushgateway base URL")
	fs.StringVar(&cfg.StatsdAddr, "statsd-addr", envOr(EnvStatsdAddr, "127.0.0.1:8125"), "DogStatsD address")

	fs.StringVar(&cfg.OutputDir, "out", envOr(EnvOutputDir, ""), "Directory for report files (stdout when empty)")
	fs.StringVar(&cfg.Format, "format", envOr(EnvFormat, "text"), "Report format: text or csv")
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", boolEnvOr(EnvVerbose, false), "Enable verbose logs")

	return cfg
}

// LoadFromArgs binds flags on fs and parses args. This is the hermetic entry
// point used by tests.
func LoadFromArgs(fs *pflag.FlagSet, getenv func(string) string, args []string) (*Config, error) {
	cfg := Bind(fs, getenv)
	if args == nil {
		args = []string{}
	}
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("config: parse flags: %w", err)
	}
	return cfg, nil
}
