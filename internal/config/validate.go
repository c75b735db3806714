package config

import (
	"fmt"
	"net/url"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError blocks execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced to the user but does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single lint finding for a Config. Path names the setting
// (environment variable or flag).
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue has SeverityError.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validate performs static checks over c without touching the network. It
// does not mutate c; callers decide whether warnings are fatal.
func Validate(c Config) []Issue {
	var issues []Issue

	issues = append(issues, validateDatabase(c)...)

	if strings.TrimSpace(c.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "job",
			Message:  "job must not be empty; it labels metrics for this run",
		})
	}

	issues = append(issues, validateMetrics(c)...)

	// Matches report.ParseFormat.
	switch strings.ToLower(strings.TrimSpace(c.Format)) {
	case "text", "csv":
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "format",
			Message:  fmt.Sprintf("unknown report format %q; use text or csv", c.Format),
		})
	}

	return issues
}

func validateDatabase(c Config) []Issue {
	var issues []Issue

	if strings.TrimSpace(c.StorageKind) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage",
			Message:  "storage kind must not be empty",
		})
	} else if c.StorageKind != "postgres" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "storage",
			Message:  fmt.Sprintf("unknown storage kind %q; ensure a matching backend is registered", c.StorageKind),
		})
	}

	dsn := strings.TrimSpace(c.DatabaseURL)
	if dsn == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     EnvDatabaseURL,
			Message:  "connection string must be set in the environment",
		})
		return issues
	}

	// Keyword/value DSNs ("host=... dbname=...") have no scheme and are left
	// to the driver.
	if strings.Contains(dsn, "://") {
		u, err := url.Parse(dsn)
		if err != nil {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     EnvDatabaseURL,
				Message:  "connection string is not a valid URL",
			})
			return issues
		}
		switch u.Scheme {
		case "postgres", "postgresql":
		default:
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     EnvDatabaseURL,
				Message:  fmt.Sprintf("unexpected URL scheme %q; expected postgres or postgresql", u.Scheme),
			})
		}
		if strings.Trim(u.Path, "/") == "" {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     EnvDatabaseURL,
				Message:  "connection string names no database; the server default will be used",
			})
		}
	}

	return issues
}

func validateMetrics(c Config) []Issue {
	var issues []Issue

	switch c.MetricsBackend {
	case "", "none":
	case "pushgateway":
		if strings.TrimSpace(c.PushgatewayURL) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "pushgateway-url",
				Message:  "pushgateway backend requires a gateway URL",
			})
		}
	case "datadog":
		if strings.TrimSpace(c.StatsdAddr) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "statsd-addr",
				Message:  "datadog backend requires a DogStatsD address",
			})
		}
	default:
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "metrics-backend",
			Message:  fmt.Sprintf("unknown metrics backend %q; metrics will be disabled", c.MetricsBackend),
		})
	}

	return issues
}
