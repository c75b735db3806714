package main

import (
	"log"
	"time"

	"mlbstats/internal/config"
	"mlbstats/internal/metrics"
	"mlbstats/internal/metrics/datadog"
	"mlbstats/internal/metrics/prompush"
)

// setupMetrics installs the configured backend and returns the function that
// flushes it at exit. A backend that fails to initialize leaves metrics
// disabled rather than failing the run. With --verbose every step timing is
// also logged.
func setupMetrics(cfg config.Config, runID string) (flush func()) {
	var b metrics.Backend

	switch cfg.MetricsBackend {
	case "pushgateway":
		pb, err := prompush.NewBackend(cfg.Job, cfg.PushgatewayURL, prompush.WithGrouping("run_id", runID))
		if err != nil {
			log.Printf("metrics: failed to init prom push backend: %v; using nop", err)
			break
		}
		log.Printf("metrics: url=%v, backend=%v, job_name=%v", cfg.PushgatewayURL, cfg.MetricsBackend, cfg.Job)
		b = pb

	case "datadog":
		db, err := datadog.NewBackend(datadog.Config{
			Addr: cfg.StatsdAddr,
			Tags: []string{"run_id:" + runID},
		})
		if err != nil {
			log.Printf("metrics: failed to init datadog backend: %v; using nop", err)
			break
		}
		log.Printf("metrics: addr=%v, backend=%v", cfg.StatsdAddr, cfg.MetricsBackend)
		b = db

	case "", "none":
		if cfg.Verbose {
			log.Printf("metrics: disabled (backend=%q)", cfg.MetricsBackend)
		}

	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", cfg.MetricsBackend)
	}

	if cfg.Verbose {
		b = stepLogger{next: b}
	}
	if b == nil {
		return func() {}
	}
	metrics.SetBackend(b)
	return func() {
		if err := metrics.Flush(); err != nil {
			log.Printf("metrics: flush error: %v", err)
		}
	}
}

// stepLogger logs step timings and forwards everything to next, if set.
type stepLogger struct {
	next metrics.Backend
}

func (s stepLogger) IncCounter(name string, delta float64, labels metrics.Labels) {
	if s.next != nil {
		s.next.IncCounter(name, delta, labels)
	}
}

func (s stepLogger) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name == metrics.StepDurationSeconds {
		d := time.Duration(value * float64(time.Second))
		log.Printf("step: %s %s took=%s", labels["step"], labels["status"], d.Truncate(time.Microsecond))
	}
	if s.next != nil {
		s.next.ObserveHistogram(name, value, labels)
	}
}

func (s stepLogger) Flush() error {
	if s.next == nil {
		return nil
	}
	return s.next.Flush()
}
