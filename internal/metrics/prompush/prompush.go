// Package prompush implements a Prometheus Pushgateway backend for the
// metrics package.
//
// mlbstats is a batch tool that exits after one run, so there is nothing to
// scrape; instead the registry is pushed to a Pushgateway on Flush. All
// Prometheus-specific dependencies stay in this package.
package prompush

import (
	"fmt"

	"mlbstats/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Backend is a Prometheus Pushgateway metrics backend.
type Backend struct {
	gatewayURL string // e.g. http://pushgateway:9091
	jobName    string // Pushgateway "job" group
	grouping   map[string]string
	reg        *prometheus.Registry

	stepCounter  *prometheus.CounterVec // mlbstats_step_total
	stepDuration *prometheus.SummaryVec // mlbstats_step_duration_seconds
	rowCounter   *prometheus.CounterVec // mlbstats_rows_total
}

// Option customizes a Backend.
type Option func(*Backend)

// WithGrouping adds a Pushgateway grouping label, e.g. a per-run id, so
// concurrent runs of the same job do not overwrite each other.
func WithGrouping(name, value string) Option {
	return func(b *Backend) {
		if name != "" && value != "" {
			b.grouping[name] = value
		}
	}
}

// NewBackend constructs a Prometheus Pushgateway backend.
// jobName: the Pushgateway "job" name.
// gatewayURL: base URL of the Pushgateway server.
func NewBackend(jobName, gatewayURL string, opts ...Option) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = "mlbstats"
	}

	reg := prometheus.NewRegistry()

	// job is the Pushgateway grouping key, so it is not repeated as a label.
	stepCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metrics.StepTotal,
			Help: "Total number of pipeline step executions, partitioned by step and status.",
		},
		[]string{"step", "status"},
	)
	stepDuration := prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       metrics.StepDurationSeconds,
			Help:       "Duration of pipeline steps in seconds, partitioned by step and status.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"step", "status"},
	)
	rowCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metrics.RowsTotal,
			Help: "Row counts per kind (fetched, shaped).",
		},
		[]string{"kind"},
	)

	if err := reg.Register(stepCounter); err != nil {
		return nil, fmt.Errorf("prompush: register step counter: %w", err)
	}
	if err := reg.Register(stepDuration); err != nil {
		return nil, fmt.Errorf("prompush: register step summary: %w", err)
	}
	if err := reg.Register(rowCounter); err != nil {
		return nil, fmt.Errorf("prompush: register row counter: %w", err)
	}

	b := &Backend{
		gatewayURL:   gatewayURL,
		jobName:      jobName,
		grouping:     map[string]string{},
		reg:          reg,
		stepCounter:  stepCounter,
		stepDuration: stepDuration,
		rowCounter:   rowCounter,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case metrics.StepTotal:
		if b.stepCounter == nil {
			return
		}
		b.stepCounter.WithLabelValues(labels["step"], labels["status"]).Add(delta)

	case metrics.RowsTotal:
		if b.rowCounter == nil {
			return
		}
		b.rowCounter.WithLabelValues(labels["kind"]).Add(delta)

	default:
		// unknown metric name: ignore
	}
}

func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name != metrics.StepDurationSeconds || b.stepDuration == nil {
		return
	}
	b.stepDuration.WithLabelValues(labels["step"], labels["status"]).Observe(value)
}

// Flush pushes the current registry to the Pushgateway.
func (b *Backend) Flush() error {
	p := push.New(b.gatewayURL, b.jobName).Gatherer(b.reg)
	for k, v := range b.grouping {
		p = p.Grouping(k, v)
	}
	if err := p.Push(); err != nil {
		return fmt.Errorf("prompush: push: %w", err)
	}
	return nil
}
