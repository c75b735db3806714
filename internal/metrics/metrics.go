// Package metrics provides a small, backend-agnostic abstraction for recording
// operational metrics from an analysis run.
//
// It exposes a narrow Backend interface (counters and timings) and a global,
// pluggable backend that defaults to a no-op implementation, so instrumented
// code is always safe to call even when no metrics system is configured.
// Concrete systems live in subpackages (prompush, datadog) and are installed
// once at startup with SetBackend.
package metrics

import "time"

// Metric names emitted by the helpers below.
const (
	StepTotal           = "mlbstats_step_total"
	StepDurationSeconds = "mlbstats_step_duration_seconds"
	RowsTotal           = "mlbstats_rows_total"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                               { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the existing
// backend. It is not safe to call concurrently with the Record helpers; call
// it once during startup.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush delegates to the current backend.
func Flush() error {
	return backend.Flush()
}

// RecordStep measures latency and success/failure of one pipeline step
// (connect, query, validate, shape).
func RecordStep(job, step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}

	lbls := Labels{
		"job":    job,
		"step":   step,
		"status": status,
	}

	backend.IncCounter(StepTotal, 1, lbls)
	backend.ObserveHistogram(StepDurationSeconds, d.Seconds(), lbls)
}

// RecordRows increments a row counter for the given job and kind, e.g.
// "fetched" for rows read from the database or "shaped" for rows handed to
// the report.
func RecordRows(job, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(RowsTotal, float64(delta), Labels{
		"job":  job,
		"kind": kind,
	})
}
