// Package datadog sends mlbstats metrics to a DogStatsD agent.
//
// Labels become "key:value" tags. The statsd client buffers datagrams, so
// Flush closes it; call Flush once at process exit.
package datadog

import (
	"fmt"
	"math"
	"sort"

	"mlbstats/internal/metrics"

	"github.com/DataDog/datadog-go/v5/statsd"
)

// Config holds Datadog backend configuration.
type Config struct {
	// Addr is the DogStatsD address, e.g. "127.0.0.1:8125" or "unix:///path/to/socket".
	Addr string

	// Namespace is prefixed to every metric name, e.g. "mlbstats.".
	Namespace string

	// Tags are applied to every metric, e.g. []string{"env:prod", "run_id:..."}.
	Tags []string
}

// client is the subset of *statsd.Client used here.
type client interface {
	Count(name string, value int64, tags []string, rate float64) error
	Histogram(name string, value float64, tags []string, rate float64) error
	Close() error
}

// Backend is a DogStatsD implementation of metrics.Backend.
type Backend struct {
	client client
}

// NewBackend dials the agent named in cfg.Addr.
func NewBackend(cfg Config) (*Backend, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("datadog: Addr is required")
	}

	opts := []statsd.Option{}
	if cfg.Namespace != "" {
		opts = append(opts, statsd.WithNamespace(cfg.Namespace))
	}
	if len(cfg.Tags) > 0 {
		opts = append(opts, statsd.WithTags(cfg.Tags))
	}

	c, err := statsd.New(cfg.Addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("datadog: create client: %w", err)
	}
	return &Backend{client: c}, nil
}

// IncCounter emits a Count. DogStatsD counts are integers, so delta is rounded.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	if b.client == nil {
		return
	}
	_ = b.client.Count(name, int64(math.Round(delta)), labelsToTags(labels), 1)
}

func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if b.client == nil {
		return
	}
	_ = b.client.Histogram(name, value, labelsToTags(labels), 1)
}

// Flush closes the client, which sends anything still buffered.
func (b *Backend) Flush() error {
	if b.client == nil {
		return nil
	}
	if err := b.client.Close(); err != nil {
		return fmt.Errorf("datadog: close: %w", err)
	}
	return nil
}

// labelsToTags converts labels to sorted "key:value" tags.
func labelsToTags(lbls metrics.Labels) []string {
	if len(lbls) == 0 {
		return nil
	}
	out := make([]string, 0, len(lbls))
	for k, v := range lbls {
		out = append(out, k+":"+v)
	}
	sort.Strings(out)
	return out
}
