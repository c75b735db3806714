package prompush

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"mlbstats/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// readCounterValue reads the current value of a Counter for assertions in tests.
func readCounterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()

	m := &dto.Metric{}
	require.NoError(t, c.Write(m))
	require.NotNil(t, m.GetCounter())
	return m.GetCounter().GetValue()
}

// readSummaryCountSum reads sample count and sum from a SummaryVec.
func readSummaryCountSum(t *testing.T, v *prometheus.SummaryVec, labels ...string) (uint64, float64) {
	t.Helper()

	m := &dto.Metric{}
	metric, ok := v.WithLabelValues(labels...).(prometheus.Metric)
	require.True(t, ok)
	require.NoError(t, metric.Write(m))
	require.NotNil(t, m.GetSummary())
	return m.GetSummary().GetSampleCount(), m.GetSummary().GetSampleSum()
}

func TestNewBackend(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		jobName     string
		gatewayURL  string
		wantErr     bool
		wantJobName string
	}{
		{name: "missing gateway URL returns error", jobName: "nightly", wantErr: true},
		{name: "empty job name uses default", gatewayURL: "http://pushgateway:9091", wantJobName: "mlbstats"},
		{name: "explicit job name is preserved", jobName: "nightly", gatewayURL: "http://pushgateway:9091", wantJobName: "nightly"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			b, err := NewBackend(tt.jobName, tt.gatewayURL)
			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, b)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantJobName, b.jobName)
			assert.Equal(t, tt.gatewayURL, b.gatewayURL)
			require.NotNil(t, b.stepCounter)
			require.NotNil(t, b.stepDuration)
			require.NotNil(t, b.rowCounter)
		})
	}
}

func TestIncCounter(t *testing.T) {
	t.Parallel()

	b, err := NewBackend("mlbstats", "http://example.com")
	require.NoError(t, err)

	b.IncCounter(metrics.StepTotal, 3, metrics.Labels{"step": "query", "status": "success"})
	b.IncCounter(metrics.RowsTotal, 5, metrics.Labels{"kind": "fetched"})
	b.IncCounter(metrics.RowsTotal, 0.5, metrics.Labels{"kind": "fetched"})
	b.IncCounter("unknown_metric", 10, metrics.Labels{"foo": "bar"})

	assert.Equal(t, 3.0, readCounterValue(t, b.stepCounter.WithLabelValues("query", "success")))
	assert.Equal(t, 5.5, readCounterValue(t, b.rowCounter.WithLabelValues("fetched")))
	assert.Equal(t, 0.0, readCounterValue(t, b.stepCounter.WithLabelValues("x", "y")))
}

func TestIncCounterNilMetrics(t *testing.T) {
	t.Parallel()

	b := &Backend{}
	b.IncCounter(metrics.StepTotal, 1, metrics.Labels{"step": "s", "status": "success"})
	b.IncCounter(metrics.RowsTotal, 1, metrics.Labels{"kind": "fetched"})
	b.ObserveHistogram(metrics.StepDurationSeconds, 1, metrics.Labels{})
}

func TestObserveHistogram(t *testing.T) {
	t.Parallel()

	b, err := NewBackend("mlbstats", "http://example.com")
	require.NoError(t, err)

	lbls := metrics.Labels{"step": "shape", "status": "success"}
	b.ObserveHistogram(metrics.StepDurationSeconds, 1.5, lbls)
	b.ObserveHistogram("other_metric", 2.0, lbls)

	count, sum := readSummaryCountSum(t, b.stepDuration, "shape", "success")
	assert.Equal(t, uint64(1), count)
	assert.Equal(t, 1.5, sum)
}

func TestFlush(t *testing.T) {
	t.Parallel()

	type pushRequest struct {
		method  string
		path    string
		bodyLen int
	}
	reqCh := make(chan pushRequest, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		body, _ := io.ReadAll(r.Body)
		reqCh <- pushRequest{method: r.Method, path: r.URL.Path, bodyLen: len(body)}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	b, err := NewBackend("nightly", server.URL, WithGrouping("run_id", "abc123"), WithGrouping("", "ignored"))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"run_id": "abc123"}, b.grouping)

	b.IncCounter(metrics.StepTotal, 1, metrics.Labels{"step": "query", "status": "success"})
	require.NoError(t, b.Flush())

	var got pushRequest
	select {
	case got = <-reqCh:
	default:
		t.Fatal("Flush did not send a request to the Pushgateway")
	}
	assert.Equal(t, http.MethodPut, got.method)
	assert.Equal(t, "/metrics/job/nightly/run_id/abc123", got.path)
	assert.Positive(t, got.bodyLen)
}

func TestFlushGatewayError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	b, err := NewBackend("nightly", server.URL)
	require.NoError(t, err)
	err = b.Flush()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "prompush: push")
}
