package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_Exposition(t *testing.T) {
	engine := NewEngine()
	defer engine.Close()

	engine.Record(100, true)
	engine.Record(300, false)
	engine.Flush()

	registry := prometheus.NewPedanticRegistry()
	require.NoError(t, registry.Register(NewCollector(engine)))

	expected := `
# HELP loadlab_requests_total Number of recorded requests since the last reset.
# TYPE loadlab_requests_total counter
loadlab_requests_total 2
# HELP loadlab_request_errors_total Number of recorded requests that failed since the last reset.
# TYPE loadlab_request_errors_total counter
loadlab_request_errors_total 1
# HELP loadlab_error_rate Fraction of failed requests since the last reset.
# TYPE loadlab_error_rate gauge
loadlab_error_rate 0.5
# HELP loadlab_request_latency_ms Cumulative request latency statistics in milliseconds.
# TYPE loadlab_request_latency_ms gauge
loadlab_request_latency_ms{stat="avg"} 200
loadlab_request_latency_ms{stat="max"} 300
loadlab_request_latency_ms{stat="min"} 100
# HELP loadlab_window_error_rate Fraction of failed requests in the most recently closed interval.
# TYPE loadlab_window_error_rate gauge
loadlab_window_error_rate 0.5
`
	err := testutil.GatherAndCompare(registry, strings.NewReader(expected),
		"loadlab_requests_total",
		"loadlab_request_errors_total",
		"loadlab_error_rate",
		"loadlab_request_latency_ms",
		"loadlab_window_error_rate",
	)
	assert.NoError(t, err)
}

func TestCollector_EmptyEngine(t *testing.T) {
	engine := NewEngine()
	defer engine.Close()

	registry := prometheus.NewRegistry()
	require.NoError(t, registry.Register(NewCollector(engine)))

	count, err := testutil.GatherAndCount(registry)
	require.NoError(t, err)
	// 3 counters, 3 cumulative stats, error rate, 2 window stats, window error rate, subscribers
	assert.Equal(t, 11, count)
}
