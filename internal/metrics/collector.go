package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsPrefix = "loadlab_"

// Collector exposes an Engine to Prometheus. Values are read from a fresh
// snapshot on every scrape, so the collector holds no state of its own.
type Collector struct {
	engine *Engine

	requestsDesc      *prometheus.Desc
	errorsDesc        *prometheus.Desc
	latencyTotalDesc  *prometheus.Desc
	latencyDesc       *prometheus.Desc
	errorRateDesc     *prometheus.Desc
	windowLatencyDesc *prometheus.Desc
	windowErrorsDesc  *prometheus.Desc
	subscribersDesc   *prometheus.Desc
}

// NewCollector creates a Prometheus collector that reads its values from
// engine on every scrape.
func NewCollector(engine *Engine) *Collector {
	return &Collector{
		engine: engine,
		requestsDesc: prometheus.NewDesc(
			metricsPrefix+"requests_total",
			"Number of recorded requests since the last reset.",
			nil, nil,
		),
		errorsDesc: prometheus.NewDesc(
			metricsPrefix+"request_errors_total",
			"Number of recorded requests that failed since the last reset.",
			nil, nil,
		),
		latencyTotalDesc: prometheus.NewDesc(
			metricsPrefix+"request_latency_ms_total",
			"Sum of recorded request durations in milliseconds.",
			nil, nil,
		),
		latencyDesc: prometheus.NewDesc(
			metricsPrefix+"request_latency_ms",
			"Cumulative request latency statistics in milliseconds.",
			[]string{"stat"}, nil,
		),
		errorRateDesc: prometheus.NewDesc(
			metricsPrefix+"error_rate",
			"Fraction of failed requests since the last reset.",
			nil, nil,
		),
		windowLatencyDesc: prometheus.NewDesc(
			metricsPrefix+"window_latency_ms",
			"Latency statistics of the most recently closed interval in milliseconds.",
			[]string{"stat"}, nil,
		),
		windowErrorsDesc: prometheus.NewDesc(
			metricsPrefix+"window_error_rate",
			"Fraction of failed requests in the most recently closed interval.",
			nil, nil,
		),
		subscribersDesc: prometheus.NewDesc(
			metricsPrefix+"subscribers",
			"Number of live snapshot subscribers.",
			nil, nil,
		),
	}
}

// Describe is necessary to implement the prometheus.Collector interface
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.requestsDesc
	ch <- c.errorsDesc
	ch <- c.latencyTotalDesc
	ch <- c.latencyDesc
	ch <- c.errorRateDesc
	ch <- c.windowLatencyDesc
	ch <- c.windowErrorsDesc
	ch <- c.subscribersDesc
}

// Collect is necessary to implement the prometheus.Collector interface
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snapshot := c.engine.Snapshot()

	ch <- prometheus.MustNewConstMetric(c.requestsDesc, prometheus.CounterValue, float64(snapshot.TotalRequests))
	ch <- prometheus.MustNewConstMetric(c.errorsDesc, prometheus.CounterValue, float64(snapshot.TotalErrors))
	ch <- prometheus.MustNewConstMetric(c.latencyTotalDesc, prometheus.CounterValue, snapshot.TotalLatency)
	ch <- prometheus.MustNewConstMetric(c.latencyDesc, prometheus.GaugeValue, snapshot.AvgLatency, "avg")
	ch <- prometheus.MustNewConstMetric(c.latencyDesc, prometheus.GaugeValue, snapshot.MinLatency, "min")
	ch <- prometheus.MustNewConstMetric(c.latencyDesc, prometheus.GaugeValue, snapshot.MaxLatency, "max")
	ch <- prometheus.MustNewConstMetric(c.errorRateDesc, prometheus.GaugeValue, snapshot.ErrorRate)

	// Zeroed until the first interval closes.
	var latest MetricPoint
	if n := len(snapshot.History); n > 0 {
		latest = snapshot.History[n-1]
	}
	ch <- prometheus.MustNewConstMetric(c.windowLatencyDesc, prometheus.GaugeValue, latest.AvgLatency, "avg")
	ch <- prometheus.MustNewConstMetric(c.windowLatencyDesc, prometheus.GaugeValue, latest.P95Latency, "p95")
	ch <- prometheus.MustNewConstMetric(c.windowErrorsDesc, prometheus.GaugeValue, latest.ErrorRate)

	ch <- prometheus.MustNewConstMetric(c.subscribersDesc, prometheus.GaugeValue, float64(c.engine.Subscribers()))
}
