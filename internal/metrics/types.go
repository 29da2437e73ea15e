package metrics

import "time"

// Cumulative contains the exact running totals since the last reset.
type Cumulative struct {
	// TotalRequests is the number of recorded requests
	TotalRequests int64 `json:"totalRequests"`

	// TotalErrors is the number of recorded requests that did not succeed
	TotalErrors int64 `json:"totalErrors"`

	// TotalLatency is the sum of all recorded durations in milliseconds
	TotalLatency float64 `json:"totalLatency"`

	// AvgLatency is TotalLatency / TotalRequests, 0 when nothing was recorded
	AvgLatency float64 `json:"avgLatency"`

	// MinLatency is the smallest recorded duration, 0 when nothing was recorded
	MinLatency float64 `json:"minLatency"`

	// MaxLatency is the largest recorded duration, 0 when nothing was recorded
	MaxLatency float64 `json:"maxLatency"`

	// ErrorRate is TotalErrors / TotalRequests (0.0 to 1.0), 0 when nothing was recorded
	ErrorRate float64 `json:"errorRate"`
}

// MetricPoint summarizes exactly one closed interval.
type MetricPoint struct {
	// Timestamp is the closing time of the interval in epoch milliseconds
	Timestamp int64 `json:"timestamp"`

	// AvgLatency is the mean duration within the interval
	AvgLatency float64 `json:"avgLatency"`

	// P95Latency is the 95th percentile duration within the interval
	P95Latency float64 `json:"p95Latency"`

	// ErrorRate is the fraction of failed requests within the interval
	ErrorRate float64 `json:"errorRate"`
}

// Time returns the closing time of the interval.
func (p MetricPoint) Time() time.Time {
	return time.UnixMilli(p.Timestamp)
}

// Snapshot is the payload served to pull and push consumers.
//
// The cumulative fields are flattened into the top level of the JSON
// object next to "history".
type Snapshot struct {
	Cumulative
	History []MetricPoint `json:"history"`
}

// EngineConfig contains configuration for the metrics engine.
type EngineConfig struct {
	// FlushInterval is the period between window closures (default: 2s)
	FlushInterval time.Duration

	// HistoryCapacity is the number of closed intervals retained (default: 30)
	HistoryCapacity int

	// SketchSignificantFigures is the precision of the interval sketch (default: 3)
	SketchSignificantFigures int

	// SketchMaxLatency is the largest latency the sketch can distinguish (default: 10m)
	SketchMaxLatency time.Duration

	// SubscriberBuffer is the number of payloads queued per live subscriber (default: 4)
	SubscriberBuffer int
}

// DefaultEngineConfig returns the default configuration.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		FlushInterval:            2 * time.Second,
		HistoryCapacity:          30,
		SketchSignificantFigures: 3,
		SketchMaxLatency:         10 * time.Minute,
		SubscriberBuffer:         4,
	}
}

// withDefaults fills zero values from DefaultEngineConfig.
func (c EngineConfig) withDefaults() EngineConfig {
	d := DefaultEngineConfig()
	if c.FlushInterval <= 0 {
		c.FlushInterval = d.FlushInterval
	}
	if c.HistoryCapacity <= 0 {
		c.HistoryCapacity = d.HistoryCapacity
	}
	if c.SketchSignificantFigures <= 0 {
		c.SketchSignificantFigures = d.SketchSignificantFigures
	}
	if c.SketchMaxLatency <= 0 {
		c.SketchMaxLatency = d.SketchMaxLatency
	}
	if c.SubscriberBuffer <= 0 {
		c.SubscriberBuffer = d.SubscriberBuffer
	}
	return c
}

// SketchConfig returns the sketch configuration implied by the engine configuration.
func (c EngineConfig) SketchConfig() SketchConfig {
	c = c.withDefaults()
	return SketchConfig{
		MaxLatency:         c.SketchMaxLatency,
		SignificantFigures: c.SketchSignificantFigures,
	}
}
