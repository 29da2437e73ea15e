package metrics

import "sync"

// Counters keeps exact cumulative request totals since the last reset.
//
// The first recorded request sets both min and max, so an empty engine
// never reports a phantom 0ms minimum once traffic arrives.
//
// # Thread Safety
//
// Counters is safe for concurrent use. All fields share one mutex that is
// held only for the duration of a single Record, Snapshot or Reset.
type Counters struct {
	mu sync.Mutex

	totalRequests int64
	totalErrors   int64
	totalLatency  float64
	minLatency    float64
	maxLatency    float64
}

// NewCounters creates zeroed counters.
func NewCounters() *Counters {
	return &Counters{}
}

// Record adds one completed request.
//
// durationMs must be non-negative; rejecting bad input is the caller's job.
func (c *Counters) Record(durationMs float64, success bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.totalRequests++
	c.totalLatency += durationMs
	if !success {
		c.totalErrors++
	}

	if c.totalRequests == 1 {
		c.minLatency = durationMs
		c.maxLatency = durationMs
		return
	}
	if durationMs < c.minLatency {
		c.minLatency = durationMs
	}
	if durationMs > c.maxLatency {
		c.maxLatency = durationMs
	}
}

// Snapshot returns the current totals with derived averages.
func (c *Counters) Snapshot() Cumulative {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := Cumulative{
		TotalRequests: c.totalRequests,
		TotalErrors:   c.totalErrors,
		TotalLatency:  c.totalLatency,
		MinLatency:    c.minLatency,
		MaxLatency:    c.maxLatency,
	}
	if c.totalRequests > 0 {
		result.AvgLatency = c.totalLatency / float64(c.totalRequests)
		result.ErrorRate = float64(c.totalErrors) / float64(c.totalRequests)
	}
	return result
}

// Reset zeroes all counters.
func (c *Counters) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.totalRequests = 0
	c.totalErrors = 0
	c.totalLatency = 0
	c.minLatency = 0
	c.maxLatency = 0
}
