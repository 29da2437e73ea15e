package metrics

import (
	"math"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// SketchConfig contains configuration for a quantile sketch.
type SketchConfig struct {
	// MaxLatency is the largest distinguishable latency; larger values are
	// recorded as MaxLatency (default: 10m)
	MaxLatency time.Duration

	// SignificantFigures is the number of significant decimal digits kept for
	// every recorded value, between 1 and 5 (default: 3)
	SignificantFigures int
}

// DefaultSketchConfig returns the default sketch configuration.
func DefaultSketchConfig() SketchConfig {
	return DefaultEngineConfig().SketchConfig()
}

// Sketch approximates the distribution of latencies observed in one interval.
//
// Values are milliseconds and are stored in an HDR histogram with microsecond
// resolution, so memory depends only on the configured range and precision,
// never on the number of inserted values. Insert is O(1).
//
// # Percentile method
//
// Percentile uses HDR nearest rank: the rank is floor(p*n + 0.5) and the
// reported value is the upper edge of the histogram bucket holding that rank.
// The bucket edge is within 10^-SignificantFigures relative error of every
// value in the bucket. The result is then clamped into the exact [min, max]
// of inserted values, which keeps every estimate inside the observed range
// and keeps Percentile monotonic in p. For the values 1..100 the 95th
// percentile is 95.039 with the default 3 significant figures.
//
// # Thread Safety
//
// Sketch is not safe for concurrent use. The Window owns one sketch per
// interval and guards it with its own mutex.
type Sketch struct {
	hist      *hdrhistogram.Histogram
	maxMicros int64

	count int64
	min   float64
	max   float64
}

// NewSketch creates an empty sketch.
func NewSketch(config SketchConfig) *Sketch {
	d := DefaultEngineConfig()
	if config.MaxLatency <= 0 {
		config.MaxLatency = d.SketchMaxLatency
	}
	if config.SignificantFigures <= 0 {
		config.SignificantFigures = d.SketchSignificantFigures
	}
	if config.SignificantFigures > 5 {
		config.SignificantFigures = 5
	}

	maxMicros := config.MaxLatency.Microseconds()
	if maxMicros < 2 {
		maxMicros = 2
	}

	return &Sketch{
		hist:      hdrhistogram.New(1, maxMicros, config.SignificantFigures),
		maxMicros: maxMicros,
	}
}

// Insert records one latency in milliseconds.
//
// Negative and NaN values are recorded as 0.
func (s *Sketch) Insert(ms float64) {
	if ms < 0 || math.IsNaN(ms) {
		ms = 0
	}

	micros := int64(math.Round(ms * 1000))
	if micros > s.maxMicros || math.IsInf(ms, 1) {
		micros = s.maxMicros
	}
	// Cannot fail: micros is inside [0, maxMicros].
	_ = s.hist.RecordValue(micros)

	if s.count == 0 || ms < s.min {
		s.min = ms
	}
	if s.count == 0 || ms > s.max {
		s.max = ms
	}
	s.count++
}

// Percentile returns the estimated value at rank p, with p in [0, 1].
//
// p <= 0 returns the minimum and p >= 1 the maximum. An empty sketch
// returns 0 for every p.
func (s *Sketch) Percentile(p float64) float64 {
	if s.count == 0 {
		return 0
	}
	if math.IsNaN(p) || p <= 0 {
		return s.min
	}
	if p >= 1 {
		return s.max
	}

	v := float64(s.hist.ValueAtQuantile(p*100)) / 1000
	if v < s.min {
		return s.min
	}
	if v > s.max {
		return s.max
	}
	return v
}

// Percentiles returns Percentile for each of ps, in order.
func (s *Sketch) Percentiles(ps ...float64) []float64 {
	result := make([]float64, len(ps))
	for i, p := range ps {
		result[i] = s.Percentile(p)
	}
	return result
}

// Merge adds every value recorded in other to s.
//
// Both sketches should share a configuration; values of other beyond the
// range of s are dropped by the histogram but still widen min and max.
func (s *Sketch) Merge(other *Sketch) {
	if other == nil || other.count == 0 {
		return
	}

	s.hist.Merge(other.hist)

	if s.count == 0 || other.min < s.min {
		s.min = other.min
	}
	if s.count == 0 || other.max > s.max {
		s.max = other.max
	}
	s.count += other.count
}

// Count returns the number of inserted values.
func (s *Sketch) Count() int64 {
	return s.count
}

// Min returns the smallest inserted value, 0 if empty.
func (s *Sketch) Min() float64 {
	return s.min
}

// Max returns the largest inserted value, 0 if empty.
func (s *Sketch) Max() float64 {
	return s.max
}
