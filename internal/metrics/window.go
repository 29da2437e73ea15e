package metrics

import (
	"sync"
	"time"
)

// interval accumulates the events of one open window.
type interval struct {
	requests   int64
	errors     int64
	latencySum float64
	sketch     *Sketch
}

func newInterval(config SketchConfig) *interval {
	return &interval{sketch: NewSketch(config)}
}

func (i *interval) record(durationMs float64, success bool) {
	i.requests++
	i.latencySum += durationMs
	if !success {
		i.errors++
	}
	i.sketch.Insert(durationMs)
}

// point summarizes a detached interval. An interval without events yields
// a zeroed point regardless of how the sketch treats emptiness.
func (i *interval) point(closedAt time.Time) MetricPoint {
	p := MetricPoint{Timestamp: closedAt.UnixMilli()}
	if i.requests == 0 {
		return p
	}

	p.AvgLatency = i.latencySum / float64(i.requests)
	p.ErrorRate = float64(i.errors) / float64(i.requests)
	p.P95Latency = i.sketch.Percentile(0.95)
	return p
}

// Window owns the open interval and the history of closed ones.
//
// Flush swaps the open interval for a fresh one under the window mutex and
// summarizes the detached interval outside it, so every event lands in
// exactly one interval: the one that was open when Record took the lock.
//
// # Thread Safety
//
// Window is safe for concurrent use.
type Window struct {
	mu         sync.Mutex
	current    *interval
	generation uint64 // bumped by Reset so in-flight flushes are discarded

	sketchConfig SketchConfig
	history      *History
	now          func() time.Time
}

// NewWindow creates a window with an empty open interval and history.
func NewWindow(sketchConfig SketchConfig, historyCapacity int) *Window {
	return &Window{
		current:      newInterval(sketchConfig),
		sketchConfig: sketchConfig,
		history:      NewHistory(historyCapacity),
		now:          time.Now,
	}
}

// Record adds one event to the open interval.
func (w *Window) Record(durationMs float64, success bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.current.record(durationMs, success)
}

// Flush closes the open interval, appends its point to the history and
// returns the point.
func (w *Window) Flush() MetricPoint {
	p, _ := w.flush()
	return p
}

// flush is Flush that also reports how many events the closed interval held.
func (w *Window) flush() (MetricPoint, int64) {
	fresh := newInterval(w.sketchConfig)

	w.mu.Lock()
	closed := w.current
	w.current = fresh
	generation := w.generation
	w.mu.Unlock()

	p := closed.point(w.now())

	w.mu.Lock()
	if generation == w.generation {
		w.history.Append(p)
	}
	w.mu.Unlock()

	return p, closed.requests
}

// Pending returns the number of events in the open interval.
func (w *Window) Pending() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current.requests
}

// History returns the closed points in chronological order.
func (w *Window) History() []MetricPoint {
	return w.history.Points()
}

// Latest returns the most recently closed point.
func (w *Window) Latest() (MetricPoint, bool) {
	return w.history.Latest()
}

// Reset clears the history and restarts the open interval.
func (w *Window) Reset() {
	fresh := newInterval(w.sketchConfig)

	w.mu.Lock()
	defer w.mu.Unlock()

	w.current = fresh
	w.generation++
	w.history.Reset()
}
