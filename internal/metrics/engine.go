package metrics

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
)

// Engine aggregates request events into cumulative totals and windowed
// history, and publishes snapshots to live subscribers.
//
// Key features:
//   - Exact cumulative counters (count, errors, latency sum, min, max)
//   - Per-interval HDR sketch for the windowed 95th percentile
//   - Bounded history of closed intervals (FIFO eviction)
//   - Push of one snapshot per closed interval to every subscriber
//
// # Thread Safety
//
// Engine is safe for concurrent use. Record and Flush hold the read side of
// a gate and Reset holds the write side, so a reset never interleaves with
// an event that is half recorded. The counters and the window each keep
// their own mutex on top of that.
type Engine struct {
	gate sync.RWMutex

	counters  *Counters
	window    *Window
	publisher *Publisher

	flushes atomic.Int64
	running atomic.Bool

	// Background emitter
	emitterCancel context.CancelFunc
	emitterWg     sync.WaitGroup
	emitterMu     sync.Mutex

	config EngineConfig
}

// NewEngine creates a new metrics engine with default configuration.
func NewEngine() *Engine {
	return NewEngineWithConfig(DefaultEngineConfig())
}

// NewEngineWithConfig creates a new metrics engine with custom configuration.
//
// The periodic flush does not run until Start is called.
func NewEngineWithConfig(config EngineConfig) *Engine {
	config = config.withDefaults()

	return &Engine{
		counters:  NewCounters(),
		window:    NewWindow(config.SketchConfig(), config.HistoryCapacity),
		publisher: NewPublisher(config.SubscriberBuffer),
		config:    config,
	}
}

// Config returns the effective configuration.
func (e *Engine) Config() EngineConfig {
	return e.config
}

// Record records one completed request.
//
// durationMs is the latency measured by the caller and must be
// non-negative. Failed requests are recorded with success=false, never
// skipped.
func (e *Engine) Record(durationMs float64, success bool) {
	e.gate.RLock()
	defer e.gate.RUnlock()

	e.counters.Record(durationMs, success)
	e.window.Record(durationMs, success)
}

// RecordDuration is Record for a time.Duration.
func (e *Engine) RecordDuration(d time.Duration, success bool) {
	e.Record(float64(d)/float64(time.Millisecond), success)
}

// Flush closes the open interval, appends it to the history and pushes a
// snapshot to every subscriber. It returns the closed point.
func (e *Engine) Flush() MetricPoint {
	e.gate.RLock()
	point := e.window.Flush()
	e.gate.RUnlock()

	e.flushes.Add(1)
	delivered := e.publisher.Publish(e.Snapshot())

	log.WithFields(log.Fields{
		"avgLatency":  point.AvgLatency,
		"p95Latency":  point.P95Latency,
		"errorRate":   point.ErrorRate,
		"subscribers": delivered,
	}).Debug("Closed metrics window")

	return point
}

// Snapshot returns the cumulative totals and the closed-interval history.
// It is safe to call at any time, including mid-interval.
func (e *Engine) Snapshot() Snapshot {
	e.gate.RLock()
	defer e.gate.RUnlock()

	return Snapshot{
		Cumulative: e.counters.Snapshot(),
		History:    e.window.History(),
	}
}

// LatestPoint returns the most recently closed interval.
func (e *Engine) LatestPoint() (MetricPoint, bool) {
	return e.window.Latest()
}

// Reset clears the counters and the history and restarts the open
// interval. Subscribers receive the cleared snapshot.
func (e *Engine) Reset() {
	e.gate.Lock()
	e.counters.Reset()
	e.window.Reset()
	e.gate.Unlock()

	e.publisher.Publish(e.Snapshot())
	log.Info("Metrics reset")
}

// Subscribe registers a live consumer. The current snapshot is queued
// immediately, then one snapshot follows every closed interval. After
// Close the returned subscription is already closed.
func (e *Engine) Subscribe() *Subscription {
	return e.publisher.SubscribeWith(e.Snapshot())
}

// Subscribers returns the number of live subscribers.
func (e *Engine) Subscribers() int {
	return e.publisher.Len()
}

// Flushes returns the number of intervals closed since creation.
func (e *Engine) Flushes() int64 {
	return e.flushes.Load()
}

// Running reports whether the periodic flush is active.
func (e *Engine) Running() bool {
	return e.running.Load()
}

// Start launches the periodic flush. It stops when ctx is cancelled or
// Stop is called. Starting a running engine is a no-op.
func (e *Engine) Start(ctx context.Context) {
	e.emitterMu.Lock()
	defer e.emitterMu.Unlock()

	if e.running.Load() {
		return
	}

	emitterCtx, cancel := context.WithCancel(ctx)
	e.emitterCancel = cancel
	e.running.Store(true)

	e.emitterWg.Add(1)
	go e.runEmitter(emitterCtx)
}

// Stop stops the periodic flush and waits for it to exit. History that was
// already published is left untouched.
func (e *Engine) Stop() {
	e.emitterMu.Lock()
	cancel := e.emitterCancel
	e.emitterCancel = nil
	e.emitterMu.Unlock()

	if cancel != nil {
		cancel()
	}
	e.emitterWg.Wait()
}

// Close stops the engine and closes every subscription.
func (e *Engine) Close() {
	e.Stop()
	e.publisher.Close()
}

// runEmitter runs the background window closer.
func (e *Engine) runEmitter(ctx context.Context) {
	defer e.emitterWg.Done()
	defer e.running.Store(false)

	ticker := time.NewTicker(e.config.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.Flush()
		}
	}
}
