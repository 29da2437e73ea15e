// Package metrics aggregates completed request events into exact cumulative
// totals and a bounded history of per-interval summaries.
//
// The pieces compose bottom-up:
//
//   - Counters keeps the cumulative totals since the last reset.
//   - Sketch approximates the latency distribution of one interval.
//   - Window owns the open interval and closes it into a MetricPoint.
//   - History keeps the most recent closed points.
//   - Publisher fans snapshots out to live subscribers.
//   - Engine ties them together and runs the periodic flush.
//
// Example usage:
//
//	engine := metrics.NewEngine()
//	engine.Start(ctx)
//	defer engine.Close()
//
//	engine.Record(durationMs, status < 400)
//	snapshot := engine.Snapshot()
package metrics
