// Package rate paces request arrivals for the load driver.
package rate

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// LeakyBucket schedules arrivals at a fixed rate.
//
// Each call to Next claims the next free slot on a virtual timeline spaced
// 1/rate apart. Callers that fall behind get slots in the past and run
// immediately, but never more than burst slots behind the wall clock, so a
// stalled driver cannot fire an unbounded catch-up burst.
//
// # Thread Safety
//
// LeakyBucket is safe for concurrent use from multiple goroutines.
//
// # Example
//
//	lb := NewLeakyBucket(50) // 50 arrivals per second
//	for {
//	    if err := lb.Wait(ctx); err != nil {
//	        return err
//	    }
//	    go fire()
//	}
type LeakyBucket struct {
	mu       sync.Mutex
	rate     float64
	interval time.Duration
	burst    int
	next     time.Time // earliest start of the next unclaimed slot

	now func() time.Time

	scheduled atomic.Int64
	waited    atomic.Int64 // nanoseconds
}

// NewLeakyBucket creates a bucket with no bursting. A non-positive rate
// falls back to 1 per second.
func NewLeakyBucket(rate float64) *LeakyBucket {
	return NewLeakyBucketWithBurst(rate, 1)
}

// NewLeakyBucketWithBurst creates a bucket that lets a late caller catch up
// by at most burst slots.
func NewLeakyBucketWithBurst(rate float64, burst int) *LeakyBucket {
	lb := &LeakyBucket{now: time.Now}
	lb.setRate(rate)
	lb.setBurst(burst)
	return lb
}

// Next claims a slot and returns its start time, which is in the past or
// now when the caller is behind schedule.
func (lb *LeakyBucket) Next() time.Time {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	now := lb.now()
	earliest := now.Add(-time.Duration(lb.burst-1) * lb.interval)

	slot := lb.next
	if slot.Before(earliest) {
		slot = earliest
	}
	lb.next = slot.Add(lb.interval)

	lb.scheduled.Add(1)
	if wait := slot.Sub(now); wait > 0 {
		lb.waited.Add(int64(wait))
	}
	return slot
}

// Wait blocks until the next slot starts or ctx is done.
func (lb *LeakyBucket) Wait(ctx context.Context) error {
	wait := time.Until(lb.Next())
	if wait <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// SetRate changes the rate. Slots already handed out are kept; the next
// slot is rescheduled from now so a rate change never causes a burst.
func (lb *LeakyBucket) SetRate(rate float64) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	lb.setRate(rate)
	if now := lb.now(); lb.next.Before(now) {
		lb.next = now
	}
}

// Rate returns the rate in arrivals per second.
func (lb *LeakyBucket) Rate() float64 {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	return lb.rate
}

// Interval returns the spacing between slots.
func (lb *LeakyBucket) Interval() time.Duration {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	return lb.interval
}

// Stats returns scheduling statistics.
func (lb *LeakyBucket) Stats() Stats {
	lb.mu.Lock()
	rate, burst := lb.rate, lb.burst
	lb.mu.Unlock()

	return Stats{
		Rate:      rate,
		Burst:     burst,
		Scheduled: lb.scheduled.Load(),
		TotalWait: time.Duration(lb.waited.Load()),
	}
}

// Reset forgets the timeline and statistics; the next slot starts now.
func (lb *LeakyBucket) Reset() {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	lb.next = time.Time{}
	lb.scheduled.Store(0)
	lb.waited.Store(0)
}

func (lb *LeakyBucket) setRate(rate float64) {
	if rate <= 0 {
		rate = 1
	}
	lb.rate = rate
	lb.interval = time.Duration(float64(time.Second) / rate)
}

func (lb *LeakyBucket) setBurst(burst int) {
	if burst < 1 {
		burst = 1
	}
	lb.burst = burst
}

// Stats contains statistics about a LeakyBucket.
type Stats struct {
	Rate      float64       `json:"rate"`      // Arrivals per second
	Burst     int           `json:"burst"`     // Maximum catch-up slots
	Scheduled int64         `json:"scheduled"` // Slots handed out
	TotalWait time.Duration `json:"totalWait"` // Sum of waits ahead of the wall clock
}
