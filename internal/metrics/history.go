package metrics

import "sync"

// DefaultHistoryCapacity is the number of closed intervals kept by default.
const DefaultHistoryCapacity = 30

// History stores closed-interval points in a ring buffer.
//
// It provides:
//   - O(1) append with FIFO eviction once capacity is reached
//   - Chronological copies that are safe to use without holding locks
//   - Thread-safe access from multiple goroutines
type History struct {
	points   []MetricPoint
	head     int // Next write position
	count    int // Current number of points
	capacity int
	mu       sync.RWMutex
}

// NewHistory creates an empty history.
//
// A non-positive capacity falls back to DefaultHistoryCapacity.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}

	return &History{
		points:   make([]MetricPoint, capacity),
		capacity: capacity,
	}
}

// Append adds a point, evicting the oldest one when full.
func (h *History) Append(p MetricPoint) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.points[h.head] = p
	h.head = (h.head + 1) % h.capacity
	if h.count < h.capacity {
		h.count++
	}
}

// Points returns a copy of all points in chronological order.
//
// The result is never nil so it always serializes as a JSON array.
func (h *History) Points() []MetricPoint {
	h.mu.RLock()
	defer h.mu.RUnlock()

	result := make([]MetricPoint, h.count)
	if h.count < h.capacity {
		// Not yet wrapped: points are in order from 0 to count-1
		copy(result, h.points[:h.count])
		return result
	}

	// Wrapped: the oldest point sits at head
	for i := 0; i < h.count; i++ {
		result[i] = h.points[(h.head+i)%h.capacity]
	}
	return result
}

// Latest returns the most recent point and false if the history is empty.
func (h *History) Latest() (MetricPoint, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.count == 0 {
		return MetricPoint{}, false
	}
	return h.points[(h.head-1+h.capacity)%h.capacity], true
}

// Len returns the number of stored points.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// Capacity returns the maximum number of stored points.
func (h *History) Capacity() int {
	return h.capacity
}

// Reset removes all points.
func (h *History) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.points = make([]MetricPoint, h.capacity)
	h.head = 0
	h.count = 0
}
