// Package loadgen drives load against the /process endpoint and summarizes
// what the client observed.
package loadgen

import (
	"context"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"

	"github.com/wesleyorama2/loadlab/internal/metrics"
	"github.com/wesleyorama2/loadlab/internal/rate"
)

// Summary is the client-side view of a finished run.
type Summary struct {
	Target   string        `json:"target"`
	VUs      int           `json:"vus"`
	Rate     float64       `json:"rate,omitempty"`
	Duration time.Duration `json:"duration"`

	metrics.Cumulative

	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`

	// Throughput is completed requests per second of wall time
	Throughput float64 `json:"throughput"`

	// ServerAvgDuration is the mean "duration" the server reported for
	// successful requests, 0 when none reported one
	ServerAvgDuration float64 `json:"serverAvgDuration"`

	// StatusCodes counts responses by status; transport errors count as 0
	StatusCodes map[int]int64 `json:"statusCodes"`
}

// SortedStatusCodes returns the observed status codes in ascending order.
func (s *Summary) SortedStatusCodes() []int {
	codes := make([]int, 0, len(s.StatusCodes))
	for code := range s.StatusCodes {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	return codes
}

// Hammer fires simulated requests from a fixed set of virtual users.
//
// Without a rate every VU runs a closed loop. With a rate the VUs share a
// leaky bucket and each request waits for its arrival slot, so VUs caps the
// number of requests in flight.
//
// Each VU owns a latency sketch; they are merged once the run ends.
type Hammer struct {
	config Config
	target string
	client *http.Client
	bucket *rate.LeakyBucket

	counters *metrics.Counters

	mu          sync.Mutex
	statusCodes map[int]int64
	serverTotal float64
	serverCount int64
}

// New creates a Hammer. A nil client gets one with the configured timeout.
func New(cfg Config, client *http.Client) (*Hammer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	target, err := cfg.TargetURL()
	if err != nil {
		return nil, err
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	h := &Hammer{
		config:      cfg,
		target:      target,
		client:      client,
		counters:    metrics.NewCounters(),
		statusCodes: make(map[int]int64),
	}
	if cfg.Rate > 0 {
		h.bucket = rate.NewLeakyBucket(cfg.Rate)
	}
	return h, nil
}

// Target returns the URL requests are sent to.
func (h *Hammer) Target() string {
	return h.target
}

// Progress returns the totals recorded so far.
func (h *Hammer) Progress() metrics.Cumulative {
	return h.counters.Snapshot()
}

// Run drives load until the configured duration elapses or ctx is done.
// Requests cut off by the end of the run are not counted.
func (h *Hammer) Run(ctx context.Context) (*Summary, error) {
	runCtx, cancel := context.WithTimeout(ctx, h.config.Duration)
	defer cancel()

	log.WithFields(log.Fields{
		"target":   h.target,
		"vus":      h.config.VUs,
		"rate":     h.config.Rate,
		"duration": h.config.Duration,
	}).Info("Starting load run")

	sketches := make([]*metrics.Sketch, h.config.VUs)
	start := time.Now()

	g, gctx := errgroup.WithContext(runCtx)
	for i := range sketches {
		sketch := metrics.NewSketch(h.config.Sketch)
		sketches[i] = sketch
		g.Go(func() error {
			return h.runVU(gctx, sketch)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	elapsed := time.Since(start)

	if err := ctx.Err(); err != nil {
		log.WithError(err).Warn("Load run interrupted")
	}

	merged := metrics.NewSketch(h.config.Sketch)
	for _, sketch := range sketches {
		merged.Merge(sketch)
	}
	return h.summarize(merged, elapsed), nil
}

func (h *Hammer) runVU(ctx context.Context, sketch *metrics.Sketch) error {
	for {
		if h.bucket != nil {
			if err := h.bucket.Wait(ctx); err != nil {
				return nil
			}
		}
		if ctx.Err() != nil {
			return nil
		}
		h.fire(ctx, sketch)
	}
}

// fire sends one request and records the outcome.
func (h *Hammer) fire(ctx context.Context, sketch *metrics.Sketch) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.target, nil)
	if err != nil {
		log.WithError(err).Error("Failed to build request")
		return
	}

	start := time.Now()
	status, body, err := h.do(req)
	elapsed := float64(time.Since(start).Microseconds()) / 1000

	if err != nil && ctx.Err() != nil {
		return
	}
	if err != nil {
		log.WithError(err).Debug("Request failed")
	}

	success := err == nil && status < http.StatusBadRequest
	h.counters.Record(elapsed, success)
	sketch.Insert(elapsed)

	h.mu.Lock()
	h.statusCodes[status]++
	if success {
		if duration := gjson.GetBytes(body, "duration"); duration.Exists() {
			h.serverTotal += duration.Float()
			h.serverCount++
		}
	}
	h.mu.Unlock()
}

func (h *Hammer) do(req *http.Request) (int, []byte, error) {
	resp, err := h.client.Do(req)
	if err != nil {
		return 0, nil, errors.Wrap(err, "request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, errors.Wrap(err, "failed to read response body")
	}
	return resp.StatusCode, body, nil
}

func (h *Hammer) summarize(sketch *metrics.Sketch, elapsed time.Duration) *Summary {
	summary := &Summary{
		Target:      h.target,
		VUs:         h.config.VUs,
		Rate:        h.config.Rate,
		Duration:    elapsed,
		Cumulative:  h.counters.Snapshot(),
		StatusCodes: make(map[int]int64),
	}

	ps := sketch.Percentiles(0.50, 0.95, 0.99)
	summary.P50, summary.P95, summary.P99 = ps[0], ps[1], ps[2]

	if seconds := elapsed.Seconds(); seconds > 0 {
		summary.Throughput = float64(summary.TotalRequests) / seconds
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for code, n := range h.statusCodes {
		summary.StatusCodes[code] = n
	}
	if h.serverCount > 0 {
		summary.ServerAvgDuration = h.serverTotal / float64(h.serverCount)
	}
	return summary
}
