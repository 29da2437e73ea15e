// Package simulation manufactures synthetic load for a single request:
// memory pressure, CPU burn and a jittered delay, or a simulated failure.
package simulation

import (
	"context"
	"math"
	"math/rand"
	"runtime"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// FailureMessage is the body text of a simulated failure.
const FailureMessage = "Internal Server Error simulated"

var (
	// ErrSimulatedFailure is returned for a negative delay.
	ErrSimulatedFailure = errors.New(FailureMessage)

	// ErrInvalidParams is returned when a parameter is outside the configured limits.
	ErrInvalidParams = errors.New("invalid simulation parameters")
)

// Params describes the load of one simulated request.
type Params struct {
	// Delay is the base latency in milliseconds. A negative value simulates a failure.
	Delay int `json:"delay" yaml:"delay"`

	// CPULoad is the number of busy-loop iterations.
	CPULoad int64 `json:"cpuLoad" yaml:"cpuLoad"`

	// MemoryStress is the number of MiB allocated for the duration of the request.
	MemoryStress int `json:"memoryStress" yaml:"memoryStress"`

	// Jitter is the maximum deviation in milliseconds applied to Delay.
	Jitter int `json:"jitter" yaml:"jitter"`
}

// Result is reported for a successful simulation.
type Result struct {
	Success      bool  `json:"success"`
	Delay        int   `json:"delay"`
	CPULoad      int64 `json:"cpuLoad"`
	MemoryStress int   `json:"memoryStress"`
	Jitter       int   `json:"jitter"`

	// Duration is the time spent simulating, in milliseconds
	Duration int64 `json:"duration"`
}

// Limits bounds the parameters a Simulator accepts.
type Limits struct {
	MaxDelay    time.Duration
	MaxJitter   time.Duration
	MaxCPULoad  int64
	MaxMemoryMB int
}

// DefaultLimits returns the default parameter limits.
func DefaultLimits() Limits {
	return Limits{
		MaxDelay:    60 * time.Second,
		MaxJitter:   30 * time.Second,
		MaxCPULoad:  1_000_000_000,
		MaxMemoryMB: 1024,
	}
}

// Simulator runs simulations within a set of limits.
//
// Simulator is safe for concurrent use.
type Simulator struct {
	limits Limits

	randMu sync.Mutex
	rng    *rand.Rand

	// sleep waits for d or until ctx is done; replaced in tests
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a simulator seeded from the current time.
func New(limits Limits) *Simulator {
	return NewWithRand(limits, rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewWithRand creates a simulator drawing jitter from rng.
func NewWithRand(limits Limits, rng *rand.Rand) *Simulator {
	return &Simulator{
		limits: limits,
		rng:    rng,
		sleep:  sleepContext,
	}
}

// Limits returns the configured limits.
func (s *Simulator) Limits() Limits {
	return s.limits
}

// Validate checks p against the configured limits. Negative delays are
// valid: they request a simulated failure.
func (s *Simulator) Validate(p Params) error {
	if p.CPULoad < 0 {
		return errors.Wrapf(ErrInvalidParams, "cpuLoad %d is negative", p.CPULoad)
	}
	if p.MemoryStress < 0 {
		return errors.Wrapf(ErrInvalidParams, "memoryStress %d is negative", p.MemoryStress)
	}
	if p.Jitter < 0 {
		return errors.Wrapf(ErrInvalidParams, "jitter %d is negative", p.Jitter)
	}
	if max := s.limits.MaxDelay.Milliseconds(); s.limits.MaxDelay > 0 && int64(p.Delay) > max {
		return errors.Wrapf(ErrInvalidParams, "delay %dms exceeds maximum %dms", p.Delay, max)
	}
	if max := s.limits.MaxJitter.Milliseconds(); s.limits.MaxJitter > 0 && int64(p.Jitter) > max {
		return errors.Wrapf(ErrInvalidParams, "jitter %dms exceeds maximum %dms", p.Jitter, max)
	}
	if s.limits.MaxCPULoad > 0 && p.CPULoad > s.limits.MaxCPULoad {
		return errors.Wrapf(ErrInvalidParams, "cpuLoad %d exceeds maximum %d", p.CPULoad, s.limits.MaxCPULoad)
	}
	if s.limits.MaxMemoryMB > 0 && p.MemoryStress > s.limits.MaxMemoryMB {
		return errors.Wrapf(ErrInvalidParams, "memoryStress %dMiB exceeds maximum %dMiB", p.MemoryStress, s.limits.MaxMemoryMB)
	}
	return nil
}

// Run simulates one request.
//
// A negative delay fails immediately with ErrSimulatedFailure. Otherwise
// memory is allocated, the CPU is burned and the jittered delay is slept,
// in that order. The returned error wraps ctx.Err() if the delay is
// interrupted.
func (s *Simulator) Run(ctx context.Context, p Params) (Result, error) {
	if err := s.Validate(p); err != nil {
		return Result{}, err
	}
	if p.Delay < 0 {
		return Result{}, ErrSimulatedFailure
	}

	start := time.Now()

	buf := AllocateMemory(p.MemoryStress)
	BurnCPU(p.CPULoad)

	if p.Delay > 0 || p.Jitter > 0 {
		if d := EffectiveDelay(p.Delay, p.Jitter, s.random()); d > 0 {
			if err := s.sleep(ctx, d); err != nil {
				return Result{}, errors.Wrap(err, "simulated delay interrupted")
			}
		}
	}

	// The allocation is held until the request is done.
	runtime.KeepAlive(buf)

	return Result{
		Success:      true,
		Delay:        p.Delay,
		CPULoad:      p.CPULoad,
		MemoryStress: p.MemoryStress,
		Jitter:       p.Jitter,
		Duration:     time.Since(start).Milliseconds(),
	}, nil
}

func (s *Simulator) random() float64 {
	s.randMu.Lock()
	defer s.randMu.Unlock()
	return s.rng.Float64()
}

// EffectiveDelay applies jitter to delay, both in milliseconds, for a
// random draw r in [0, 1). The variation is floor(r*2*jitter - jitter)
// and the result is clamped at 0.
func EffectiveDelay(delay, jitter int, r float64) time.Duration {
	ms := delay
	if jitter > 0 {
		ms += int(math.Floor(r*2*float64(jitter) - float64(jitter)))
	}
	if ms < 0 {
		ms = 0
	}
	return time.Duration(ms) * time.Millisecond
}

// BurnCPU runs loops iterations of a floating point busy loop and returns
// the accumulated result so the work cannot be optimized away.
func BurnCPU(loops int64) float64 {
	var result float64
	for i := int64(0); i < loops; i++ {
		result += math.Sqrt(float64(i)) * math.Sqrt(float64(i+1))
	}
	return result
}

// AllocateMemory returns mb MiB filled with 'a' so every page is touched.
// It returns nil for mb <= 0.
func AllocateMemory(mb int) []byte {
	if mb <= 0 {
		return nil
	}
	buf := make([]byte, mb*1024*1024)
	for i := range buf {
		buf[i] = 'a'
	}
	return buf
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
