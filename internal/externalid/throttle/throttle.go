// Package throttle meters store read capacity for directory scans.
//
// A Throttle is one budget shared by every caller in the process. Callers do
// not know what a store read will cost until it returns, so each scan loop
// keeps an Estimator: acquire the estimate, run the read, then feed the
// consumed capacity back as the next estimate.
package throttle

import (
	"context"
	"errors"
	"math"
	"time"

	"golang.org/x/time/rate"
)

// Recorder observes permit acquisition. *metrics.Metrics satisfies it.
type Recorder interface {
	ObserveThrottleWait(d time.Duration, permits int)
}

// Throttle is a continuously refilling permit budget. Safe for concurrent use.
type Throttle struct {
	limiter  *rate.Limiter
	burst    int
	recorder Recorder
}

type Option func(*Throttle)

func WithRecorder(r Recorder) Option {
	return func(t *Throttle) {
		t.recorder = r
	}
}

// New creates a throttle refilling at permitsPerSecond. Up to one second of
// permits may accumulate while idle.
func New(permitsPerSecond float64, opts ...Option) (*Throttle, error) {
	if permitsPerSecond <= 0 || math.IsNaN(permitsPerSecond) || math.IsInf(permitsPerSecond, 0) {
		return nil, errors.New("permits per second must be a positive number")
	}
	burst := max(1, int(math.Ceil(permitsPerSecond)))
	t := &Throttle{
		limiter: rate.NewLimiter(rate.Limit(permitsPerSecond), burst),
		burst:   burst,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Acquire blocks until cost permits have been debited and returns how long
// it waited. Costs below 1 are raised to 1. Costs above the burst are taken
// in burst-sized chunks so any cost can be paid. Only ctx cancellation ends
// the wait early.
func (t *Throttle) Acquire(ctx context.Context, cost int) (time.Duration, error) {
	cost = max(1, cost)
	start := time.Now()
	for remaining := cost; remaining > 0; {
		n := min(remaining, t.burst)
		if err := t.limiter.WaitN(ctx, n); err != nil {
			return time.Since(start), err
		}
		remaining -= n
	}
	waited := time.Since(start)
	if t.recorder != nil {
		t.recorder.ObserveThrottleWait(waited, cost)
	}
	return waited, nil
}

// Rate returns the refill rate in permits per second.
func (t *Throttle) Rate() float64 {
	return float64(t.limiter.Limit())
}

// Estimator tracks the expected cost of the next read in one scan loop.
// It starts at one permit and afterwards always equals the last observed
// cost. It is not safe for concurrent use; each loop owns one.
type Estimator struct {
	next int
}

// NewEstimator returns an estimator seeded with the cold-start estimate of 1.
func NewEstimator() *Estimator {
	return &Estimator{next: 1}
}

// Next returns the permits to acquire before the next read.
func (e *Estimator) Next() int {
	return e.next
}

// Observe records the capacity the last read consumed. Fractional units
// round up; zero or negative reports fall back to 1.
func (e *Estimator) Observe(consumed float64) {
	if consumed <= 0 || math.IsNaN(consumed) {
		e.next = 1
		return
	}
	e.next = max(1, int(math.Ceil(consumed)))
}
