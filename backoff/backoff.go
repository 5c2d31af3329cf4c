// Package backoff provides retry delay strategies for failed jobs.
// All strategies are stateless and safe for concurrent use.
package backoff

import (
	"math"
	"math/rand/v2"
	"time"
)

// Strategy computes the delay before a retry attempt.
type Strategy interface {
	// Delay returns how long to wait before retrying after attempt n
	// (1-indexed: attempt 1 is the first execution that failed).
	Delay(attempt int) time.Duration
}

// Power raises Base to the attempt number: Delay = Base^attempt seconds,
// capped at Max when Max > 0. This is the queue's default policy; Base
// comes from the persisted backoff_base setting.
type Power struct {
	Base float64
	Max  time.Duration
}

// NewPower creates an uncapped power backoff strategy.
func NewPower(base float64) *Power {
	return &Power{Base: base}
}

// Delay returns Base^attempt seconds, capped at Max.
func (p *Power) Delay(attempt int) time.Duration {
	d := time.Duration(math.Pow(p.Base, float64(attempt)) * float64(time.Second))
	if p.Max > 0 && d > p.Max {
		return p.Max
	}
	return d
}

// Constant always returns the same delay regardless of attempt number.
type Constant struct {
	Interval time.Duration
}

// NewConstant creates a constant backoff strategy.
func NewConstant(interval time.Duration) *Constant {
	return &Constant{Interval: interval}
}

// Delay returns the fixed interval.
func (c *Constant) Delay(_ int) time.Duration {
	return c.Interval
}

// FullJitter randomises another strategy's delay over [0, inner delay).
// This prevents thundering herd when many retries come due together.
type FullJitter struct {
	Inner Strategy
}

// NewFullJitter wraps inner with full jitter.
func NewFullJitter(inner Strategy) *FullJitter {
	return &FullJitter{Inner: inner}
}

// Delay returns a random duration in [0, Inner.Delay(attempt)).
func (f *FullJitter) Delay(attempt int) time.Duration {
	base := f.Inner.Delay(attempt)
	if base <= 0 {
		return 0
	}
	return time.Duration(rand.Float64() * float64(base)) //nolint:gosec // jitter intentionally uses non-crypto rand
}

// Default returns the strategy the engine uses when the persisted
// backoff_base setting is unreadable: Power with base 2.
func Default() Strategy {
	return NewPower(2)
}
