package cmdq

import (
	"log/slog"
	"time"

	"github.com/xraph/cmdq/backoff"
	"github.com/xraph/cmdq/clock"
	"github.com/xraph/cmdq/store"
)

// Option configures an Engine.
type Option func(*Engine) error

// WithStore sets the persistence backend. Required.
func WithStore(s store.Store) Option {
	return func(e *Engine) error {
		e.store = s
		return nil
	}
}

// WithLogger sets the structured logger for the engine and everything
// it wires up.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) error {
		e.logger = l
		return nil
	}
}

// WithClock substitutes the wall-clock source.
func WithClock(c clock.Clock) Option {
	return func(e *Engine) error {
		e.clk = c
		return nil
	}
}

// WithConcurrency sets the number of worker loops.
func WithConcurrency(n int) Option {
	return func(e *Engine) error {
		e.config.Concurrency = n
		return nil
	}
}

// WithPollInterval sets the idle sleep between claim attempts.
func WithPollInterval(d time.Duration) Option {
	return func(e *Engine) error {
		e.config.PollInterval = d
		return nil
	}
}

// WithShutdownTimeout bounds how long Stop waits quietly.
func WithShutdownTimeout(d time.Duration) Option {
	return func(e *Engine) error {
		e.config.ShutdownTimeout = d
		return nil
	}
}

// WithHeartbeatInterval sets the worker heartbeat period.
func WithHeartbeatInterval(d time.Duration) Option {
	return func(e *Engine) error {
		e.config.HeartbeatInterval = d
		return nil
	}
}

// WithClaimRateLimit caps sustained claims per second across the pool.
func WithClaimRateLimit(perSecond float64, burst int) Option {
	return func(e *Engine) error {
		e.config.ClaimRatePerSecond = perSecond
		e.config.ClaimBurst = burst
		return nil
	}
}

// WithBackoffStrategy overrides the default base^attempt retry backoff.
func WithBackoffStrategy(s backoff.Strategy) Option {
	return func(e *Engine) error {
		e.strategy = s
		return nil
	}
}

// WithCronScheduler enables the recurring-entry scheduler alongside the
// worker pool.
func WithCronScheduler() Option {
	return func(e *Engine) error {
		e.cronEnabled = true
		return nil
	}
}
