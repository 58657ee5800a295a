package rowqueue

import (
	"log/slog"
	"time"
)

// RunnerOption is a functional option for configuring a runner
type RunnerOption func(*runnerOptions)

type runnerOptions struct {
	retry      int
	timeout    time.Duration
	delay      time.Duration
	clock      Clock
	logger     *slog.Logger
	interrupts InterruptPolicy
}

// WithRetry sets the attempt budget: how many times a record is requeued
// after a fault before being canceled. Must be between 0 and 8; NewRunner
// rejects values outside that range.
func WithRetry(n int) RunnerOption {
	return func(o *runnerOptions) {
		o.retry = n
	}
}

// WithTimeout sets the lease age after which a working record is considered
// abandoned and reclaimed.
func WithTimeout(d time.Duration) RunnerOption {
	return func(o *runnerOptions) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithDelay sets the default delay applied when a record is requeued.
func WithDelay(d time.Duration) RunnerOption {
	return func(o *runnerOptions) {
		if d >= 0 {
			o.delay = d
		}
	}
}

// WithClock injects the time source used for priorities, lease cutoffs, and
// reclaim boundaries.
func WithClock(c Clock) RunnerOption {
	return func(o *runnerOptions) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithLogger sets the logger for the runner
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(o *runnerOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithInterruptPolicy decides whether a context cancellation observed during
// an action consumes the attempt budget (InterruptAbort, the default) or
// cancels the record outright (InterruptCancel).
func WithInterruptPolicy(p InterruptPolicy) RunnerOption {
	return func(o *runnerOptions) {
		o.interrupts = p
	}
}

// FromConfig applies the runner-relevant fields of a Config.
func FromConfig(cfg Config) RunnerOption {
	return func(o *runnerOptions) {
		o.retry = cfg.Retry
		if cfg.Timeout > 0 {
			o.timeout = cfg.Timeout
		}
		if cfg.Delay >= 0 {
			o.delay = cfg.Delay
		}
	}
}
