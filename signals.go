package rowqueue

import (
	"context"
	"errors"
	"time"
)

// resolution enumerates every way a claimed record leaves the working state.
// The resolver matches it exhaustively.
type resolution int8

const (
	resolveSuccess resolution = iota
	resolveRetry
	resolveAbort
	resolveCancel
	resolveFault
)

// Signal is the control-flow error an action returns (or wraps) to choose how
// its record is resolved instead of the default fault handling. Construct
// signals with Retry, RetryIn, Abort, AbortIn, or Cancel.
type Signal struct {
	kind     resolution
	delay    time.Duration
	hasDelay bool
}

func (s *Signal) Error() string {
	switch s.kind {
	case resolveRetry:
		return "rowqueue: retry signal"
	case resolveAbort:
		return "rowqueue: abort signal"
	case resolveCancel:
		return "rowqueue: cancel signal"
	default:
		return "rowqueue: signal"
	}
}

// Retry requeues the record without consuming the attempt budget.
func Retry() error {
	return &Signal{kind: resolveRetry}
}

// RetryIn is Retry with an explicit requeue delay overriding the runner's
// default delay.
func RetryIn(delay time.Duration) error {
	return &Signal{kind: resolveRetry, delay: delay, hasDelay: true}
}

// Abort requeues the record and consumes one attempt; once the budget is
// exhausted the record is canceled instead.
func Abort() error {
	return &Signal{kind: resolveAbort}
}

// AbortIn is Abort with an explicit requeue delay overriding the runner's
// default delay.
func AbortIn(delay time.Duration) error {
	return &Signal{kind: resolveAbort, delay: delay, hasDelay: true}
}

// Cancel stops processing the record unconditionally. Attempts are still
// incremented so the cancellation stays visible in the status.
func Cancel() error {
	return &Signal{kind: resolveCancel}
}

// InterruptPolicy decides how an action failure caused by context
// cancellation or deadline expiry is resolved. The interrupt error is
// propagated to the caller either way, after the record is persisted.
type InterruptPolicy int8

const (
	// InterruptAbort treats an interrupt like any other fault: the attempt
	// budget decides between requeue and cancellation.
	InterruptAbort InterruptPolicy = iota

	// InterruptCancel cancels the record immediately, bypassing the budget.
	InterruptCancel
)

// outcome is the classified result of one action invocation.
type outcome struct {
	kind      resolution
	delay     time.Duration
	hasDelay  bool
	propagate bool
}

// classify maps an action error onto a resolution. Signals win over interrupt
// detection so a wrapped context error inside a signal keeps the signal's
// meaning.
func classify(err error, interrupts InterruptPolicy) outcome {
	if err == nil {
		return outcome{kind: resolveSuccess}
	}
	var sig *Signal
	if errors.As(err, &sig) {
		return outcome{kind: sig.kind, delay: sig.delay, hasDelay: sig.hasDelay}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		if interrupts == InterruptCancel {
			return outcome{kind: resolveCancel, propagate: true}
		}
	}
	return outcome{kind: resolveFault, propagate: true}
}
