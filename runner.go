package rowqueue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Default runner settings
const (
	// DefaultRetry is the default attempt budget.
	DefaultRetry = 3

	// DefaultTimeout is how old a lease must be before it is reclaimed.
	DefaultTimeout = time.Hour
)

// Action processes one claimed record. It may mutate application fields but
// must leave the status field to the runner. Returning nil finishes the
// record; returning a Signal steers the resolution; any other error requeues
// the record through the fault path and is propagated to the caller.
type Action func(ctx context.Context, rec Record) error

// Runner executes claim/process/resolve cycles against a repository. It keeps
// no state between calls: everything it needs lives in the stored status, so
// any number of runners in any number of processes can safely share one
// repository.
type Runner struct {
	repo       Repository
	retry      int
	timeout    time.Duration
	delay      time.Duration
	clock      Clock
	logger     *slog.Logger
	interrupts InterruptPolicy
}

// NewRunner creates a runner over the given repository.
func NewRunner(repo Repository, opts ...RunnerOption) (*Runner, error) {
	if repo == nil {
		return nil, ErrRepositoryNil
	}

	options := &runnerOptions{
		retry:      DefaultRetry,
		timeout:    DefaultTimeout,
		delay:      0,
		clock:      systemClock{},
		logger:     slog.Default(),
		interrupts: InterruptAbort,
	}
	for _, opt := range opts {
		opt(options)
	}

	// Attempt MaxAttempts is reserved as the ceiling one above the largest
	// configurable budget, so the attempts digit can never overflow.
	if options.retry < 0 || options.retry > MaxAttempts-1 {
		return nil, fmt.Errorf("%w: got %d", ErrRetryOutOfRange, options.retry)
	}

	return &Runner{
		repo:       repo,
		retry:      options.retry,
		timeout:    options.timeout,
		delay:      options.delay,
		clock:      options.clock,
		logger:     options.logger,
		interrupts: options.interrupts,
	}, nil
}

// Run executes one claim/process/resolve cycle and processes at most one
// record.
//
// It returns ErrNoRecordToClaim when no record is eligible; callers loop and
// back off on that sentinel. On every other path the processed record is
// returned carrying its post-resolution status. When the action fails with an
// unclassified error, the record is persisted first and the error is returned
// alongside it, so a non-nil error with a non-nil record means the queue
// state is already consistent.
func (r *Runner) Run(ctx context.Context, action Action) (Record, error) {
	if action == nil {
		return nil, ErrActionNil
	}

	var claimed Record
	var attemptsAtClaim int
	err := r.repo.InTx(ctx, func(ctx context.Context, tx Tx) error {
		if err := r.reclaimOne(ctx, tx); err != nil {
			return err
		}
		rec, attempts, err := r.claimOne(ctx, tx)
		if err != nil {
			// An empty queue must commit, not roll back: the reclaim write
			// staged above has to survive even when nothing is claimable.
			if errors.Is(err, ErrRecordNotFound) {
				return nil
			}
			return err
		}
		claimed, attemptsAtClaim = rec, attempts
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("claim transaction: %w", err)
	}
	if claimed == nil {
		return nil, ErrNoRecordToClaim
	}

	execErr := r.invoke(ctx, action, claimed)

	return r.resolve(ctx, claimed, attemptsAtClaim, execErr)
}

// reclaimOne returns at most one timed-out lease to the queue. Reclamation is
// amortized: each Run call handles a single stale lease, so a polling loop
// drains a backlog without ever holding a large transaction.
func (r *Runner) reclaimOne(ctx context.Context, tx Tx) error {
	now := r.clock.Now()
	cutoff, err := Combine(StateWorking, now.Add(-r.timeout), MaxAttempts)
	if err != nil {
		return err
	}

	rec, err := tx.First(ctx, Min(StateWorking), cutoff)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil
		}
		return err
	}

	attempts := rec.QueueStatus().Attempts() + 1
	next, err := r.requeueStatus(now, attempts, r.delay)
	if err != nil {
		return err
	}
	rec.SetQueueStatus(next)
	if err := tx.Save(ctx, rec); err != nil {
		return err
	}

	r.logger.Info("reclaimed stale lease",
		slog.String("status", next.String()),
		slog.String("state", next.State().String()),
		slog.Int("attempts", attempts))
	return nil
}

// claimOne moves the earliest eligible waiting record to working, preserving
// its attempts count. Records scheduled in the future are invisible.
func (r *Runner) claimOne(ctx context.Context, tx Tx) (Record, int, error) {
	now := r.clock.Now()
	cutoff, err := Combine(StateWaiting, now, MaxAttempts)
	if err != nil {
		return nil, 0, err
	}

	rec, err := tx.First(ctx, Min(StateWaiting), cutoff)
	if err != nil {
		return nil, 0, err
	}

	attempts := rec.QueueStatus().Attempts()
	lease, err := Combine(StateWorking, now, attempts)
	if err != nil {
		return nil, 0, err
	}
	rec.SetQueueStatus(lease)
	if err := tx.Save(ctx, rec); err != nil {
		return nil, 0, err
	}
	return rec, attempts, nil
}

// invoke runs the action with panic recovery. The caller's context is passed
// through untouched: a lease has no cooperative cancellation, only the
// timeout-reclaim path bounds a hung action.
func (r *Runner) invoke(ctx context.Context, action Action, rec Record) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic in action: %v", p)
			r.logger.Error("action panicked", slog.Any("panic", p))
		}
	}()
	return action(ctx, rec)
}

// resolve persists the record's next status in its own transaction, then
// reports the outcome. Persistence always happens before a fault is returned,
// so the caller can rely on the queue state being settled.
func (r *Runner) resolve(ctx context.Context, rec Record, attemptsAtClaim int, execErr error) (Record, error) {
	out := classify(execErr, r.interrupts)
	delay := r.delay
	if out.hasDelay {
		delay = out.delay
	}
	now := r.clock.Now()

	var next Status
	var err error
	switch out.kind {
	case resolveSuccess:
		next, err = Combine(StateFinished, now, capAttempts(attemptsAtClaim+1))
	case resolveRetry:
		next, err = Combine(StateWaiting, now.Add(delay), attemptsAtClaim)
	case resolveAbort, resolveFault:
		next, err = r.requeueStatus(now, attemptsAtClaim+1, delay)
	case resolveCancel:
		next, err = Combine(StateCanceled, now, capAttempts(attemptsAtClaim+1))
	}
	if err != nil {
		return rec, err
	}

	rec.SetQueueStatus(next)
	if txErr := r.repo.InTx(ctx, func(ctx context.Context, tx Tx) error {
		return tx.Save(ctx, rec)
	}); txErr != nil {
		if out.propagate {
			return rec, errors.Join(execErr, txErr)
		}
		return rec, fmt.Errorf("resolve transaction: %w", txErr)
	}

	switch {
	case out.kind == resolveSuccess:
		r.logger.Debug("record finished",
			slog.String("status", next.String()),
			slog.Int("attempts", next.Attempts()))
	case out.kind == resolveFault:
		r.logger.Error("action failed",
			slog.String("status", next.String()),
			slog.String("state", next.State().String()),
			slog.Int("attempts", next.Attempts()),
			slog.String("error", execErr.Error()))
	case next.State() == StateCanceled:
		// Cancel signals and aborts past the budget both end here.
		r.logger.Warn("record canceled by signal",
			slog.String("status", next.String()),
			slog.Int("attempts", next.Attempts()))
	default:
		r.logger.Warn("record requeued by signal",
			slog.String("status", next.String()),
			slog.String("state", next.State().String()),
			slog.Int("attempts", next.Attempts()))
	}

	if out.propagate {
		return rec, execErr
	}
	return rec, nil
}

// requeueStatus is the shared retry-or-cancel decision: within the budget the
// record waits again after the delay, otherwise it is canceled permanently.
func (r *Runner) requeueStatus(now time.Time, attempts int, delay time.Duration) (Status, error) {
	attempts = capAttempts(attempts)
	if attempts <= r.retry {
		return Combine(StateWaiting, now.Add(delay), attempts)
	}
	return Combine(StateCanceled, now, attempts)
}

// capAttempts clamps externally seeded attempt counts at the digit ceiling.
func capAttempts(attempts int) int {
	if attempts > MaxAttempts {
		return MaxAttempts
	}
	return attempts
}
