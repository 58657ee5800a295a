package rowqueue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Worker polls a runner in a loop, backing off while the queue is empty. It
// is the looping collaborator the runner itself deliberately does not
// contain: concurrency comes from the semaphore here and from other workers
// in other processes sharing the same repository.
type Worker struct {
	runner   *Runner
	action   Action
	workerID uuid.UUID
	sem      chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex
	stopMu   sync.Mutex // Protects stopping state and WaitGroup operations

	interval time.Duration
	logger   *slog.Logger

	cancel   context.CancelFunc
	stopping atomic.Bool
}

// NewWorker creates a worker that applies action to every record it claims.
func NewWorker(runner *Runner, action Action, opts ...WorkerOption) (*Worker, error) {
	if runner == nil {
		return nil, ErrRunnerNil
	}
	if action == nil {
		return nil, ErrActionNil
	}

	options := &workerOptions{
		interval:      5 * time.Second,
		maxConcurrent: 1,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	return &Worker{
		runner:   runner,
		action:   action,
		workerID: uuid.New(),
		sem:      make(chan struct{}, options.maxConcurrent),
		interval: options.interval,
		logger:   options.logger,
	}, nil
}

// Start begins polling in the background.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.cancel != nil {
		w.mu.Unlock()
		return fmt.Errorf("worker already started")
	}
	// The loop owns this context as a parameter, so a later restart cannot
	// race with a goroutine from a previous run.
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.mu.Unlock()

	w.stopping.Store(false)

	go w.loop(ctx)

	w.logger.Info("worker started",
		slog.String("worker_id", w.workerID.String()),
		slog.Duration("poll_interval", w.interval),
		slog.Int("max_concurrent", cap(w.sem)))

	return nil
}

// Stop gracefully shuts down the worker, waiting for in-flight actions.
func (w *Worker) Stop() error {
	w.mu.Lock()
	if w.cancel == nil {
		w.mu.Unlock()
		return fmt.Errorf("worker not started")
	}

	w.stopMu.Lock()
	w.stopping.Store(true)
	w.stopMu.Unlock()

	cancel := w.cancel
	w.cancel = nil
	w.mu.Unlock()

	cancel()
	w.wg.Wait()

	w.logger.Info("worker stopped",
		slog.String("worker_id", w.workerID.String()))

	return nil
}

// Run starts the worker and returns a function suitable for errgroup.
func (w *Worker) Run(ctx context.Context) func() error {
	return func() error {
		if err := w.Start(ctx); err != nil {
			return err
		}

		<-ctx.Done()

		return w.Stop()
	}
}

// loop is the main polling loop. Each tick claims a concurrency slot and
// drains the queue until it reports empty, then waits for the next tick.
func (w *Worker) loop(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			select {
			case w.sem <- struct{}{}:
				// Do not add to the WaitGroup once Stop has begun waiting.
				w.stopMu.Lock()
				if w.stopping.Load() {
					w.stopMu.Unlock()
					<-w.sem
					return
				}
				w.wg.Add(1)
				w.stopMu.Unlock()

				go func() {
					defer w.wg.Done()
					defer func() { <-w.sem }()
					w.drain(ctx)
				}()
			default:
				w.logger.Debug("all worker slots busy, skipping tick",
					slog.String("worker_id", w.workerID.String()))
			}
		}
	}
}

// drain processes records until the queue is empty or the worker stops.
func (w *Worker) drain(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		rec, err := w.runner.Run(ctx, w.action)
		switch {
		case errors.Is(err, ErrNoRecordToClaim):
			return
		case err != nil && rec == nil:
			w.logger.Error("failed to claim record",
				slog.String("worker_id", w.workerID.String()),
				slog.String("error", err.Error()))
			return
		case err != nil:
			// The record is already resolved; the error belongs to the
			// action and is only reported here.
			w.logger.Error("action failed",
				slog.String("worker_id", w.workerID.String()),
				slog.String("status", rec.QueueStatus().String()),
				slog.String("error", err.Error()))
		default:
			w.logger.Debug("record processed",
				slog.String("worker_id", w.workerID.String()),
				slog.String("status", rec.QueueStatus().String()))
		}
	}
}

// WorkerOption is a functional option for configuring a worker
type WorkerOption func(*workerOptions)

type workerOptions struct {
	interval      time.Duration
	maxConcurrent int
	logger        *slog.Logger
}

// WithPollInterval sets how often the worker checks for new records
func WithPollInterval(d time.Duration) WorkerOption {
	return func(o *workerOptions) {
		if d > 0 {
			o.interval = d
		}
	}
}

// WithMaxConcurrent sets the maximum number of concurrent claim cycles
func WithMaxConcurrent(n int) WorkerOption {
	return func(o *workerOptions) {
		if n > 0 {
			o.maxConcurrent = n
		}
	}
}

// WithWorkerLogger sets the logger for the worker
func WithWorkerLogger(logger *slog.Logger) WorkerOption {
	return func(o *workerOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WorkerFromConfig maps Config onto worker options.
func WorkerFromConfig(cfg Config) WorkerOption {
	return func(o *workerOptions) {
		if cfg.PollInterval > 0 {
			o.interval = cfg.PollInterval
		}
		if cfg.MaxConcurrent > 0 {
			o.maxConcurrent = cfg.MaxConcurrent
		}
	}
}
