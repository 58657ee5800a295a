package rowqueue_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/rowqueue"
)

func TestNewWorker_Validation(t *testing.T) {
	t.Parallel()

	noop := func(ctx context.Context, rec rowqueue.Record) error { return nil }

	t.Run("nil runner", func(t *testing.T) {
		t.Parallel()

		worker, err := rowqueue.NewWorker(nil, noop)
		assert.ErrorIs(t, err, rowqueue.ErrRunnerNil)
		assert.Nil(t, worker)
	})

	t.Run("nil action", func(t *testing.T) {
		t.Parallel()

		runner, _, _ := newTestRunner(t)
		worker, err := rowqueue.NewWorker(runner, nil)
		assert.ErrorIs(t, err, rowqueue.ErrActionNil)
		assert.Nil(t, worker)
	})
}

func TestWorker_ProcessesSeededRecords(t *testing.T) {
	t.Parallel()

	store := rowqueue.NewMemoryStore()
	runner, err := rowqueue.NewRunner(store)
	require.NoError(t, err)

	for n := 0; n < 3; n++ {
		store.Add(mustWaiting(t, testBase, 0), nil)
	}

	var processed atomic.Int32
	worker, err := rowqueue.NewWorker(runner,
		func(ctx context.Context, rec rowqueue.Record) error {
			processed.Add(1)
			return nil
		},
		rowqueue.WithPollInterval(10*time.Millisecond),
		rowqueue.WithMaxConcurrent(2),
	)
	require.NoError(t, err)

	require.NoError(t, worker.Start(context.Background()))
	defer func() { _ = worker.Stop() }()

	require.Eventually(t, func() bool {
		return store.Tally()[rowqueue.StateFinished] == 3
	}, 5*time.Second, 10*time.Millisecond, "worker should drain the queue")
	assert.Equal(t, int32(3), processed.Load())
}

func TestWorker_StartStopLifecycle(t *testing.T) {
	t.Parallel()

	runner, _, _ := newTestRunner(t)
	worker, err := rowqueue.NewWorker(runner,
		func(ctx context.Context, rec rowqueue.Record) error { return nil },
		rowqueue.WithPollInterval(10*time.Millisecond),
	)
	require.NoError(t, err)

	assert.Error(t, worker.Stop(), "stop before start must fail")

	require.NoError(t, worker.Start(context.Background()))
	assert.Error(t, worker.Start(context.Background()), "double start must fail")

	require.NoError(t, worker.Stop())

	// A stopped worker can be started again.
	require.NoError(t, worker.Start(context.Background()))
	require.NoError(t, worker.Stop())
}

func TestWorker_RestartWhileDraining(t *testing.T) {
	t.Parallel()

	// Rapid stop/start cycles while records are flowing: goroutines from a
	// previous run must never observe state belonging to the next one.
	store := rowqueue.NewMemoryStore()
	runner, err := rowqueue.NewRunner(store)
	require.NoError(t, err)

	for n := 0; n < 20; n++ {
		store.Add(mustWaiting(t, testBase, 0), nil)
	}

	worker, err := rowqueue.NewWorker(runner,
		func(ctx context.Context, rec rowqueue.Record) error { return nil },
		rowqueue.WithPollInterval(time.Millisecond),
	)
	require.NoError(t, err)

	for n := 0; n < 5; n++ {
		require.NoError(t, worker.Start(context.Background()))
		time.Sleep(5 * time.Millisecond)
		require.NoError(t, worker.Stop())
	}

	require.NoError(t, worker.Start(context.Background()))
	defer func() { _ = worker.Stop() }()

	require.Eventually(t, func() bool {
		return store.Tally()[rowqueue.StateFinished] == 20
	}, 5*time.Second, 10*time.Millisecond)
}

func TestWorker_RunHonorsContext(t *testing.T) {
	t.Parallel()

	runner, _, _ := newTestRunner(t)
	worker, err := rowqueue.NewWorker(runner,
		func(ctx context.Context, rec rowqueue.Record) error { return nil },
		rowqueue.WithPollInterval(10*time.Millisecond),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx)() }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not shut down after context cancellation")
	}
}

func TestWorker_FromConfig(t *testing.T) {
	t.Parallel()

	store := rowqueue.NewMemoryStore()
	store.Add(mustWaiting(t, testBase, 0), nil)

	cfg := rowqueue.Config{
		Retry:         2,
		Timeout:       time.Hour,
		PollInterval:  10 * time.Millisecond,
		MaxConcurrent: 2,
	}

	runner, err := rowqueue.NewRunner(store, rowqueue.FromConfig(cfg))
	require.NoError(t, err)

	worker, err := rowqueue.NewWorker(runner,
		func(ctx context.Context, rec rowqueue.Record) error { return nil },
		rowqueue.WorkerFromConfig(cfg),
	)
	require.NoError(t, err)

	require.NoError(t, worker.Start(context.Background()))
	defer func() { _ = worker.Stop() }()

	require.Eventually(t, func() bool {
		return store.Tally()[rowqueue.StateFinished] == 1
	}, 5*time.Second, 10*time.Millisecond)
}
