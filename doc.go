// Package rowqueue provides a lease-based job queue whose entire state lives
// in a single sortable integer column of the application's own rows.
//
// The package is organised around three main components:
//
//   - Status  — pure value type packing (state, priority, attempts) into one
//     19-digit integer whose numeric ordering is the queue ordering
//   - Runner  — executes one claim/process/resolve cycle against a Repository
//   - Worker  — polls a Runner in a loop with idle backoff and bounded
//     concurrency
//
// Components interact only through the small Repository, Tx, and Record
// interfaces, keeping the queue logic decoupled from persistence. This design
// allows you to back the queue with any storage engine that offers atomic
// read-modify-write on a single row: MemoryStore ships in this package, and
// the pg, mongo, and redis subpackages provide PostgreSQL,
// MongoDB, and Redis stores.
//
// # Architecture
//
//  1. A status is exactly 19 decimal digits: one state digit, a 17-digit
//     millisecond timestamp (the priority, doubling as the not-before time
//     for waiting records and the lease start for working records), and one
//     attempts digit. Because the state occupies the most significant digit,
//     "earliest eligible record in state X" is a plain range-and-order query
//     on one indexed column.
//  2. Runner.Run reclaims at most one timed-out lease, claims the earliest
//     eligible waiting record inside one atomic transaction, runs the action
//     with no lock held, and resolves the outcome in a fresh transaction.
//  3. A worker that dies mid-action leaves its record in the working state;
//     a later Run call from any process detects the stale lease by its age
//     and requeues or cancels it according to the attempt budget.
//  4. Concurrency comes entirely from independent callers: the runner spawns
//     nothing and keeps no state between calls.
//
// # Usage
//
// Process records from an in-memory store:
//
//	store := rowqueue.NewMemoryStore()
//
//	status, _ := rowqueue.Waiting(time.Time{}, 0) // now, first attempt
//	store.Add(status, "payload")
//
//	runner, err := rowqueue.NewRunner(store,
//	    rowqueue.WithRetry(3),
//	    rowqueue.WithTimeout(time.Hour),
//	)
//	if err != nil {
//	    return err
//	}
//
//	rec, err := runner.Run(ctx, func(ctx context.Context, rec rowqueue.Record) error {
//	    // do the work; return rowqueue.Retry(), Abort(), Cancel(), or an error
//	    return nil
//	})
//
// Actions steer their own resolution with signals:
//
//	return rowqueue.RetryIn(10 * time.Minute) // requeue, no attempt consumed
//	return rowqueue.Abort()                   // requeue, one attempt consumed
//	return rowqueue.Cancel()                  // stop permanently
//
// # Error Handling
//
// Package-level sentinel errors (e.g. ErrNoRecordToClaim, ErrRetryOutOfRange)
// signal violations of queue invariants and can be checked with errors.Is.
// An empty queue is the sentinel ErrNoRecordToClaim, never a nil record with
// a nil error. When an action fails with an unclassified error, the record is
// requeued or canceled and persisted before the error is returned, so queue
// state is always consistent by the time the caller observes the failure.
//
// # Examples
//
// Additional runnable examples live in the package's example_test.go files.
package rowqueue
