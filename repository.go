package rowqueue

import "context"

// Record is a persisted application row governed by a queue. The runner reads
// and writes only the status; every other field belongs to the application and
// is never inspected.
type Record interface {
	// QueueStatus returns the record's current status.
	QueueStatus() Status

	// SetQueueStatus replaces the record's status in memory. The change is
	// persisted by Tx.Save.
	SetQueueStatus(Status)
}

// Tx exposes record access within a single atomic transaction.
type Tx interface {
	// First returns the record with the numerically smallest status in the
	// inclusive range [lo, hi], claimed exclusively until the transaction
	// ends. It returns ErrRecordNotFound when the range is empty.
	First(ctx context.Context, lo, hi Status) (Record, error)

	// Save persists the record's current status as part of the transaction.
	Save(ctx context.Context, rec Record) error
}

// Repository is the transactional store a Runner operates on. Implementations
// back the queue with any engine that offers atomic read-modify-write on a
// single row: see MemoryStore, pg.Store, mongo.Store, and redis.Store.
type Repository interface {
	// InTx runs fn inside one atomic transaction and rolls the transaction
	// back when fn returns an error.
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
