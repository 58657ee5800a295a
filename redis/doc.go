// Package redis backs a rowqueue with Redis using go-redis/v9.
//
// The package provides connection helpers (Config populated from environment
// variables, Connect with retries, Healthcheck) and Store, a
// rowqueue.Repository over a single sorted set.
//
// # Layout
//
// Statuses overflow the float64 precision of sorted set scores, so the store
// does not use scores at all: every member is the fixed-width string
//
//	<19-digit status>:<record id>
//
// with score zero. Lexicographic member order then equals numeric status
// order, and ZRANGEBYLEX over the status prefix answers "earliest eligible
// record" exactly like an indexed BETWEEN ... ORDER BY query would.
//
// # Claiming
//
// Redis offers no transactional row locks, so Store.InTx implements the
// repository contract with optimistic WATCH/MULTI/EXEC transactions: reads
// run under WATCH, status writes are staged into the MULTI pipeline, and a
// concurrent modification of the set aborts EXEC and replays the transaction
// (bounded by WithMaxRetries). A losing claimant re-reads and settles on the
// next eligible member, which preserves the at-most-one-claim guarantee.
//
// # Usage
//
//	var cfg redis.Config
//	config.MustLoad(&cfg)
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//
//	store, err := redis.NewStore(client, "app:tasks")
//	if err != nil {
//	    return err
//	}
//
//	status, _ := rowqueue.Waiting(time.Time{}, 0)
//	_ = store.Add(ctx, "task-42", status)
//
//	runner, err := rowqueue.NewRunner(store)
//
// Unlike the SQL stores, records here are queue entries of their own rather
// than columns on application rows: the record id is the string handed to
// Add, and the application keeps its payload wherever it likes.
//
// # Error Handling
//
// Sentinel errors (ErrRedisNotReady, ErrTooMuchContention, ...) can be
// checked with errors.Is. An empty range is rowqueue.ErrRecordNotFound so the
// runner never sees driver-specific errors.
package redis
