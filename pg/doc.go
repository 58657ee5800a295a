// Package pg backs a rowqueue with PostgreSQL using the pgx/v5 driver.
//
// The package provides two cooperating layers:
//
//   - Connection plumbing: Config (populated from environment variables via
//     github.com/caarlos0/env), Connect (pool with retry/backoff), Migrate
//     (goose/v3 schema migrations), and Healthcheck.
//
//   - Store: a rowqueue.Repository over any application table that has an id
//     column and a BIGINT status column. The table stays fully owned by the
//     application; the store reads and writes only the status column.
//
// # Claiming
//
// Store.InTx wraps one database transaction. Inside it, First runs
//
//	SELECT id, status FROM tbl
//	WHERE status BETWEEN $1 AND $2
//	ORDER BY status LIMIT 1
//	FOR UPDATE SKIP LOCKED
//
// so the row-level exclusive lock serializes claims per row while concurrent
// claimants skip ahead to the next-lowest row. A btree index on the status
// column makes the claim an index-range scan regardless of table size.
//
// # Usage
//
//	var cfg pg.Config
//	config.MustLoad(&cfg)
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//
//	store, err := pg.NewStore(pool, "tasks",
//	    pg.WithStatusColumn("status"),
//	    pg.WithPayloadColumns("data"),
//	)
//	if err != nil {
//	    return err
//	}
//
//	runner, err := rowqueue.NewRunner(store)
//
// Claimed records are *pg.Record values: the row's primary key is in ID and
// any columns requested with WithPayloadColumns are in Payload, so most
// actions never need a second query.
//
// # Error Handling
//
// Sentinel errors such as ErrFailedToOpenDBConnection and ErrTableNotSet can
// be checked with errors.Is. Store methods translate pgx.ErrNoRows into
// rowqueue.ErrRecordNotFound so the runner never sees driver-specific errors.
package pg
