// Package mongo backs a rowqueue with MongoDB using the official v2 driver.
//
// The package provides connection helpers (Config populated from environment
// variables, Connect with retries, Healthcheck) and Store, a
// rowqueue.Repository over any collection whose documents carry one int64
// status field.
//
// # Claiming
//
// Store.InTx runs the claim inside a session transaction. First sorts the
// range filter ascending on the status field and takes one document; when two
// transactions race for the same document, the server raises a write conflict
// and the driver transparently retries the loser, which then settles on the
// next eligible document. Transactions require a replica set or sharded
// deployment; a standalone server will reject them.
//
// # Usage
//
//	var cfg mongo.Config
//	config.MustLoad(&cfg)
//
//	coll, err := mongo.Collection(ctx, cfg, "app", "tasks")
//	if err != nil {
//	    return err
//	}
//
//	store, err := mongo.NewStore(coll)
//	if err != nil {
//	    return err
//	}
//
//	runner, err := rowqueue.NewRunner(store)
//
// Claimed records are *mongo.Record values exposing the document's _id and
// the full decoded document.
//
// # Error Handling
//
// Sentinel errors (ErrFailedToConnectToMongo, ErrCollectionNil, ...) can be
// checked with errors.Is. Store methods translate mongo.ErrNoDocuments into
// rowqueue.ErrRecordNotFound so the runner never sees driver-specific errors.
package mongo
