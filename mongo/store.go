package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/rowqueue"
)

// Store implements rowqueue.Repository over a MongoDB collection. Documents
// are owned by the application; the store only requires one int64 status
// field, which should be indexed since every claim sorts on it.
type Store struct {
	coll  *mongo.Collection
	field string
}

// StoreOption is a functional option for configuring a store
type StoreOption func(*Store)

// WithStatusField overrides the status field name (default "queue_status").
func WithStatusField(name string) StoreOption {
	return func(s *Store) {
		if name != "" {
			s.field = name
		}
	}
}

// NewStore creates a store over the given collection.
func NewStore(coll *mongo.Collection, opts ...StoreOption) (*Store, error) {
	if coll == nil {
		return nil, ErrCollectionNil
	}

	s := &Store{coll: coll, field: "queue_status"}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Record is a claimed document. ID holds the document's _id and Document the
// full decoded document, so actions rarely need a second query.
type Record struct {
	ID       any
	Document bson.M
	status   rowqueue.Status
}

// QueueStatus implements rowqueue.Record
func (r *Record) QueueStatus() rowqueue.Status { return r.status }

// SetQueueStatus implements rowqueue.Record
func (r *Record) SetQueueStatus(s rowqueue.Status) { r.status = s }

// InTx implements rowqueue.Repository using a session transaction. Two
// transactions touching the same document produce a write conflict; the
// driver retries the losing transaction, which re-reads and settles on the
// next eligible document. That is what makes concurrent claims resolve to a
// single winner.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx rowqueue.Tx) error) error {
	session, err := s.coll.Database().Client().StartSession()
	if err != nil {
		return errors.Join(ErrTransactionFailed, err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(ctx context.Context) (any, error) {
		return nil, fn(ctx, &storeTx{store: s})
	})
	return err
}

// SetStatus overwrites a single document's status outside any claim, for
// requeueing finished or canceled documents.
func (s *Store) SetStatus(ctx context.Context, id any, status rowqueue.Status) error {
	res, err := s.coll.UpdateByID(ctx, id, bson.D{
		{Key: "$set", Value: bson.D{{Key: s.field, Value: int64(status)}}},
	})
	if err != nil {
		return fmt.Errorf("set status: %w", err)
	}
	if res.MatchedCount == 0 {
		return rowqueue.ErrRecordNotFound
	}
	return nil
}

// Tally counts documents per state using one range query per state.
func (s *Store) Tally(ctx context.Context) (map[rowqueue.State]int, error) {
	counts := make(map[rowqueue.State]int, 5)
	for state := rowqueue.StateCreated; state <= rowqueue.StateCanceled; state++ {
		r := rowqueue.Range(state)
		n, err := s.coll.CountDocuments(ctx, s.rangeFilter(r.Min, r.Max))
		if err != nil {
			return nil, fmt.Errorf("tally %s: %w", state, err)
		}
		if n > 0 {
			counts[state] = int(n)
		}
	}
	return counts, nil
}

func (s *Store) rangeFilter(lo, hi rowqueue.Status) bson.D {
	return bson.D{{Key: s.field, Value: bson.D{
		{Key: "$gte", Value: int64(lo)},
		{Key: "$lte", Value: int64(hi)},
	}}}
}

type storeTx struct {
	store *Store
}

// First implements rowqueue.Tx. The context carries the session, so the read
// participates in the enclosing transaction.
func (t *storeTx) First(ctx context.Context, lo, hi rowqueue.Status) (rowqueue.Record, error) {
	s := t.store

	var doc bson.M
	err := s.coll.FindOne(ctx, s.rangeFilter(lo, hi),
		options.FindOne().SetSort(bson.D{{Key: s.field, Value: 1}}),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, rowqueue.ErrRecordNotFound
		}
		return nil, fmt.Errorf("find first in range: %w", err)
	}

	status, err := statusValue(doc[s.field])
	if err != nil {
		return nil, err
	}
	return &Record{ID: doc["_id"], Document: doc, status: status}, nil
}

// Save implements rowqueue.Tx.
func (t *storeTx) Save(ctx context.Context, rec rowqueue.Record) error {
	r, ok := rec.(*Record)
	if !ok {
		return rowqueue.ErrForeignRecord
	}

	s := t.store
	res, err := s.coll.UpdateByID(ctx, r.ID, bson.D{
		{Key: "$set", Value: bson.D{{Key: s.field, Value: int64(r.status)}}},
	})
	if err != nil {
		return fmt.Errorf("save status: %w", err)
	}
	if res.MatchedCount == 0 {
		return rowqueue.ErrRecordNotFound
	}
	return nil
}

// statusValue converts the BSON numeric representations a status may decode
// into. Statuses exceed 32 bits, so int32 only appears in hand-seeded data.
func statusValue(v any) (rowqueue.Status, error) {
	switch n := v.(type) {
	case int64:
		return rowqueue.Status(n), nil
	case int32:
		return rowqueue.Status(n), nil
	case int:
		return rowqueue.Status(n), nil
	default:
		return 0, fmt.Errorf("%w: %T", ErrUnexpectedStatusType, v)
	}
}
