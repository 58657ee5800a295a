package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/rowqueue"
)

// defaultMaxRetries bounds how often an optimistic transaction is replayed
// after losing a WATCH race before giving up.
const defaultMaxRetries = 32

// Store implements rowqueue.Repository over a single sorted set. Every member
// is "<19-digit status>:<record id>" with score zero, so ZRANGEBYLEX over the
// fixed-width status prefix is the range-and-order query the runner needs.
//
// Redis has no row locks; exclusivity comes from WATCH/MULTI/EXEC instead.
// A transaction that loses the race fails at EXEC and is replayed, at which
// point it re-reads and settles on the next eligible member.
type Store struct {
	client     *redis.Client
	key        string
	maxRetries int
}

// StoreOption is a functional option for configuring a store
type StoreOption func(*Store)

// WithMaxRetries bounds the optimistic transaction replays (default 32).
func WithMaxRetries(n int) StoreOption {
	return func(s *Store) {
		if n > 0 {
			s.maxRetries = n
		}
	}
}

// NewStore creates a store over the given sorted set key.
func NewStore(client *redis.Client, key string, opts ...StoreOption) (*Store, error) {
	if client == nil {
		return nil, ErrClientNil
	}
	if key == "" {
		return nil, ErrKeyNotSet
	}

	s := &Store{client: client, key: key, maxRetries: defaultMaxRetries}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Record is a claimed queue entry. ID is the member suffix supplied when the
// entry was added.
type Record struct {
	ID     string
	member string
	status rowqueue.Status
}

// QueueStatus implements rowqueue.Record
func (r *Record) QueueStatus() rowqueue.Status { return r.status }

// SetQueueStatus implements rowqueue.Record
func (r *Record) SetQueueStatus(s rowqueue.Status) { r.status = s }

// Add enqueues a record id with the given status.
func (s *Store) Add(ctx context.Context, id string, status rowqueue.Status) error {
	return s.client.ZAdd(ctx, s.key, redis.Z{Member: member(status, id)}).Err()
}

// Remove deletes the entry for id at its exact current status.
func (s *Store) Remove(ctx context.Context, id string, status rowqueue.Status) error {
	n, err := s.client.ZRem(ctx, s.key, member(status, id)).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return rowqueue.ErrRecordNotFound
	}
	return nil
}

// Tally counts entries per state with one ZLEXCOUNT per state.
func (s *Store) Tally(ctx context.Context) (map[rowqueue.State]int, error) {
	counts := make(map[rowqueue.State]int, 5)
	for state := rowqueue.StateCreated; state <= rowqueue.StateCanceled; state++ {
		r := rowqueue.Range(state)
		n, err := s.client.ZLexCount(ctx, s.key, lexMin(r.Min), lexMax(r.Max)).Result()
		if err != nil {
			return nil, fmt.Errorf("tally %s: %w", state, err)
		}
		if n > 0 {
			counts[state] = int(n)
		}
	}
	return counts, nil
}

// InTx implements rowqueue.Repository. Reads run under WATCH; writes are
// staged and applied in a MULTI/EXEC pipeline, so any concurrent change to
// the set between the read and EXEC aborts and replays the transaction.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx rowqueue.Tx) error) error {
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		stx := &storeTx{store: s}
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			stx.tx = tx
			if err := fn(ctx, stx); err != nil {
				return err
			}
			if len(stx.writes) == 0 {
				return nil
			}
			_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				for _, write := range stx.writes {
					write(pipe)
				}
				return nil
			})
			return err
		}, s.key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return err
		}
		for _, hook := range stx.onCommit {
			hook()
		}
		return nil
	}
	return ErrTooMuchContention
}

type storeTx struct {
	store    *Store
	tx       *redis.Tx
	writes   []func(redis.Pipeliner)
	onCommit []func()
}

// First implements rowqueue.Tx.
func (t *storeTx) First(ctx context.Context, lo, hi rowqueue.Status) (rowqueue.Record, error) {
	members, err := t.tx.ZRangeByLex(ctx, t.store.key, &redis.ZRangeBy{
		Min:   lexMin(lo),
		Max:   lexMax(hi),
		Count: 1,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("range first in range: %w", err)
	}
	if len(members) == 0 {
		return nil, rowqueue.ErrRecordNotFound
	}
	return parseMember(members[0])
}

// Save implements rowqueue.Tx. The member swap is staged; the record's member
// is updated only once EXEC succeeds, so a replayed transaction still removes
// the entry it actually read.
func (t *storeTx) Save(ctx context.Context, rec rowqueue.Record) error {
	r, ok := rec.(*Record)
	if !ok {
		return rowqueue.ErrForeignRecord
	}

	old := r.member
	next := member(r.status, r.ID)
	key := t.store.key
	t.writes = append(t.writes, func(pipe redis.Pipeliner) {
		pipe.ZRem(ctx, key, old)
		pipe.ZAdd(ctx, key, redis.Z{Member: next})
	})
	t.onCommit = append(t.onCommit, func() { r.member = next })
	return nil
}

// member renders the fixed-width sorted set member. The 19-digit status
// prefix carries the full lexicographic ordering; the id only breaks ties.
func member(status rowqueue.Status, id string) string {
	return status.String() + ":" + id
}

func parseMember(m string) (*Record, error) {
	prefix, id, ok := strings.Cut(m, ":")
	if !ok || len(prefix) != 19 {
		return nil, fmt.Errorf("%w: %q", ErrMalformedMember, m)
	}
	status, err := strconv.ParseInt(prefix, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrMalformedMember, m)
	}
	return &Record{ID: id, member: m, status: rowqueue.Status(status)}, nil
}

// lexMin is the inclusive lower lex bound: the bare status string sorts
// before every "<status>:<id>" member with the same prefix.
func lexMin(lo rowqueue.Status) string {
	return "[" + lo.String()
}

// lexMax is the exclusive upper lex bound one status past hi, which sorts
// after every member with status <= hi.
func lexMax(hi rowqueue.Status) string {
	return "(" + (hi + 1).String()
}
