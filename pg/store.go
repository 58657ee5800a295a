package pg

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/rowqueue"
)

// Store implements rowqueue.Repository over a PostgreSQL table. The table is
// owned by the application; the store only requires an id column and a
// BIGINT status column, which should be indexed since every claim is a
// range-and-order query on it.
type Store struct {
	pool           *pgxpool.Pool
	table          string
	idColumn       string
	statusColumn   string
	payloadColumns []string
}

// StoreOption is a functional option for configuring a store
type StoreOption func(*Store)

// WithIDColumn overrides the id column name (default "id").
func WithIDColumn(name string) StoreOption {
	return func(s *Store) {
		if name != "" {
			s.idColumn = name
		}
	}
}

// WithStatusColumn overrides the status column name (default "queue_status").
func WithStatusColumn(name string) StoreOption {
	return func(s *Store) {
		if name != "" {
			s.statusColumn = name
		}
	}
}

// WithPayloadColumns selects extra columns to fetch with each claimed row,
// exposed through Record.Payload so actions do not need a second query.
func WithPayloadColumns(columns ...string) StoreOption {
	return func(s *Store) {
		s.payloadColumns = columns
	}
}

// NewStore creates a store over the given table.
func NewStore(pool *pgxpool.Pool, table string, opts ...StoreOption) (*Store, error) {
	if pool == nil {
		return nil, ErrPoolNil
	}
	if table == "" {
		return nil, ErrTableNotSet
	}

	s := &Store{
		pool:         pool,
		table:        table,
		idColumn:     "id",
		statusColumn: "queue_status",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Record is a claimed row. ID holds the value of the configured id column and
// Payload any extra columns requested via WithPayloadColumns.
type Record struct {
	ID      any
	Payload map[string]any
	status  rowqueue.Status
}

// QueueStatus implements rowqueue.Record
func (r *Record) QueueStatus() rowqueue.Status { return r.status }

// SetQueueStatus implements rowqueue.Record
func (r *Record) SetQueueStatus(s rowqueue.Status) { r.status = s }

// InTx implements rowqueue.Repository using one database transaction.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx rowqueue.Tx) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(ctx, &storeTx{store: s, tx: tx})
	})
}

// SetStatus overwrites a single row's status outside any claim, for
// requeueing finished or canceled rows.
func (s *Store) SetStatus(ctx context.Context, id any, status rowqueue.Status) error {
	query := fmt.Sprintf(
		`UPDATE %s SET %s = $1 WHERE %s = $2`,
		s.ident(s.table), s.ident(s.statusColumn), s.ident(s.idColumn),
	)
	tag, err := s.pool.Exec(ctx, query, int64(status), id)
	if err != nil {
		return fmt.Errorf("set status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return rowqueue.ErrRecordNotFound
	}
	return nil
}

// Tally counts rows per state. The state is the most significant of the 19
// status digits, so a single integer division groups the whole table.
func (s *Store) Tally(ctx context.Context) (map[rowqueue.State]int, error) {
	query := fmt.Sprintf(
		`SELECT %s / 1000000000000000000 AS state, COUNT(*) FROM %s GROUP BY 1`,
		s.ident(s.statusColumn), s.ident(s.table),
	)
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("tally: %w", err)
	}
	defer rows.Close()

	counts := make(map[rowqueue.State]int, 5)
	for rows.Next() {
		var state int64
		var count int64
		if err := rows.Scan(&state, &count); err != nil {
			return nil, fmt.Errorf("tally: %w", err)
		}
		if st := rowqueue.State(state); st.Valid() {
			counts[st] = int(count)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("tally: %w", err)
	}
	return counts, nil
}

func (s *Store) ident(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

type storeTx struct {
	store *Store
	tx    pgx.Tx
}

// First implements rowqueue.Tx. SKIP LOCKED lets concurrent claimants fall
// through to the next-lowest row instead of queueing on the same lock.
func (t *storeTx) First(ctx context.Context, lo, hi rowqueue.Status) (rowqueue.Record, error) {
	s := t.store

	columns := []string{s.ident(s.idColumn), s.ident(s.statusColumn)}
	for _, col := range s.payloadColumns {
		columns = append(columns, s.ident(col))
	}

	query := fmt.Sprintf(
		`SELECT %s FROM %s WHERE %s BETWEEN $1 AND $2 ORDER BY %s LIMIT 1 FOR UPDATE SKIP LOCKED`,
		strings.Join(columns, ", "), s.ident(s.table), s.ident(s.statusColumn), s.ident(s.statusColumn),
	)

	rec := &Record{Payload: make(map[string]any, len(s.payloadColumns))}
	var status int64
	payload := make([]any, len(s.payloadColumns))
	dest := []any{&rec.ID, &status}
	for i := range payload {
		dest = append(dest, &payload[i])
	}

	if err := t.tx.QueryRow(ctx, query, int64(lo), int64(hi)).Scan(dest...); err != nil {
		if IsNotFoundError(err) {
			return nil, rowqueue.ErrRecordNotFound
		}
		return nil, fmt.Errorf("select first in range: %w", err)
	}

	rec.status = rowqueue.Status(status)
	for i, col := range s.payloadColumns {
		rec.Payload[col] = payload[i]
	}
	return rec, nil
}

// Save implements rowqueue.Tx.
func (t *storeTx) Save(ctx context.Context, rec rowqueue.Record) error {
	r, ok := rec.(*Record)
	if !ok {
		return rowqueue.ErrForeignRecord
	}

	s := t.store
	query := fmt.Sprintf(
		`UPDATE %s SET %s = $1 WHERE %s = $2`,
		s.ident(s.table), s.ident(s.statusColumn), s.ident(s.idColumn),
	)
	tag, err := t.tx.Exec(ctx, query, int64(r.status), r.ID)
	if err != nil {
		return fmt.Errorf("save status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return rowqueue.ErrRecordNotFound
	}
	return nil
}
