package rowqueue

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore implements Repository in memory for testing and local
// development. A single store-wide mutex plays the role of the row-level
// exclusive lock: every transaction is serialized, which is exactly the
// isolation the runner needs and cheap at test scale.
type MemoryStore struct {
	mu      sync.Mutex
	records map[uuid.UUID]*MemoryRecord
}

// MemoryRecord is the record type produced by MemoryStore. Data carries the
// application payload; the store never inspects it.
type MemoryRecord struct {
	ID     uuid.UUID
	Data   any
	status Status
}

// QueueStatus implements Record
func (r *MemoryRecord) QueueStatus() Status { return r.status }

// SetQueueStatus implements Record
func (r *MemoryRecord) SetQueueStatus(s Status) { r.status = s }

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[uuid.UUID]*MemoryRecord)}
}

// Add stores a new record with the given status and payload and returns a
// detached copy of it.
func (m *MemoryStore) Add(status Status, data any) *MemoryRecord {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := &MemoryRecord{ID: uuid.New(), Data: data, status: status}
	m.records[rec.ID] = rec

	clone := *rec
	return &clone
}

// Get returns a detached copy of the record with the given id, or nil when it
// does not exist.
func (m *MemoryStore) Get(id uuid.UUID) *MemoryRecord {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok {
		return nil
	}
	clone := *rec
	return &clone
}

// SetStatus overwrites a record's status outside any claim, for requeueing
// finished or canceled records.
func (m *MemoryStore) SetStatus(id uuid.UUID, status Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok {
		return ErrRecordNotFound
	}
	rec.status = status
	return nil
}

// Tally counts records per state.
func (m *MemoryStore) Tally() map[State]int {
	m.mu.Lock()
	defer m.mu.Unlock()

	statuses := make([]Status, 0, len(m.records))
	for _, rec := range m.records {
		statuses = append(statuses, rec.status)
	}
	return Tally(statuses)
}

// Len returns the number of stored records.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// InTx implements Repository. Status writes are staged inside the transaction
// and applied only when fn succeeds, which gives rollback-on-error semantics.
func (m *MemoryStore) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memoryTx{store: m, writes: make(map[uuid.UUID]Status)}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	for id, status := range tx.writes {
		if rec, ok := m.records[id]; ok {
			rec.status = status
		}
	}
	return nil
}

type memoryTx struct {
	store  *MemoryStore
	writes map[uuid.UUID]Status
}

// First implements Tx. Staged writes are visible to later reads in the same
// transaction.
func (t *memoryTx) First(ctx context.Context, lo, hi Status) (Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var best *MemoryRecord
	var bestStatus Status
	for _, rec := range t.store.records {
		status := rec.status
		if staged, ok := t.writes[rec.ID]; ok {
			status = staged
		}
		if status < lo || status > hi {
			continue
		}
		if best == nil || status < bestStatus {
			best, bestStatus = rec, status
		}
	}
	if best == nil {
		return nil, ErrRecordNotFound
	}

	clone := *best
	clone.status = bestStatus
	return &clone, nil
}

// Save implements Tx.
func (t *memoryTx) Save(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	mr, ok := rec.(*MemoryRecord)
	if !ok {
		return ErrForeignRecord
	}
	if _, ok := t.store.records[mr.ID]; !ok {
		return ErrForeignRecord
	}
	t.writes[mr.ID] = mr.status
	return nil
}
