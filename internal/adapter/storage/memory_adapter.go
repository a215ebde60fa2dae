package storage

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/rl1809/fourthcafe-inventory/internal/core/domain"
	"github.com/rl1809/fourthcafe-inventory/internal/core/txn"
	"github.com/rl1809/fourthcafe-inventory/internal/port"
)

// SequenceGenerator hands out increasing IDs from an in-process counter.
type SequenceGenerator struct {
	last atomic.Int64
}

func (g *SequenceGenerator) NextID(ctx context.Context) (int64, error) {
	return g.last.Add(1), nil
}

// MemoryAdapter is a map-backed RecordStore. Writes are staged per transaction
// and become visible on commit.
type MemoryAdapter struct {
	mu    sync.RWMutex
	rows  map[int64]domain.InventoryRecord
	ids   port.IDGenerator
	hooks hookSet
	log   logrus.FieldLogger
}

func NewMemoryAdapter(ids port.IDGenerator, log logrus.FieldLogger) *MemoryAdapter {
	if ids == nil {
		ids = &SequenceGenerator{}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &MemoryAdapter{
		rows: make(map[int64]domain.InventoryRecord),
		ids:  ids,
		log:  log,
	}
}

func (m *MemoryAdapter) OnBeforeFirstPersist(hook port.PersistHook) {
	m.hooks.add(hook)
}

func (m *MemoryAdapter) WithTx(ctx context.Context, fn func(ctx context.Context, s port.Session) error) (err error) {
	tx := txn.New(m.log)
	sess := &memorySession{store: m, tx: tx, staged: make(map[int64]domain.InventoryRecord)}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err = fn(ctx, sess); err != nil {
		tx.Rollback()
		return err
	}

	m.mu.Lock()
	for id, rec := range sess.staged {
		m.rows[id] = rec
	}
	m.mu.Unlock()

	return tx.Commit(ctx)
}

func (m *MemoryAdapter) Get(ctx context.Context, id int64) (*domain.InventoryRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.rows[id]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	return &rec, nil
}

// Len returns the number of committed records.
func (m *MemoryAdapter) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rows)
}

type memorySession struct {
	store  *MemoryAdapter
	tx     *txn.Tx
	staged map[int64]domain.InventoryRecord
}

func (s *memorySession) Tx() *txn.Tx {
	return s.tx
}

func (s *memorySession) Save(ctx context.Context, rec *domain.InventoryRecord) error {
	if rec == nil {
		return domain.ErrNilRecord
	}

	if rec.IsTransient() {
		return firstPersist(ctx, s.tx, rec, s.store.ids.NextID, s.store.hooks.snapshot(), func(ctx context.Context) error {
			s.staged[rec.ID] = *rec
			return nil
		})
	}

	if _, ok := s.staged[rec.ID]; ok {
		s.staged[rec.ID] = *rec
		return nil
	}
	s.store.mu.RLock()
	_, ok := s.store.rows[rec.ID]
	s.store.mu.RUnlock()
	if !ok {
		return fmt.Errorf("update inventory %d: %w", rec.ID, domain.ErrRecordNotFound)
	}
	s.staged[rec.ID] = *rec
	return nil
}
