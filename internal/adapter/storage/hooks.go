package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/rl1809/fourthcafe-inventory/internal/core/domain"
	"github.com/rl1809/fourthcafe-inventory/internal/core/txn"
	"github.com/rl1809/fourthcafe-inventory/internal/port"
)

type hookSet struct {
	mu    sync.RWMutex
	hooks []port.PersistHook
}

func (h *hookSet) add(hook port.PersistHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hooks = append(h.hooks, hook)
}

func (h *hookSet) snapshot() []port.PersistHook {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]port.PersistHook(nil), h.hooks...)
}

// firstPersist assigns an identity to rec, runs the hooks and writes the row.
// Any failure leaves rec transient and drops the actions its hooks queued.
// A later rollback of tx also resets the ID.
func firstPersist(
	ctx context.Context,
	tx *txn.Tx,
	rec *domain.InventoryRecord,
	nextID func(ctx context.Context) (int64, error),
	hooks []port.PersistHook,
	write func(ctx context.Context) error,
) error {
	id, err := nextID(ctx)
	if err != nil {
		return fmt.Errorf("next id: %w", err)
	}
	rec.SetID(id)

	// Work queued by hooks belongs to this persist only.
	sp := tx.Savepoint()
	abort := func(err error) error {
		rec.SetID(0)
		if rbErr := tx.RollbackTo(sp); rbErr != nil {
			return fmt.Errorf("%w, discard queued actions: %v", err, rbErr)
		}
		return err
	}

	for _, hook := range hooks {
		if err := hook(ctx, tx, rec); err != nil {
			return abort(fmt.Errorf("before first persist: %w", err))
		}
	}

	if err := write(ctx); err != nil {
		return abort(err)
	}

	return tx.AfterRollback(func() { rec.SetID(0) })
}
