package port

import (
	"context"

	"github.com/rl1809/fourthcafe-inventory/internal/core/domain"
	"github.com/rl1809/fourthcafe-inventory/internal/core/txn"
)

// PersistHook runs synchronously inside the save of a transient record, after
// the identifier is assigned and before the row is written.
type PersistHook func(ctx context.Context, tx *txn.Tx, record *domain.InventoryRecord) error

type RecordStore interface {
	// OnBeforeFirstPersist registers a hook invoked on every first persistence
	OnBeforeFirstPersist(hook PersistHook)

	// WithTx runs fn in a transaction. Returning an error rolls back; otherwise
	// the datastore commits and then the post-commit actions of the Tx run.
	WithTx(ctx context.Context, fn func(ctx context.Context, s Session) error) error

	// Get retrieves a committed record by ID
	Get(ctx context.Context, id int64) (*domain.InventoryRecord, error)
}

// Session is the view of an open transaction handed to WithTx callbacks.
type Session interface {
	Tx() *txn.Tx

	// Save inserts a transient record (assigning its ID) or updates a persistent one
	Save(ctx context.Context, record *domain.InventoryRecord) error
}
