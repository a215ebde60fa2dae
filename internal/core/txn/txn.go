// Package txn holds the transaction context handed to the record store's save
// path. Post-commit actions registered on a Tx run only after the datastore
// transaction has committed, in registration order, and are dropped on rollback.
package txn

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	ErrTxNotActive = errors.New("transaction not active")
	ErrTxDone      = errors.New("transaction already completed")
)

type State int

const (
	StateActive State = iota
	StateCommitted
	StateRolledBack
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateCommitted:
		return "committed"
	case StateRolledBack:
		return "rolled_back"
	}
	return "unknown"
}

// Action runs after a successful commit.
type Action func(ctx context.Context) error

type Tx struct {
	mu         sync.Mutex
	state      State
	actions    []Action
	onRollback []func()
	log        logrus.FieldLogger
}

func New(log logrus.FieldLogger) *Tx {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Tx{state: StateActive, log: log}
}

func (t *Tx) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Tx) Active() bool {
	return t.State() == StateActive
}

// AfterCommit queues an action for execution after commit.
func (t *Tx) AfterCommit(a Action) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StateActive {
		return ErrTxNotActive
	}
	t.actions = append(t.actions, a)
	return nil
}

// AfterRollback queues a callback that runs only if the transaction rolls back.
func (t *Tx) AfterRollback(fn func()) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StateActive {
		return ErrTxNotActive
	}
	t.onRollback = append(t.onRollback, fn)
	return nil
}

// Pending returns the number of queued post-commit actions.
func (t *Tx) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.actions)
}

// Savepoint marks the queues so work registered after it can be dropped
// without ending the transaction.
type Savepoint struct {
	actions    int
	onRollback int
}

func (t *Tx) Savepoint() Savepoint {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Savepoint{actions: len(t.actions), onRollback: len(t.onRollback)}
}

// RollbackTo drops actions and rollback callbacks registered after sp.
func (t *Tx) RollbackTo(sp Savepoint) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StateActive {
		return ErrTxNotActive
	}
	if sp.actions < len(t.actions) {
		t.actions = t.actions[:sp.actions]
	}
	if sp.onRollback < len(t.onRollback) {
		t.onRollback = t.onRollback[:sp.onRollback]
	}
	return nil
}

// Commit marks the transaction committed and flushes the queued actions.
// It must be called only once the underlying datastore commit succeeded.
// Actions run detached from ctx cancellation: the data is already durable.
func (t *Tx) Commit(ctx context.Context) error {
	t.mu.Lock()
	if t.state != StateActive {
		t.mu.Unlock()
		return ErrTxDone
	}
	t.state = StateCommitted
	actions := t.actions
	t.actions = nil
	t.onRollback = nil
	t.mu.Unlock()

	ctx = context.WithoutCancel(ctx)
	for i, a := range actions {
		if err := a(ctx); err != nil {
			t.log.WithFields(logrus.Fields{
				"action": i,
				"error":  err,
			}).Error("post-commit action failed")
		}
	}
	return nil
}

// Rollback discards queued actions.
func (t *Tx) Rollback() error {
	t.mu.Lock()
	if t.state != StateActive {
		t.mu.Unlock()
		return ErrTxDone
	}
	t.state = StateRolledBack
	discarded := len(t.actions)
	t.actions = nil
	callbacks := t.onRollback
	t.onRollback = nil
	t.mu.Unlock()

	for _, fn := range callbacks {
		fn()
	}
	if discarded > 0 {
		t.log.WithField("discarded", discarded).Debug("rolled back, post-commit actions dropped")
	}
	return nil
}
