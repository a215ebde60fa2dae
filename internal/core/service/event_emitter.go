package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/rl1809/fourthcafe-inventory/internal/core/domain"
	"github.com/rl1809/fourthcafe-inventory/internal/core/txn"
	"github.com/rl1809/fourthcafe-inventory/internal/port"
)

// EventEmitter turns the first persistence of an inventory record into
// Warehoused and InventoryCanceled events, published once the enclosing
// transaction commits.
type EventEmitter struct {
	bus port.EventBus
	log logrus.FieldLogger
}

func NewEventEmitter(bus port.EventBus, log logrus.FieldLogger) *EventEmitter {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &EventEmitter{bus: bus, log: log}
}

// OnBeforeFirstPersist has the port.PersistHook signature.
func (e *EventEmitter) OnBeforeFirstPersist(ctx context.Context, tx *txn.Tx, record *domain.InventoryRecord) error {
	if tx == nil || !tx.Active() {
		return txn.ErrTxNotActive
	}

	// Both snapshots are built before anything is queued so a copy failure
	// leaves the transaction without pending events.
	warehoused, err := domain.NewWarehoused(record)
	if err != nil {
		return fmt.Errorf("build %s: %w", domain.EventWarehoused, err)
	}
	canceled, err := domain.NewInventoryCanceled(record)
	if err != nil {
		return fmt.Errorf("build %s: %w", domain.EventInventoryCanceled, err)
	}

	for _, ev := range []domain.Event{warehoused, canceled} {
		if err := tx.AfterCommit(e.publishAction(ev)); err != nil {
			return fmt.Errorf("schedule %s: %w", ev.EventName(), err)
		}
	}
	return nil
}

func (e *EventEmitter) publishAction(ev domain.Event) txn.Action {
	return func(ctx context.Context) error {
		if err := e.bus.Publish(ctx, ev); err != nil {
			return fmt.Errorf("publish %s for inventory %d: %w", ev.EventName(), ev.AggregateID(), err)
		}
		e.log.WithFields(logrus.Fields{
			"event":        ev.EventName(),
			"inventory_id": ev.AggregateID(),
		}).Info("event published")
		return nil
	}
}
