package main

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rl1809/fourthcafe-inventory/internal/adapter/eventbus"
	"github.com/rl1809/fourthcafe-inventory/internal/adapter/storage"
	"github.com/rl1809/fourthcafe-inventory/internal/core/domain"
	"github.com/rl1809/fourthcafe-inventory/internal/core/service"
)

const (
	totalRequests = 1000
	rollbackEvery = 10
)

func main() {
	ctx := context.Background()
	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)

	bus := eventbus.NewMemoryBus()
	store := storage.NewMemoryAdapter(nil, log)
	inventoryService := service.NewInventoryService(store, service.NewEventEmitter(bus, log), log)

	var committed atomic.Int32
	var rolledBack atomic.Int32
	var failed atomic.Int32

	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()

			var err error
			if n%rollbackEvery == 0 {
				_, err = inventoryService.CreateThenRollback(ctx)
				if err == nil {
					rolledBack.Add(1)
				}
			} else {
				_, err = inventoryService.Create(ctx)
				if err == nil {
					committed.Add(1)
				}
			}
			if err != nil {
				failed.Add(1)
			}
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(start)

	events := bus.Published()
	err := verify(events, int(committed.Load()))

	fields := logrus.Fields{
		"requests":    totalRequests,
		"committed":   committed.Load(),
		"rolled_back": rolledBack.Load(),
		"failed":      failed.Load(),
		"events":      len(events),
		"stored":      store.Len(),
		"elapsed":     elapsed,
	}
	if err != nil {
		log.WithFields(fields).Fatalf("FAIL: %v", err)
	}
	log.WithFields(fields).Warn("PASS")
}

// verify checks every committed record produced exactly one Warehoused
// followed by exactly one InventoryCanceled.
func verify(events []domain.Event, committed int) error {
	if len(events) != 2*committed {
		return errors.New("event count does not match committed records")
	}

	seen := make(map[int64]string, committed)
	for _, ev := range events {
		id := ev.AggregateID()
		switch ev.EventName() {
		case domain.EventWarehoused:
			if _, dup := seen[id]; dup {
				return errors.New("duplicate Warehoused")
			}
			seen[id] = domain.EventWarehoused
		case domain.EventInventoryCanceled:
			if seen[id] != domain.EventWarehoused {
				return errors.New("InventoryCanceled published before Warehoused")
			}
			seen[id] = domain.EventInventoryCanceled
		}
	}
	for _, last := range seen {
		if last != domain.EventInventoryCanceled {
			return errors.New("missing InventoryCanceled")
		}
	}
	return nil
}
