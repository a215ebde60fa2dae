package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/rl1809/fourthcafe-inventory/internal/core/domain"
	"github.com/rl1809/fourthcafe-inventory/internal/port"
)

var errDryRun = errors.New("dry run")

type InventoryService struct {
	store port.RecordStore
	log   logrus.FieldLogger
}

// NewInventoryService wires the emitter into the store's first-persist hook.
func NewInventoryService(store port.RecordStore, emitter *EventEmitter, log logrus.FieldLogger) *InventoryService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	store.OnBeforeFirstPersist(emitter.OnBeforeFirstPersist)
	return &InventoryService{store: store, log: log}
}

// Create persists a new inventory record and commits.
func (s *InventoryService) Create(ctx context.Context) (*domain.InventoryRecord, error) {
	rec := domain.NewInventoryRecord()
	if err := s.Save(ctx, rec); err != nil {
		return nil, err
	}
	s.log.WithField("inventory_id", rec.ID).Info("inventory created")
	return rec, nil
}

// CreateThenRollback runs a first persistence and rolls it back. No events
// are published and nothing is stored.
func (s *InventoryService) CreateThenRollback(ctx context.Context) (*domain.InventoryRecord, error) {
	rec := domain.NewInventoryRecord()
	err := s.store.WithTx(ctx, func(ctx context.Context, sess port.Session) error {
		if err := sess.Save(ctx, rec); err != nil {
			return err
		}
		return errDryRun
	})
	if err != nil && !errors.Is(err, errDryRun) {
		return nil, fmt.Errorf("create inventory: %w", err)
	}
	return rec, nil
}

// Save persists rec in its own transaction. Only a first persistence emits events.
func (s *InventoryService) Save(ctx context.Context, rec *domain.InventoryRecord) error {
	err := s.store.WithTx(ctx, func(ctx context.Context, sess port.Session) error {
		return sess.Save(ctx, rec)
	})
	if err != nil {
		return fmt.Errorf("save inventory: %w", err)
	}
	return nil
}

func (s *InventoryService) Get(ctx context.Context, id int64) (*domain.InventoryRecord, error) {
	return s.store.Get(ctx, id)
}
