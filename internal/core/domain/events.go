package domain

import "errors"

var ErrNilRecord = errors.New("nil inventory record")

const (
	EventWarehoused        = "Warehoused"
	EventInventoryCanceled = "InventoryCanceled"
)

// Event is a domain event published after the transaction that produced it
// has committed.
type Event interface {
	EventName() string
	AggregateID() int64
}

// WarehousedEvent is a snapshot of an InventoryRecord taken at first persistence.
type WarehousedEvent struct {
	ID int64 `json:"id"`
}

func (e WarehousedEvent) EventName() string  { return EventWarehoused }
func (e WarehousedEvent) AggregateID() int64 { return e.ID }

// InventoryCanceledEvent has the same shape as WarehousedEvent but is built and
// published independently of it.
type InventoryCanceledEvent struct {
	ID int64 `json:"id"`
}

func (e InventoryCanceledEvent) EventName() string  { return EventInventoryCanceled }
func (e InventoryCanceledEvent) AggregateID() int64 { return e.ID }

func NewWarehoused(r *InventoryRecord) (WarehousedEvent, error) {
	if r == nil {
		return WarehousedEvent{}, ErrNilRecord
	}
	return WarehousedEvent{ID: r.ID}, nil
}

func NewInventoryCanceled(r *InventoryRecord) (InventoryCanceledEvent, error) {
	if r == nil {
		return InventoryCanceledEvent{}, ErrNilRecord
	}
	return InventoryCanceledEvent{ID: r.ID}, nil
}
