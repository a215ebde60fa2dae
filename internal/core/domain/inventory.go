package domain

import "errors"

var ErrRecordNotFound = errors.New("inventory record not found")

// InventoryRecord is the persistable inventory entity. A zero ID means the
// record has never been persisted.
type InventoryRecord struct {
	ID int64 `db:"id" json:"id"`
}

func NewInventoryRecord() *InventoryRecord {
	return &InventoryRecord{}
}

func (r *InventoryRecord) GetID() int64 {
	return r.ID
}

func (r *InventoryRecord) SetID(id int64) {
	r.ID = id
}

// IsTransient reports whether the store has not assigned an identity yet.
func (r *InventoryRecord) IsTransient() bool {
	return r.ID == 0
}
