package model

import "time"

// ItemKind tells how an item's stock is tracked.
type ItemKind string

// Item kinds.
const (
	// KindBulk items are counted only (total/available).
	KindBulk ItemKind = "bulk"
	// KindSerialized items are tracked as individually coded units.
	KindSerialized ItemKind = "serialized"
)

// Item is a catalog entry. For serialized items Total and Available are
// derived from unit states when the item is read.
type Item struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Category  string     `json:"category"`
	Unit      string     `json:"unit"`
	Kind      ItemKind   `json:"kind"`
	Total     int        `json:"total"`
	Available int        `json:"available"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// Serialized reports whether the item is tracked per unit.
func (i *Item) Serialized() bool {
	return i.Kind == KindSerialized
}

// CheckedOut is the quantity currently held by users.
func (i *Item) CheckedOut() int {
	return i.Total - i.Available
}

// Catalog defaults.
const (
	DefaultCategory = "General"
	DefaultUnit     = "pcs"
)
