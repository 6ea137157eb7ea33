package model

import "time"

// Holding is the quantity of a bulk item held by a user.
type Holding struct {
	ItemID     int64     `json:"item_id"`
	UserID     int64     `json:"user_id"`
	Quantity   int       `json:"quantity"`
	AssignedAt time.Time `json:"assigned_at"`

	// Joined fields (not always populated).
	ItemName string `json:"item_name,omitempty"`
	ItemUnit string `json:"item_unit,omitempty"`
	UserName string `json:"user_name,omitempty"`
}
