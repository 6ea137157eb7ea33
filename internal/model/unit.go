package model

import "time"

// UnitStatus is the cached state of a serialized unit. It is only written
// together with the ledger row that causes the transition.
type UnitStatus string

// Unit statuses.
const (
	UnitAvailable UnitStatus = "available"
	UnitAssigned  UnitStatus = "assigned"
	UnitDamaged   UnitStatus = "damaged"
	UnitLost      UnitStatus = "lost"
	// UnitRetired marks a written-off unit. It never returns to rotation.
	UnitRetired UnitStatus = "retired"
)

// Unit is one individually coded instance of a serialized item.
type Unit struct {
	ID        int64      `json:"id"`
	ItemID    int64      `json:"item_id"`
	Code      string     `json:"code"`
	Status    UnitStatus `json:"status"`
	CreatedAt time.Time  `json:"created_at"`

	// Joined fields (not always populated).
	ItemName   string `json:"item_name,omitempty"`
	HolderID   *int64 `json:"holder_id,omitempty"`
	HolderName string `json:"holder_name,omitempty"`
}

// AssignmentStatus is the state of a unit assignment.
type AssignmentStatus string

// Assignment statuses.
const (
	AssignmentActive   AssignmentStatus = "active"
	AssignmentReturned AssignmentStatus = "returned"
)

// UnitAssignment records who holds a serialized unit.
type UnitAssignment struct {
	ID         int64            `json:"id"`
	UnitID     int64            `json:"unit_id"`
	UserID     int64            `json:"user_id"`
	Status     AssignmentStatus `json:"status"`
	AssignedAt time.Time        `json:"assigned_at"`
	ReturnedAt *time.Time       `json:"returned_at,omitempty"`

	// Joined fields (not always populated).
	UnitCode string `json:"unit_code,omitempty"`
	ItemID   int64  `json:"item_id,omitempty"`
	ItemName string `json:"item_name,omitempty"`
	UserName string `json:"user_name,omitempty"`
}
