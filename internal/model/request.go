package model

import "time"

// RequestStatus is the state of a stock request.
type RequestStatus string

// Request statuses.
const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
)

// Request is a staff member asking for a quantity of an item.
type Request struct {
	ID        int64         `json:"id"`
	UserID    int64         `json:"user_id"`
	ItemID    int64         `json:"item_id"`
	Quantity  int           `json:"quantity"`
	Status    RequestStatus `json:"status"`
	Note      string        `json:"note,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	DecidedAt *time.Time    `json:"decided_at,omitempty"`
	DecidedBy *int64        `json:"decided_by,omitempty"`

	// Joined fields (not always populated).
	ItemName string `json:"item_name,omitempty"`
	UserName string `json:"user_name,omitempty"`
}
