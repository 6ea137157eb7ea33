package model

import "time"

// TransferStatus is the state of a peer-to-peer transfer.
type TransferStatus string

// Transfer statuses.
const (
	TransferPending  TransferStatus = "pending"
	TransferAccepted TransferStatus = "accepted"
	TransferDeclined TransferStatus = "declined"
)

// Transfer is a proposed hand-off of held stock between two users.
// Nothing moves until the recipient accepts.
type Transfer struct {
	ID         int64          `json:"id"`
	FromUserID int64          `json:"from_user_id"`
	ToUserID   int64          `json:"to_user_id"`
	ItemID     int64          `json:"item_id"`
	UnitID     *int64         `json:"unit_id,omitempty"`
	Quantity   int            `json:"quantity"`
	Status     TransferStatus `json:"status"`
	Note       string         `json:"note,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	DecidedAt  *time.Time     `json:"decided_at,omitempty"`

	// Joined fields (not always populated).
	ItemName     string `json:"item_name,omitempty"`
	UnitCode     string `json:"unit_code,omitempty"`
	FromUserName string `json:"from_user_name,omitempty"`
	ToUserName   string `json:"to_user_name,omitempty"`
}
