package model

import "time"

// AuditEntry is one line of the append-only activity log.
type AuditEntry struct {
	ID        int64     `json:"id"`
	Action    string    `json:"action"`
	Actor     string    `json:"actor"`
	ActorID   *int64    `json:"actor_id,omitempty"`
	Detail    string    `json:"detail"`
	CreatedAt time.Time `json:"created_at"`
}

// Audit actions.
const (
	ActionItemAdded        = "Added Item"
	ActionItemEdited       = "Edited Item"
	ActionItemDeleted      = "Deleted Item"
	ActionUnitsGenerated   = "Units Generated"
	ActionRequest          = "Request"
	ActionApproved         = "Approved"
	ActionRejected         = "Rejected"
	ActionTransferSent     = "Transfer Sent"
	ActionTransferAccepted = "Transfer Accepted"
	ActionTransferDeclined = "Transfer Declined"
	ActionReturn           = "Return"
	ActionUnitReturn       = "Unit Return"
	ActionDamaged          = "Damaged"
	ActionLost             = "Lost"
	ActionIncidentResolved = "Incident Resolved"
	ActionIncidentPhoto    = "Incident Photo"
	ActionUserAdded        = "User Added"
	ActionPINChanged       = "PIN Changed"
	ActionUserRemoved      = "User Removed"
)
