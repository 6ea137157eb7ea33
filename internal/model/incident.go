package model

import "time"

// IncidentType is the kind of damage or loss reported.
type IncidentType string

// Incident types.
const (
	IncidentDamaged IncidentType = "damaged"
	IncidentLost    IncidentType = "lost"
)

// IncidentStatus is the state of an incident.
type IncidentStatus string

// Incident statuses.
const (
	IncidentOpen     IncidentStatus = "open"
	IncidentResolved IncidentStatus = "resolved"
)

// Resolution closes an incident.
type Resolution string

// Resolutions. Repaired and replaced return stock to circulation.
const (
	ResolutionRepaired   Resolution = "repaired"
	ResolutionReplaced   Resolution = "replaced"
	ResolutionWrittenOff Resolution = "written_off"
)

// Restores reports whether the resolution puts stock back into rotation.
func (r Resolution) Restores() bool {
	return r == ResolutionRepaired || r == ResolutionReplaced
}

// Incident is a damage or loss report.
type Incident struct {
	ID           int64          `json:"id"`
	ItemID       int64          `json:"item_id"`
	UnitID       *int64         `json:"unit_id,omitempty"`
	Quantity     int            `json:"quantity"`
	Type         IncidentType   `json:"type"`
	ReportedBy   string         `json:"reported_by"`
	ReporterID   int64          `json:"reporter_id"`
	HeldByUserID *int64         `json:"held_by_user_id,omitempty"`
	Note         string         `json:"note,omitempty"`
	Status       IncidentStatus `json:"status"`
	Resolution   *Resolution    `json:"resolution,omitempty"`
	HasPhoto     bool           `json:"has_photo"`
	CreatedAt    time.Time      `json:"created_at"`
	ResolvedAt   *time.Time     `json:"resolved_at,omitempty"`

	// Joined fields (not always populated).
	ItemName   string `json:"item_name,omitempty"`
	UnitCode   string `json:"unit_code,omitempty"`
	HolderName string `json:"holder_name,omitempty"`
}
