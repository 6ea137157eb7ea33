package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/izposoja/internal/db"
	"github.com/erazemk/izposoja/internal/model"
)

const incidentSelect = `SELECT n.id, n.item_id, n.unit_id, n.quantity, n.type, n.reported_by,
	       n.reporter_id, n.held_by_user_id, n.note, n.status, n.resolution,
	       n.photo IS NOT NULL, n.created_at, n.resolved_at,
	       i.name, COALESCE(u.code, ''), COALESCE(h.name, '')
	FROM incidents n
	JOIN items i ON i.id = n.item_id
	LEFT JOIN units u ON u.id = n.unit_id
	LEFT JOIN users h ON h.id = n.held_by_user_id`

func scanIncident(s rowScanner) (*model.Incident, error) {
	n := &model.Incident{}
	var unitID, heldBy sql.NullInt64
	var resolution sql.NullString
	var resolvedAt sql.NullTime
	if err := s.Scan(&n.ID, &n.ItemID, &unitID, &n.Quantity, &n.Type, &n.ReportedBy,
		&n.ReporterID, &heldBy, &n.Note, &n.Status, &resolution,
		&n.HasPhoto, &n.CreatedAt, &resolvedAt,
		&n.ItemName, &n.UnitCode, &n.HolderName); err != nil {
		return nil, err
	}
	n.UnitID = int64Ptr(unitID)
	n.HeldByUserID = int64Ptr(heldBy)
	n.ResolvedAt = timePtr(resolvedAt)
	if resolution.Valid {
		r := model.Resolution(resolution.String)
		n.Resolution = &r
	}
	return n, nil
}

// NewIncident holds the columns of a fresh incident report.
type NewIncident struct {
	ItemID       int64
	UnitID       *int64
	Quantity     int
	Type         model.IncidentType
	ReportedBy   string
	ReporterID   int64
	HeldByUserID *int64
	Note         string
}

// CreateIncident inserts an open incident.
func CreateIncident(ctx context.Context, q db.Querier, in NewIncident) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx,
		`INSERT INTO incidents (item_id, unit_id, quantity, type, reported_by, reporter_id, held_by_user_id, note, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, 'open') RETURNING id`,
		in.ItemID, nullInt64(in.UnitID), in.Quantity, in.Type, in.ReportedBy,
		in.ReporterID, nullInt64(in.HeldByUserID), in.Note,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("creating incident: %w", err)
	}
	return id, nil
}

// GetIncident returns an incident by ID.
func GetIncident(ctx context.Context, q db.Querier, id int64) (*model.Incident, error) {
	n, err := scanIncident(q.QueryRowContext(ctx, incidentSelect+` WHERE n.id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting incident: %w", err)
	}
	return n, nil
}

// ResolveIncident closes an open incident. It reports false when the
// incident was already resolved.
func ResolveIncident(ctx context.Context, q db.Querier, id int64, resolution model.Resolution) (bool, error) {
	ok, err := affected(q.ExecContext(ctx,
		`UPDATE incidents SET status = 'resolved', resolution = ?, resolved_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND status = 'open'`,
		resolution, id,
	))
	if err != nil {
		return false, fmt.Errorf("resolving incident: %w", err)
	}
	return ok, nil
}

// ListIncidents returns incidents newest first, optionally filtered by status.
func ListIncidents(ctx context.Context, q db.Querier, status model.IncidentStatus) ([]model.Incident, error) {
	query := incidentSelect
	var args []any
	if status != "" {
		query += ` WHERE n.status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY n.created_at DESC, n.id DESC`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing incidents: %w", err)
	}
	defer rows.Close()

	var incidents []model.Incident
	for rows.Next() {
		n, err := scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning incident: %w", err)
		}
		incidents = append(incidents, *n)
	}
	return incidents, rows.Err()
}

// SetIncidentPhoto stores the evidence photo of an incident.
func SetIncidentPhoto(ctx context.Context, q db.Querier, id int64, data []byte, mime string) error {
	_, err := q.ExecContext(ctx,
		`UPDATE incidents SET photo = ?, photo_mime = ? WHERE id = ?`,
		data, mime, id,
	)
	if err != nil {
		return fmt.Errorf("setting incident photo: %w", err)
	}
	return nil
}

// GetIncidentPhoto returns an incident's photo. Data is nil when there is none.
func GetIncidentPhoto(ctx context.Context, q db.Querier, id int64) ([]byte, string, error) {
	var data []byte
	var mime sql.NullString
	err := q.QueryRowContext(ctx,
		`SELECT photo, photo_mime FROM incidents WHERE id = ?`, id,
	).Scan(&data, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting incident photo: %w", err)
	}
	return data, mime.String, nil
}
