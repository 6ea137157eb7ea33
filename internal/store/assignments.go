package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/izposoja/internal/db"
	"github.com/erazemk/izposoja/internal/model"
)

const assignmentSelect = `SELECT a.id, a.unit_id, a.user_id, a.status, a.assigned_at, a.returned_at,
	       u.code, u.item_id, i.name, us.name
	FROM unit_assignments a
	JOIN units u ON u.id = a.unit_id
	JOIN items i ON i.id = u.item_id
	JOIN users us ON us.id = a.user_id`

func scanAssignment(s rowScanner) (*model.UnitAssignment, error) {
	a := &model.UnitAssignment{}
	var returnedAt sql.NullTime
	if err := s.Scan(&a.ID, &a.UnitID, &a.UserID, &a.Status, &a.AssignedAt, &returnedAt,
		&a.UnitCode, &a.ItemID, &a.ItemName, &a.UserName); err != nil {
		return nil, err
	}
	a.ReturnedAt = timePtr(returnedAt)
	return a, nil
}

// CreateAssignment opens an active assignment of a unit to a user. The
// partial unique index rejects a second active assignment for the unit.
func CreateAssignment(ctx context.Context, q db.Querier, unitID, userID int64) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx,
		`INSERT INTO unit_assignments (unit_id, user_id, status) VALUES (?, ?, 'active') RETURNING id`,
		unitID, userID,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("creating assignment: %w", err)
	}
	return id, nil
}

// CloseAssignment marks the user's active assignment of a unit returned.
// It reports false when the user has no active assignment for the unit.
func CloseAssignment(ctx context.Context, q db.Querier, unitID, userID int64) (bool, error) {
	ok, err := affected(q.ExecContext(ctx,
		`UPDATE unit_assignments SET status = 'returned', returned_at = CURRENT_TIMESTAMP
		 WHERE unit_id = ? AND user_id = ? AND status = 'active'`,
		unitID, userID,
	))
	if err != nil {
		return false, fmt.Errorf("closing assignment: %w", err)
	}
	return ok, nil
}

// ListAssignments returns unit assignments, optionally filtered by user and
// restricted to active ones.
func ListAssignments(ctx context.Context, q db.Querier, userID int64, activeOnly bool) ([]model.UnitAssignment, error) {
	query := assignmentSelect + ` WHERE 1=1`
	var args []any
	if userID > 0 {
		query += ` AND a.user_id = ?`
		args = append(args, userID)
	}
	if activeOnly {
		query += ` AND a.status = 'active'`
	}
	query += ` ORDER BY a.assigned_at DESC, a.id DESC`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing assignments: %w", err)
	}
	defer rows.Close()

	var assignments []model.UnitAssignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning assignment: %w", err)
		}
		assignments = append(assignments, *a)
	}
	return assignments, rows.Err()
}
