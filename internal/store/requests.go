package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/izposoja/internal/db"
	"github.com/erazemk/izposoja/internal/model"
)

const requestSelect = `SELECT r.id, r.user_id, r.item_id, r.quantity, r.status, r.note,
	       r.created_at, r.decided_at, r.decided_by, i.name, us.name
	FROM requests r
	JOIN items i ON i.id = r.item_id
	JOIN users us ON us.id = r.user_id`

func scanRequest(s rowScanner) (*model.Request, error) {
	r := &model.Request{}
	var decidedAt sql.NullTime
	var decidedBy sql.NullInt64
	if err := s.Scan(&r.ID, &r.UserID, &r.ItemID, &r.Quantity, &r.Status, &r.Note,
		&r.CreatedAt, &decidedAt, &decidedBy, &r.ItemName, &r.UserName); err != nil {
		return nil, err
	}
	r.DecidedAt = timePtr(decidedAt)
	r.DecidedBy = int64Ptr(decidedBy)
	return r, nil
}

// CreateRequest inserts a pending request.
func CreateRequest(ctx context.Context, q db.Querier, userID, itemID int64, qty int, note string) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx,
		`INSERT INTO requests (user_id, item_id, quantity, status, note)
		 VALUES (?, ?, ?, 'pending', ?) RETURNING id`,
		userID, itemID, qty, note,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}
	return id, nil
}

// GetRequest returns a request by ID.
func GetRequest(ctx context.Context, q db.Querier, id int64) (*model.Request, error) {
	r, err := scanRequest(q.QueryRowContext(ctx, requestSelect+` WHERE r.id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting request: %w", err)
	}
	return r, nil
}

// DecideRequest moves a pending request to a terminal status. It reports
// false when the request was no longer pending.
func DecideRequest(ctx context.Context, q db.Querier, id int64, status model.RequestStatus, decidedBy int64) (bool, error) {
	ok, err := affected(q.ExecContext(ctx,
		`UPDATE requests SET status = ?, decided_at = CURRENT_TIMESTAMP, decided_by = ?
		 WHERE id = ? AND status = 'pending'`,
		status, decidedBy, id,
	))
	if err != nil {
		return false, fmt.Errorf("deciding request: %w", err)
	}
	return ok, nil
}

// RejectPendingRequestsOf rejects every pending request filed by a user.
func RejectPendingRequestsOf(ctx context.Context, q db.Querier, userID, decidedBy int64) (int64, error) {
	res, err := q.ExecContext(ctx,
		`UPDATE requests SET status = 'rejected', decided_at = CURRENT_TIMESTAMP, decided_by = ?
		 WHERE user_id = ? AND status = 'pending'`,
		decidedBy, userID,
	)
	if err != nil {
		return 0, fmt.Errorf("rejecting requests: %w", err)
	}
	return res.RowsAffected()
}

// ListRequests returns requests newest first, optionally filtered by status
// and requester.
func ListRequests(ctx context.Context, q db.Querier, status model.RequestStatus, userID int64) ([]model.Request, error) {
	query := requestSelect + ` WHERE 1=1`
	var args []any
	if status != "" {
		query += ` AND r.status = ?`
		args = append(args, status)
	}
	if userID > 0 {
		query += ` AND r.user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY r.created_at DESC, r.id DESC`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing requests: %w", err)
	}
	defer rows.Close()

	var requests []model.Request
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning request: %w", err)
		}
		requests = append(requests, *r)
	}
	return requests, rows.Err()
}
