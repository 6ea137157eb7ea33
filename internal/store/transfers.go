package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/izposoja/internal/db"
	"github.com/erazemk/izposoja/internal/model"
)

const transferSelect = `SELECT t.id, t.from_user_id, t.to_user_id, t.item_id, t.unit_id,
	       t.quantity, t.status, t.note, t.created_at, t.decided_at,
	       i.name, COALESCE(u.code, ''), fu.name, tu.name
	FROM transfers t
	JOIN items i ON i.id = t.item_id
	LEFT JOIN units u ON u.id = t.unit_id
	JOIN users fu ON fu.id = t.from_user_id
	JOIN users tu ON tu.id = t.to_user_id`

func scanTransfer(s rowScanner) (*model.Transfer, error) {
	t := &model.Transfer{}
	var unitID sql.NullInt64
	var decidedAt sql.NullTime
	if err := s.Scan(&t.ID, &t.FromUserID, &t.ToUserID, &t.ItemID, &unitID,
		&t.Quantity, &t.Status, &t.Note, &t.CreatedAt, &decidedAt,
		&t.ItemName, &t.UnitCode, &t.FromUserName, &t.ToUserName); err != nil {
		return nil, err
	}
	t.UnitID = int64Ptr(unitID)
	t.DecidedAt = timePtr(decidedAt)
	return t, nil
}

// CreateTransfer records a pending transfer. Stock does not move until the
// transfer is accepted.
func CreateTransfer(ctx context.Context, q db.Querier, fromUserID, toUserID, itemID int64, unitID *int64, qty int, note string) (int64, error) {
	if fromUserID == toUserID {
		return 0, fmt.Errorf("cannot transfer to same user")
	}
	var id int64
	err := q.QueryRowContext(ctx,
		`INSERT INTO transfers (from_user_id, to_user_id, item_id, unit_id, quantity, status, note)
		 VALUES (?, ?, ?, ?, ?, 'pending', ?) RETURNING id`,
		fromUserID, toUserID, itemID, nullInt64(unitID), qty, note,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("recording transfer: %w", err)
	}
	return id, nil
}

// GetTransfer returns a transfer by ID.
func GetTransfer(ctx context.Context, q db.Querier, id int64) (*model.Transfer, error) {
	t, err := scanTransfer(q.QueryRowContext(ctx, transferSelect+` WHERE t.id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting transfer: %w", err)
	}
	return t, nil
}

// DecideTransfer moves a pending transfer to accepted or declined. It
// reports false when the transfer was no longer pending.
func DecideTransfer(ctx context.Context, q db.Querier, id int64, status model.TransferStatus) (bool, error) {
	ok, err := affected(q.ExecContext(ctx,
		`UPDATE transfers SET status = ?, decided_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND status = 'pending'`,
		status, id,
	))
	if err != nil {
		return false, fmt.Errorf("deciding transfer: %w", err)
	}
	return ok, nil
}

// DeclinePendingTransfersOf declines every pending transfer a user sends
// or receives.
func DeclinePendingTransfersOf(ctx context.Context, q db.Querier, userID int64) (int64, error) {
	res, err := q.ExecContext(ctx,
		`UPDATE transfers SET status = 'declined', decided_at = CURRENT_TIMESTAMP
		 WHERE (from_user_id = ? OR to_user_id = ?) AND status = 'pending'`,
		userID, userID,
	)
	if err != nil {
		return 0, fmt.Errorf("declining transfers: %w", err)
	}
	return res.RowsAffected()
}

// ListTransfers returns transfers newest first, optionally filtered by
// status and by a user on either side.
func ListTransfers(ctx context.Context, q db.Querier, status model.TransferStatus, userID int64) ([]model.Transfer, error) {
	query := transferSelect + ` WHERE 1=1`
	var args []any

	if status != "" {
		query += ` AND t.status = ?`
		args = append(args, status)
	}
	if userID > 0 {
		query += ` AND (t.from_user_id = ? OR t.to_user_id = ?)`
		args = append(args, userID, userID)
	}

	query += ` ORDER BY t.created_at DESC, t.id DESC`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing transfers: %w", err)
	}
	defer rows.Close()

	var transfers []model.Transfer
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning transfer: %w", err)
		}
		transfers = append(transfers, *t)
	}
	return transfers, rows.Err()
}
