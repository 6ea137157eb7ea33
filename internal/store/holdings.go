package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/izposoja/internal/db"
	"github.com/erazemk/izposoja/internal/model"
)

// AddHolding credits qty of a bulk item to a user, creating the holding
// row if needed.
func AddHolding(ctx context.Context, q db.Querier, itemID, userID int64, qty int) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO holdings (item_id, user_id, quantity) VALUES (?, ?, ?)
		 ON CONFLICT (item_id, user_id) DO UPDATE SET quantity = holdings.quantity + excluded.quantity`,
		itemID, userID, qty,
	)
	if err != nil {
		return fmt.Errorf("adding holding: %w", err)
	}
	return nil
}

// TakeHolding debits qty from a user's holding. A holding that reaches zero
// is deleted. It reports false, changing nothing, when the user holds less
// than qty.
func TakeHolding(ctx context.Context, q db.Querier, itemID, userID int64, qty int) (bool, error) {
	ok, err := affected(q.ExecContext(ctx,
		`DELETE FROM holdings WHERE item_id = ? AND user_id = ? AND quantity = ?`,
		itemID, userID, qty,
	))
	if err != nil {
		return false, fmt.Errorf("taking holding: %w", err)
	}
	if ok {
		return true, nil
	}

	ok, err = affected(q.ExecContext(ctx,
		`UPDATE holdings SET quantity = quantity - ? WHERE item_id = ? AND user_id = ? AND quantity > ?`,
		qty, itemID, userID, qty,
	))
	if err != nil {
		return false, fmt.Errorf("taking holding: %w", err)
	}
	return ok, nil
}

// GetHolding returns the quantity a user holds of an item (0 if none).
func GetHolding(ctx context.Context, q db.Querier, itemID, userID int64) (int, error) {
	var qty int
	err := q.QueryRowContext(ctx,
		`SELECT quantity FROM holdings WHERE item_id = ? AND user_id = ?`,
		itemID, userID,
	).Scan(&qty)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("getting holding: %w", err)
	}
	return qty, nil
}

// ListHoldings returns holdings of a user, or of everyone when userID is 0.
func ListHoldings(ctx context.Context, q db.Querier, userID int64) ([]model.Holding, error) {
	query := `SELECT h.item_id, h.user_id, h.quantity, h.assigned_at,
	                 i.name, i.unit, us.name
	          FROM holdings h
	          JOIN items i ON i.id = h.item_id
	          JOIN users us ON us.id = h.user_id`
	var args []any
	if userID > 0 {
		query += ` WHERE h.user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY us.name, i.name`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing holdings: %w", err)
	}
	defer rows.Close()

	var holdings []model.Holding
	for rows.Next() {
		var h model.Holding
		if err := rows.Scan(&h.ItemID, &h.UserID, &h.Quantity, &h.AssignedAt,
			&h.ItemName, &h.ItemUnit, &h.UserName); err != nil {
			return nil, fmt.Errorf("scanning holding: %w", err)
		}
		holdings = append(holdings, h)
	}
	return holdings, rows.Err()
}

