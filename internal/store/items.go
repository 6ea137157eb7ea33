package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/izposoja/internal/db"
	"github.com/erazemk/izposoja/internal/model"
)

// itemColumns resolves the item variant at read time: serialized items
// report unit counts, bulk items their stored counters.
const itemColumns = `i.id, i.name, i.category, i.unit, i.kind,
	CASE WHEN i.kind = 'serialized'
	     THEN (SELECT COUNT(*) FROM units u WHERE u.item_id = i.id AND u.status <> 'retired')
	     ELSE i.total END,
	CASE WHEN i.kind = 'serialized'
	     THEN (SELECT COUNT(*) FROM units u WHERE u.item_id = i.id AND u.status = 'available')
	     ELSE i.available END,
	i.created_at, i.updated_at, i.deleted_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(s rowScanner) (*model.Item, error) {
	item := &model.Item{}
	var deletedAt sql.NullTime
	if err := s.Scan(&item.ID, &item.Name, &item.Category, &item.Unit, &item.Kind,
		&item.Total, &item.Available, &item.CreatedAt, &item.UpdatedAt, &deletedAt); err != nil {
		return nil, err
	}
	item.DeletedAt = timePtr(deletedAt)
	return item, nil
}

// CreateItem inserts a catalog item. Bulk items start with available equal
// to total; serialized items start empty.
func CreateItem(ctx context.Context, q db.Querier, name, category, unit string, kind model.ItemKind, total int) (int64, error) {
	if kind == model.KindSerialized {
		total = 0
	}
	var id int64
	err := q.QueryRowContext(ctx,
		`INSERT INTO items (name, category, unit, kind, total, available)
		 VALUES (?, ?, ?, ?, ?, ?) RETURNING id`,
		name, category, unit, kind, total, total,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("creating item: %w", err)
	}
	return id, nil
}

// GetItem returns an item by ID, including soft-deleted ones.
func GetItem(ctx context.Context, q db.Querier, id int64) (*model.Item, error) {
	item, err := scanItem(q.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items i WHERE i.id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return item, nil
}

// ListItems returns all non-deleted items ordered by category and name.
func ListItems(ctx context.Context, q db.Querier) ([]model.Item, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM items i
		 WHERE i.deleted_at IS NULL
		 ORDER BY i.category, i.name`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// UpdateItemDetails updates an item's descriptive fields.
func UpdateItemDetails(ctx context.Context, q db.Querier, id int64, name, category, unit string) error {
	_, err := q.ExecContext(ctx,
		`UPDATE items SET name = ?, category = ?, unit = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL`,
		name, category, unit, id,
	)
	if err != nil {
		return fmt.Errorf("updating item: %w", err)
	}
	return nil
}

// ResizeBulkItem sets a bulk item's total while keeping the checked-out
// quantity intact: available becomes max(0, total - checkedOut). It refuses
// (false) when the new total is below what is checked out.
func ResizeBulkItem(ctx context.Context, q db.Querier, id int64, total int) (bool, error) {
	ok, err := affected(q.ExecContext(ctx,
		`UPDATE items
		 SET available = CASE WHEN ? - (total - available) < 0 THEN 0 ELSE ? - (total - available) END,
		     total = ?,
		     updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND kind = 'bulk' AND deleted_at IS NULL AND total - available <= ?`,
		total, total, total, id, total,
	))
	if err != nil {
		return false, fmt.Errorf("resizing item: %w", err)
	}
	return ok, nil
}

// MarkSerialized converts an empty bulk item into a serialized one. It
// refuses while holdings, pending requests or transfers, or open incidents
// still count the item in bulk quantities.
func MarkSerialized(ctx context.Context, q db.Querier, id int64) (bool, error) {
	ok, err := affected(q.ExecContext(ctx,
		`UPDATE items SET kind = 'serialized', updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND kind = 'bulk' AND total = 0 AND deleted_at IS NULL
		   AND NOT EXISTS (SELECT 1 FROM holdings WHERE item_id = ?)
		   AND NOT EXISTS (SELECT 1 FROM requests WHERE item_id = ? AND status = 'pending')
		   AND NOT EXISTS (SELECT 1 FROM transfers WHERE item_id = ? AND status = 'pending')
		   AND NOT EXISTS (SELECT 1 FROM incidents WHERE item_id = ? AND status = 'open')`,
		id, id, id, id, id,
	))
	if err != nil {
		return false, fmt.Errorf("converting item: %w", err)
	}
	return ok, nil
}

// SoftDeleteItem hides an item from the catalog. History keeps its rows.
func SoftDeleteItem(ctx context.Context, q db.Querier, id int64) error {
	_, err := q.ExecContext(ctx,
		`UPDATE items SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`,
		id,
	)
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	return nil
}

// TakeStock moves qty of a bulk item out of available. It fails (false)
// when fewer than qty are available.
func TakeStock(ctx context.Context, q db.Querier, id int64, qty int) (bool, error) {
	ok, err := affected(q.ExecContext(ctx,
		`UPDATE items SET available = available - ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND kind = 'bulk' AND deleted_at IS NULL AND available >= ?`,
		qty, id, qty,
	))
	if err != nil {
		return false, fmt.Errorf("taking stock: %w", err)
	}
	return ok, nil
}

// PutStock returns qty of a bulk item to available. It fails (false) when
// available would exceed total.
func PutStock(ctx context.Context, q db.Querier, id int64, qty int) (bool, error) {
	ok, err := affected(q.ExecContext(ctx,
		`UPDATE items SET available = available + ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND kind = 'bulk' AND available + ? <= total`,
		qty, id, qty,
	))
	if err != nil {
		return false, fmt.Errorf("returning stock: %w", err)
	}
	return ok, nil
}

// WriteDownStored removes qty from both available and total, for stock
// damaged or lost while in storage.
func WriteDownStored(ctx context.Context, q db.Querier, id int64, qty int) (bool, error) {
	ok, err := affected(q.ExecContext(ctx,
		`UPDATE items SET available = available - ?, total = total - ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND kind = 'bulk' AND available >= ?`,
		qty, qty, id, qty,
	))
	if err != nil {
		return false, fmt.Errorf("writing down stock: %w", err)
	}
	return ok, nil
}

// WriteDownHeld removes qty from total only, for stock that left
// circulation from a holder. The holding must already be reduced.
func WriteDownHeld(ctx context.Context, q db.Querier, id int64, qty int) (bool, error) {
	ok, err := affected(q.ExecContext(ctx,
		`UPDATE items SET total = total - ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND kind = 'bulk' AND total - ? >= available`,
		qty, id, qty,
	))
	if err != nil {
		return false, fmt.Errorf("writing down stock: %w", err)
	}
	return ok, nil
}

// RestoreStock adds qty back to both total and available of a bulk item.
func RestoreStock(ctx context.Context, q db.Querier, id int64, qty int) (bool, error) {
	ok, err := affected(q.ExecContext(ctx,
		`UPDATE items SET available = available + ?, total = total + ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND kind = 'bulk'`,
		qty, qty, id,
	))
	if err != nil {
		return false, fmt.Errorf("restoring stock: %w", err)
	}
	return ok, nil
}

// ItemReferences counts the live ledger rows that point at an item.
type ItemReferences struct {
	Holdings          int
	ActiveAssignments int
	PendingRequests   int
	PendingTransfers  int
	OpenIncidents     int
}

// Any reports whether anything still references the item.
func (r ItemReferences) Any() bool {
	return r.Holdings+r.ActiveAssignments+r.PendingRequests+r.PendingTransfers+r.OpenIncidents > 0
}

// CountItemReferences returns the live references to an item.
func CountItemReferences(ctx context.Context, q db.Querier, id int64) (ItemReferences, error) {
	var refs ItemReferences
	err := q.QueryRowContext(ctx,
		`SELECT
		   (SELECT COUNT(*) FROM holdings WHERE item_id = ?),
		   (SELECT COUNT(*) FROM unit_assignments a JOIN units u ON u.id = a.unit_id
		     WHERE u.item_id = ? AND a.status = 'active'),
		   (SELECT COUNT(*) FROM requests WHERE item_id = ? AND status = 'pending'),
		   (SELECT COUNT(*) FROM transfers WHERE item_id = ? AND status = 'pending'),
		   (SELECT COUNT(*) FROM incidents WHERE item_id = ? AND status = 'open')`,
		id, id, id, id, id,
	).Scan(&refs.Holdings, &refs.ActiveAssignments, &refs.PendingRequests, &refs.PendingTransfers, &refs.OpenIncidents)
	if err != nil {
		return refs, fmt.Errorf("counting item references: %w", err)
	}
	return refs, nil
}
