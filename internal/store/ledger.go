package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/izposoja/internal/db"
)

// BulkBalance is the stored counters of a bulk item next to what its
// holdings and open incidents add up to.
type BulkBalance struct {
	ItemID        int64
	Name          string
	Total         int
	Available     int
	Held          int
	OpenIncidents int
}

// BulkBalances returns the balance of every live bulk item.
func BulkBalances(ctx context.Context, q db.Querier) ([]BulkBalance, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT i.id, i.name, i.total, i.available,
		        (SELECT COALESCE(SUM(h.quantity), 0) FROM holdings h WHERE h.item_id = i.id),
		        (SELECT COALESCE(SUM(n.quantity), 0) FROM incidents n WHERE n.item_id = i.id AND n.status = 'open')
		 FROM items i
		 WHERE i.kind = 'bulk' AND i.deleted_at IS NULL
		 ORDER BY i.id`,
	)
	if err != nil {
		return nil, fmt.Errorf("reading bulk balances: %w", err)
	}
	defer rows.Close()

	var out []BulkBalance
	for rows.Next() {
		var b BulkBalance
		if err := rows.Scan(&b.ItemID, &b.Name, &b.Total, &b.Available, &b.Held, &b.OpenIncidents); err != nil {
			return nil, fmt.Errorf("scanning bulk balance: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// UnitState is a unit's cached status next to the ledger rows that should
// explain it.
type UnitState struct {
	UnitID            int64
	Code              string
	ItemID            int64
	Status            string
	ActiveAssignments int
	OpenIncidentType  string
	OpenIncidents     int
}

// UnitStates returns the state of every unit of a live item.
func UnitStates(ctx context.Context, q db.Querier) ([]UnitState, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT u.id, u.code, u.item_id, u.status,
		        (SELECT COUNT(*) FROM unit_assignments a WHERE a.unit_id = u.id AND a.status = 'active'),
		        (SELECT MIN(n.type) FROM incidents n WHERE n.unit_id = u.id AND n.status = 'open'),
		        (SELECT COUNT(*) FROM incidents n WHERE n.unit_id = u.id AND n.status = 'open')
		 FROM units u
		 JOIN items i ON i.id = u.item_id
		 WHERE i.deleted_at IS NULL
		 ORDER BY u.id`,
	)
	if err != nil {
		return nil, fmt.Errorf("reading unit states: %w", err)
	}
	defer rows.Close()

	var out []UnitState
	for rows.Next() {
		var s UnitState
		var incidentType sql.NullString
		if err := rows.Scan(&s.UnitID, &s.Code, &s.ItemID, &s.Status,
			&s.ActiveAssignments, &incidentType, &s.OpenIncidents); err != nil {
			return nil, fmt.Errorf("scanning unit state: %w", err)
		}
		s.OpenIncidentType = incidentType.String
		out = append(out, s)
	}
	return out, rows.Err()
}

// StrayHoldings counts holdings recorded against tracked items, which only
// ever move as units.
func StrayHoldings(ctx context.Context, q db.Querier) (map[int64]int, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT h.item_id, SUM(h.quantity)
		 FROM holdings h JOIN items i ON i.id = h.item_id
		 WHERE i.kind = 'serialized'
		 GROUP BY h.item_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("reading stray holdings: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]int)
	for rows.Next() {
		var id int64
		var qty int
		if err := rows.Scan(&id, &qty); err != nil {
			return nil, fmt.Errorf("scanning stray holding: %w", err)
		}
		out[id] = qty
	}
	return out, rows.Err()
}
