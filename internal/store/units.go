package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/erazemk/izposoja/internal/db"
	"github.com/erazemk/izposoja/internal/model"
)

const unitSelect = `SELECT u.id, u.item_id, u.code, u.status, u.created_at,
	       i.name, a.user_id, COALESCE(us.name, '')
	FROM units u
	JOIN items i ON i.id = u.item_id
	LEFT JOIN unit_assignments a ON a.unit_id = u.id AND a.status = 'active'
	LEFT JOIN users us ON us.id = a.user_id`

func scanUnit(s rowScanner) (*model.Unit, error) {
	u := &model.Unit{}
	var holder sql.NullInt64
	if err := s.Scan(&u.ID, &u.ItemID, &u.Code, &u.Status, &u.CreatedAt,
		&u.ItemName, &holder, &u.HolderName); err != nil {
		return nil, err
	}
	u.HolderID = int64Ptr(holder)
	return u, nil
}

// ErrCodeTaken is returned by CreateUnit when another unit already has
// the code.
var ErrCodeTaken = errors.New("unit code already exists")

// CreateUnit inserts an available unit for a serialized item.
func CreateUnit(ctx context.Context, q db.Querier, itemID int64, code string) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx,
		`INSERT INTO units (item_id, code, status) VALUES (?, ?, 'available')
		 ON CONFLICT (code) DO NOTHING RETURNING id`,
		itemID, code,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("creating unit %s: %w", code, ErrCodeTaken)
	}
	if err != nil {
		return 0, fmt.Errorf("creating unit %s: %w", code, err)
	}
	return id, nil
}

// ExistingCodes returns which of the given codes are already taken by any item.
func ExistingCodes(ctx context.Context, q db.Querier, codes []string) ([]string, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	args := make([]any, len(codes))
	for i, c := range codes {
		args[i] = c
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(codes)), ",")

	rows, err := q.QueryContext(ctx,
		`SELECT code FROM units WHERE code IN (`+placeholders+`) ORDER BY code`, args...,
	)
	if err != nil {
		return nil, fmt.Errorf("checking unit codes: %w", err)
	}
	defer rows.Close()

	var taken []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("scanning unit code: %w", err)
		}
		taken = append(taken, code)
	}
	return taken, rows.Err()
}

// GetUnit returns a unit with its current holder, if any.
func GetUnit(ctx context.Context, q db.Querier, id int64) (*model.Unit, error) {
	u, err := scanUnit(q.QueryRowContext(ctx, unitSelect+` WHERE u.id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting unit: %w", err)
	}
	return u, nil
}

// ListUnits returns the units of an item, or of every item when itemID is 0.
func ListUnits(ctx context.Context, q db.Querier, itemID int64) ([]model.Unit, error) {
	query := unitSelect + ` WHERE i.deleted_at IS NULL`
	var args []any
	if itemID > 0 {
		query += ` AND u.item_id = ?`
		args = append(args, itemID)
	}
	query += ` ORDER BY u.code`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing units: %w", err)
	}
	defer rows.Close()

	var units []model.Unit
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning unit: %w", err)
		}
		units = append(units, *u)
	}
	return units, rows.Err()
}

// TransitionUnit moves a unit from one status to another. It reports false
// when the unit was not in the expected status.
func TransitionUnit(ctx context.Context, q db.Querier, id int64, from, to model.UnitStatus) (bool, error) {
	ok, err := affected(q.ExecContext(ctx,
		`UPDATE units SET status = ? WHERE id = ? AND status = ?`,
		to, id, from,
	))
	if err != nil {
		return false, fmt.Errorf("updating unit status: %w", err)
	}
	return ok, nil
}
