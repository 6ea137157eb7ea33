// Package store holds the SQL for every table. Functions take a
// db.Querier so the engine can compose them inside one transaction.
// Lookups return nil, nil when the row does not exist.
package store

import (
	"database/sql"
	"fmt"
	"time"
)

// affected reports whether a guarded statement changed at least one row.
func affected(res sql.Result, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading affected rows: %w", err)
	}
	return n > 0, nil
}

// nullInt64 converts an optional ID into a nullable SQL argument.
func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func int64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	id := v.Int64
	return &id
}

func timePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}
