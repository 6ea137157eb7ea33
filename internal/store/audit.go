package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/izposoja/internal/db"
	"github.com/erazemk/izposoja/internal/model"
)

// AppendAudit writes one audit line. Callers pass the transaction of the
// operation being logged so the entry commits or rolls back with it.
func AppendAudit(ctx context.Context, q db.Querier, action, actor string, actorID *int64, detail string) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO audit_log (action, actor, actor_id, detail) VALUES (?, ?, ?, ?)`,
		action, actor, nullInt64(actorID), detail,
	)
	if err != nil {
		return fmt.Errorf("writing audit log: %w", err)
	}
	return nil
}

// ListAudit returns the newest audit entries, at most limit of them.
func ListAudit(ctx context.Context, q db.Querier, limit int) ([]model.AuditEntry, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, action, actor, actor_id, detail, created_at
		 FROM audit_log ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing audit log: %w", err)
	}
	defer rows.Close()

	var entries []model.AuditEntry
	for rows.Next() {
		var e model.AuditEntry
		var actorID sql.NullInt64
		if err := rows.Scan(&e.ID, &e.Action, &e.Actor, &actorID, &e.Detail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning audit entry: %w", err)
		}
		e.ActorID = int64Ptr(actorID)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
