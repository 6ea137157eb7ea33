package inventory

import (
	"context"

	"github.com/erazemk/izposoja/internal/db"
	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/store"
)

// Audit log limits.
const (
	DefaultAuditLimit = 200
	MaxAuditLimit     = 1000
)

// ListAudit returns the newest audit entries. limit <= 0 means the default.
func (e *Engine) ListAudit(ctx context.Context, actor model.Actor, limit int) ([]model.AuditEntry, error) {
	if err := requireManager(actor, "read the audit log"); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultAuditLimit
	}
	limit = min(limit, MaxAuditLimit)
	return store.ListAudit(ctx, e.db, limit)
}

// Snapshot is the full ledger state a client renders from.
type Snapshot struct {
	Items       []model.Item           `json:"items"`
	Units       []model.Unit           `json:"units"`
	Holdings    []model.Holding        `json:"holdings"`
	Assignments []model.UnitAssignment `json:"assignments"`
	Requests    []model.Request        `json:"requests"`
	Transfers   []model.Transfer       `json:"transfers"`
	Incidents   []model.Incident       `json:"incidents"`
	Users       []model.User           `json:"users"`
}

// Snapshot reads the whole ledger in one transaction, so the parts agree
// with each other. Staff see their own holdings, requests and transfers.
func (e *Engine) Snapshot(ctx context.Context, actor model.Actor) (*Snapshot, error) {
	var userID int64
	if !actor.IsManager() {
		userID = actor.ID
	}

	s := &Snapshot{}
	err := e.db.InTx(ctx, func(q db.Querier) error {
		var err error
		if s.Items, err = store.ListItems(ctx, q); err != nil {
			return err
		}
		if s.Units, err = store.ListUnits(ctx, q, 0); err != nil {
			return err
		}
		if s.Holdings, err = store.ListHoldings(ctx, q, userID); err != nil {
			return err
		}
		if s.Assignments, err = store.ListAssignments(ctx, q, userID, true); err != nil {
			return err
		}
		if s.Requests, err = store.ListRequests(ctx, q, "", userID); err != nil {
			return err
		}
		if s.Transfers, err = store.ListTransfers(ctx, q, "", userID); err != nil {
			return err
		}
		if s.Incidents, err = store.ListIncidents(ctx, q, ""); err != nil {
			return err
		}
		s.Users, err = store.ListUsers(ctx, q)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}
