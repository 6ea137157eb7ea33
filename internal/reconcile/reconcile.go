// Package reconcile checks the ledger's invariants against the stored
// state and reports every drift it finds. It never repairs anything.
package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/erazemk/izposoja/internal/db"
	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/store"
)

// Rules reported in violations.
const (
	RuleBounds       = "bounds"
	RuleConservation = "conservation"
	RuleAssignment   = "unit_assignment"
	RuleIncident     = "unit_incident"
	RuleUnitHolding  = "tracked_holding"
)

// Violation is one broken invariant.
type Violation struct {
	Rule   string `json:"rule"`
	ItemID int64  `json:"item_id"`
	UnitID int64  `json:"unit_id,omitempty"`
	Detail string `json:"detail"`
}

// Balance is the stock picture of one bulk item.
type Balance struct {
	ItemID        int64  `json:"item_id"`
	Name          string `json:"name"`
	Total         int    `json:"total"`
	Available     int    `json:"available"`
	Held          int    `json:"held"`
	OpenIncidents int    `json:"open_incidents"`
	// Fleet counts stock out of circulation under open incidents too.
	Fleet int `json:"fleet"`
}

// Report is the outcome of one check.
type Report struct {
	CheckedAt  time.Time   `json:"checked_at"`
	Items      []Balance   `json:"items"`
	Units      int         `json:"units"`
	Violations []Violation `json:"violations"`
}

// OK reports whether no invariant is broken.
func (r *Report) OK() bool {
	return len(r.Violations) == 0
}

// Check verifies, for the state visible through q:
//   - every bulk item has 0 <= available <= total
//   - total equals available plus everything held
//   - a unit is assigned exactly when it has one active assignment
//   - a unit is damaged or lost exactly when an open incident of that type
//     names it
//   - tracked items have no bulk holdings
func Check(ctx context.Context, q db.Querier) (*Report, error) {
	r := &Report{CheckedAt: time.Now().UTC()}

	balances, err := store.BulkBalances(ctx, q)
	if err != nil {
		return nil, err
	}
	for _, b := range balances {
		r.Items = append(r.Items, Balance{
			ItemID:        b.ItemID,
			Name:          b.Name,
			Total:         b.Total,
			Available:     b.Available,
			Held:          b.Held,
			OpenIncidents: b.OpenIncidents,
			Fleet:         b.Total + b.OpenIncidents,
		})
		if b.Available < 0 || b.Available > b.Total {
			r.add(RuleBounds, b.ItemID, 0, "%s: available %d outside [0, %d]", b.Name, b.Available, b.Total)
		}
		if b.Total != b.Available+b.Held {
			r.add(RuleConservation, b.ItemID, 0, "%s: total %d != available %d + held %d", b.Name, b.Total, b.Available, b.Held)
		}
	}

	units, err := store.UnitStates(ctx, q)
	if err != nil {
		return nil, err
	}
	r.Units = len(units)
	for _, u := range units {
		checkUnit(r, u)
	}

	stray, err := store.StrayHoldings(ctx, q)
	if err != nil {
		return nil, err
	}
	for itemID, qty := range stray {
		r.add(RuleUnitHolding, itemID, 0, "tracked item %d has %d held as bulk", itemID, qty)
	}

	return r, nil
}

func checkUnit(r *Report, u store.UnitState) {
	status := model.UnitStatus(u.Status)

	wantAssignments := 0
	if status == model.UnitAssigned {
		wantAssignments = 1
	}
	if u.ActiveAssignments != wantAssignments {
		r.add(RuleAssignment, u.ItemID, u.UnitID, "unit %s is %s with %d active assignments", u.Code, u.Status, u.ActiveAssignments)
	}

	switch status {
	case model.UnitDamaged, model.UnitLost:
		if u.OpenIncidents != 1 || u.OpenIncidentType != u.Status {
			r.add(RuleIncident, u.ItemID, u.UnitID, "unit %s is %s without a matching open incident", u.Code, u.Status)
		}
	default:
		if u.OpenIncidents > 0 {
			r.add(RuleIncident, u.ItemID, u.UnitID, "unit %s is %s but has an open %s incident", u.Code, u.Status, u.OpenIncidentType)
		}
	}
}

func (r *Report) add(rule string, itemID, unitID int64, format string, args ...any) {
	r.Violations = append(r.Violations, Violation{
		Rule:   rule,
		ItemID: itemID,
		UnitID: unitID,
		Detail: fmt.Sprintf(format, args...),
	})
}

// Run checks the database inside a single read transaction so all queries
// see the same state.
func Run(ctx context.Context, database *db.DB) (*Report, error) {
	var report *Report
	err := database.InTx(ctx, func(q db.Querier) error {
		var err error
		report, err = Check(ctx, q)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("reconciling: %w", err)
	}
	return report, nil
}
