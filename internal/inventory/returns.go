package inventory

import (
	"context"
	"fmt"

	"github.com/erazemk/izposoja/internal/db"
	"github.com/erazemk/izposoja/internal/events"
	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/store"
)

// ReturnItemParams describes a bulk return to storage.
type ReturnItemParams struct {
	UserID   int64 `json:"user_id" validate:"required,gt=0"`
	ItemID   int64 `json:"item_id" validate:"required,gt=0"`
	Quantity int   `json:"quantity" validate:"required,gt=0,max=10000"`
}

// ReturnItem puts part or all of a user's bulk holding back into storage.
// Users return their own stock; managers may return anyone's.
func (e *Engine) ReturnItem(ctx context.Context, actor model.Actor, p ReturnItemParams) error {
	if err := e.check(p); err != nil {
		return err
	}

	return e.mutate(ctx, "return_item", actor, func(q db.Querier) ([]events.Event, error) {
		if p.UserID != actor.ID && !actor.IsManager() {
			return nil, forbidden("return someone else's items")
		}
		item, err := loadItem(ctx, q, p.ItemID)
		if err != nil {
			return nil, err
		}
		if item.Serialized() {
			return nil, newError(KindValidation, "%s is tracked per unit; return the unit instead", item.Name)
		}
		holder, err := store.GetUser(ctx, q, p.UserID)
		if err != nil {
			return nil, err
		}
		if holder == nil {
			return nil, notFound("user", p.UserID)
		}

		ok, err := store.TakeHolding(ctx, q, item.ID, holder.ID, p.Quantity)
		if err != nil {
			return nil, err
		}
		if !ok {
			held, err := store.GetHolding(ctx, q, item.ID, holder.ID)
			if err != nil {
				return nil, err
			}
			return nil, newError(KindInsufficientHolding, "%s holds %d of %s", holder.Name, held, item.Name)
		}
		ok, err = store.PutStock(ctx, q, item.ID, p.Quantity)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("returning %d× %s would exceed its total", p.Quantity, item.Name)
		}

		detail := fmt.Sprintf("Returned %d× %s", p.Quantity, item.Name)
		if holder.ID != actor.ID {
			detail += " for " + holder.Name
		}
		if err := audit(ctx, q, actor, model.ActionReturn, detail); err != nil {
			return nil, err
		}
		return []events.Event{
			{Type: events.HoldingChanged, ItemID: item.ID},
			{Type: events.ItemChanged, ID: item.ID, ItemID: item.ID},
		}, nil
	})
}

// ReturnUnit closes a unit's active assignment and puts the unit back in
// storage.
func (e *Engine) ReturnUnit(ctx context.Context, actor model.Actor, unitID int64) error {
	return e.mutate(ctx, "return_unit", actor, func(q db.Querier) ([]events.Event, error) {
		if err := requireManager(actor, "return units"); err != nil {
			return nil, err
		}
		unit, err := store.GetUnit(ctx, q, unitID)
		if err != nil {
			return nil, err
		}
		if unit == nil {
			return nil, notFound("unit", unitID)
		}
		if unit.HolderID == nil {
			return nil, newError(KindUnitNotAvailable, "unit %s is not assigned", unit.Code)
		}
		if err := returnUnit(ctx, q, unit); err != nil {
			return nil, err
		}

		detail := fmt.Sprintf("Returned %s %s from %s", unit.ItemName, unit.Code, unit.HolderName)
		if err := audit(ctx, q, actor, model.ActionUnitReturn, detail); err != nil {
			return nil, err
		}
		return []events.Event{{Type: events.UnitsChanged, ID: unit.ID, ItemID: unit.ItemID}}, nil
	})
}

// returnUnit closes the holder's assignment and makes the unit available.
func returnUnit(ctx context.Context, q db.Querier, unit *model.Unit) error {
	ok, err := store.CloseAssignment(ctx, q, unit.ID, *unit.HolderID)
	if err != nil {
		return err
	}
	if !ok {
		return newError(KindUnitNotAvailable, "unit %s is not assigned", unit.Code)
	}
	ok, err = store.TransitionUnit(ctx, q, unit.ID, model.UnitAssigned, model.UnitAvailable)
	if err != nil {
		return err
	}
	if !ok {
		return newError(KindUnitNotAvailable, "unit %s is %s", unit.Code, unit.Status)
	}
	return nil
}

// ListHoldings returns bulk holdings. Staff only see their own.
func (e *Engine) ListHoldings(ctx context.Context, actor model.Actor, userID int64) ([]model.Holding, error) {
	if !actor.IsManager() {
		userID = actor.ID
	}
	return store.ListHoldings(ctx, e.db, userID)
}

// ListAssignments returns unit assignments. Staff only see their own.
func (e *Engine) ListAssignments(ctx context.Context, actor model.Actor, userID int64, activeOnly bool) ([]model.UnitAssignment, error) {
	if !actor.IsManager() {
		userID = actor.ID
	}
	return store.ListAssignments(ctx, e.db, userID, activeOnly)
}
