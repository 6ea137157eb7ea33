package inventory

import (
	"context"
	"fmt"
	"strings"

	"github.com/erazemk/izposoja/internal/db"
	"github.com/erazemk/izposoja/internal/events"
	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/store"
)

// SubmitRequestParams describes a stock request.
type SubmitRequestParams struct {
	ItemID   int64  `json:"item_id" validate:"required,gt=0"`
	Quantity int    `json:"quantity" validate:"required,gt=0,max=10000"`
	Note     string `json:"note" validate:"max=500"`
}

// SubmitRequest files a pending request for the actor. Availability is
// checked now and again at approval; no stock moves until then.
func (e *Engine) SubmitRequest(ctx context.Context, actor model.Actor, p SubmitRequestParams) (*model.Request, error) {
	p.Note = strings.TrimSpace(p.Note)
	if err := e.check(p); err != nil {
		return nil, err
	}

	var req *model.Request
	err := e.mutate(ctx, "submit_request", actor, func(q db.Querier) ([]events.Event, error) {
		if _, err := loadUser(ctx, q, actor.ID); err != nil {
			return nil, err
		}
		item, err := loadItem(ctx, q, p.ItemID)
		if err != nil {
			return nil, err
		}
		if p.Quantity > item.Available {
			return nil, newError(KindInsufficientStock, "only %d of %s available", item.Available, item.Name)
		}

		id, err := store.CreateRequest(ctx, q, actor.ID, item.ID, p.Quantity, p.Note)
		if err != nil {
			return nil, err
		}
		if err := audit(ctx, q, actor, model.ActionRequest, fmt.Sprintf("Requested %d× %s", p.Quantity, item.Name)); err != nil {
			return nil, err
		}
		req, err = store.GetRequest(ctx, q, id)
		if err != nil {
			return nil, err
		}
		return []events.Event{{Type: events.RequestChanged, ID: id, ItemID: item.ID}}, nil
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

// loadPendingRequest fetches a request that can still be decided.
func loadPendingRequest(ctx context.Context, q db.Querier, id int64) (*model.Request, error) {
	req, err := store.GetRequest(ctx, q, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, notFound("request", id)
	}
	if req.Status != model.RequestPending {
		return nil, newError(KindValidation, "request %d is already %s", id, req.Status)
	}
	return req, nil
}

// decideRequest closes a pending request, failing when someone else closed
// it first.
func decideRequest(ctx context.Context, q db.Querier, req *model.Request, status model.RequestStatus, actor model.Actor) error {
	ok, err := store.DecideRequest(ctx, q, req.ID, status, actor.ID)
	if err != nil {
		return err
	}
	if !ok {
		return newError(KindValidation, "request %d is no longer pending", req.ID)
	}
	return nil
}

// RejectRequest closes a pending request without touching stock.
func (e *Engine) RejectRequest(ctx context.Context, actor model.Actor, id int64) error {
	return e.mutate(ctx, "reject_request", actor, func(q db.Querier) ([]events.Event, error) {
		if err := requireManager(actor, "reject requests"); err != nil {
			return nil, err
		}
		req, err := loadPendingRequest(ctx, q, id)
		if err != nil {
			return nil, err
		}
		if err := decideRequest(ctx, q, req, model.RequestRejected, actor); err != nil {
			return nil, err
		}
		detail := fmt.Sprintf("Rejected %s request from %s", req.ItemName, req.UserName)
		if err := audit(ctx, q, actor, model.ActionRejected, detail); err != nil {
			return nil, err
		}
		return []events.Event{{Type: events.RequestChanged, ID: id, ItemID: req.ItemID}}, nil
	})
}

// ApproveRequest grants a pending bulk request. Availability is checked
// again by the stock update itself, so of two approvals racing for the
// last units only one succeeds.
func (e *Engine) ApproveRequest(ctx context.Context, actor model.Actor, id int64) error {
	return e.mutate(ctx, "approve_request", actor, func(q db.Querier) ([]events.Event, error) {
		if err := requireManager(actor, "approve requests"); err != nil {
			return nil, err
		}
		req, err := loadPendingRequest(ctx, q, id)
		if err != nil {
			return nil, err
		}
		item, err := loadItem(ctx, q, req.ItemID)
		if err != nil {
			return nil, err
		}
		if item.Serialized() {
			return nil, newError(KindValidation, "%s is tracked per unit; assign specific units instead", item.Name)
		}

		ok, err := store.TakeStock(ctx, q, item.ID, req.Quantity)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, newError(KindInsufficientStock, "only %d of %s available", item.Available, item.Name)
		}
		if err := store.AddHolding(ctx, q, item.ID, req.UserID, req.Quantity); err != nil {
			return nil, err
		}
		if err := decideRequest(ctx, q, req, model.RequestApproved, actor); err != nil {
			return nil, err
		}

		detail := fmt.Sprintf("Approved %d× %s for %s", req.Quantity, item.Name, req.UserName)
		if err := audit(ctx, q, actor, model.ActionApproved, detail); err != nil {
			return nil, err
		}
		return []events.Event{
			{Type: events.RequestChanged, ID: id, ItemID: item.ID},
			{Type: events.HoldingChanged, ItemID: item.ID},
		}, nil
	})
}

// AssignUnitsParams selects the units that fulfil a tracked request.
type AssignUnitsParams struct {
	RequestID int64   `json:"request_id" validate:"required,gt=0"`
	UnitIDs   []int64 `json:"unit_ids" validate:"required,min=1,dive,gt=0"`
}

// AssignUnits fulfils a pending tracked request with exactly the requested
// number of units. Each unit must still be available when it is taken.
func (e *Engine) AssignUnits(ctx context.Context, actor model.Actor, p AssignUnitsParams) error {
	if err := e.check(p); err != nil {
		return err
	}
	seen := make(map[int64]bool, len(p.UnitIDs))
	for _, id := range p.UnitIDs {
		if seen[id] {
			return newError(KindValidation, "unit %d selected twice", id)
		}
		seen[id] = true
	}

	return e.mutate(ctx, "assign_units", actor, func(q db.Querier) ([]events.Event, error) {
		if err := requireManager(actor, "assign units"); err != nil {
			return nil, err
		}
		req, err := loadPendingRequest(ctx, q, p.RequestID)
		if err != nil {
			return nil, err
		}
		item, err := loadItem(ctx, q, req.ItemID)
		if err != nil {
			return nil, err
		}
		if !item.Serialized() {
			return nil, newError(KindValidation, "%s is not tracked per unit; approve the request instead", item.Name)
		}
		if len(p.UnitIDs) != req.Quantity {
			return nil, newError(KindWrongSelectionCount, "request needs %d units, %d selected", req.Quantity, len(p.UnitIDs))
		}

		codes := make([]string, 0, len(p.UnitIDs))
		for _, unitID := range p.UnitIDs {
			unit, err := store.GetUnit(ctx, q, unitID)
			if err != nil {
				return nil, err
			}
			if unit == nil {
				return nil, notFound("unit", unitID)
			}
			if unit.ItemID != item.ID {
				return nil, newError(KindValidation, "unit %s does not belong to %s", unit.Code, item.Name)
			}
			ok, err := store.TransitionUnit(ctx, q, unitID, model.UnitAvailable, model.UnitAssigned)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, newError(KindUnitNotAvailable, "unit %s is %s", unit.Code, unit.Status)
			}
			if _, err := store.CreateAssignment(ctx, q, unitID, req.UserID); err != nil {
				return nil, err
			}
			codes = append(codes, unit.Code)
		}

		if err := decideRequest(ctx, q, req, model.RequestApproved, actor); err != nil {
			return nil, err
		}
		detail := fmt.Sprintf("Approved %d× %s for %s (%s)", req.Quantity, item.Name, req.UserName, strings.Join(codes, ", "))
		if err := audit(ctx, q, actor, model.ActionApproved, detail); err != nil {
			return nil, err
		}
		return []events.Event{
			{Type: events.RequestChanged, ID: req.ID, ItemID: item.ID},
			{Type: events.UnitsChanged, ItemID: item.ID},
		}, nil
	})
}

// ListRequests returns requests filtered by status and requester. Staff
// only see their own.
func (e *Engine) ListRequests(ctx context.Context, actor model.Actor, status model.RequestStatus, userID int64) ([]model.Request, error) {
	if !actor.IsManager() {
		userID = actor.ID
	}
	return store.ListRequests(ctx, e.db, status, userID)
}
