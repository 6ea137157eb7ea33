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

// SubmitTransferParams describes a proposed hand-off to another user.
type SubmitTransferParams struct {
	ToUserID int64  `json:"to_user_id" validate:"required,gt=0"`
	ItemID   int64  `json:"item_id" validate:"required,gt=0"`
	UnitID   *int64 `json:"unit_id" validate:"omitempty,gt=0"`
	Quantity int    `json:"quantity" validate:"gte=0,max=10000"`
	Note     string `json:"note" validate:"max=500"`
}

// SubmitTransfer proposes moving some of the actor's holding to another
// user. The sender must hold what is offered, but nothing moves until the
// recipient accepts.
func (e *Engine) SubmitTransfer(ctx context.Context, actor model.Actor, p SubmitTransferParams) (*model.Transfer, error) {
	p.Note = strings.TrimSpace(p.Note)
	if err := e.check(p); err != nil {
		return nil, err
	}
	if p.ToUserID == actor.ID {
		return nil, newError(KindValidation, "cannot transfer to yourself")
	}

	var tr *model.Transfer
	err := e.mutate(ctx, "submit_transfer", actor, func(q db.Querier) ([]events.Event, error) {
		if _, err := loadUser(ctx, q, actor.ID); err != nil {
			return nil, err
		}
		to, err := loadUser(ctx, q, p.ToUserID)
		if err != nil {
			return nil, err
		}
		item, err := loadItem(ctx, q, p.ItemID)
		if err != nil {
			return nil, err
		}

		qty := p.Quantity
		var detail string
		if item.Serialized() {
			if p.UnitID == nil {
				return nil, newError(KindValidation, "%s is tracked per unit; choose the unit to transfer", item.Name)
			}
			unit, err := store.GetUnit(ctx, q, *p.UnitID)
			if err != nil {
				return nil, err
			}
			if unit == nil {
				return nil, notFound("unit", *p.UnitID)
			}
			if unit.ItemID != item.ID {
				return nil, newError(KindValidation, "unit %s does not belong to %s", unit.Code, item.Name)
			}
			if unit.HolderID == nil || *unit.HolderID != actor.ID {
				return nil, newError(KindInsufficientHolding, "you do not hold unit %s", unit.Code)
			}
			qty = 1
			detail = fmt.Sprintf("Sent %s %s to %s", item.Name, unit.Code, to.Name)
		} else {
			if p.UnitID != nil {
				return nil, newError(KindValidation, "%s is not tracked per unit", item.Name)
			}
			if qty < 1 {
				return nil, newError(KindValidation, "quantity must be at least 1")
			}
			held, err := store.GetHolding(ctx, q, item.ID, actor.ID)
			if err != nil {
				return nil, err
			}
			if held < qty {
				return nil, newError(KindInsufficientHolding, "you hold %d of %s", held, item.Name)
			}
			detail = fmt.Sprintf("Sent %d× %s to %s", qty, item.Name, to.Name)
		}

		id, err := store.CreateTransfer(ctx, q, actor.ID, to.ID, item.ID, p.UnitID, qty, p.Note)
		if err != nil {
			return nil, err
		}
		if err := audit(ctx, q, actor, model.ActionTransferSent, detail); err != nil {
			return nil, err
		}
		tr, err = store.GetTransfer(ctx, q, id)
		if err != nil {
			return nil, err
		}
		return []events.Event{{Type: events.TransferChanged, ID: id, ItemID: item.ID}}, nil
	})
	if err != nil {
		return nil, err
	}
	return tr, nil
}

// loadPendingTransfer fetches a transfer the actor may still decide: the
// recipient, or a manager acting for them.
func loadPendingTransfer(ctx context.Context, q db.Querier, actor model.Actor, id int64, action string) (*model.Transfer, error) {
	tr, err := store.GetTransfer(ctx, q, id)
	if err != nil {
		return nil, err
	}
	if tr == nil {
		return nil, notFound("transfer", id)
	}
	if tr.ToUserID != actor.ID && !actor.IsManager() {
		return nil, forbidden(action + " a transfer addressed to someone else")
	}
	if tr.Status != model.TransferPending {
		return nil, newError(KindValidation, "transfer %d is already %s", id, tr.Status)
	}
	return tr, nil
}

func decideTransfer(ctx context.Context, q db.Querier, tr *model.Transfer, status model.TransferStatus) error {
	ok, err := store.DecideTransfer(ctx, q, tr.ID, status)
	if err != nil {
		return err
	}
	if !ok {
		return newError(KindValidation, "transfer %d is no longer pending", tr.ID)
	}
	return nil
}

// AcceptTransfer moves the offered stock from sender to recipient. The
// sender's holding is re-checked, since it may have shrunk since the offer.
func (e *Engine) AcceptTransfer(ctx context.Context, actor model.Actor, id int64) error {
	return e.mutate(ctx, "accept_transfer", actor, func(q db.Querier) ([]events.Event, error) {
		tr, err := loadPendingTransfer(ctx, q, actor, id, "accept")
		if err != nil {
			return nil, err
		}
		if _, err := loadUser(ctx, q, tr.ToUserID); err != nil {
			return nil, err
		}

		evs := []events.Event{{Type: events.TransferChanged, ID: id, ItemID: tr.ItemID}}
		if tr.UnitID != nil {
			ok, err := store.CloseAssignment(ctx, q, *tr.UnitID, tr.FromUserID)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, newError(KindInsufficientHolding, "%s no longer holds unit %s", tr.FromUserName, tr.UnitCode)
			}
			if _, err := store.CreateAssignment(ctx, q, *tr.UnitID, tr.ToUserID); err != nil {
				return nil, err
			}
			evs = append(evs, events.Event{Type: events.UnitsChanged, ItemID: tr.ItemID})
		} else {
			ok, err := store.TakeHolding(ctx, q, tr.ItemID, tr.FromUserID, tr.Quantity)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, newError(KindInsufficientHolding, "%s no longer holds %d× %s", tr.FromUserName, tr.Quantity, tr.ItemName)
			}
			if err := store.AddHolding(ctx, q, tr.ItemID, tr.ToUserID, tr.Quantity); err != nil {
				return nil, err
			}
			evs = append(evs, events.Event{Type: events.HoldingChanged, ItemID: tr.ItemID})
		}

		if err := decideTransfer(ctx, q, tr, model.TransferAccepted); err != nil {
			return nil, err
		}
		detail := fmt.Sprintf("Accepted %d× %s from %s", tr.Quantity, tr.ItemName, tr.FromUserName)
		if tr.ToUserID != actor.ID {
			detail += " for " + tr.ToUserName
		}
		if err := audit(ctx, q, actor, model.ActionTransferAccepted, detail); err != nil {
			return nil, err
		}
		return evs, nil
	})
}

// DeclineTransfer closes a pending transfer. Nothing moves.
func (e *Engine) DeclineTransfer(ctx context.Context, actor model.Actor, id int64) error {
	return e.mutate(ctx, "decline_transfer", actor, func(q db.Querier) ([]events.Event, error) {
		tr, err := loadPendingTransfer(ctx, q, actor, id, "decline")
		if err != nil {
			return nil, err
		}
		if err := decideTransfer(ctx, q, tr, model.TransferDeclined); err != nil {
			return nil, err
		}
		detail := fmt.Sprintf("Declined transfer from %s", tr.FromUserName)
		if err := audit(ctx, q, actor, model.ActionTransferDeclined, detail); err != nil {
			return nil, err
		}
		return []events.Event{{Type: events.TransferChanged, ID: id, ItemID: tr.ItemID}}, nil
	})
}

// ListTransfers returns transfers filtered by status and participant. Staff
// only see transfers they send or receive.
func (e *Engine) ListTransfers(ctx context.Context, actor model.Actor, status model.TransferStatus, userID int64) ([]model.Transfer, error) {
	if !actor.IsManager() {
		userID = actor.ID
	}
	return store.ListTransfers(ctx, e.db, status, userID)
}
