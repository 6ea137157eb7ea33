package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/erazemk/izposoja/internal/db"
	"github.com/erazemk/izposoja/internal/events"
	"github.com/erazemk/izposoja/internal/imaging"
	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/store"
)

// ReportIncidentParams describes a damage or loss report.
type ReportIncidentParams struct {
	ItemID   int64              `json:"item_id" validate:"required,gt=0"`
	UnitID   *int64             `json:"unit_id" validate:"omitempty,gt=0"`
	Quantity int                `json:"quantity" validate:"gte=0,max=10000"`
	Type     model.IncidentType `json:"type" validate:"required,oneof=damaged lost"`
	// HeldByUserID names who had the stock; nil means it was in storage.
	HeldByUserID *int64 `json:"held_by_user_id" validate:"omitempty,gt=0"`
	Note         string `json:"note" validate:"max=1000"`
	ReportedBy   string `json:"reported_by" validate:"max=120"`
}

// ReportIncident takes damaged or lost stock out of circulation and opens
// an incident. Stock reported against a holder comes out of their holding;
// stock in storage comes out of available. Either way total shrinks by the
// reported quantity until the incident is resolved.
func (e *Engine) ReportIncident(ctx context.Context, actor model.Actor, p ReportIncidentParams) (*model.Incident, error) {
	p.Note = strings.TrimSpace(p.Note)
	p.ReportedBy = strings.TrimSpace(p.ReportedBy)
	if err := e.check(p); err != nil {
		return nil, err
	}
	if p.ReportedBy == "" {
		p.ReportedBy = actor.Name
	}

	var incident *model.Incident
	err := e.mutate(ctx, "report_incident", actor, func(q db.Querier) ([]events.Event, error) {
		if !actor.IsManager() && p.HeldByUserID != nil && *p.HeldByUserID != actor.ID {
			return nil, forbidden("report incidents for someone else's items")
		}
		item, err := loadItem(ctx, q, p.ItemID)
		if err != nil {
			return nil, err
		}
		var holder *model.User
		if p.HeldByUserID != nil {
			if holder, err = loadUser(ctx, q, *p.HeldByUserID); err != nil {
				return nil, err
			}
		}

		in := store.NewIncident{
			ItemID:       item.ID,
			Quantity:     p.Quantity,
			Type:         p.Type,
			ReportedBy:   p.ReportedBy,
			ReporterID:   actor.ID,
			HeldByUserID: p.HeldByUserID,
			Note:         p.Note,
		}
		var subject string
		if item.Serialized() {
			unit, err := takeUnitOutOfService(ctx, q, item, p.UnitID, holder, p.Type)
			if err != nil {
				return nil, err
			}
			in.UnitID = &unit.ID
			in.Quantity = 1
			subject = fmt.Sprintf("%s %s", item.Name, unit.Code)
		} else {
			if err := takeStockOutOfService(ctx, q, item, p.UnitID, p.Quantity, holder); err != nil {
				return nil, err
			}
			subject = fmt.Sprintf("%d× %s", p.Quantity, item.Name)
		}

		id, err := store.CreateIncident(ctx, q, in)
		if err != nil {
			return nil, err
		}

		action := model.ActionDamaged
		if p.Type == model.IncidentLost {
			action = model.ActionLost
		}
		detail := fmt.Sprintf("Reported %s as %s", subject, p.Type)
		if holder != nil {
			detail += " (held by " + holder.Name + ")"
		}
		if err := audit(ctx, q, actor, action, detail); err != nil {
			return nil, err
		}
		incident, err = store.GetIncident(ctx, q, id)
		if err != nil {
			return nil, err
		}

		evs := []events.Event{
			{Type: events.IncidentChanged, ID: id, ItemID: item.ID},
			{Type: events.ItemChanged, ID: item.ID, ItemID: item.ID},
		}
		if holder != nil {
			evs = append(evs, events.Event{Type: events.HoldingChanged, ItemID: item.ID})
		}
		return evs, nil
	})
	if err != nil {
		return nil, err
	}
	return incident, nil
}

// takeStockOutOfService removes reported bulk stock from the holder or
// from storage, shrinking total in the same step.
func takeStockOutOfService(ctx context.Context, q db.Querier, item *model.Item, unitID *int64, qty int, holder *model.User) error {
	if unitID != nil {
		return newError(KindValidation, "%s is not tracked per unit", item.Name)
	}
	if qty < 1 {
		return newError(KindValidation, "quantity must be at least 1")
	}

	if holder == nil {
		ok, err := store.WriteDownStored(ctx, q, item.ID, qty)
		if err != nil {
			return err
		}
		if !ok {
			return newError(KindInsufficientStock, "only %d of %s in storage", item.Available, item.Name)
		}
		return nil
	}

	ok, err := store.TakeHolding(ctx, q, item.ID, holder.ID, qty)
	if err != nil {
		return err
	}
	if !ok {
		held, err := store.GetHolding(ctx, q, item.ID, holder.ID)
		if err != nil {
			return err
		}
		return newError(KindInsufficientHolding, "%s holds %d of %s", holder.Name, held, item.Name)
	}
	ok, err = store.WriteDownHeld(ctx, q, item.ID, qty)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("writing down %d× %s: total would drop below available", qty, item.Name)
	}
	return nil
}

// takeUnitOutOfService moves a unit into the damaged or lost status. A held
// unit must belong to the named holder, whose assignment is closed; a unit
// in storage must be available.
func takeUnitOutOfService(ctx context.Context, q db.Querier, item *model.Item, unitID *int64, holder *model.User, typ model.IncidentType) (*model.Unit, error) {
	if unitID == nil {
		return nil, newError(KindValidation, "%s is tracked per unit; choose the affected unit", item.Name)
	}
	unit, err := store.GetUnit(ctx, q, *unitID)
	if err != nil {
		return nil, err
	}
	if unit == nil {
		return nil, notFound("unit", *unitID)
	}
	if unit.ItemID != item.ID {
		return nil, newError(KindValidation, "unit %s does not belong to %s", unit.Code, item.Name)
	}

	from := model.UnitAvailable
	if holder != nil {
		if unit.HolderID == nil || *unit.HolderID != holder.ID {
			return nil, newError(KindInsufficientHolding, "%s does not hold unit %s", holder.Name, unit.Code)
		}
		ok, err := store.CloseAssignment(ctx, q, unit.ID, holder.ID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, newError(KindInsufficientHolding, "%s does not hold unit %s", holder.Name, unit.Code)
		}
		from = model.UnitAssigned
	} else if unit.HolderID != nil {
		return nil, newError(KindUnitNotAvailable, "unit %s is assigned to %s; name the holder", unit.Code, unit.HolderName)
	}

	ok, err := store.TransitionUnit(ctx, q, unit.ID, from, model.UnitStatus(typ))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, newError(KindUnitNotAvailable, "unit %s is %s", unit.Code, unit.Status)
	}
	return unit, nil
}

// ResolveIncidentParams closes an incident.
type ResolveIncidentParams struct {
	ID         int64            `json:"id" validate:"required,gt=0"`
	Resolution model.Resolution `json:"resolution" validate:"required,oneof=repaired replaced written_off"`
}

// ResolveIncident closes an open incident. Repaired or replaced stock goes
// back to storage; written-off stock stays out and its unit is retired.
func (e *Engine) ResolveIncident(ctx context.Context, actor model.Actor, p ResolveIncidentParams) error {
	if err := e.check(p); err != nil {
		return err
	}

	return e.mutate(ctx, "resolve_incident", actor, func(q db.Querier) ([]events.Event, error) {
		if err := requireManager(actor, "resolve incidents"); err != nil {
			return nil, err
		}
		incident, err := store.GetIncident(ctx, q, p.ID)
		if err != nil {
			return nil, err
		}
		if incident == nil {
			return nil, notFound("incident", p.ID)
		}
		if incident.Status != model.IncidentOpen {
			return nil, newError(KindValidation, "incident %d is already resolved", p.ID)
		}

		ok, err := store.ResolveIncident(ctx, q, incident.ID, p.Resolution)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, newError(KindValidation, "incident %d is already resolved", p.ID)
		}

		if incident.UnitID != nil {
			to := model.UnitRetired
			if p.Resolution.Restores() {
				to = model.UnitAvailable
			}
			ok, err := store.TransitionUnit(ctx, q, *incident.UnitID, model.UnitStatus(incident.Type), to)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, fmt.Errorf("unit %s is not %s", incident.UnitCode, incident.Type)
			}
		} else if p.Resolution.Restores() {
			ok, err := store.RestoreStock(ctx, q, incident.ItemID, incident.Quantity)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, fmt.Errorf("restoring %d× %s: item is no longer bulk", incident.Quantity, incident.ItemName)
			}
		}

		subject := fmt.Sprintf("%d× %s", incident.Quantity, incident.ItemName)
		if incident.UnitCode != "" {
			subject = fmt.Sprintf("%s %s", incident.ItemName, incident.UnitCode)
		}
		detail := fmt.Sprintf("Resolved %s as %s", subject, p.Resolution)
		if err := audit(ctx, q, actor, model.ActionIncidentResolved, detail); err != nil {
			return nil, err
		}
		return []events.Event{
			{Type: events.IncidentChanged, ID: incident.ID, ItemID: incident.ItemID},
			{Type: events.ItemChanged, ID: incident.ItemID, ItemID: incident.ItemID},
		}, nil
	})
}

// AttachIncidentPhoto stores evidence for an incident. The reporter and
// managers may attach a photo; a new one replaces the old.
func (e *Engine) AttachIncidentPhoto(ctx context.Context, actor model.Actor, id int64, data []byte) error {
	photo, err := imaging.Process(data)
	if err != nil {
		if errors.Is(err, imaging.ErrUnsupported) {
			return newError(KindValidation, "%v", err)
		}
		return err
	}

	return e.mutate(ctx, "attach_incident_photo", actor, func(q db.Querier) ([]events.Event, error) {
		incident, err := store.GetIncident(ctx, q, id)
		if err != nil {
			return nil, err
		}
		if incident == nil {
			return nil, notFound("incident", id)
		}
		if incident.ReporterID != actor.ID && !actor.IsManager() {
			return nil, forbidden("add photos to someone else's report")
		}
		if err := store.SetIncidentPhoto(ctx, q, id, photo.Data, photo.MIME); err != nil {
			return nil, err
		}
		detail := fmt.Sprintf("Photo %dx%d for incident %d (%s)", photo.Width, photo.Height, id, incident.ItemName)
		if err := audit(ctx, q, actor, model.ActionIncidentPhoto, detail); err != nil {
			return nil, err
		}
		return []events.Event{{Type: events.IncidentChanged, ID: id, ItemID: incident.ItemID}}, nil
	})
}

// IncidentPhoto returns the stored photo of an incident.
func (e *Engine) IncidentPhoto(ctx context.Context, id int64) ([]byte, string, error) {
	data, mime, err := store.GetIncidentPhoto(ctx, e.db, id)
	if err != nil {
		return nil, "", err
	}
	if data == nil {
		return nil, "", newError(KindNotFound, "incident %d has no photo", id)
	}
	return data, mime, nil
}

// ListIncidents returns incidents, optionally filtered by status.
func (e *Engine) ListIncidents(ctx context.Context, status model.IncidentStatus) ([]model.Incident, error) {
	return store.ListIncidents(ctx, e.db, status)
}
