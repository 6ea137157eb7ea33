package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/erazemk/izposoja/internal/db"
	"github.com/erazemk/izposoja/internal/events"
	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/store"
)

// AddItemParams describes a new catalog item.
type AddItemParams struct {
	Name     string `json:"name" validate:"required,max=120"`
	Category string `json:"category" validate:"max=60"`
	// Total is the stock count of a bulk item. Tracked items take their
	// count from units and leave it empty.
	Total   *int   `json:"total" validate:"omitempty,gte=0,max=1000000"`
	Unit    string `json:"unit" validate:"max=20"`
	Tracked bool   `json:"tracked"`
}

func (p *AddItemParams) normalize() {
	p.Name = strings.TrimSpace(p.Name)
	p.Category = strings.TrimSpace(p.Category)
	p.Unit = strings.TrimSpace(p.Unit)
	if p.Category == "" {
		p.Category = model.DefaultCategory
	}
	if p.Unit == "" {
		p.Unit = model.DefaultUnit
	}
}

// AddItem creates a catalog item. Bulk items need a total of at least one;
// tracked items start empty and grow with GenerateUnits.
func (e *Engine) AddItem(ctx context.Context, actor model.Actor, p AddItemParams) (*model.Item, error) {
	p.normalize()
	if err := e.check(p); err != nil {
		return nil, err
	}

	kind := model.KindBulk
	total := 0
	if p.Tracked {
		kind = model.KindSerialized
		if p.Total != nil && *p.Total != 0 {
			return nil, newError(KindValidation, "tracked items take their total from units")
		}
	} else {
		if p.Total == nil || *p.Total < 1 {
			return nil, newError(KindValidation, "total must be at least 1")
		}
		total = *p.Total
	}

	var item *model.Item
	err := e.mutate(ctx, "add_item", actor, func(q db.Querier) ([]events.Event, error) {
		if err := requireManager(actor, "add items"); err != nil {
			return nil, err
		}
		id, err := store.CreateItem(ctx, q, p.Name, p.Category, p.Unit, kind, total)
		if err != nil {
			return nil, err
		}
		if err := audit(ctx, q, actor, model.ActionItemAdded, fmt.Sprintf("Added %d× %s", total, p.Name)); err != nil {
			return nil, err
		}
		item, err = store.GetItem(ctx, q, id)
		if err != nil {
			return nil, err
		}
		return []events.Event{{Type: events.ItemChanged, ID: id, ItemID: id}}, nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// EditItemParams describes a catalog edit.
type EditItemParams struct {
	ID       int64  `json:"id" validate:"required,gt=0"`
	Name     string `json:"name" validate:"required,max=120"`
	Category string `json:"category" validate:"max=60"`
	Total    *int   `json:"total" validate:"omitempty,gte=0,max=1000000"`
	Unit     string `json:"unit" validate:"max=20"`
}

// EditItem updates an item. A bulk total change keeps the checked-out
// quantity: available becomes max(0, total - checkedOut). Shrinking below
// what is checked out fails, as it would erase open holdings.
func (e *Engine) EditItem(ctx context.Context, actor model.Actor, p EditItemParams) (*model.Item, error) {
	p.Name = strings.TrimSpace(p.Name)
	p.Category = strings.TrimSpace(p.Category)
	p.Unit = strings.TrimSpace(p.Unit)
	if err := e.check(p); err != nil {
		return nil, err
	}

	var item *model.Item
	err := e.mutate(ctx, "edit_item", actor, func(q db.Querier) ([]events.Event, error) {
		if err := requireManager(actor, "edit items"); err != nil {
			return nil, err
		}
		cur, err := loadItem(ctx, q, p.ID)
		if err != nil {
			return nil, err
		}

		category, unit := p.Category, p.Unit
		if category == "" {
			category = cur.Category
		}
		if unit == "" {
			unit = cur.Unit
		}

		if p.Total != nil && *p.Total != cur.Total {
			if cur.Serialized() {
				return nil, newError(KindValidation, "%s is tracked per unit; generate units to change its total", cur.Name)
			}
			if *p.Total < cur.CheckedOut() {
				return nil, newError(KindValidation, "total %d is below the %d currently checked out", *p.Total, cur.CheckedOut())
			}
			ok, err := store.ResizeBulkItem(ctx, q, cur.ID, *p.Total)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, newError(KindValidation, "total %d is below the quantity currently checked out", *p.Total)
			}
		}

		if err := store.UpdateItemDetails(ctx, q, cur.ID, p.Name, category, unit); err != nil {
			return nil, err
		}
		if err := audit(ctx, q, actor, model.ActionItemEdited, fmt.Sprintf("Updated %q", p.Name)); err != nil {
			return nil, err
		}
		item, err = store.GetItem(ctx, q, cur.ID)
		if err != nil {
			return nil, err
		}
		return []events.Event{{Type: events.ItemChanged, ID: cur.ID, ItemID: cur.ID}}, nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// DeleteItem removes an item from the catalog. It refuses while any
// holding, active assignment, pending request or transfer, or open
// incident still references the item.
func (e *Engine) DeleteItem(ctx context.Context, actor model.Actor, id int64) error {
	return e.mutate(ctx, "delete_item", actor, func(q db.Querier) ([]events.Event, error) {
		if err := requireManager(actor, "delete items"); err != nil {
			return nil, err
		}
		item, err := loadItem(ctx, q, id)
		if err != nil {
			return nil, err
		}

		refs, err := store.CountItemReferences(ctx, q, id)
		if err != nil {
			return nil, err
		}
		if refs.Any() {
			return nil, newError(KindValidation,
				"%s is still in use (%d holdings, %d assigned units, %d pending requests, %d pending transfers, %d open incidents)",
				item.Name, refs.Holdings, refs.ActiveAssignments, refs.PendingRequests, refs.PendingTransfers, refs.OpenIncidents)
		}

		if err := store.SoftDeleteItem(ctx, q, id); err != nil {
			return nil, err
		}
		if err := audit(ctx, q, actor, model.ActionItemDeleted, fmt.Sprintf("Removed %q", item.Name)); err != nil {
			return nil, err
		}
		return []events.Event{{Type: events.ItemChanged, ID: id, ItemID: id}}, nil
	})
}

// GenerateUnitsParams describes a batch of unit codes.
type GenerateUnitsParams struct {
	ItemID     int64  `json:"item_id" validate:"required,gt=0"`
	Prefix     string `json:"prefix" validate:"required,max=20"`
	Count      int    `json:"count" validate:"required,gt=0,max=500"`
	StartIndex int    `json:"start_index" validate:"gte=0"`
}

// UnitCode formats a unit code as PREFIX-NNN.
func UnitCode(prefix string, n int) string {
	return fmt.Sprintf("%s-%03d", prefix, n)
}

// GenerateUnits creates Count available units coded from StartIndex. Codes
// are unique across all items. An empty bulk item becomes tracked.
func (e *Engine) GenerateUnits(ctx context.Context, actor model.Actor, p GenerateUnitsParams) ([]model.Unit, error) {
	p.Prefix = strings.ToUpper(strings.TrimSpace(p.Prefix))
	if err := e.check(p); err != nil {
		return nil, err
	}
	if strings.ContainsAny(p.Prefix, " \t") {
		return nil, newError(KindValidation, "prefix must not contain spaces")
	}

	codes := make([]string, p.Count)
	for i := range codes {
		codes[i] = UnitCode(p.Prefix, p.StartIndex+i)
	}

	var units []model.Unit
	err := e.mutate(ctx, "generate_units", actor, func(q db.Querier) ([]events.Event, error) {
		if err := requireManager(actor, "generate units"); err != nil {
			return nil, err
		}
		item, err := loadItem(ctx, q, p.ItemID)
		if err != nil {
			return nil, err
		}
		if !item.Serialized() {
			ok, err := store.MarkSerialized(ctx, q, item.ID)
			if err != nil {
				return nil, err
			}
			if !ok {
				if item.Total > 0 {
					return nil, newError(KindValidation, "%s has bulk stock; units can only be added to tracked items", item.Name)
				}
				return nil, newError(KindValidation, "%s still has bulk holdings, pending requests or transfers, or open incidents", item.Name)
			}
		}

		taken, err := store.ExistingCodes(ctx, q, codes)
		if err != nil {
			return nil, err
		}
		if len(taken) > 0 {
			return nil, newError(KindDuplicateUnitCode, "unit code %s already exists", taken[0])
		}

		for _, code := range codes {
			id, err := store.CreateUnit(ctx, q, item.ID, code)
			if errors.Is(err, store.ErrCodeTaken) {
				return nil, newError(KindDuplicateUnitCode, "unit code %s already exists", code)
			}
			if err != nil {
				return nil, err
			}
			units = append(units, model.Unit{ID: id, ItemID: item.ID, Code: code, Status: model.UnitAvailable, ItemName: item.Name})
		}

		detail := fmt.Sprintf("Generated %d× %s (%s to %s)", p.Count, item.Name, codes[0], codes[len(codes)-1])
		if err := audit(ctx, q, actor, model.ActionUnitsGenerated, detail); err != nil {
			return nil, err
		}
		return []events.Event{{Type: events.UnitsChanged, ItemID: item.ID}}, nil
	})
	if err != nil {
		return nil, err
	}
	return units, nil
}

// ListItems returns the live catalog.
func (e *Engine) ListItems(ctx context.Context) ([]model.Item, error) {
	return store.ListItems(ctx, e.db)
}

// GetItem returns a live item.
func (e *Engine) GetItem(ctx context.Context, id int64) (*model.Item, error) {
	return loadItem(ctx, e.db, id)
}

// ListUnits returns the units of an item.
func (e *Engine) ListUnits(ctx context.Context, itemID int64) ([]model.Unit, error) {
	if _, err := loadItem(ctx, e.db, itemID); err != nil {
		return nil, err
	}
	return store.ListUnits(ctx, e.db, itemID)
}
