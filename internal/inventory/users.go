package inventory

import (
	"context"
	"fmt"
	"strings"

	"github.com/erazemk/izposoja/internal/auth"
	"github.com/erazemk/izposoja/internal/db"
	"github.com/erazemk/izposoja/internal/events"
	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/store"
)

// CreateUserParams describes a new team member.
type CreateUserParams struct {
	Name string     `json:"name" validate:"required,max=80"`
	Role model.Role `json:"role" validate:"omitempty,oneof=admin inventory_assistant staff"`
	PIN  string     `json:"pin" validate:"required,len=4"`
}

// CreateUser adds a team member. Names are unique among active users.
func (e *Engine) CreateUser(ctx context.Context, actor model.Actor, p CreateUserParams) (*model.User, error) {
	p.Name = strings.Join(strings.Fields(p.Name), " ")
	if p.Role == "" {
		p.Role = model.RoleStaff
	}
	if err := e.check(p); err != nil {
		return nil, err
	}
	if err := model.ValidatePIN(p.PIN); err != nil {
		return nil, newError(KindValidation, "%v", err)
	}
	hash, err := auth.HashPIN(p.PIN)
	if err != nil {
		return nil, err
	}

	var user *model.User
	err = e.mutate(ctx, "create_user", actor, func(q db.Querier) ([]events.Event, error) {
		if err := requireRole(actor, "add users", model.RoleAdmin); err != nil {
			return nil, err
		}
		user, err = createUser(ctx, q, actor, p.Name, p.Role, hash)
		if err != nil {
			return nil, err
		}
		return []events.Event{{Type: events.UserChanged, ID: user.ID}}, nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func createUser(ctx context.Context, q db.Querier, actor model.Actor, name string, role model.Role, hash string) (*model.User, error) {
	existing, err := store.GetActiveUserByName(ctx, q, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, newError(KindValidation, "a user named %s already exists", name)
	}
	id, err := store.CreateUser(ctx, q, name, role, hash, model.Initials(name))
	if err != nil {
		return nil, err
	}
	if err := audit(ctx, q, actor, model.ActionUserAdded, fmt.Sprintf("Added %s as %s", name, role)); err != nil {
		return nil, err
	}
	return store.GetUser(ctx, q, id)
}

// EnsureAdmin creates the first admin with a random PIN when there are no
// users yet. The PIN is returned once and never stored in clear.
func (e *Engine) EnsureAdmin(ctx context.Context, name string) (*model.User, string, error) {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		name = "Admin"
	}
	pin, err := auth.GeneratePIN()
	if err != nil {
		return nil, "", err
	}
	hash, err := auth.HashPIN(pin)
	if err != nil {
		return nil, "", err
	}

	var user *model.User
	err = e.db.InTx(ctx, func(q db.Querier) error {
		n, err := store.CountUsers(ctx, q)
		if err != nil {
			return err
		}
		if n > 0 {
			return nil
		}
		user, err = createUser(ctx, q, model.Actor{}, name, model.RoleAdmin, hash)
		return err
	})
	if err != nil {
		return nil, "", fmt.Errorf("creating first admin: %w", err)
	}
	if user == nil {
		return nil, "", nil
	}
	return user, pin, nil
}

// ChangePIN sets a new PIN. Admins may change anyone's; others only their own.
func (e *Engine) ChangePIN(ctx context.Context, actor model.Actor, userID int64, pin string) error {
	if err := model.ValidatePIN(pin); err != nil {
		return newError(KindValidation, "%v", err)
	}
	hash, err := auth.HashPIN(pin)
	if err != nil {
		return err
	}

	return e.mutate(ctx, "change_pin", actor, func(q db.Querier) ([]events.Event, error) {
		if userID != actor.ID && !actor.HasRole(model.RoleAdmin) {
			return nil, forbidden("change someone else's PIN")
		}
		user, err := loadUser(ctx, q, userID)
		if err != nil {
			return nil, err
		}
		if err := store.UpdateUserPIN(ctx, q, user.ID, hash); err != nil {
			return nil, err
		}
		if err := audit(ctx, q, actor, model.ActionPINChanged, "Changed PIN for "+user.Name); err != nil {
			return nil, err
		}
		return nil, nil
	})
}

// RemoveUser takes a user off the team. Everything they hold goes back to
// storage, their pending requests are rejected and pending transfers to or
// from them are declined, all in the same transaction.
func (e *Engine) RemoveUser(ctx context.Context, actor model.Actor, userID int64) error {
	return e.mutate(ctx, "remove_user", actor, func(q db.Querier) ([]events.Event, error) {
		if err := requireRole(actor, "remove users", model.RoleAdmin); err != nil {
			return nil, err
		}
		if userID == actor.ID {
			return nil, newError(KindValidation, "you cannot remove yourself")
		}
		user, err := loadUser(ctx, q, userID)
		if err != nil {
			return nil, err
		}

		holdings, err := store.ListHoldings(ctx, q, user.ID)
		if err != nil {
			return nil, err
		}
		returned := 0
		for _, h := range holdings {
			ok, err := store.TakeHolding(ctx, q, h.ItemID, user.ID, h.Quantity)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, fmt.Errorf("holding of %s changed while removing %s", h.ItemName, user.Name)
			}
			ok, err = store.PutStock(ctx, q, h.ItemID, h.Quantity)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, fmt.Errorf("returning %d× %s would exceed its total", h.Quantity, h.ItemName)
			}
			returned += h.Quantity
		}

		assignments, err := store.ListAssignments(ctx, q, user.ID, true)
		if err != nil {
			return nil, err
		}
		for _, a := range assignments {
			holder := user.ID
			unit := &model.Unit{ID: a.UnitID, Code: a.UnitCode, Status: model.UnitAssigned, HolderID: &holder}
			if err := returnUnit(ctx, q, unit); err != nil {
				return nil, err
			}
		}

		rejected, err := store.RejectPendingRequestsOf(ctx, q, user.ID, actor.ID)
		if err != nil {
			return nil, err
		}
		declined, err := store.DeclinePendingTransfersOf(ctx, q, user.ID)
		if err != nil {
			return nil, err
		}
		if err := store.DeleteUser(ctx, q, user.ID); err != nil {
			return nil, err
		}

		detail := fmt.Sprintf("Removed %s (returned %d items and %d units, rejected %d requests, declined %d transfers)",
			user.Name, returned, len(assignments), rejected, declined)
		if err := audit(ctx, q, actor, model.ActionUserRemoved, detail); err != nil {
			return nil, err
		}
		return []events.Event{
			{Type: events.UserChanged, ID: user.ID},
			{Type: events.HoldingChanged},
			{Type: events.UnitsChanged},
			{Type: events.RequestChanged},
			{Type: events.TransferChanged},
		}, nil
	})
}

// Authenticate checks a user's PIN. Unknown users and wrong PINs fail the
// same way.
func (e *Engine) Authenticate(ctx context.Context, userID int64, pin string) (*model.User, error) {
	user, err := store.GetUser(ctx, e.db, userID)
	if err != nil {
		return nil, err
	}
	if user == nil || user.DeletedAt != nil || !auth.CheckPIN(user.PINHash, pin) {
		e.metrics.ObserveOperation("authenticate", string(KindUnauthorized), 0)
		return nil, newError(KindUnauthorized, "invalid user or PIN")
	}
	return user, nil
}

// ListUsers returns the active team roster.
func (e *Engine) ListUsers(ctx context.Context) ([]model.User, error) {
	return store.ListUsers(ctx, e.db)
}

// GetUser returns an active user.
func (e *Engine) GetUser(ctx context.Context, id int64) (*model.User, error) {
	return loadUser(ctx, e.db, id)
}
