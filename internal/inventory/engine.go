// Package inventory is the allocation and reconciliation engine. It owns
// every rule that keeps stock counts, holdings and unit states consistent.
//
// Each mutating operation validates its input, then runs in a single
// transaction: the row is loaded, permissions are checked, stock moves
// through guarded conditional updates and an audit line is written. Change
// events and metrics follow only after commit.
package inventory

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/erazemk/izposoja/internal/db"
	"github.com/erazemk/izposoja/internal/events"
	"github.com/erazemk/izposoja/internal/metrics"
	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/store"
)

// Engine runs ledger operations against the database.
type Engine struct {
	db       *db.DB
	events   events.Publisher
	metrics  *metrics.Metrics
	logger   *zap.Logger
	validate *validator.Validate
}

// Option configures an Engine.
type Option func(*Engine)

// WithEvents sets the publisher that receives committed changes.
func WithEvents(p events.Publisher) Option {
	return func(e *Engine) { e.events = p }
}

// WithMetrics records operation counts and durations.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithLogger sets the engine logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New creates an engine over an open database.
func New(database *db.DB, opts ...Option) *Engine {
	e := &Engine{
		db:       database,
		events:   events.Nop{},
		logger:   zap.NewNop(),
		validate: newValidator(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.events == nil {
		e.events = events.Nop{}
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	return e
}

// DB returns the engine's database.
func (e *Engine) DB() *db.DB { return e.db }

// mutate runs fn in one transaction. The events fn returns are published
// only if the transaction commits.
func (e *Engine) mutate(ctx context.Context, op string, actor model.Actor, fn func(q db.Querier) ([]events.Event, error)) error {
	start := time.Now()
	var evs []events.Event
	err := e.db.InTx(ctx, func(q db.Querier) error {
		var err error
		evs, err = fn(q)
		return err
	})
	e.finish(op, actor, start, err)
	if err != nil {
		return err
	}

	for _, ev := range evs {
		if ev.ActorID == 0 {
			ev.ActorID = actor.ID
		}
		e.events.Publish(ctx, ev)
	}
	return nil
}

func (e *Engine) finish(op string, actor model.Actor, start time.Time, err error) {
	elapsed := time.Since(start)
	kind := KindOf(err)

	switch {
	case err == nil:
		e.metrics.ObserveOperation(op, "", elapsed)
		e.logger.Debug("operation done",
			zap.String("op", op),
			zap.Int64("actor_id", actor.ID),
			zap.Duration("duration", elapsed),
		)
	case kind != "":
		e.metrics.ObserveOperation(op, string(kind), elapsed)
		e.logger.Info("operation rejected",
			zap.String("op", op),
			zap.Int64("actor_id", actor.ID),
			zap.String("kind", string(kind)),
			zap.String("reason", err.Error()),
		)
	default:
		e.metrics.ObserveOperation(op, "error", elapsed)
		e.logger.Error("operation failed",
			zap.String("op", op),
			zap.Int64("actor_id", actor.ID),
			zap.Error(err),
		)
	}
}

// audit appends an entry on behalf of actor. System actions (ID 0) are
// logged without an actor ID.
func audit(ctx context.Context, q db.Querier, actor model.Actor, action, detail string) error {
	var id *int64
	if actor.ID > 0 {
		id = &actor.ID
	}
	name := actor.Name
	if name == "" {
		name = "system"
	}
	return store.AppendAudit(ctx, q, action, name, id, detail)
}

func requireManager(actor model.Actor, action string) error {
	if !actor.IsManager() {
		return forbidden(action)
	}
	return nil
}

func requireRole(actor model.Actor, action string, roles ...model.Role) error {
	if !actor.HasRole(roles...) {
		return forbidden(action)
	}
	return nil
}

// loadItem fetches a live item or fails with NotFound.
func loadItem(ctx context.Context, q db.Querier, id int64) (*model.Item, error) {
	item, err := store.GetItem(ctx, q, id)
	if err != nil {
		return nil, err
	}
	if item == nil || item.DeletedAt != nil {
		return nil, notFound("item", id)
	}
	return item, nil
}

// loadUser fetches an active user or fails with NotFound.
func loadUser(ctx context.Context, q db.Querier, id int64) (*model.User, error) {
	u, err := store.GetUser(ctx, q, id)
	if err != nil {
		return nil, err
	}
	if u == nil || u.DeletedAt != nil {
		return nil, notFound("user", id)
	}
	return u, nil
}
