package inventory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/izposoja/internal/db"
	"github.com/erazemk/izposoja/internal/events"
	"github.com/erazemk/izposoja/internal/metrics"
	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/reconcile"
	"github.com/erazemk/izposoja/internal/store"
)

type recorder struct {
	mu  sync.Mutex
	evs []events.Event
}

func (r *recorder) Publish(_ context.Context, ev events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evs = append(r.evs, ev)
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, ev := range r.evs {
		out = append(out, ev.Type)
	}
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evs = nil
}

type fixture struct {
	ctx       context.Context
	e         *Engine
	events    *recorder
	metrics   *metrics.Metrics
	admin     model.Actor
	assistant model.Actor
	ana       model.Actor
	bor       model.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	database := db.NewTestDB(t)
	ctx := context.Background()

	f := &fixture{ctx: ctx, events: &recorder{}, metrics: metrics.New()}
	f.e = New(database, WithEvents(f.events), WithMetrics(f.metrics))

	mk := func(name string, role model.Role) model.Actor {
		id, err := store.CreateUser(ctx, database, name, role, "hash", model.Initials(name))
		require.NoError(t, err)
		return model.Actor{ID: id, Name: name, Role: role}
	}
	f.admin = mk("Admin", model.RoleAdmin)
	f.assistant = mk("Asistent", model.RoleAssistant)
	f.ana = mk("Ana", model.RoleStaff)
	f.bor = mk("Bor", model.RoleStaff)
	return f
}

func total(n int) *int { return &n }

func (f *fixture) bulk(t *testing.T, name string, n int) *model.Item {
	t.Helper()
	item, err := f.e.AddItem(f.ctx, f.assistant, AddItemParams{Name: name, Total: total(n)})
	require.NoError(t, err)
	return item
}

func (f *fixture) tracked(t *testing.T, name, prefix string, count int) (*model.Item, []model.Unit) {
	t.Helper()
	item, err := f.e.AddItem(f.ctx, f.assistant, AddItemParams{Name: name, Tracked: true})
	require.NoError(t, err)
	units, err := f.e.GenerateUnits(f.ctx, f.assistant, GenerateUnitsParams{ItemID: item.ID, Prefix: prefix, Count: count, StartIndex: 1})
	require.NoError(t, err)
	return item, units
}

func (f *fixture) item(t *testing.T, id int64) *model.Item {
	t.Helper()
	item, err := f.e.GetItem(f.ctx, id)
	require.NoError(t, err)
	return item
}

func (f *fixture) unit(t *testing.T, id int64) *model.Unit {
	t.Helper()
	unit, err := store.GetUnit(f.ctx, f.e.DB(), id)
	require.NoError(t, err)
	require.NotNil(t, unit)
	return unit
}

func (f *fixture) holding(t *testing.T, itemID int64, user model.Actor) int {
	t.Helper()
	qty, err := store.GetHolding(f.ctx, f.e.DB(), itemID, user.ID)
	require.NoError(t, err)
	return qty
}

// grant gives user qty of a bulk item through the request workflow.
func (f *fixture) grant(t *testing.T, itemID int64, user model.Actor, qty int) {
	t.Helper()
	req, err := f.e.SubmitRequest(f.ctx, user, SubmitRequestParams{ItemID: itemID, Quantity: qty})
	require.NoError(t, err)
	require.NoError(t, f.e.ApproveRequest(f.ctx, f.assistant, req.ID))
}

// assign gives user the listed units through the request workflow.
func (f *fixture) assign(t *testing.T, itemID int64, user model.Actor, unitIDs ...int64) {
	t.Helper()
	req, err := f.e.SubmitRequest(f.ctx, user, SubmitRequestParams{ItemID: itemID, Quantity: len(unitIDs)})
	require.NoError(t, err)
	require.NoError(t, f.e.AssignUnits(f.ctx, f.assistant, AssignUnitsParams{RequestID: req.ID, UnitIDs: unitIDs}))
}

func (f *fixture) reconciled(t *testing.T) {
	t.Helper()
	report, err := reconcile.Run(f.ctx, f.e.DB())
	require.NoError(t, err)
	assert.True(t, report.OK(), "ledger drift: %+v", report.Violations)
}

func assertKind(t *testing.T, err error, kind Kind) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, kind, KindOf(err), "error: %v", err)
}

func TestApproveMovesStockToHolding(t *testing.T) {
	f := newFixture(t)
	chairs := f.bulk(t, "Chair", 10)

	req, err := f.e.SubmitRequest(f.ctx, f.ana, SubmitRequestParams{ItemID: chairs.ID, Quantity: 3})
	require.NoError(t, err)
	assert.Equal(t, model.RequestPending, req.Status)
	assert.Equal(t, 3, req.Quantity)
	assert.Equal(t, 10, f.item(t, chairs.ID).Available, "submitting moves no stock")

	require.NoError(t, f.e.ApproveRequest(f.ctx, f.assistant, req.ID))

	got := f.item(t, chairs.ID)
	assert.Equal(t, 10, got.Total)
	assert.Equal(t, 7, got.Available)
	assert.Equal(t, 3, f.holding(t, chairs.ID, f.ana))

	stored, err := store.GetRequest(f.ctx, f.e.DB(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestApproved, stored.Status)
	require.NotNil(t, stored.DecidedBy)
	assert.Equal(t, f.assistant.ID, *stored.DecidedBy)
	f.reconciled(t)
}

func TestPartialReturnRestocksStorage(t *testing.T) {
	f := newFixture(t)
	chairs := f.bulk(t, "Chair", 10)
	f.grant(t, chairs.ID, f.ana, 3)

	err := f.e.ReturnItem(f.ctx, f.ana, ReturnItemParams{UserID: f.ana.ID, ItemID: chairs.ID, Quantity: 2})
	require.NoError(t, err)

	assert.Equal(t, 1, f.holding(t, chairs.ID, f.ana))
	assert.Equal(t, 9, f.item(t, chairs.ID).Available)
	f.reconciled(t)

	err = f.e.ReturnItem(f.ctx, f.ana, ReturnItemParams{UserID: f.ana.ID, ItemID: chairs.ID, Quantity: 2})
	assertKind(t, err, KindInsufficientHolding)
	assert.Equal(t, 1, f.holding(t, chairs.ID, f.ana))
}

func TestAssignUnitsFulfilsTrackedRequest(t *testing.T) {
	f := newFixture(t)
	laptops, units := f.tracked(t, "Laptop", "lap", 5)
	require.Len(t, units, 5)
	assert.Equal(t, "LAP-001", units[0].Code)
	assert.Equal(t, "LAP-005", units[4].Code)
	u1, u2 := units[0].ID, units[1].ID

	req, err := f.e.SubmitRequest(f.ctx, f.ana, SubmitRequestParams{ItemID: laptops.ID, Quantity: 2})
	require.NoError(t, err)

	err = f.e.AssignUnits(f.ctx, f.assistant, AssignUnitsParams{RequestID: req.ID, UnitIDs: []int64{u1}})
	assertKind(t, err, KindWrongSelectionCount)
	assert.Equal(t, model.UnitAvailable, f.unit(t, u1).Status)

	require.NoError(t, f.e.AssignUnits(f.ctx, f.assistant, AssignUnitsParams{RequestID: req.ID, UnitIDs: []int64{u1, u2}}))

	for _, id := range []int64{u1, u2} {
		unit := f.unit(t, id)
		assert.Equal(t, model.UnitAssigned, unit.Status)
		require.NotNil(t, unit.HolderID)
		assert.Equal(t, f.ana.ID, *unit.HolderID)
	}
	active, err := f.e.ListAssignments(f.ctx, f.ana, 0, true)
	require.NoError(t, err)
	assert.Len(t, active, 2)

	stored, _ := store.GetRequest(f.ctx, f.e.DB(), req.ID)
	assert.Equal(t, model.RequestApproved, stored.Status)
	assert.Equal(t, 3, f.item(t, laptops.ID).Available)
	f.reconciled(t)
}

func TestUnitTransferMovesAssignment(t *testing.T) {
	f := newFixture(t)
	laptops, units := f.tracked(t, "Laptop", "LAP", 2)
	u1 := units[0].ID
	f.assign(t, laptops.ID, f.ana, u1)

	tr, err := f.e.SubmitTransfer(f.ctx, f.ana, SubmitTransferParams{ToUserID: f.bor.ID, ItemID: laptops.ID, UnitID: &u1})
	require.NoError(t, err)
	assert.Equal(t, model.TransferPending, tr.Status)
	assert.Equal(t, 1, tr.Quantity)

	require.NoError(t, f.e.DeclineTransfer(f.ctx, f.bor, tr.ID))
	declined, _ := store.GetTransfer(f.ctx, f.e.DB(), tr.ID)
	assert.Equal(t, model.TransferDeclined, declined.Status)
	unit := f.unit(t, u1)
	assert.Equal(t, model.UnitAssigned, unit.Status)
	assert.Equal(t, f.ana.ID, *unit.HolderID)

	tr, err = f.e.SubmitTransfer(f.ctx, f.ana, SubmitTransferParams{ToUserID: f.bor.ID, ItemID: laptops.ID, UnitID: &u1})
	require.NoError(t, err)
	require.NoError(t, f.e.AcceptTransfer(f.ctx, f.bor, tr.ID))

	unit = f.unit(t, u1)
	assert.Equal(t, model.UnitAssigned, unit.Status)
	assert.Equal(t, f.bor.ID, *unit.HolderID)

	history, err := f.e.ListAssignments(f.ctx, f.admin, f.ana.ID, false)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, model.AssignmentReturned, history[0].Status)
	assert.NotNil(t, history[0].ReturnedAt)

	active, err := f.e.ListAssignments(f.ctx, f.admin, f.bor.ID, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, u1, active[0].UnitID)
	f.reconciled(t)
}

func TestHeldStockIncidentRepaired(t *testing.T) {
	f := newFixture(t)
	chairs := f.bulk(t, "Chair", 10)
	f.grant(t, chairs.ID, f.ana, 6)

	held := f.ana.ID
	incident, err := f.e.ReportIncident(f.ctx, f.ana, ReportIncidentParams{
		ItemID: chairs.ID, Quantity: 2, Type: model.IncidentDamaged, HeldByUserID: &held,
	})
	require.NoError(t, err)
	assert.Equal(t, model.IncidentOpen, incident.Status)
	assert.Equal(t, "Ana", incident.ReportedBy)

	got := f.item(t, chairs.ID)
	assert.Equal(t, 8, got.Total)
	assert.Equal(t, 4, got.Available)
	assert.Equal(t, 4, f.holding(t, chairs.ID, f.ana))
	f.reconciled(t)

	require.NoError(t, f.e.ResolveIncident(f.ctx, f.assistant, ResolveIncidentParams{ID: incident.ID, Resolution: model.ResolutionRepaired}))

	got = f.item(t, chairs.ID)
	assert.Equal(t, 10, got.Total)
	assert.Equal(t, 6, got.Available)
	assert.Equal(t, 4, f.holding(t, chairs.ID, f.ana))
	f.reconciled(t)
}

func TestConcurrentApprovalsNeverOversell(t *testing.T) {
	f := newFixture(t)
	chairs := f.bulk(t, "Chair", 5)

	var ids []int64
	for _, who := range []model.Actor{f.ana, f.bor, f.ana, f.bor} {
		req, err := f.e.SubmitRequest(f.ctx, who, SubmitRequestParams{ItemID: chairs.ID, Quantity: 2})
		require.NoError(t, err)
		ids = append(ids, req.ID)
	}

	errs := make([]error, len(ids))
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = f.e.ApproveRequest(f.ctx, f.assistant, id)
		}()
	}
	wg.Wait()

	approved := 0
	for _, err := range errs {
		if err == nil {
			approved++
			continue
		}
		assertKind(t, err, KindInsufficientStock)
	}
	assert.Equal(t, 2, approved)
	assert.Equal(t, 1, f.item(t, chairs.ID).Available)
	f.reconciled(t)
}

func TestEventsPublishedOnlyAfterCommit(t *testing.T) {
	f := newFixture(t)
	chairs := f.bulk(t, "Chair", 2)
	f.events.reset()

	req, err := f.e.SubmitRequest(f.ctx, f.ana, SubmitRequestParams{ItemID: chairs.ID, Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{events.RequestChanged}, f.events.types())

	f.events.reset()
	err = f.e.ApproveRequest(f.ctx, f.ana, req.ID)
	assertKind(t, err, KindUnauthorized)
	assert.Empty(t, f.events.types())

	require.NoError(t, f.e.ApproveRequest(f.ctx, f.assistant, req.ID))
	assert.Equal(t, []string{events.RequestChanged, events.HoldingChanged}, f.events.types())
	f.events.mu.Lock()
	assert.Equal(t, f.assistant.ID, f.events.evs[0].ActorID)
	f.events.mu.Unlock()
}

func TestFailedOperationRollsBack(t *testing.T) {
	f := newFixture(t)
	laptops, units := f.tracked(t, "Laptop", "LAP", 3)
	f.assign(t, laptops.ID, f.bor, units[1].ID)

	req, err := f.e.SubmitRequest(f.ctx, f.ana, SubmitRequestParams{ItemID: laptops.ID, Quantity: 2})
	require.NoError(t, err)

	// The first unit is taken before the second turns out to be assigned.
	err = f.e.AssignUnits(f.ctx, f.assistant, AssignUnitsParams{RequestID: req.ID, UnitIDs: []int64{units[0].ID, units[1].ID}})
	assertKind(t, err, KindUnitNotAvailable)

	assert.Equal(t, model.UnitAvailable, f.unit(t, units[0].ID).Status)
	stored, _ := store.GetRequest(f.ctx, f.e.DB(), req.ID)
	assert.Equal(t, model.RequestPending, stored.Status)
	f.reconciled(t)
}
