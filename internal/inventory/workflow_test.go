package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/store"
)

func TestSubmitRequestRejects(t *testing.T) {
	f := newFixture(t)
	chairs := f.bulk(t, "Chair", 3)

	_, err := f.e.SubmitRequest(f.ctx, f.ana, SubmitRequestParams{ItemID: chairs.ID, Quantity: 4})
	assertKind(t, err, KindInsufficientStock)

	_, err = f.e.SubmitRequest(f.ctx, f.ana, SubmitRequestParams{ItemID: chairs.ID, Quantity: 0})
	assertKind(t, err, KindValidation)

	_, err = f.e.SubmitRequest(f.ctx, f.ana, SubmitRequestParams{ItemID: 404, Quantity: 1})
	assertKind(t, err, KindNotFound)

	reqs, err := f.e.ListRequests(f.ctx, f.admin, "", 0)
	require.NoError(t, err)
	assert.Empty(t, reqs)
}

func TestApproveRequestRejects(t *testing.T) {
	f := newFixture(t)
	chairs := f.bulk(t, "Chair", 3)
	laptops, _ := f.tracked(t, "Laptop", "LAP", 2)

	req, err := f.e.SubmitRequest(f.ctx, f.ana, SubmitRequestParams{ItemID: chairs.ID, Quantity: 2})
	require.NoError(t, err)

	assertKind(t, f.e.ApproveRequest(f.ctx, f.bor, req.ID), KindUnauthorized)
	assertKind(t, f.e.ApproveRequest(f.ctx, f.assistant, 999), KindNotFound)

	require.NoError(t, f.e.ApproveRequest(f.ctx, f.admin, req.ID))
	assertKind(t, f.e.ApproveRequest(f.ctx, f.admin, req.ID), KindValidation)
	assertKind(t, f.e.RejectRequest(f.ctx, f.admin, req.ID), KindValidation)
	assert.Equal(t, 2, f.holding(t, chairs.ID, f.ana), "a second decision moves nothing")

	tracked, err := f.e.SubmitRequest(f.ctx, f.ana, SubmitRequestParams{ItemID: laptops.ID, Quantity: 1})
	require.NoError(t, err)
	assertKind(t, f.e.ApproveRequest(f.ctx, f.assistant, tracked.ID), KindValidation)

	bulk, err := f.e.SubmitRequest(f.ctx, f.ana, SubmitRequestParams{ItemID: chairs.ID, Quantity: 1})
	require.NoError(t, err)
	err = f.e.AssignUnits(f.ctx, f.assistant, AssignUnitsParams{RequestID: bulk.ID, UnitIDs: []int64{1}})
	assertKind(t, err, KindValidation)
}

func TestApproveRechecksStock(t *testing.T) {
	f := newFixture(t)
	chairs := f.bulk(t, "Chair", 3)

	first, err := f.e.SubmitRequest(f.ctx, f.ana, SubmitRequestParams{ItemID: chairs.ID, Quantity: 3})
	require.NoError(t, err)
	second, err := f.e.SubmitRequest(f.ctx, f.bor, SubmitRequestParams{ItemID: chairs.ID, Quantity: 1})
	require.NoError(t, err)

	require.NoError(t, f.e.ApproveRequest(f.ctx, f.assistant, first.ID))
	assertKind(t, f.e.ApproveRequest(f.ctx, f.assistant, second.ID), KindInsufficientStock)

	stored, _ := store.GetRequest(f.ctx, f.e.DB(), second.ID)
	assert.Equal(t, model.RequestPending, stored.Status, "a failed approval leaves the request pending")
	f.reconciled(t)
}

func TestRejectRequest(t *testing.T) {
	f := newFixture(t)
	chairs := f.bulk(t, "Chair", 3)
	req, err := f.e.SubmitRequest(f.ctx, f.ana, SubmitRequestParams{ItemID: chairs.ID, Quantity: 2, Note: " for the lab "})
	require.NoError(t, err)
	assert.Equal(t, "for the lab", req.Note)

	assertKind(t, f.e.RejectRequest(f.ctx, f.ana, req.ID), KindUnauthorized)
	require.NoError(t, f.e.RejectRequest(f.ctx, f.assistant, req.ID))

	stored, _ := store.GetRequest(f.ctx, f.e.DB(), req.ID)
	assert.Equal(t, model.RequestRejected, stored.Status)
	assert.Equal(t, 3, f.item(t, chairs.ID).Available)

	entries, err := f.e.ListAudit(f.ctx, f.assistant, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Rejected Chair request from Ana", entries[0].Detail)
}

func TestAssignUnitsRejects(t *testing.T) {
	f := newFixture(t)
	laptops, units := f.tracked(t, "Laptop", "LAP", 3)
	_, phones := f.tracked(t, "Phone", "PH", 1)

	req, err := f.e.SubmitRequest(f.ctx, f.ana, SubmitRequestParams{ItemID: laptops.ID, Quantity: 2})
	require.NoError(t, err)

	err = f.e.AssignUnits(f.ctx, f.assistant, AssignUnitsParams{RequestID: req.ID, UnitIDs: []int64{units[0].ID, units[0].ID}})
	assertKind(t, err, KindValidation)

	err = f.e.AssignUnits(f.ctx, f.assistant, AssignUnitsParams{RequestID: req.ID, UnitIDs: []int64{units[0].ID, phones[0].ID}})
	assertKind(t, err, KindValidation)

	err = f.e.AssignUnits(f.ctx, f.assistant, AssignUnitsParams{RequestID: req.ID, UnitIDs: []int64{units[0].ID, 999}})
	assertKind(t, err, KindNotFound)

	err = f.e.AssignUnits(f.ctx, f.ana, AssignUnitsParams{RequestID: req.ID, UnitIDs: []int64{units[0].ID, units[1].ID}})
	assertKind(t, err, KindUnauthorized)

	err = f.e.AssignUnits(f.ctx, f.assistant, AssignUnitsParams{RequestID: req.ID, UnitIDs: nil})
	assertKind(t, err, KindValidation)

	for _, u := range units {
		assert.Equal(t, model.UnitAvailable, f.unit(t, u.ID).Status)
	}
	f.reconciled(t)
}

func TestListRequestsScopesStaff(t *testing.T) {
	f := newFixture(t)
	chairs := f.bulk(t, "Chair", 5)
	for _, who := range []model.Actor{f.ana, f.bor, f.bor} {
		_, err := f.e.SubmitRequest(f.ctx, who, SubmitRequestParams{ItemID: chairs.ID, Quantity: 1})
		require.NoError(t, err)
	}

	mine, err := f.e.ListRequests(f.ctx, f.ana, "", f.bor.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, f.ana.ID, mine[0].UserID)

	all, err := f.e.ListRequests(f.ctx, f.assistant, model.RequestPending, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	bors, err := f.e.ListRequests(f.ctx, f.assistant, "", f.bor.ID)
	require.NoError(t, err)
	assert.Len(t, bors, 2)
}

func TestBulkTransfer(t *testing.T) {
	f := newFixture(t)
	chairs := f.bulk(t, "Chair", 10)
	f.grant(t, chairs.ID, f.ana, 4)

	_, err := f.e.SubmitTransfer(f.ctx, f.ana, SubmitTransferParams{ToUserID: f.bor.ID, ItemID: chairs.ID, Quantity: 5})
	assertKind(t, err, KindInsufficientHolding)

	_, err = f.e.SubmitTransfer(f.ctx, f.ana, SubmitTransferParams{ToUserID: f.ana.ID, ItemID: chairs.ID, Quantity: 1})
	assertKind(t, err, KindValidation)

	_, err = f.e.SubmitTransfer(f.ctx, f.ana, SubmitTransferParams{ToUserID: f.bor.ID, ItemID: chairs.ID})
	assertKind(t, err, KindValidation)

	_, err = f.e.SubmitTransfer(f.ctx, f.ana, SubmitTransferParams{ToUserID: 999, ItemID: chairs.ID, Quantity: 1})
	assertKind(t, err, KindNotFound)

	tr, err := f.e.SubmitTransfer(f.ctx, f.ana, SubmitTransferParams{ToUserID: f.bor.ID, ItemID: chairs.ID, Quantity: 3})
	require.NoError(t, err)
	assert.Equal(t, 4, f.holding(t, chairs.ID, f.ana), "nothing moves before acceptance")

	assertKind(t, f.e.AcceptTransfer(f.ctx, f.ana, tr.ID), KindUnauthorized)
	require.NoError(t, f.e.AcceptTransfer(f.ctx, f.bor, tr.ID))
	assertKind(t, f.e.AcceptTransfer(f.ctx, f.bor, tr.ID), KindValidation)

	assert.Equal(t, 1, f.holding(t, chairs.ID, f.ana))
	assert.Equal(t, 3, f.holding(t, chairs.ID, f.bor))
	assert.Equal(t, 6, f.item(t, chairs.ID).Available, "transfers never touch storage")
	f.reconciled(t)
}

func TestAcceptRechecksSenderHolding(t *testing.T) {
	f := newFixture(t)
	chairs := f.bulk(t, "Chair", 10)
	f.grant(t, chairs.ID, f.ana, 3)

	tr, err := f.e.SubmitTransfer(f.ctx, f.ana, SubmitTransferParams{ToUserID: f.bor.ID, ItemID: chairs.ID, Quantity: 3})
	require.NoError(t, err)
	require.NoError(t, f.e.ReturnItem(f.ctx, f.ana, ReturnItemParams{UserID: f.ana.ID, ItemID: chairs.ID, Quantity: 1}))

	assertKind(t, f.e.AcceptTransfer(f.ctx, f.bor, tr.ID), KindInsufficientHolding)
	assert.Equal(t, 2, f.holding(t, chairs.ID, f.ana))
	assert.Equal(t, 0, f.holding(t, chairs.ID, f.bor))

	stored, _ := store.GetTransfer(f.ctx, f.e.DB(), tr.ID)
	assert.Equal(t, model.TransferPending, stored.Status)
	f.reconciled(t)
}

func TestManagerDecidesTransferForRecipient(t *testing.T) {
	f := newFixture(t)
	chairs := f.bulk(t, "Chair", 10)
	f.grant(t, chairs.ID, f.ana, 2)

	tr, err := f.e.SubmitTransfer(f.ctx, f.ana, SubmitTransferParams{ToUserID: f.bor.ID, ItemID: chairs.ID, Quantity: 2})
	require.NoError(t, err)
	require.NoError(t, f.e.AcceptTransfer(f.ctx, f.assistant, tr.ID))
	assert.Equal(t, 2, f.holding(t, chairs.ID, f.bor))

	entries, err := f.e.ListAudit(f.ctx, f.admin, 1)
	require.NoError(t, err)
	assert.Equal(t, "Accepted 2× Chair from Ana for Bor", entries[0].Detail)
}

func TestUnitTransferRejects(t *testing.T) {
	f := newFixture(t)
	laptops, units := f.tracked(t, "Laptop", "LAP", 2)
	f.assign(t, laptops.ID, f.ana, units[0].ID)
	other := units[1].ID

	_, err := f.e.SubmitTransfer(f.ctx, f.ana, SubmitTransferParams{ToUserID: f.bor.ID, ItemID: laptops.ID})
	assertKind(t, err, KindValidation)

	_, err = f.e.SubmitTransfer(f.ctx, f.ana, SubmitTransferParams{ToUserID: f.bor.ID, ItemID: laptops.ID, UnitID: &other})
	assertKind(t, err, KindInsufficientHolding)

	_, err = f.e.SubmitTransfer(f.ctx, f.bor, SubmitTransferParams{ToUserID: f.ana.ID, ItemID: laptops.ID, UnitID: &units[0].ID})
	assertKind(t, err, KindInsufficientHolding)
}

func TestReturnRules(t *testing.T) {
	f := newFixture(t)
	chairs := f.bulk(t, "Chair", 10)
	laptops, units := f.tracked(t, "Laptop", "LAP", 1)
	f.grant(t, chairs.ID, f.ana, 3)
	f.assign(t, laptops.ID, f.ana, units[0].ID)

	err := f.e.ReturnItem(f.ctx, f.bor, ReturnItemParams{UserID: f.ana.ID, ItemID: chairs.ID, Quantity: 1})
	assertKind(t, err, KindUnauthorized)

	err = f.e.ReturnItem(f.ctx, f.ana, ReturnItemParams{UserID: f.ana.ID, ItemID: laptops.ID, Quantity: 1})
	assertKind(t, err, KindValidation)

	require.NoError(t, f.e.ReturnItem(f.ctx, f.assistant, ReturnItemParams{UserID: f.ana.ID, ItemID: chairs.ID, Quantity: 3}))
	assert.Equal(t, 0, f.holding(t, chairs.ID, f.ana))
	holdings, err := f.e.ListHoldings(f.ctx, f.ana, 0)
	require.NoError(t, err)
	assert.Empty(t, holdings, "a fully returned holding disappears")

	assertKind(t, f.e.ReturnUnit(f.ctx, f.ana, units[0].ID), KindUnauthorized)
	require.NoError(t, f.e.ReturnUnit(f.ctx, f.assistant, units[0].ID))
	assert.Equal(t, model.UnitAvailable, f.unit(t, units[0].ID).Status)
	assertKind(t, f.e.ReturnUnit(f.ctx, f.assistant, units[0].ID), KindUnitNotAvailable)
	assertKind(t, f.e.ReturnUnit(f.ctx, f.assistant, 999), KindNotFound)
	f.reconciled(t)
}
