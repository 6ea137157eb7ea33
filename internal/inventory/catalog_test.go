package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/izposoja/internal/model"
)

func TestUnitCode(t *testing.T) {
	assert.Equal(t, "LAP-001", UnitCode("LAP", 1))
	assert.Equal(t, "LAP-042", UnitCode("LAP", 42))
	assert.Equal(t, "LAP-1234", UnitCode("LAP", 1234))
}

func TestAddItem(t *testing.T) {
	f := newFixture(t)

	item, err := f.e.AddItem(f.ctx, f.assistant, AddItemParams{Name: "  Monitor ", Total: total(4)})
	require.NoError(t, err)
	assert.Equal(t, "Monitor", item.Name)
	assert.Equal(t, model.DefaultCategory, item.Category)
	assert.Equal(t, model.DefaultUnit, item.Unit)
	assert.Equal(t, model.KindBulk, item.Kind)
	assert.Equal(t, 4, item.Total)
	assert.Equal(t, 4, item.Available)

	tracked, err := f.e.AddItem(f.ctx, f.admin, AddItemParams{Name: "Laptop", Category: "IT", Tracked: true})
	require.NoError(t, err)
	assert.True(t, tracked.Serialized())
	assert.Equal(t, 0, tracked.Total)

	entries, err := f.e.ListAudit(f.ctx, f.admin, 0)
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	assert.Equal(t, model.ActionItemAdded, entries[0].Action)
	assert.Equal(t, "Added 0× Laptop", entries[0].Detail)
	assert.Equal(t, "Added 4× Monitor", entries[1].Detail)
}

func TestAddItemRejects(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name  string
		actor model.Actor
		p     AddItemParams
		kind  Kind
	}{
		{"staff", f.ana, AddItemParams{Name: "Desk", Total: total(1)}, KindUnauthorized},
		{"blank name", f.assistant, AddItemParams{Name: "  ", Total: total(1)}, KindValidation},
		{"bulk without total", f.assistant, AddItemParams{Name: "Desk"}, KindValidation},
		{"bulk with zero total", f.assistant, AddItemParams{Name: "Desk", Total: total(0)}, KindValidation},
		{"negative total", f.assistant, AddItemParams{Name: "Desk", Total: total(-1)}, KindValidation},
		{"tracked with total", f.assistant, AddItemParams{Name: "Laptop", Total: total(3), Tracked: true}, KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.e.AddItem(f.ctx, tt.actor, tt.p)
			assertKind(t, err, tt.kind)
		})
	}

	items, err := f.e.ListItems(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestValidationMessageUsesJSONNames(t *testing.T) {
	f := newFixture(t)
	_, err := f.e.AddItem(f.ctx, f.assistant, AddItemParams{Total: total(1)})
	assertKind(t, err, KindValidation)
	assert.Equal(t, "name is required", err.Error())
}

func TestEditItemResizesBulkStock(t *testing.T) {
	f := newFixture(t)
	chairs := f.bulk(t, "Chair", 10)
	f.grant(t, chairs.ID, f.ana, 4)

	item, err := f.e.EditItem(f.ctx, f.assistant, EditItemParams{ID: chairs.ID, Name: "Office chair", Total: total(12)})
	require.NoError(t, err)
	assert.Equal(t, "Office chair", item.Name)
	assert.Equal(t, 12, item.Total)
	assert.Equal(t, 8, item.Available)
	assert.Equal(t, model.DefaultCategory, item.Category, "empty category keeps the current one")

	item, err = f.e.EditItem(f.ctx, f.assistant, EditItemParams{ID: chairs.ID, Name: "Office chair", Total: total(4)})
	require.NoError(t, err)
	assert.Equal(t, 0, item.Available)

	_, err = f.e.EditItem(f.ctx, f.assistant, EditItemParams{ID: chairs.ID, Name: "Office chair", Total: total(3)})
	assertKind(t, err, KindValidation)
	assert.Equal(t, 4, f.item(t, chairs.ID).Total)
	assert.Equal(t, 4, f.holding(t, chairs.ID, f.ana))
	f.reconciled(t)
}

func TestEditItemRejects(t *testing.T) {
	f := newFixture(t)
	laptops, _ := f.tracked(t, "Laptop", "LAP", 2)

	_, err := f.e.EditItem(f.ctx, f.assistant, EditItemParams{ID: laptops.ID, Name: "Laptop", Total: total(5)})
	assertKind(t, err, KindValidation)

	_, err = f.e.EditItem(f.ctx, f.ana, EditItemParams{ID: laptops.ID, Name: "Mine"})
	assertKind(t, err, KindUnauthorized)

	_, err = f.e.EditItem(f.ctx, f.assistant, EditItemParams{ID: 999, Name: "Ghost"})
	assertKind(t, err, KindNotFound)

	item, err := f.e.EditItem(f.ctx, f.assistant, EditItemParams{ID: laptops.ID, Name: "Laptop", Category: "IT", Total: total(2)})
	require.NoError(t, err, "an unchanged total is allowed on tracked items")
	assert.Equal(t, "IT", item.Category)
}

func TestDeleteItemRefusesWhileReferenced(t *testing.T) {
	f := newFixture(t)
	chairs := f.bulk(t, "Chair", 5)
	f.grant(t, chairs.ID, f.ana, 2)

	err := f.e.DeleteItem(f.ctx, f.assistant, chairs.ID)
	assertKind(t, err, KindValidation)
	assert.Contains(t, err.Error(), "1 holdings")

	require.NoError(t, f.e.ReturnItem(f.ctx, f.ana, ReturnItemParams{UserID: f.ana.ID, ItemID: chairs.ID, Quantity: 2}))

	err = f.e.DeleteItem(f.ctx, f.ana, chairs.ID)
	assertKind(t, err, KindUnauthorized)

	require.NoError(t, f.e.DeleteItem(f.ctx, f.assistant, chairs.ID))
	_, err = f.e.GetItem(f.ctx, chairs.ID)
	assertKind(t, err, KindNotFound)

	_, err = f.e.SubmitRequest(f.ctx, f.ana, SubmitRequestParams{ItemID: chairs.ID, Quantity: 1})
	assertKind(t, err, KindNotFound)

	err = f.e.DeleteItem(f.ctx, f.assistant, chairs.ID)
	assertKind(t, err, KindNotFound)
}

func TestDeleteItemRefusesPendingRequest(t *testing.T) {
	f := newFixture(t)
	chairs := f.bulk(t, "Chair", 5)
	_, err := f.e.SubmitRequest(f.ctx, f.ana, SubmitRequestParams{ItemID: chairs.ID, Quantity: 1})
	require.NoError(t, err)

	err = f.e.DeleteItem(f.ctx, f.assistant, chairs.ID)
	assertKind(t, err, KindValidation)
	assert.Contains(t, err.Error(), "1 pending requests")
}

func TestGenerateUnits(t *testing.T) {
	f := newFixture(t)
	laptops, units := f.tracked(t, "Laptop", "LAP", 3)
	assert.Equal(t, []string{"LAP-001", "LAP-002", "LAP-003"}, []string{units[0].Code, units[1].Code, units[2].Code})

	more, err := f.e.GenerateUnits(f.ctx, f.assistant, GenerateUnitsParams{ItemID: laptops.ID, Prefix: "LAP", Count: 2, StartIndex: 4})
	require.NoError(t, err)
	assert.Equal(t, "LAP-004", more[0].Code)

	item := f.item(t, laptops.ID)
	assert.Equal(t, 5, item.Total)
	assert.Equal(t, 5, item.Available)

	listed, err := f.e.ListUnits(f.ctx, laptops.ID)
	require.NoError(t, err)
	assert.Len(t, listed, 5)
}

func TestGenerateUnitsRejects(t *testing.T) {
	f := newFixture(t)
	laptops, _ := f.tracked(t, "Laptop", "LAP", 3)
	phones, _ := f.tracked(t, "Phone", "PH", 1)
	chairs := f.bulk(t, "Chair", 5)

	_, err := f.e.GenerateUnits(f.ctx, f.assistant, GenerateUnitsParams{ItemID: phones.ID, Prefix: "LAP", Count: 2, StartIndex: 3})
	assertKind(t, err, KindDuplicateUnitCode)
	assert.Contains(t, err.Error(), "LAP-003")
	units, _ := f.e.ListUnits(f.ctx, phones.ID)
	assert.Len(t, units, 1, "a clash inserts nothing")

	_, err = f.e.GenerateUnits(f.ctx, f.assistant, GenerateUnitsParams{ItemID: chairs.ID, Prefix: "CH", Count: 1})
	assertKind(t, err, KindValidation)

	_, err = f.e.GenerateUnits(f.ctx, f.ana, GenerateUnitsParams{ItemID: laptops.ID, Prefix: "X", Count: 1})
	assertKind(t, err, KindUnauthorized)

	_, err = f.e.GenerateUnits(f.ctx, f.assistant, GenerateUnitsParams{ItemID: laptops.ID, Prefix: "X", Count: 501})
	assertKind(t, err, KindValidation)

	_, err = f.e.GenerateUnits(f.ctx, f.assistant, GenerateUnitsParams{ItemID: laptops.ID, Prefix: "A B", Count: 1})
	assertKind(t, err, KindValidation)
}
