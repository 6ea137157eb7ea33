package inventory

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/izposoja/internal/events"
	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/store"
)

func TestStoredStockIncidentWrittenOff(t *testing.T) {
	f := newFixture(t)
	chairs := f.bulk(t, "Chair", 5)

	incident, err := f.e.ReportIncident(f.ctx, f.assistant, ReportIncidentParams{
		ItemID: chairs.ID, Quantity: 2, Type: model.IncidentLost, ReportedBy: "Front desk",
	})
	require.NoError(t, err)
	assert.Equal(t, "Front desk", incident.ReportedBy)
	assert.Nil(t, incident.HeldByUserID)

	got := f.item(t, chairs.ID)
	assert.Equal(t, 3, got.Total)
	assert.Equal(t, 3, got.Available)
	f.reconciled(t)

	require.NoError(t, f.e.ResolveIncident(f.ctx, f.assistant, ResolveIncidentParams{ID: incident.ID, Resolution: model.ResolutionWrittenOff}))
	got = f.item(t, chairs.ID)
	assert.Equal(t, 3, got.Total)
	assert.Equal(t, 3, got.Available)

	err = f.e.ResolveIncident(f.ctx, f.assistant, ResolveIncidentParams{ID: incident.ID, Resolution: model.ResolutionRepaired})
	assertKind(t, err, KindValidation)
	assert.Equal(t, 3, f.item(t, chairs.ID).Total)
	f.reconciled(t)
}

func TestUnitsCannotReplaceStockUnderIncident(t *testing.T) {
	f := newFixture(t)
	chairs := f.bulk(t, "Chair", 2)

	incident, err := f.e.ReportIncident(f.ctx, f.assistant, ReportIncidentParams{
		ItemID: chairs.ID, Quantity: 2, Type: model.IncidentDamaged,
	})
	require.NoError(t, err)
	got := f.item(t, chairs.ID)
	require.Equal(t, 0, got.Total)

	_, err = f.e.GenerateUnits(f.ctx, f.assistant, GenerateUnitsParams{ItemID: chairs.ID, Prefix: "CH", Count: 1, StartIndex: 1})
	assertKind(t, err, KindValidation)
	assert.Contains(t, err.Error(), "open incidents")

	got = f.item(t, chairs.ID)
	assert.Equal(t, model.KindBulk, got.Kind)
	units, err := f.e.ListUnits(f.ctx, chairs.ID)
	require.NoError(t, err)
	assert.Empty(t, units)

	require.NoError(t, f.e.ResolveIncident(f.ctx, f.assistant, ResolveIncidentParams{ID: incident.ID, Resolution: model.ResolutionRepaired}))
	got = f.item(t, chairs.ID)
	assert.Equal(t, 2, got.Total)
	assert.Equal(t, 2, got.Available)
	f.reconciled(t)
}

func TestStoredStockIncidentRejects(t *testing.T) {
	f := newFixture(t)
	chairs := f.bulk(t, "Chair", 5)
	f.grant(t, chairs.ID, f.ana, 4)
	held := f.ana.ID

	_, err := f.e.ReportIncident(f.ctx, f.assistant, ReportIncidentParams{ItemID: chairs.ID, Quantity: 2, Type: model.IncidentDamaged})
	assertKind(t, err, KindInsufficientStock)

	_, err = f.e.ReportIncident(f.ctx, f.assistant, ReportIncidentParams{ItemID: chairs.ID, Quantity: 5, Type: model.IncidentDamaged, HeldByUserID: &held})
	assertKind(t, err, KindInsufficientHolding)

	_, err = f.e.ReportIncident(f.ctx, f.bor, ReportIncidentParams{ItemID: chairs.ID, Quantity: 1, Type: model.IncidentDamaged, HeldByUserID: &held})
	assertKind(t, err, KindUnauthorized)

	_, err = f.e.ReportIncident(f.ctx, f.ana, ReportIncidentParams{ItemID: chairs.ID, Quantity: 1, Type: "stolen"})
	assertKind(t, err, KindValidation)

	_, err = f.e.ReportIncident(f.ctx, f.ana, ReportIncidentParams{ItemID: chairs.ID, Type: model.IncidentDamaged, HeldByUserID: &held})
	assertKind(t, err, KindValidation)

	got := f.item(t, chairs.ID)
	assert.Equal(t, 5, got.Total)
	assert.Equal(t, 4, f.holding(t, chairs.ID, f.ana))
	f.reconciled(t)
}

func TestHeldUnitIncident(t *testing.T) {
	f := newFixture(t)
	laptops, units := f.tracked(t, "Laptop", "LAP", 2)
	u1 := units[0].ID
	f.assign(t, laptops.ID, f.ana, u1)
	held := f.ana.ID

	_, err := f.e.ReportIncident(f.ctx, f.ana, ReportIncidentParams{ItemID: laptops.ID, UnitID: &u1, Type: model.IncidentLost})
	assertKind(t, err, KindUnitNotAvailable)

	wrong := f.bor.ID
	_, err = f.e.ReportIncident(f.ctx, f.assistant, ReportIncidentParams{ItemID: laptops.ID, UnitID: &u1, Type: model.IncidentLost, HeldByUserID: &wrong})
	assertKind(t, err, KindInsufficientHolding)

	incident, err := f.e.ReportIncident(f.ctx, f.ana, ReportIncidentParams{ItemID: laptops.ID, UnitID: &u1, Type: model.IncidentLost, HeldByUserID: &held})
	require.NoError(t, err)
	assert.Equal(t, 1, incident.Quantity)
	require.NotNil(t, incident.UnitID)
	assert.Equal(t, u1, *incident.UnitID)

	unit := f.unit(t, u1)
	assert.Equal(t, model.UnitLost, unit.Status)
	assert.Nil(t, unit.HolderID)
	active, _ := f.e.ListAssignments(f.ctx, f.ana, 0, true)
	assert.Empty(t, active)
	f.reconciled(t)

	_, err = f.e.ReportIncident(f.ctx, f.assistant, ReportIncidentParams{ItemID: laptops.ID, UnitID: &u1, Type: model.IncidentDamaged})
	assertKind(t, err, KindUnitNotAvailable)

	assertKind(t, f.e.ResolveIncident(f.ctx, f.ana, ResolveIncidentParams{ID: incident.ID, Resolution: model.ResolutionReplaced}), KindUnauthorized)
	require.NoError(t, f.e.ResolveIncident(f.ctx, f.assistant, ResolveIncidentParams{ID: incident.ID, Resolution: model.ResolutionReplaced}))
	assert.Equal(t, model.UnitAvailable, f.unit(t, u1).Status)
	f.reconciled(t)
}

func TestWrittenOffUnitIsRetired(t *testing.T) {
	f := newFixture(t)
	laptops, units := f.tracked(t, "Laptop", "LAP", 2)
	u2 := units[1].ID

	incident, err := f.e.ReportIncident(f.ctx, f.assistant, ReportIncidentParams{ItemID: laptops.ID, UnitID: &u2, Type: model.IncidentDamaged})
	require.NoError(t, err)
	assert.Equal(t, model.UnitDamaged, f.unit(t, u2).Status)
	assert.Equal(t, 1, f.item(t, laptops.ID).Available)

	require.NoError(t, f.e.ResolveIncident(f.ctx, f.admin, ResolveIncidentParams{ID: incident.ID, Resolution: model.ResolutionWrittenOff}))
	assert.Equal(t, model.UnitRetired, f.unit(t, u2).Status)
	assert.Equal(t, 1, f.item(t, laptops.ID).Available)

	req, err := f.e.SubmitRequest(f.ctx, f.ana, SubmitRequestParams{ItemID: laptops.ID, Quantity: 1})
	require.NoError(t, err)
	err = f.e.AssignUnits(f.ctx, f.assistant, AssignUnitsParams{RequestID: req.ID, UnitIDs: []int64{u2}})
	assertKind(t, err, KindUnitNotAvailable)
	f.reconciled(t)
}

func TestResolveIncidentRejects(t *testing.T) {
	f := newFixture(t)
	err := f.e.ResolveIncident(f.ctx, f.assistant, ResolveIncidentParams{ID: 42, Resolution: model.ResolutionRepaired})
	assertKind(t, err, KindNotFound)

	err = f.e.ResolveIncident(f.ctx, f.assistant, ResolveIncidentParams{ID: 42, Resolution: "fixed"})
	assertKind(t, err, KindValidation)
}

func TestListIncidents(t *testing.T) {
	f := newFixture(t)
	chairs := f.bulk(t, "Chair", 5)
	for range 2 {
		_, err := f.e.ReportIncident(f.ctx, f.assistant, ReportIncidentParams{ItemID: chairs.ID, Quantity: 1, Type: model.IncidentDamaged})
		require.NoError(t, err)
	}
	all, err := f.e.ListIncidents(f.ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.NoError(t, f.e.ResolveIncident(f.ctx, f.assistant, ResolveIncidentParams{ID: all[0].ID, Resolution: model.ResolutionRepaired}))

	open, err := f.e.ListIncidents(f.ctx, model.IncidentOpen)
	require.NoError(t, err)
	assert.Len(t, open, 1)
	assert.Equal(t, 4, f.item(t, chairs.ID).Total)
}

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := range w {
		for y := range h {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestIncidentPhoto(t *testing.T) {
	f := newFixture(t)
	chairs := f.bulk(t, "Chair", 5)
	incident, err := f.e.ReportIncident(f.ctx, f.ana, ReportIncidentParams{ItemID: chairs.ID, Quantity: 1, Type: model.IncidentDamaged})
	require.NoError(t, err)
	assert.False(t, incident.HasPhoto)

	_, _, err = f.e.IncidentPhoto(f.ctx, incident.ID)
	assertKind(t, err, KindNotFound)

	assertKind(t, f.e.AttachIncidentPhoto(f.ctx, f.ana, incident.ID, []byte("not an image")), KindValidation)
	assertKind(t, f.e.AttachIncidentPhoto(f.ctx, f.bor, incident.ID, testPNG(t, 8, 8)), KindUnauthorized)
	assertKind(t, f.e.AttachIncidentPhoto(f.ctx, f.ana, 999, testPNG(t, 8, 8)), KindNotFound)

	f.events.reset()
	require.NoError(t, f.e.AttachIncidentPhoto(f.ctx, f.ana, incident.ID, testPNG(t, 40, 20)))
	assert.Equal(t, []string{events.IncidentChanged}, f.events.types())

	data, mime, err := f.e.IncidentPhoto(f.ctx, incident.ID)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", mime)
	assert.NotEmpty(t, data)

	stored, err := store.GetIncident(f.ctx, f.e.DB(), incident.ID)
	require.NoError(t, err)
	assert.True(t, stored.HasPhoto)
}
