package api

import (
	"net/http"

	"github.com/erazemk/izposoja/internal/inventory"
)

// ItemsHandler handles catalog endpoints.
type ItemsHandler struct {
	Engine *inventory.Engine
}

// List handles GET /api/items.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.Engine.ListItems(r.Context())
	if err != nil {
		engineError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, orEmpty(items))
}

// Create handles POST /api/items.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req inventory.AddItemParams
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	actor, _ := GetActor(r.Context())
	item, err := h.Engine.AddItem(r.Context(), actor, req)
	if err != nil {
		engineError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, item)
}

// Get handles GET /api/items/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	item, err := h.Engine.GetItem(r.Context(), id)
	if err != nil {
		engineError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// Update handles PUT /api/items/{id}.
func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}
	var req inventory.EditItemParams
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.ID = id

	actor, _ := GetActor(r.Context())
	item, err := h.Engine.EditItem(r.Context(), actor, req)
	if err != nil {
		engineError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// Delete handles DELETE /api/items/{id}.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	actor, _ := GetActor(r.Context())
	if err := h.Engine.DeleteItem(r.Context(), actor, id); err != nil {
		engineError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListUnits handles GET /api/items/{id}/units.
func (h *ItemsHandler) ListUnits(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	units, err := h.Engine.ListUnits(r.Context(), id)
	if err != nil {
		engineError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, orEmpty(units))
}

// GenerateUnits handles POST /api/items/{id}/units.
func (h *ItemsHandler) GenerateUnits(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}
	var req inventory.GenerateUnitsParams
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.ItemID = id

	actor, _ := GetActor(r.Context())
	units, err := h.Engine.GenerateUnits(r.Context(), actor, req)
	if err != nil {
		engineError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, units)
}
