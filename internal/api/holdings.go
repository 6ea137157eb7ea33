package api

import (
	"net/http"

	"github.com/erazemk/izposoja/internal/inventory"
)

// HoldingsHandler handles what users have checked out.
type HoldingsHandler struct {
	Engine *inventory.Engine
}

// List handles GET /api/holdings?user_id=.
func (h *HoldingsHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := queryID(r, "user_id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid user_id")
		return
	}

	actor, _ := GetActor(r.Context())
	holdings, err := h.Engine.ListHoldings(r.Context(), actor, userID)
	if err != nil {
		engineError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, orEmpty(holdings))
}

// Return handles POST /api/holdings/return.
func (h *HoldingsHandler) Return(w http.ResponseWriter, r *http.Request) {
	var req inventory.ReturnItemParams
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	actor, _ := GetActor(r.Context())
	if req.UserID == 0 {
		req.UserID = actor.ID
	}
	if err := h.Engine.ReturnItem(r.Context(), actor, req); err != nil {
		engineError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "returned"})
}

// Assignments handles GET /api/assignments?user_id=&active=.
func (h *HoldingsHandler) Assignments(w http.ResponseWriter, r *http.Request) {
	userID, ok := queryID(r, "user_id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid user_id")
		return
	}
	activeOnly := r.URL.Query().Get("active") != "false"

	actor, _ := GetActor(r.Context())
	assignments, err := h.Engine.ListAssignments(r.Context(), actor, userID, activeOnly)
	if err != nil {
		engineError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, orEmpty(assignments))
}

// ReturnUnit handles POST /api/units/{id}/return.
func (h *HoldingsHandler) ReturnUnit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid unit id")
		return
	}

	actor, _ := GetActor(r.Context())
	if err := h.Engine.ReturnUnit(r.Context(), actor, id); err != nil {
		engineError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "returned"})
}
