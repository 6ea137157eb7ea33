package api

import (
	"context"
	"net/http"

	"github.com/erazemk/izposoja/internal/inventory"
	"github.com/erazemk/izposoja/internal/model"
)

// RequestsHandler handles the request workflow.
type RequestsHandler struct {
	Engine *inventory.Engine
}

type assignRequest struct {
	UnitIDs []int64 `json:"unit_ids"`
}

// List handles GET /api/requests?status=&user_id=.
func (h *RequestsHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := queryID(r, "user_id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid user_id")
		return
	}
	status := model.RequestStatus(r.URL.Query().Get("status"))

	actor, _ := GetActor(r.Context())
	requests, err := h.Engine.ListRequests(r.Context(), actor, status, userID)
	if err != nil {
		engineError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, orEmpty(requests))
}

// Submit handles POST /api/requests.
func (h *RequestsHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req inventory.SubmitRequestParams
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	actor, _ := GetActor(r.Context())
	request, err := h.Engine.SubmitRequest(r.Context(), actor, req)
	if err != nil {
		engineError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, request)
}

// Approve handles POST /api/requests/{id}/approve.
func (h *RequestsHandler) Approve(w http.ResponseWriter, r *http.Request) {
	decide(w, r, "request", "approved", h.Engine.ApproveRequest)
}

// Reject handles POST /api/requests/{id}/reject.
func (h *RequestsHandler) Reject(w http.ResponseWriter, r *http.Request) {
	decide(w, r, "request", "rejected", h.Engine.RejectRequest)
}

// decide runs a decision on the workflow record named by the {id} path value.
func decide(w http.ResponseWriter, r *http.Request, what, verb string,
	fn func(ctx context.Context, actor model.Actor, id int64) error) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid "+what+" id")
		return
	}

	actor, _ := GetActor(r.Context())
	if err := fn(r.Context(), actor, id); err != nil {
		engineError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": what + " " + verb})
}

// Assign handles POST /api/requests/{id}/assign.
func (h *RequestsHandler) Assign(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid request id")
		return
	}
	var req assignRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	actor, _ := GetActor(r.Context())
	err := h.Engine.AssignUnits(r.Context(), actor, inventory.AssignUnitsParams{RequestID: id, UnitIDs: req.UnitIDs})
	if err != nil {
		engineError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "units assigned"})
}
