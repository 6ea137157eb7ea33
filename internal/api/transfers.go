package api

import (
	"net/http"

	"github.com/erazemk/izposoja/internal/inventory"
	"github.com/erazemk/izposoja/internal/model"
)

// TransfersHandler handles peer-to-peer transfers.
type TransfersHandler struct {
	Engine *inventory.Engine
}

// List handles GET /api/transfers?status=&user_id=.
func (h *TransfersHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := queryID(r, "user_id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid user_id")
		return
	}
	status := model.TransferStatus(r.URL.Query().Get("status"))

	actor, _ := GetActor(r.Context())
	transfers, err := h.Engine.ListTransfers(r.Context(), actor, status, userID)
	if err != nil {
		engineError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, orEmpty(transfers))
}

// Submit handles POST /api/transfers.
func (h *TransfersHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req inventory.SubmitTransferParams
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	actor, _ := GetActor(r.Context())
	transfer, err := h.Engine.SubmitTransfer(r.Context(), actor, req)
	if err != nil {
		engineError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, transfer)
}

// Accept handles POST /api/transfers/{id}/accept.
func (h *TransfersHandler) Accept(w http.ResponseWriter, r *http.Request) {
	decide(w, r, "transfer", "accepted", h.Engine.AcceptTransfer)
}

// Decline handles POST /api/transfers/{id}/decline.
func (h *TransfersHandler) Decline(w http.ResponseWriter, r *http.Request) {
	decide(w, r, "transfer", "declined", h.Engine.DeclineTransfer)
}
