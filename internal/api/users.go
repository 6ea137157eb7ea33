package api

import (
	"net/http"

	"github.com/erazemk/izposoja/internal/inventory"
)

// UsersHandler handles team endpoints.
type UsersHandler struct {
	Engine *inventory.Engine
}

type changePINRequest struct {
	PIN string `json:"pin"`
}

// List handles GET /api/users. The roster is public so the login screen
// can offer it.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.Engine.ListUsers(r.Context())
	if err != nil {
		engineError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, orEmpty(users))
}

// Create handles POST /api/users.
func (h *UsersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req inventory.CreateUserParams
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	actor, _ := GetActor(r.Context())
	user, err := h.Engine.CreateUser(r.Context(), actor, req)
	if err != nil {
		engineError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, user)
}

// ChangePIN handles PUT /api/users/{id}/pin.
func (h *UsersHandler) ChangePIN(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	var req changePINRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	actor, _ := GetActor(r.Context())
	if err := h.Engine.ChangePIN(r.Context(), actor, id, req.PIN); err != nil {
		engineError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "PIN updated"})
}

// Delete handles DELETE /api/users/{id}.
func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	actor, _ := GetActor(r.Context())
	if err := h.Engine.RemoveUser(r.Context(), actor, id); err != nil {
		engineError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
