package api

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/erazemk/izposoja/internal/auth"
	"github.com/erazemk/izposoja/internal/inventory"
	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/store"
)

// AuthHandler handles session endpoints.
type AuthHandler struct {
	Engine    *inventory.Engine
	JWTSecret string
	Logger    *zap.Logger
}

type loginRequest struct {
	UserID int64  `json:"user_id"`
	PIN    string `json:"pin"`
}

type loginResponse struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

// Login handles POST /api/auth/login. Users pick themselves from the
// roster and enter their PIN.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID <= 0 || req.PIN == "" {
		jsonError(w, http.StatusBadRequest, "user_id and pin required")
		return
	}

	user, err := h.Engine.Authenticate(r.Context(), req.UserID, req.PIN)
	if err != nil {
		if inventory.IsKind(err, inventory.KindUnauthorized) {
			h.Logger.Warn("login failed", zap.Int64("user_id", req.UserID), zap.String("remote", r.RemoteAddr))
			jsonError(w, http.StatusUnauthorized, "invalid user or PIN")
			return
		}
		engineError(w, r, err)
		return
	}

	token, err := auth.GenerateToken(h.JWTSecret, user)
	if err != nil {
		engineError(w, r, err)
		return
	}

	h.Logger.Info("user logged in", zap.String("user", user.Name), zap.String("role", string(user.Role)))
	jsonResponse(w, http.StatusOK, loginResponse{Token: token, User: user})
}

// Logout handles POST /api/auth/logout by revoking the presented token.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	if err := store.RevokeToken(r.Context(), h.Engine.DB(), claims.ID, claims.ExpiresAt.Time); err != nil {
		engineError(w, r, err)
		return
	}

	h.Logger.Info("user logged out", zap.String("user", claims.Name))
	jsonResponse(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	actor, _ := GetActor(r.Context())
	user, err := h.Engine.GetUser(r.Context(), actor.ID)
	if err != nil {
		engineError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, user)
}
