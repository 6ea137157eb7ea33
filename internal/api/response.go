package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/erazemk/izposoja/internal/inventory"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			zap.L().Warn("encoding response", zap.Error(err))
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, errorResponse{Error: message})
}

// statusFor maps a rejection kind to its HTTP status.
func statusFor(kind inventory.Kind) int {
	switch kind {
	case inventory.KindValidation, inventory.KindWrongSelectionCount:
		return http.StatusBadRequest
	case inventory.KindUnauthorized:
		return http.StatusForbidden
	case inventory.KindNotFound:
		return http.StatusNotFound
	case inventory.KindInsufficientStock, inventory.KindInsufficientHolding,
		inventory.KindUnitNotAvailable, inventory.KindDuplicateUnitCode:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// engineError writes an engine failure. Rule rejections carry their kind;
// anything else is logged and hidden behind a generic message.
func engineError(w http.ResponseWriter, r *http.Request, err error) {
	kind := inventory.KindOf(err)
	if kind == "" {
		zap.L().Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	jsonResponse(w, statusFor(kind), errorResponse{Error: err.Error(), Kind: string(kind)})
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(w http.ResponseWriter, r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(target)
}

// pathID parses a numeric path value.
func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	return id, err == nil && id > 0
}

// queryID parses an optional numeric query parameter; absent means 0.
func queryID(r *http.Request, name string) (int64, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, true
	}
	id, err := strconv.ParseInt(v, 10, 64)
	return id, err == nil && id >= 0
}

// orEmpty turns a nil slice into an empty one so it encodes as [].
func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
