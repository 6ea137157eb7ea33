package api

import (
	"io"
	"net/http"
	"strconv"

	"github.com/erazemk/izposoja/internal/imaging"
	"github.com/erazemk/izposoja/internal/inventory"
	"github.com/erazemk/izposoja/internal/model"
)

// IncidentsHandler handles damage and loss reports.
type IncidentsHandler struct {
	Engine *inventory.Engine
}

type resolveRequest struct {
	Resolution model.Resolution `json:"resolution"`
}

// List handles GET /api/incidents?status=.
func (h *IncidentsHandler) List(w http.ResponseWriter, r *http.Request) {
	status := model.IncidentStatus(r.URL.Query().Get("status"))
	switch status {
	case "", model.IncidentOpen, model.IncidentResolved:
	default:
		jsonError(w, http.StatusBadRequest, "status must be open or resolved")
		return
	}

	incidents, err := h.Engine.ListIncidents(r.Context(), status)
	if err != nil {
		engineError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, orEmpty(incidents))
}

// Report handles POST /api/incidents.
func (h *IncidentsHandler) Report(w http.ResponseWriter, r *http.Request) {
	var req inventory.ReportIncidentParams
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	actor, _ := GetActor(r.Context())
	incident, err := h.Engine.ReportIncident(r.Context(), actor, req)
	if err != nil {
		engineError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, incident)
}

// Resolve handles POST /api/incidents/{id}/resolve.
func (h *IncidentsHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid incident id")
		return
	}
	var req resolveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	actor, _ := GetActor(r.Context())
	err := h.Engine.ResolveIncident(r.Context(), actor, inventory.ResolveIncidentParams{ID: id, Resolution: req.Resolution})
	if err != nil {
		engineError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "incident resolved"})
}

// UploadPhoto handles PUT /api/incidents/{id}/photo.
func (h *IncidentsHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid incident id")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadBytes)
	if err := r.ParseMultipartForm(imaging.MaxUploadBytes); err != nil {
		jsonError(w, http.StatusBadRequest, "file too large or invalid multipart form")
		return
	}

	file, _, err := r.FormFile("photo")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "photo file required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "failed to read photo")
		return
	}

	actor, _ := GetActor(r.Context())
	if err := h.Engine.AttachIncidentPhoto(r.Context(), actor, id, data); err != nil {
		engineError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "photo uploaded"})
}

// GetPhoto handles GET /api/incidents/{id}/photo.
func (h *IncidentsHandler) GetPhoto(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid incident id")
		return
	}

	data, mime, err := h.Engine.IncidentPhoto(r.Context(), id)
	if err != nil {
		engineError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.Write(data)
}
