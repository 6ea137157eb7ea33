package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/erazemk/izposoja/internal/events"
)

const (
	eventBuffer       = 32
	keepaliveInterval = 25 * time.Second
)

// EventsHandler streams committed changes as server-sent events.
type EventsHandler struct {
	Hub    *events.Hub
	Logger *zap.Logger
}

// Stream handles GET /api/events.
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	if h.Hub == nil {
		jsonError(w, http.StatusServiceUnavailable, "event stream disabled")
		return
	}

	// Subscribed before the headers are sent; no later change is missed.
	ch, cancel := h.Hub.Subscribe(eventBuffer)
	defer cancel()

	rc := http.NewResponseController(w)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		h.Logger.Warn("event stream cannot flush", zap.Error(err))
		return
	}

	keepalive := time.NewTicker(keepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepalive.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
		case e, ok := <-ch:
			if !ok {
				return
			}
			payload, err := json.Marshal(e)
			if err != nil {
				h.Logger.Warn("encoding event", zap.Error(err))
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Type, payload); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}
