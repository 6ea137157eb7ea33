package api

import (
	"net/http"
	"strconv"

	"github.com/erazemk/izposoja/internal/inventory"
	"github.com/erazemk/izposoja/internal/reconcile"
)

// LedgerHandler serves read-only views across the whole ledger.
type LedgerHandler struct {
	Engine *inventory.Engine
}

// Audit handles GET /api/audit?limit=.
func (h *LedgerHandler) Audit(w http.ResponseWriter, r *http.Request) {
	var limit int
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			jsonError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	actor, _ := GetActor(r.Context())
	entries, err := h.Engine.ListAudit(r.Context(), actor, limit)
	if err != nil {
		engineError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, orEmpty(entries))
}

// Snapshot handles GET /api/snapshot.
func (h *LedgerHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	actor, _ := GetActor(r.Context())
	snap, err := h.Engine.Snapshot(r.Context(), actor)
	if err != nil {
		engineError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, snap)
}

// Reconcile handles GET /api/reconcile.
func (h *LedgerHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	report, err := reconcile.Run(r.Context(), h.Engine.DB())
	if err != nil {
		engineError(w, r, err)
		return
	}
	if report.Violations == nil {
		report.Violations = []reconcile.Violation{}
	}
	jsonResponse(w, http.StatusOK, report)
}
