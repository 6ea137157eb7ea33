package api

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/erazemk/izposoja/internal/events"
	"github.com/erazemk/izposoja/internal/inventory"
	"github.com/erazemk/izposoja/internal/metrics"
	"github.com/erazemk/izposoja/internal/model"
)

// Config holds what the router needs to serve the API.
type Config struct {
	Engine    *inventory.Engine
	JWTSecret string

	// Hub feeds the event stream; nil disables it.
	Hub     *events.Hub
	Metrics *metrics.Metrics
	Logger  *zap.Logger
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(cfg Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	mux := http.NewServeMux()

	authHandler := &AuthHandler{Engine: cfg.Engine, JWTSecret: cfg.JWTSecret, Logger: logger.Named("auth")}
	usersHandler := &UsersHandler{Engine: cfg.Engine}
	itemsHandler := &ItemsHandler{Engine: cfg.Engine}
	holdingsHandler := &HoldingsHandler{Engine: cfg.Engine}
	requestsHandler := &RequestsHandler{Engine: cfg.Engine}
	transfersHandler := &TransfersHandler{Engine: cfg.Engine}
	incidentsHandler := &IncidentsHandler{Engine: cfg.Engine}
	ledgerHandler := &LedgerHandler{Engine: cfg.Engine}
	eventsHandler := &EventsHandler{Hub: cfg.Hub, Logger: logger.Named("events")}

	authMW := AuthMiddleware(cfg.Engine, cfg.JWTSecret)
	requireManager := RequireRole(model.Managers...)
	authed := func(h http.HandlerFunc) http.Handler { return authMW(h) }

	// Public: roster and login.
	mux.HandleFunc("GET /api/users", usersHandler.List)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)

	mux.Handle("POST /api/auth/logout", authed(authHandler.Logout))
	mux.Handle("GET /api/auth/me", authed(authHandler.Me))

	// Team. Role rules live in the engine.
	mux.Handle("POST /api/users", authed(usersHandler.Create))
	mux.Handle("PUT /api/users/{id}/pin", authed(usersHandler.ChangePIN))
	mux.Handle("DELETE /api/users/{id}", authed(usersHandler.Delete))

	// Catalog.
	mux.Handle("GET /api/items", authed(itemsHandler.List))
	mux.Handle("POST /api/items", authed(itemsHandler.Create))
	mux.Handle("GET /api/items/{id}", authed(itemsHandler.Get))
	mux.Handle("PUT /api/items/{id}", authed(itemsHandler.Update))
	mux.Handle("DELETE /api/items/{id}", authed(itemsHandler.Delete))
	mux.Handle("GET /api/items/{id}/units", authed(itemsHandler.ListUnits))
	mux.Handle("POST /api/items/{id}/units", authed(itemsHandler.GenerateUnits))

	// Holdings and returns.
	mux.Handle("GET /api/holdings", authed(holdingsHandler.List))
	mux.Handle("POST /api/holdings/return", authed(holdingsHandler.Return))
	mux.Handle("GET /api/assignments", authed(holdingsHandler.Assignments))
	mux.Handle("POST /api/units/{id}/return", authed(holdingsHandler.ReturnUnit))

	// Requests.
	mux.Handle("GET /api/requests", authed(requestsHandler.List))
	mux.Handle("POST /api/requests", authed(requestsHandler.Submit))
	mux.Handle("POST /api/requests/{id}/approve", authed(requestsHandler.Approve))
	mux.Handle("POST /api/requests/{id}/assign", authed(requestsHandler.Assign))
	mux.Handle("POST /api/requests/{id}/reject", authed(requestsHandler.Reject))

	// Transfers.
	mux.Handle("GET /api/transfers", authed(transfersHandler.List))
	mux.Handle("POST /api/transfers", authed(transfersHandler.Submit))
	mux.Handle("POST /api/transfers/{id}/accept", authed(transfersHandler.Accept))
	mux.Handle("POST /api/transfers/{id}/decline", authed(transfersHandler.Decline))

	// Incidents.
	mux.Handle("GET /api/incidents", authed(incidentsHandler.List))
	mux.Handle("POST /api/incidents", authed(incidentsHandler.Report))
	mux.Handle("POST /api/incidents/{id}/resolve", authed(incidentsHandler.Resolve))
	mux.Handle("PUT /api/incidents/{id}/photo", authed(incidentsHandler.UploadPhoto))
	mux.Handle("GET /api/incidents/{id}/photo", authed(incidentsHandler.GetPhoto))

	// Ledger views.
	mux.Handle("GET /api/audit", authed(ledgerHandler.Audit))
	mux.Handle("GET /api/snapshot", authed(ledgerHandler.Snapshot))
	mux.Handle("GET /api/reconcile", authMW(requireManager(http.HandlerFunc(ledgerHandler.Reconcile))))
	mux.Handle("GET /api/events", authed(eventsHandler.Stream))

	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", cfg.Metrics.Handler())
	}

	return LoggingMiddleware(logger.Named("http"))(mux)
}
