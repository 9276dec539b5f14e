package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gravitypharm/gravistock/internal/catalog"
	"github.com/gravitypharm/gravistock/internal/config"
	"github.com/gravitypharm/gravistock/internal/database"
	"github.com/gravitypharm/gravistock/internal/ledger"
	"github.com/gravitypharm/gravistock/internal/messaging"
	"github.com/gravitypharm/gravistock/internal/middleware"
	"github.com/gravitypharm/gravistock/internal/supply"
	"github.com/gravitypharm/gravistock/internal/sweep"
)

// Router wraps the mux router and the domain services
type Router struct {
	*mux.Router
	db       *database.DB
	cfg      *config.Config
	catalog  *catalog.Service
	ledger   *ledger.Ledger
	sweep    *sweep.Sweep
	supply   *supply.Workflow
	requests *messaging.Service
}

// NewRouter creates a new HTTP router with all routes
func NewRouter(db *database.DB, cfg *config.Config, cat *catalog.Service, led *ledger.Ledger, swp *sweep.Sweep, wf *supply.Workflow, req *messaging.Service) *Router {
	r := &Router{
		Router:   mux.NewRouter(),
		db:       db,
		cfg:      cfg,
		catalog:  cat,
		ledger:   led,
		sweep:    swp,
		supply:   wf,
		requests: req,
	}

	// Health check endpoint
	r.HandleFunc("/health", r.healthCheck).Methods("GET")

	// Auth routes
	auth := r.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/login", r.login).Methods("POST")
	auth.HandleFunc("/register", r.register).Methods("POST")

	// API routes (protected)
	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.Auth(cfg.JWTSecret))

	api.HandleFunc("/scan", r.handleScan).Methods("POST")
	api.HandleFunc("/catalog/search", r.searchCatalog).Methods("GET")

	api.HandleFunc("/slots", r.listSlots).Methods("GET")
	api.HandleFunc("/slots", r.createSlot).Methods("POST")
	api.HandleFunc("/slots/labels.pdf", r.printLabels).Methods("POST")
	api.HandleFunc("/slots/{label}", r.renameSlot).Methods("PUT")
	api.HandleFunc("/slots/{label}", r.deleteSlot).Methods("DELETE")
	api.HandleFunc("/slots/{label}/units", r.listSlotUnits).Methods("GET")
	api.HandleFunc("/slots/{label}/units", r.scanInUnit).Methods("POST")

	api.HandleFunc("/units/{id}", r.removeUnit).Methods("DELETE")
	api.HandleFunc("/units/{id}/relocate", r.relocateUnit).Methods("POST")

	api.HandleFunc("/missing", r.listMissing).Methods("GET")
	api.HandleFunc("/missing/{id}", r.deactivateMissing).Methods("DELETE")

	api.HandleFunc("/sweep", r.sweepStatus).Methods("GET")
	api.HandleFunc("/sweep/start", r.startSweep).Methods("POST")
	api.HandleFunc("/sweep/confirm", r.confirmSweep).Methods("POST")
	api.HandleFunc("/sweep/close", r.closeSweep).Methods("POST")

	api.HandleFunc("/runs", r.listRuns).Methods("GET")
	api.HandleFunc("/runs", r.createRun).Methods("POST")
	api.HandleFunc("/runs/{id}", r.getRun).Methods("GET")
	api.HandleFunc("/runs/{id}/lines", r.addLine).Methods("POST")
	api.HandleFunc("/runs/{id}/lines", r.clearLines).Methods("DELETE")
	api.HandleFunc("/runs/{id}/close", r.closeRun).Methods("POST")
	api.HandleFunc("/runs/{id}/validate", r.validateRun).Methods("POST")
	api.HandleFunc("/lines/{id}", r.removeLine).Methods("DELETE")
	api.HandleFunc("/lines/{id}/resolution", r.resolveLine).Methods("PUT")

	api.HandleFunc("/requests", r.sendRequest).Methods("POST")
	api.HandleFunc("/requests/pending", r.pendingRequests).Methods("GET")
	api.HandleFunc("/requests/responses", r.requestResponses).Methods("GET")
	api.HandleFunc("/requests/{id}/respond", r.respondRequest).Methods("POST")
	api.HandleFunc("/requests/{id}/ack", r.ackRequest).Methods("POST")

	return r
}

// healthCheck returns the health status of the API
func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"station": r.cfg.Station.Name,
	})
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// respondServiceError maps domain sentinels onto HTTP status codes
func respondServiceError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ledger.ErrSlotNotFound),
		errors.Is(err, ledger.ErrUnitNotFound),
		errors.Is(err, supply.ErrRunNotFound),
		errors.Is(err, supply.ErrLineNotFound),
		errors.Is(err, messaging.ErrRequestNotFound),
		errors.Is(err, catalog.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ledger.ErrDuplicateInSlot),
		errors.Is(err, ledger.ErrDuplicateSlot),
		errors.Is(err, ledger.ErrSlotOccupied),
		errors.Is(err, sweep.ErrSweepActive),
		errors.Is(err, supply.ErrDuplicateProduct),
		errors.Is(err, supply.ErrNotDraft),
		errors.Is(err, supply.ErrNotClosed),
		errors.Is(err, sweep.ErrSweepIdle):
		status = http.StatusConflict
	case errors.Is(err, ledger.ErrUnknownProduct),
		errors.Is(err, supply.ErrBadResolution):
		status = http.StatusUnprocessableEntity
	}
	respondError(w, status, err.Error())
}
