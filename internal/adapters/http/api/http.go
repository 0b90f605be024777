// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/cardioviz/internal/domain/aggregate"
	"github.com/okian/cardioviz/internal/domain/dashboard"
	"github.com/okian/cardioviz/internal/domain/dedupe"
	"github.com/okian/cardioviz/internal/domain/model"
	"github.com/okian/cardioviz/internal/domain/panel"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	RefreshDependencies
	ViewDependencies
}

// RefreshDependencies covers the refresh endpoints.
type RefreshDependencies interface {
	dedupe.Deduper

	// NewRequestID returns an id for requests that do not carry one.
	NewRequestID() string

	// EnqueueRefresh hands a request to the refresh worker.
	EnqueueRefresh(ctx context.Context, r model.RefreshRequest) error

	// RefreshNow refreshes on the caller's goroutine.
	RefreshNow(ctx context.Context) error

	Snapshot() dashboard.Snapshot
}

// ViewDependencies covers the read and view-control endpoints.
type ViewDependencies interface {
	Snapshot() dashboard.Snapshot
	Toggle(p panel.ID) panel.Set
	Select(patientID string) error
	Patient(id string) (model.Patient, bool)
	PatientSummary(id string) (aggregate.PatientStat, bool)
}

// Server wires HTTP routes for the dashboard API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	viewHandler    *ViewHandler
	refreshHandler *RefreshHandler
	chartHandler   *ChartHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, version string) *Server {
	return &Server{
		healthHandler:  NewHealthHandler(version),
		statsHandler:   NewStatsHandler(statsProvider),
		viewHandler:    NewViewHandler(deps),
		refreshHandler: NewRefreshHandler(deps),
		chartHandler:   NewChartHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("GET /api/health", MetricsMiddleware(s.healthHandler.HandleAPIHealth, "health"))
	mux.HandleFunc("GET /api/view", MetricsMiddleware(s.viewHandler.HandleView, "view"))
	mux.HandleFunc("GET /api/metrics", MetricsMiddleware(s.viewHandler.HandleMetrics, "metrics"))
	mux.HandleFunc("GET /api/records", MetricsMiddleware(s.viewHandler.HandleRecords, "records"))
	mux.HandleFunc("GET /api/patients", MetricsMiddleware(s.viewHandler.HandlePatients, "patients"))
	mux.HandleFunc("GET /api/patients/{id}", MetricsMiddleware(s.viewHandler.HandlePatient, "patient"))
	mux.HandleFunc("GET /api/patients/{id}/summary", MetricsMiddleware(s.viewHandler.HandlePatientSummary, "patient_summary"))
	mux.HandleFunc("GET /api/panels", MetricsMiddleware(s.viewHandler.HandlePanels, "panels"))
	mux.HandleFunc("POST /api/panels/{id}/toggle", MetricsMiddleware(s.viewHandler.HandleToggle, "panel_toggle"))
	mux.HandleFunc("PUT /api/selection", MetricsMiddleware(s.viewHandler.HandleSelection, "selection"))

	mux.HandleFunc("POST /api/refresh", MetricsMiddleware(s.refreshHandler.HandleRefresh, "refresh"))
	mux.HandleFunc("POST /api/refresh/sync", MetricsMiddleware(s.refreshHandler.HandleRefreshSync, "refresh_sync"))

	mux.HandleFunc("GET /api/panels/{id}/chart.svg", MetricsMiddleware(s.chartHandler.HandleSVG, "chart"))
	mux.HandleFunc("GET /api/panels/{id}/chart.png", MetricsMiddleware(s.chartHandler.HandlePNG, "chart"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	tagErrorCode(w, code)
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
