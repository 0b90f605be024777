// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/cardioviz/internal/domain/dashboard"
	"github.com/okian/cardioviz/internal/domain/panel"
)

// ViewHandler serves the dashboard state and the view controls.
type ViewHandler struct {
	deps ViewDependencies
}

// NewViewHandler creates a new view handler.
func NewViewHandler(deps ViewDependencies) *ViewHandler {
	return &ViewHandler{deps: deps}
}

// HandleView handles GET /api/view requests.
func (h *ViewHandler) HandleView(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Snapshot())
}

// HandleMetrics handles GET /api/metrics requests.
func (h *ViewHandler) HandleMetrics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Snapshot().Metrics)
}

// HandleRecords handles GET /api/records requests.
func (h *ViewHandler) HandleRecords(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Snapshot().Records)
}

// HandlePatients handles GET /api/patients requests.
func (h *ViewHandler) HandlePatients(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Snapshot().Patients)
}

// HandlePatient handles GET /api/patients/{id} requests.
func (h *ViewHandler) HandlePatient(w http.ResponseWriter, r *http.Request) {
	const op = "api.patient"
	id := r.PathValue("id")
	p, ok := h.deps.Patient(id)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", WrapKind(op, ErrNotFound, errors.New("patient "+id)))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandlePatientSummary handles GET /api/patients/{id}/summary requests.
func (h *ViewHandler) HandlePatientSummary(w http.ResponseWriter, r *http.Request) {
	const op = "api.patient_summary"
	id := r.PathValue("id")
	st, ok := h.deps.PatientSummary(id)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", WrapKind(op, ErrNotFound, errors.New("patient "+id)))
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// HandlePanels handles GET /api/panels requests.
func (h *ViewHandler) HandlePanels(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Snapshot().Panels)
}

// HandleToggle handles POST /api/panels/{id}/toggle requests and answers with the panel list.
func (h *ViewHandler) HandleToggle(w http.ResponseWriter, r *http.Request) {
	const op = "api.panel_toggle"
	id, err := panel.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	writeJSON(w, http.StatusOK, panel.States(h.deps.Toggle(id)))
}

type selectionRequest struct {
	PatientID string `json:"patient_id"`
}

// HandleSelection handles PUT /api/selection requests. An empty patient_id clears the filter.
func (h *ViewHandler) HandleSelection(w http.ResponseWriter, r *http.Request) {
	const op = "api.selection"
	var req selectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := h.deps.Select(strings.TrimSpace(req.PatientID)); err != nil {
		if errors.Is(err, dashboard.ErrUnknownPatient) {
			writeError(w, http.StatusNotFound, "not_found", WrapKind(op, ErrNotFound, err))
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Snapshot())
}
