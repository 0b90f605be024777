// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/okian/cardioviz/internal/adapters/mq/queue"
	"github.com/okian/cardioviz/internal/domain/dashboard"
	"github.com/okian/cardioviz/internal/domain/model"
)

const maxRequestIDLength = 128

// RefreshHandler handles refresh requests.
type RefreshHandler struct {
	deps RefreshDependencies
}

// NewRefreshHandler creates a new refresh handler.
func NewRefreshHandler(deps RefreshDependencies) *RefreshHandler {
	return &RefreshHandler{deps: deps}
}

// refreshRequest mirrors the OpenAPI schema for POST /api/refresh. The body is optional.
type refreshRequest struct {
	RequestID string `json:"request_id"`
}

func (q refreshRequest) validate() error {
	if len(q.RequestID) > maxRequestIDLength {
		return errors.New("request_id too long")
	}
	if q.RequestID != "" && strings.TrimSpace(q.RequestID) == "" {
		return errors.New("request_id must not be blank")
	}
	return nil
}

type ackResponse struct {
	Status    string `json:"status"`
	RequestID string `json:"request_id"`
	Duplicate bool   `json:"duplicate"`
}

// HandleRefresh handles POST /api/refresh requests.
func (h *RefreshHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	const op = "api.refresh"

	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if req.RequestID == "" {
		req.RequestID = h.deps.NewRequestID()
	}

	// Idempotency check - mark as seen first
	if h.deps.SeenAndRecord(r.Context(), req.RequestID) {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", RequestID: req.RequestID, Duplicate: true})
		return
	}

	err := h.deps.EnqueueRefresh(r.Context(), model.RefreshRequest{
		ID:          req.RequestID,
		Trigger:     model.TriggerAPI,
		RequestedAt: time.Now().UTC(),
	})
	if err != nil {
		// Rollback the "seen" status since enqueue failed
		h.deps.Unrecord(r.Context(), req.RequestID)
		if errors.Is(err, queue.ErrFull) {
			writeError(w, http.StatusTooManyRequests, "backpressure", WrapKind(op, ErrBackpressure, err))
			return
		}
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", RequestID: req.RequestID})
}

// HandleRefreshSync handles POST /api/refresh/sync requests and answers with the new view.
func (h *RefreshHandler) HandleRefreshSync(w http.ResponseWriter, r *http.Request) {
	const op = "api.refresh_sync"

	err := h.deps.RefreshNow(r.Context())
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, h.deps.Snapshot())
	case errors.Is(err, dashboard.ErrRefreshInFlight):
		writeError(w, http.StatusConflict, "in_flight", WrapKind(op, ErrInFlight, err))
	default:
		writeError(w, http.StatusBadGateway, "fetch_failed", WrapKind(op, ErrFetchFailed, err))
	}
}
