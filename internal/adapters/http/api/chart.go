// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/okian/cardioviz/internal/adapters/render"
	"github.com/okian/cardioviz/internal/domain/panel"
)

const (
	maxChartSize = 2000
	minChartSize = 100
)

// ChartHandler renders panels as images.
type ChartHandler struct {
	deps ViewDependencies
}

// NewChartHandler creates a new chart handler.
func NewChartHandler(deps ViewDependencies) *ChartHandler {
	return &ChartHandler{deps: deps}
}

// HandleSVG handles GET /api/panels/{id}/chart.svg requests.
func (h *ChartHandler) HandleSVG(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, render.SVG)
}

// HandlePNG handles GET /api/panels/{id}/chart.png requests.
func (h *ChartHandler) HandlePNG(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, render.PNG)
}

func (h *ChartHandler) handle(w http.ResponseWriter, r *http.Request, format render.Format) {
	const op = "api.chart"
	id, err := panel.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	var opts []render.Option
	width, werr := sizeParam(r, "width")
	height, herr := sizeParam(r, "height")
	if err := errors.Join(werr, herr); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if width > 0 || height > 0 {
		opts = append(opts, render.WithSize(width, height))
	}

	snap := h.deps.Snapshot()
	img, err := render.Panel(id, format, snap.Records, snap.PatientStats, opts...)
	switch {
	case err == nil:
	case errors.Is(err, render.ErrNoData):
		writeError(w, http.StatusNotFound, "no_data", WrapKind(op, ErrNoData, err))
		return
	default:
		writeError(w, http.StatusInternalServerError, "render_failed", WrapKind(op, ErrRender, err))
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img)
}

// sizeParam reads an optional pixel dimension; zero means the renderer default.
func sizeParam(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < minChartSize || n > maxChartSize {
		return 0, errors.New("invalid " + name + "; must be an integer between 100 and 2000")
	}
	return n, nil
}
