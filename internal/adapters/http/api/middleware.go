// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/okian/cardioviz/pkg/metrics"
)

// MetricsMiddleware wraps HTTP handlers to record Prometheus metrics. Failed requests are
// counted under the error code the handler answered with.
func MetricsMiddleware(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		status := strconv.Itoa(rec.status)
		metrics.RecordHTTPRequest(endpoint, r.Method, status)
		metrics.RecordHTTPRequestDuration(endpoint, r.Method, status, float64(time.Since(start).Milliseconds()))

		if rec.status >= http.StatusBadRequest {
			metrics.RecordErrorByComponent("http", rec.errorKind())
		}
	}
}

// statusRecorder remembers the status and the error code written through it.
type statusRecorder struct {
	http.ResponseWriter
	status int
	code   string
}

func (rec *statusRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

func (rec *statusRecorder) Write(b []byte) (int, error) {
	n, err := rec.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("failed to write response: %w", err)
	}
	return n, nil
}

// errorKind is the API error code, or a status class for responses written elsewhere
// (promhttp, file servers).
func (rec *statusRecorder) errorKind() string {
	if rec.code != "" {
		return rec.code
	}
	if rec.status >= http.StatusInternalServerError {
		return "internal_error"
	}
	return "client_error"
}

// tagErrorCode lets writeError report its code to an enclosing MetricsMiddleware.
func tagErrorCode(w http.ResponseWriter, code string) {
	if rec, ok := w.(*statusRecorder); ok {
		rec.code = code
	}
}
