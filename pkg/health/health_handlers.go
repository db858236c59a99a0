package health

import (
	"context"
	"encoding/json"
	"net/http"
)

// HTTPHandler returns an HTTP handler for the health check endpoint.
// Degraded still answers 200.
func (hc *HealthChecker) HTTPHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := hc.Check(r.Context())

		status := http.StatusOK
		if response.Status == StatusUnhealthy {
			status = http.StatusServiceUnavailable
		}
		writeResponse(w, status, response)
	}
}

// ReadinessHandler returns an HTTP handler for readiness checks
func (hc *HealthChecker) ReadinessHandler() http.HandlerFunc {
	return binaryHandler(hc.CheckReadiness)
}

// LivenessHandler returns an HTTP handler for liveness checks
func (hc *HealthChecker) LivenessHandler() http.HandlerFunc {
	return binaryHandler(hc.CheckLiveness)
}

// Register mounts /health, /health/live and /health/ready on mux.
func (hc *HealthChecker) Register(mux *http.ServeMux) {
	mux.Handle("GET /health", hc.HTTPHandler())
	mux.Handle("GET /health/live", hc.LivenessHandler())
	mux.Handle("GET /health/ready", hc.ReadinessHandler())
}

// binaryHandler answers 200 only when every check is healthy.
func binaryHandler(run func(ctx context.Context) Response) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := run(r.Context())

		status := http.StatusOK
		if response.Status != StatusHealthy {
			status = http.StatusServiceUnavailable
		}
		writeResponse(w, status, response)
	}
}

func writeResponse(w http.ResponseWriter, status int, response Response) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(response)
}
