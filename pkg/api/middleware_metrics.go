package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dd0wney/cluso-navigator/pkg/api/middleware"
)

// instrument records request metrics labelled with the route path rather
// than the raw URL, so IDs do not become label values.
func (s *Server) instrument(path string, next http.Handler) http.Handler {
	if s.metrics == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		s.metrics.HTTPRequestsInFlight.Inc()
		defer s.metrics.HTTPRequestsInFlight.Dec()

		rec := middleware.NewStatusRecorder(w)
		next.ServeHTTP(rec, r)

		s.metrics.RecordHTTPRequest(r.Method, path, strconv.Itoa(rec.Status), time.Since(start))
		s.metrics.HTTPResponseSizeBytes.WithLabelValues(r.Method, path).Observe(float64(rec.Bytes))
	})
}
