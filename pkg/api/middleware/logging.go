package middleware

import (
	"net/http"
	"time"

	"github.com/dd0wney/cluso-navigator/pkg/logging"
)

// StatusRecorder captures the status code and size of a response.
type StatusRecorder struct {
	http.ResponseWriter
	Status int
	Bytes  int
}

// NewStatusRecorder wraps w. The status defaults to 200.
func NewStatusRecorder(w http.ResponseWriter) *StatusRecorder {
	return &StatusRecorder{ResponseWriter: w, Status: http.StatusOK}
}

func (w *StatusRecorder) WriteHeader(statusCode int) {
	w.Status = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *StatusRecorder) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.Bytes += n
	return n, err
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *StatusRecorder) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// Logging creates middleware that logs each request with its status and
// latency. Server errors log at warn, everything else at debug.
func Logging(logger logging.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := NewStatusRecorder(w)
			next.ServeHTTP(rec, r)

			fields := []logging.Field{
				logging.String("method", r.Method),
				logging.Path(r.URL.Path),
				logging.Int("status", rec.Status),
				logging.Int("bytes", rec.Bytes),
				logging.Latency(time.Since(start)),
			}
			if id := GetRequestID(r); id != "" {
				fields = append(fields, logging.RequestID(id))
			}

			if rec.Status >= http.StatusInternalServerError {
				logger.Warn("request failed", fields...)
			} else {
				logger.Debug("request", fields...)
			}
		})
	}
}
