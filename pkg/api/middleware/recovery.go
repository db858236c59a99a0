package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/dd0wney/cluso-navigator/pkg/logging"
)

// PanicRecovery creates middleware that recovers from panics in HTTP handlers.
// The panic and stack are logged; the client only sees a generic 500.
func PanicRecovery(logger logging.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler {
						panic(err)
					}
					logger.Error("panic in HTTP handler",
						logging.String("method", r.Method),
						logging.Path(r.URL.Path),
						logging.RequestID(GetRequestID(r)),
						logging.String("panic", fmt.Sprint(err)),
						logging.String("stack", string(debug.Stack())))

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_, _ = w.Write([]byte(`{"error":"InternalError","message":"internal server error","code":500}` + "\n"))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
