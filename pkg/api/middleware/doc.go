// Package middleware provides HTTP middleware for the navigator API server.
//
// The package is organized into separate files by concern:
//
//   - recovery.go: Panic recovery middleware
//   - logging.go: Structured request logging
//   - cors.go: Cross-Origin Resource Sharing (CORS) middleware
//   - security_headers.go: Security headers middleware
//   - body_limit.go: Request body size limiting middleware
//   - request_id.go: Request ID generation and tracking middleware
//   - ratelimit.go: Per-client rate limiting with a token bucket
//
// All middleware follows the standard pattern: func(http.Handler) http.Handler
// so it can be chained with Chain.
//
// Example usage:
//
//	mux := http.NewServeMux()
//	// ... register handlers ...
//
//	handler := middleware.Chain(mux,
//		middleware.PanicRecovery(logger),
//		middleware.RequestID(),
//		middleware.Logging(logger),
//	)
//
//	http.ListenAndServe(":8080", handler)
package middleware

import "net/http"

// Middleware wraps a handler.
type Middleware func(http.Handler) http.Handler

// Chain applies middleware so the first one listed runs first.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] != nil {
			h = mws[i](h)
		}
	}
	return h
}
