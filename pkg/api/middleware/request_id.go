package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

const maxRequestIDLength = 64

type requestIDKey struct{}

// GetRequestID returns the ID RequestID assigned to r.
func GetRequestID(r *http.Request) string {
	return RequestIDFromContext(r.Context())
}

// RequestIDFromContext returns the request ID stored by RequestID, if any.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// WithRequestID returns a context carrying id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func requestIDRune(c rune) rune {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return c
	case c == '-' || c == '_' || c == '.':
		return c
	}
	return -1
}

// cleanRequestID keeps [A-Za-z0-9._-] and truncates to maxRequestIDLength.
func cleanRequestID(id string) string {
	id = strings.Map(requestIDRune, id)
	if len(id) > maxRequestIDLength {
		id = id[:maxRequestIDLength]
	}
	return id
}

// RequestID tags each request with an ID, echoed in X-Request-ID. A
// client-supplied ID survives if anything is left after cleaning;
// otherwise a UUID is generated.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := cleanRequestID(r.Header.Get(RequestIDHeader))
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, id)
			next.ServeHTTP(w, r.WithContext(WithRequestID(r.Context(), id)))
		})
	}
}
