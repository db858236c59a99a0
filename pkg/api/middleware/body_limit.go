package middleware

import (
	"net/http"
)

// RejectFunc writes the response for a request a middleware refused.
type RejectFunc func(w http.ResponseWriter, r *http.Request, status int, message string)

func plainReject(w http.ResponseWriter, _ *http.Request, status int, message string) {
	http.Error(w, message, status)
}

// BodySizeLimit caps request bodies at maxBytes. A declared Content-Length
// over the cap is refused before the handler runs; otherwise the body is
// wrapped in http.MaxBytesReader and the handler sees *http.MaxBytesError.
// maxBytes <= 0 disables the limit. A nil reject writes plain text.
func BodySizeLimit(maxBytes int64, reject RejectFunc) Middleware {
	if reject == nil {
		reject = plainReject
	}
	return func(next http.Handler) http.Handler {
		if maxBytes <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				reject(w, r, http.StatusRequestEntityTooLarge, "request body too large")
				return
			}
			if r.Body != nil && r.Body != http.NoBody {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}
