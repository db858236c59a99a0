package middleware

import (
	"net/http"
)

// SecurityHeadersConfig holds configuration for security headers
type SecurityHeadersConfig struct {
	TLSEnabled bool // adds Strict-Transport-Security
}

// SecurityHeaders creates middleware that adds security headers to every
// response. The API serves JSON only, so the content policy denies
// everything.
func SecurityHeaders(config *SecurityHeadersConfig) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Frame-Options", "DENY")
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
			h.Set("Referrer-Policy", "no-referrer")
			// Location stays allowed: route clients may ask for the user's position.
			h.Set("Permissions-Policy", "microphone=(), camera=()")
			if config != nil && config.TLSEnabled {
				h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}
