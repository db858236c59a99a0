package api

import (
	"net/http"

	"github.com/dd0wney/cluso-navigator/pkg/api/middleware"
	"github.com/dd0wney/cluso-navigator/pkg/auth"
)

// middleware wraps the mux in the server-wide chain. Recovery runs
// outermost so a panic anywhere below still yields a JSON 500. Rate
// limiting follows authentication so signed-in users get their own bucket.
func (s *Server) middleware(h http.Handler) http.Handler {
	return middleware.Chain(h,
		middleware.PanicRecovery(s.logger),
		middleware.RequestID(),
		middleware.Logging(s.logger),
		middleware.SecurityHeaders(&middleware.SecurityHeadersConfig{TLSEnabled: s.cfg.TLSEnabled}),
		middleware.CORS(s.cfg.CORS),
		middleware.BodySizeLimit(s.cfg.MaxBodyBytes, s.reject),
		s.authenticate,
		middleware.RateLimit(s.rateLimiter, rateLimitKey, s.rateLimited),
	)
}

// rateLimitKey buckets authenticated requests by user and the rest by IP.
func rateLimitKey(r *http.Request) string {
	if c := auth.ClaimsFromContext(r.Context()); c != nil && c.UserID != "" {
		return "user:" + c.UserID
	}
	return "ip:" + middleware.RemoteIP(r)
}

func (s *Server) rateLimited(w http.ResponseWriter, r *http.Request, client string) {
	if s.metrics != nil {
		kind := "ip"
		if auth.ClaimsFromContext(r.Context()) != nil {
			kind = "user"
		}
		s.metrics.RecordRateLimited(kind)
	}
	s.respondError(w, http.StatusTooManyRequests, KindRateLimited, "rate limit exceeded")
}

// reject writes middleware refusals in the API error format.
func (s *Server) reject(w http.ResponseWriter, _ *http.Request, status int, message string) {
	kind := KindValidation
	if status == http.StatusRequestEntityTooLarge {
		kind = KindTooLarge
	}
	s.respondError(w, status, kind, message)
}
