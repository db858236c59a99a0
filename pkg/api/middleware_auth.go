package api

import (
	"net/http"
	"strings"

	"github.com/dd0wney/cluso-navigator/pkg/auth"
	"github.com/dd0wney/cluso-navigator/pkg/logging"
)

// bearerToken returns the credential from "Authorization: Bearer" or
// X-API-Key, and the auth method name used for metrics.
func bearerToken(r *http.Request) (token, method string) {
	if h := r.Header.Get("Authorization"); len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		token = strings.TrimSpace(h[7:])
	} else if k := r.Header.Get("X-API-Key"); k != "" {
		token = k
	}
	if token == "" {
		return "", ""
	}
	if strings.HasPrefix(token, auth.KeyPrefix) {
		return token, "apikey"
	}
	return token, "jwt"
}

// authenticate attaches claims from an optional credential. Requests
// without one continue anonymously; a bad credential is rejected.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, method := bearerToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}
		if s.auth == nil {
			s.respondError(w, http.StatusUnauthorized, KindUnauthorized, "authentication is not configured")
			return
		}

		claims, err := s.auth.ValidateToken(r.Context(), token)
		if err != nil {
			if s.metrics != nil {
				s.metrics.RecordAuthFailure(method)
			}
			s.logger.Debug("token rejected",
				logging.String("method", method),
				logging.Path(r.URL.Path),
				logging.Error(err))
			s.respondError(w, http.StatusUnauthorized, KindUnauthorized, "invalid or expired credentials")
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
	})
}

// requireAuth rejects anonymous requests when the server requires auth.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.RequireAuth && auth.ClaimsFromContext(r.Context()) == nil {
			s.respondError(w, http.StatusUnauthorized, KindUnauthorized,
				"missing authentication (Bearer token or X-API-Key header required)")
			return
		}
		next(w, r)
	}
}

// requireAdmin only admits admin tokens and API keys.
func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.auth == nil {
			s.respondError(w, http.StatusForbidden, KindForbidden, "admin API is disabled")
			return
		}
		claims := auth.ClaimsFromContext(r.Context())
		if claims == nil {
			s.respondError(w, http.StatusUnauthorized, KindUnauthorized, "authentication required")
			return
		}
		if !claims.IsAdmin() {
			if s.metrics != nil {
				s.metrics.SecurityUnauthorizedAccessTotal.Inc()
			}
			s.logger.Warn("admin access denied",
				logging.String("user_id", claims.UserID),
				logging.String("method", r.Method),
				logging.Path(r.URL.Path))
			s.respondError(w, http.StatusForbidden, KindForbidden, "admin access required")
			return
		}
		next(w, r)
	}
}

// writable rejects changes on a read-only server.
func (s *Server) writable(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.ReadOnly {
			s.respondError(w, http.StatusConflict, KindReadOnly, "this server is a read-only replica")
			return
		}
		next(w, r)
	}
}
