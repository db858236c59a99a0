package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/dd0wney/cluso-navigator/pkg/algorithms"
	"github.com/dd0wney/cluso-navigator/pkg/api/middleware"
	"github.com/dd0wney/cluso-navigator/pkg/auth"
	"github.com/dd0wney/cluso-navigator/pkg/constraints"
	"github.com/dd0wney/cluso-navigator/pkg/ingest"
	"github.com/dd0wney/cluso-navigator/pkg/logging"
	"github.com/dd0wney/cluso-navigator/pkg/navigator"
	"github.com/dd0wney/cluso-navigator/pkg/storage"
	"github.com/dd0wney/cluso-navigator/pkg/validation"
)

// ErrorKind names an error class in API responses.
type ErrorKind string

const (
	KindValidation   ErrorKind = "ValidationError"
	KindNotFound     ErrorKind = "NotFoundError"
	KindNoPath       ErrorKind = "NoPathError"
	KindTimeout      ErrorKind = "TimeoutError"
	KindConflict     ErrorKind = "ConflictError"
	KindRejected     ErrorKind = "RejectedError"
	KindForbidden    ErrorKind = "ForbiddenError"
	KindUnavailable  ErrorKind = "UnavailableError"
	KindInternal     ErrorKind = "InternalError"
	KindUnauthorized ErrorKind = "UnauthorizedError"
	KindTooLarge     ErrorKind = "PayloadTooLargeError"
	KindReadOnly     ErrorKind = "ReadOnlyError"
	KindRateLimited  ErrorKind = "RateLimitError"
)

// Classify maps a navigator error to its API kind and HTTP status.
func Classify(err error) (ErrorKind, int) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return KindTooLarge, http.StatusRequestEntityTooLarge
	case errors.Is(err, validation.ErrValidation),
		errors.Is(err, ingest.ErrInvalidDocument),
		errors.Is(err, ingest.ErrInvalidTMX),
		errors.Is(err, constraints.ErrInvalidConstraint),
		errors.Is(err, constraints.ErrUnknownTarget):
		return KindValidation, http.StatusBadRequest
	case storage.IsNotFound(err), errors.Is(err, constraints.ErrConstraintNotFound):
		return KindNotFound, http.StatusNotFound
	case algorithms.IsTimeout(err):
		return KindTimeout, http.StatusGatewayTimeout
	case algorithms.IsNoPath(err):
		return KindNoPath, http.StatusUnprocessableEntity
	case errors.Is(err, constraints.ErrDuplicateConstraint), errors.Is(err, constraints.ErrStaleSet):
		return KindConflict, http.StatusConflict
	case storage.IsRejected(err):
		return KindRejected, http.StatusUnprocessableEntity
	case errors.Is(err, auth.ErrLevelNotPermitted):
		return KindForbidden, http.StatusForbidden
	case errors.Is(err, navigator.ErrClosed):
		return KindUnavailable, http.StatusServiceUnavailable
	}
	return KindInternal, http.StatusInternalServerError
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("failed to encode response", logging.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, kind ErrorKind, message string) {
	s.respondJSON(w, status, ErrorResponse{
		Error:   string(kind),
		Message: message,
		Code:    status,
	})
}

// respondErr classifies err. Internal errors are logged in full and
// reported to the client by operation name only.
func (s *Server) respondErr(w http.ResponseWriter, r *http.Request, op string, err error) {
	kind, status := Classify(err)
	msg := err.Error()
	if kind == KindInternal {
		s.logger.Error(op+" failed",
			logging.Operation(op),
			logging.RequestID(middleware.GetRequestID(r)),
			logging.Error(err))
		msg = op + " failed"
	}
	s.respondError(w, status, kind, msg)
}

// requestDecoder decodes and validates request bodies.
// It provides a fluent interface for common request handling patterns.
type requestDecoder struct {
	r      *http.Request
	w      http.ResponseWriter
	server *Server
	err    error
}

// NewRequestDecoder creates a new request decoder for the given request.
func (s *Server) NewRequestDecoder(w http.ResponseWriter, r *http.Request) *requestDecoder {
	return &requestDecoder{r: r, w: w, server: s}
}

// DecodeJSON decodes the request body into v, rejecting unknown fields.
func (rd *requestDecoder) DecodeJSON(v any) *requestDecoder {
	if rd.err != nil {
		return rd
	}
	dec := json.NewDecoder(rd.r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			rd.err = err
		} else {
			rd.err = fmt.Errorf("%w: invalid request body: %v", validation.ErrValidation, err)
		}
	}
	return rd
}

// Validate runs fn unless an earlier step failed.
func (rd *requestDecoder) Validate(fn func() error) *requestDecoder {
	if rd.err == nil {
		rd.err = fn()
	}
	return rd
}

// RespondError sends the error response and returns true if there was an error.
func (rd *requestDecoder) RespondError() bool {
	if rd.err == nil {
		return false
	}
	rd.server.respondErr(rd.w, rd.r, "decode request", rd.err)
	return true
}

// queryParams reads and validates query string parameters.
type queryParams struct {
	r   *http.Request
	err error
}

func params(r *http.Request) *queryParams {
	return &queryParams{r: r}
}

// Time parses an RFC 3339 timestamp; absent means zero (now).
func (q *queryParams) Time(name string) time.Time {
	v := q.r.URL.Query().Get(name)
	if v == "" || q.err != nil {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		q.err = fmt.Errorf("%w: %s: %q is not an RFC 3339 time", validation.ErrValidation, name, v)
	}
	return t
}

// Level parses an access level name; absent means LevelNone.
func (q *queryParams) Level(name string) constraints.AccessLevel {
	v := q.r.URL.Query().Get(name)
	if v == "" || q.err != nil {
		return constraints.LevelNone
	}
	l, err := constraints.ParseAccessLevel(v)
	if err != nil {
		q.err = fmt.Errorf("%w: %s: %v", validation.ErrValidation, name, err)
	}
	return l
}

func (q *queryParams) Bool(name string) bool {
	v := q.r.URL.Query().Get(name)
	if v == "" || q.err != nil {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		q.err = fmt.Errorf("%w: %s: %q is not a boolean", validation.ErrValidation, name, v)
	}
	return b
}

// Float parses a non-negative number, returning def when absent.
func (q *queryParams) Float(name string, def float64) float64 {
	v := q.r.URL.Query().Get(name)
	if v == "" || q.err != nil {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		q.err = fmt.Errorf("%w: %s: %q is not a non-negative number", validation.ErrValidation, name, v)
	}
	return f
}

// Int parses a non-negative integer, returning def when absent.
func (q *queryParams) Int(name string, def int) int {
	v := q.r.URL.Query().Get(name)
	if v == "" || q.err != nil {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		q.err = fmt.Errorf("%w: %s: %q is not a non-negative integer", validation.ErrValidation, name, v)
	}
	return n
}

func (q *queryParams) Err() error { return q.err }

// pathID reads and validates a {name} path value.
func pathID(r *http.Request, name string) (string, error) {
	id := r.PathValue(name)
	return id, validation.ValidateID(name, id)
}

// requester derives the requester context from the request's claims.
func requester(r *http.Request, level string, stepFree bool) (constraints.RequesterContext, error) {
	var requested constraints.AccessLevel
	if level != "" {
		l, err := constraints.ParseAccessLevel(level)
		if err != nil {
			return constraints.RequesterContext{}, fmt.Errorf("%w: access_level: %v", validation.ErrValidation, err)
		}
		requested = l
	}
	return auth.Requester(auth.ClaimsFromContext(r.Context()), requested, stepFree)
}

func optionalTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
