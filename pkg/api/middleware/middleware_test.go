package middleware

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dd0wney/cluso-navigator/pkg/logging"
	"github.com/google/uuid"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

// --- Chain ---

func TestChain_Order(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Chain(ok, mark("first"), nil, mark("second"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	if strings.Join(order, ",") != "first,second" {
		t.Errorf("Expected first,second, got %v", order)
	}
}

// --- BodySizeLimit Tests ---

func TestBodySizeLimit_AllowsSmallRequest(t *testing.T) {
	handler := BodySizeLimit(1024, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Write(body)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("POST", "/", strings.NewReader("small body")))

	if rr.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, rr.Code)
	}
}

func TestBodySizeLimit_RejectsLargeContentLength(t *testing.T) {
	handler := BodySizeLimit(100, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Handler should not be called for oversized request")
	}))

	req := httptest.NewRequest("POST", "/", strings.NewReader(""))
	req.ContentLength = 1000

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("Expected status %d, got %d", http.StatusRequestEntityTooLarge, rr.Code)
	}
}

func TestBodySizeLimit_LimitsActualBody(t *testing.T) {
	var readErr error
	handler := BodySizeLimit(10, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, readErr = io.ReadAll(r.Body)
	}))

	req := httptest.NewRequest("POST", "/", strings.NewReader(strings.Repeat("x", 100)))
	req.ContentLength = -1
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if readErr == nil {
		t.Error("Expected read error for oversized body")
	}
}

func TestBodySizeLimit_CustomReject(t *testing.T) {
	var status int
	handler := BodySizeLimit(4, func(w http.ResponseWriter, r *http.Request, code int, msg string) {
		status = code
		w.WriteHeader(code)
	})(ok)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("POST", "/", strings.NewReader("too long")))
	if status != http.StatusRequestEntityTooLarge || rr.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("reject status = %d, response = %d", status, rr.Code)
	}
}

func TestBodySizeLimit_Disabled(t *testing.T) {
	var n int
	handler := BodySizeLimit(0, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		n = len(body)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/", strings.NewReader(strings.Repeat("x", 4096))))
	if n != 4096 {
		t.Errorf("read %d bytes, want 4096", n)
	}
}

// --- PanicRecovery Tests ---

func TestPanicRecovery_HandlesNormalRequest(t *testing.T) {
	rr := httptest.NewRecorder()
	PanicRecovery(logging.NewNopLogger())(ok).ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))

	if rr.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, rr.Code)
	}
}

func TestPanicRecovery_RecoversPanic(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewJSONLogger(&buf, logging.DebugLevel)

	handler := PanicRecovery(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("secret internal detail")
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/boom", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("Expected status %d, got %d", http.StatusInternalServerError, rr.Code)
	}
	if strings.Contains(rr.Body.String(), "secret") {
		t.Error("Response should not expose panic details")
	}
	if !strings.Contains(buf.String(), "secret internal detail") {
		t.Error("Panic should be logged")
	}
}

// --- Logging Tests ---

func TestLogging_RecordsStatusAndRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewJSONLogger(&buf, logging.DebugLevel)

	handler := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("short and stout"))
	}), RequestID(), Logging(logger))

	req := httptest.NewRequest("GET", "/v1/buildings", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	for _, want := range []string{`"status":418`, `"request_id":"req-42"`, `"/v1/buildings"`, `"bytes":15`} {
		if !strings.Contains(out, want) {
			t.Errorf("Log %q missing %s", out, want)
		}
	}
}

func TestLogging_ServerErrorsWarn(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewJSONLogger(&buf, logging.WarnLevel)

	Logging(logger)(ok).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
	if buf.Len() != 0 {
		t.Errorf("Successful request logged at warn: %s", buf.String())
	}

	Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
	if !strings.Contains(buf.String(), "request failed") {
		t.Errorf("Expected warn for 503, got %q", buf.String())
	}
}

// --- RequestID Tests ---

func TestRequestID_GeneratesUUID(t *testing.T) {
	var ctxID string
	handler := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxID = GetRequestID(r)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))

	headerID := rr.Header().Get(RequestIDHeader)
	if _, err := uuid.Parse(headerID); err != nil {
		t.Errorf("Expected UUID request ID, got %q", headerID)
	}
	if ctxID != headerID {
		t.Errorf("Context ID %q != header ID %q", ctxID, headerID)
	}
}

func TestRequestID_UsesClientProvided(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(RequestIDHeader, "client-id-123")
	RequestID()(ok).ServeHTTP(rr, req)

	if got := rr.Header().Get(RequestIDHeader); got != "client-id-123" {
		t.Errorf("Expected client-id-123, got %q", got)
	}
}

func TestRequestID_ReplacesUnusable(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(RequestIDHeader, "<>!!")
	RequestID()(ok).ServeHTTP(rr, req)

	if _, err := uuid.Parse(rr.Header().Get(RequestIDHeader)); err != nil {
		t.Errorf("Expected generated UUID, got %q", rr.Header().Get(RequestIDHeader))
	}
}

func TestCleanRequestID(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"abc-123_def.456", "abc-123_def.456"},
		{"abc<script>", "abcscript"},
		{"a b\nc", "abc"},
		{strings.Repeat("x", 100), strings.Repeat("x", 64)},
		{strings.Repeat("<", 80) + "ok", "ok"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := cleanRequestID(tt.input); got != tt.expected {
			t.Errorf("cleanRequestID(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestGetRequestID_NoContext(t *testing.T) {
	if id := GetRequestID(httptest.NewRequest("GET", "/", nil)); id != "" {
		t.Errorf("Expected empty ID, got %q", id)
	}
}

func TestRequestID_ReachesHandler(t *testing.T) {
	var seen string
	h := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r)
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))
	if seen == "" || seen != rr.Header().Get(RequestIDHeader) {
		t.Errorf("handler saw %q, header %q", seen, rr.Header().Get(RequestIDHeader))
	}
}

// --- CORS Tests ---

func TestCORS_AllowedOrigin(t *testing.T) {
	cfg := DefaultCORSConfig()
	cfg.AllowedOrigins = []string{"https://map.example.edu"}

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Origin", "https://map.example.edu")
	rr := httptest.NewRecorder()
	CORS(cfg)(ok).ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://map.example.edu" {
		t.Errorf("Expected origin echoed, got %q", got)
	}
	if rr.Header().Get("Access-Control-Max-Age") != "86400" {
		t.Error("Expected Max-Age header")
	}
}

func TestCORS_DisallowedOrigin(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rr := httptest.NewRecorder()
	CORS(nil)(ok).ServeHTTP(rr, req)

	if rr.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("Disallowed origin should not get CORS headers")
	}
	if rr.Code != http.StatusOK {
		t.Errorf("Simple requests still reach the handler, got %d", rr.Code)
	}
}

func TestCORS_Preflight(t *testing.T) {
	cfg := DefaultCORSConfig()
	cfg.AllowedOrigins = []string{"*"}

	tests := []struct {
		origin string
		config *CORSConfig
		want   int
	}{
		{"https://any.example.com", cfg, http.StatusNoContent},
		{"https://any.example.com", nil, http.StatusForbidden},
	}
	for _, tt := range tests {
		req := httptest.NewRequest("OPTIONS", "/v1/routes", nil)
		req.Header.Set("Origin", tt.origin)
		req.Header.Set("Access-Control-Request-Method", "POST")
		rr := httptest.NewRecorder()
		CORS(tt.config)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("Preflight should not reach the handler")
		})).ServeHTTP(rr, req)

		if rr.Code != tt.want {
			t.Errorf("Preflight status = %d, want %d", rr.Code, tt.want)
		}
	}
}

// --- SecurityHeaders Tests ---

func TestSecurityHeaders(t *testing.T) {
	rr := httptest.NewRecorder()
	SecurityHeaders(&SecurityHeadersConfig{TLSEnabled: true})(ok).ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))

	for _, h := range []string{"X-Frame-Options", "X-Content-Type-Options", "Content-Security-Policy", "Strict-Transport-Security"} {
		if rr.Header().Get(h) == "" {
			t.Errorf("Missing header %s", h)
		}
	}

	rr = httptest.NewRecorder()
	SecurityHeaders(nil)(ok).ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))
	if rr.Header().Get("Strict-Transport-Security") != "" {
		t.Error("HSTS should only be sent with TLS")
	}
}

// --- RateLimiter Tests ---

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newLimiter(t *testing.T, cfg *RateLimitConfig) (*RateLimiter, *fakeClock) {
	t.Helper()
	rl := NewRateLimiter(cfg, logging.NewNopLogger())
	t.Cleanup(rl.Stop)
	clock := &fakeClock{t: time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)}
	rl.now = clock.now
	return rl, clock
}

func TestRateLimiter_AllowBurst(t *testing.T) {
	rl, _ := newLimiter(t, &RateLimitConfig{RequestsPerSecond: 1, BurstSize: 3})

	for i := 0; i < 3; i++ {
		if !rl.Allow("client") {
			t.Errorf("Request %d within burst was denied", i)
		}
	}
	if rl.Allow("client") {
		t.Error("Request beyond burst should be denied")
	}
	if !rl.Allow("other") {
		t.Error("Other clients have their own bucket")
	}
}

func TestRateLimiter_Refill(t *testing.T) {
	rl, clock := newLimiter(t, &RateLimitConfig{RequestsPerSecond: 10, BurstSize: 2})

	rl.Allow("c")
	rl.Allow("c")
	if rl.Allow("c") {
		t.Fatal("Bucket should be empty")
	}
	clock.advance(50 * time.Millisecond)
	if rl.Allow("c") {
		t.Error("Half a token is not enough")
	}
	clock.advance(time.Hour)
	if !rl.Allow("c") || !rl.Allow("c") {
		t.Error("Bucket should have refilled to its burst")
	}
	if rl.Allow("c") {
		t.Error("Refill must not exceed the burst size")
	}
}

func TestRateLimiter_Defaults(t *testing.T) {
	rl, _ := newLimiter(t, &RateLimitConfig{RequestsPerSecond: 0.5})
	cfg := rl.Config()
	if cfg.BurstSize != 1 {
		t.Errorf("BurstSize = %d, want 1", cfg.BurstSize)
	}
	if cfg.RetryAfter() != 2 {
		t.Errorf("RetryAfter = %d, want 2", cfg.RetryAfter())
	}
	if cfg.CleanupInterval <= 0 || cfg.ClientExpiration <= 0 {
		t.Errorf("intervals not defaulted: %+v", cfg)
	}
}

func TestRateLimiter_MaxClients(t *testing.T) {
	rl, _ := newLimiter(t, &RateLimitConfig{RequestsPerSecond: 1, BurstSize: 1, MaxClients: 2})

	rl.Allow("a")
	rl.Allow("b")
	if rl.Allow("c") {
		t.Error("Third client should be rejected")
	}
	if got := rl.Clients(); got != 2 {
		t.Errorf("Clients = %d, want 2", got)
	}
}

func TestRateLimiter_Sweep(t *testing.T) {
	rl, clock := newLimiter(t, &RateLimitConfig{
		RequestsPerSecond: 1,
		BurstSize:         1,
		ClientExpiration:  time.Minute,
		MaxClients:        1,
	})

	rl.Allow("a")
	clock.advance(30 * time.Second)
	rl.sweep()
	if rl.Clients() != 1 {
		t.Fatal("Active client swept too early")
	}

	clock.advance(2 * time.Minute)
	rl.sweep()
	if got := rl.Clients(); got != 0 {
		t.Errorf("Clients = %d after sweep, want 0", got)
	}
	if !rl.Allow("b") {
		t.Error("Sweep should free room for new clients")
	}
}

func TestRateLimit_Middleware(t *testing.T) {
	rl, _ := newLimiter(t, &RateLimitConfig{RequestsPerSecond: 1, BurstSize: 1})

	send := func(h http.Handler) *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", "/v1/routes", nil)
		req.RemoteAddr = "10.0.0.7:5555"
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr
	}

	handler := RateLimit(rl, nil, nil)(ok)
	if rr := send(handler); rr.Code != http.StatusOK {
		t.Errorf("First request status = %d", rr.Code)
	}
	rr := send(handler)
	if rr.Code != http.StatusTooManyRequests {
		t.Errorf("Second request status = %d, want 429", rr.Code)
	}
	if rr.Header().Get("Retry-After") != "1" {
		t.Errorf("Retry-After = %q, want 1", rr.Header().Get("Retry-After"))
	}

	limited := ""
	custom := RateLimit(rl, nil, func(w http.ResponseWriter, r *http.Request, client string) {
		limited = client
		w.WriteHeader(http.StatusServiceUnavailable)
	})(ok)
	if rr := send(custom); rr.Code != http.StatusServiceUnavailable {
		t.Errorf("Custom limited status = %d", rr.Code)
	}
	if limited != "10.0.0.7" {
		t.Errorf("onLimited client = %q, want 10.0.0.7", limited)
	}
}

func TestRateLimit_ClientID(t *testing.T) {
	rl, _ := newLimiter(t, &RateLimitConfig{RequestsPerSecond: 1, BurstSize: 1})
	handler := RateLimit(rl, func(r *http.Request) string { return r.Header.Get("X-User") }, nil)(ok)

	for _, user := range []string{"ada", "grace"} {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("X-User", user)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Errorf("%s: status = %d, want 200 from own bucket", user, rr.Code)
		}
	}
}

func TestRateLimit_NilLimiter(t *testing.T) {
	rr := httptest.NewRecorder()
	RateLimit(nil, nil, nil)(ok).ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))
	if rr.Code != http.StatusOK {
		t.Errorf("Expected pass-through, got %d", rr.Code)
	}
}
