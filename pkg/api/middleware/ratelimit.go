package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/dd0wney/cluso-navigator/pkg/logging"
)

// RateLimitConfig configures per-client token buckets.
type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
	CleanupInterval   time.Duration
	// ClientExpiration drops buckets idle for longer than this.
	ClientExpiration time.Duration
	// MaxClients caps tracked buckets. New clients beyond it are refused.
	MaxClients int
}

// DefaultRateLimitConfig returns defaults sized for route queries.
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		RequestsPerSecond: 20,
		BurstSize:         40,
		CleanupInterval:   5 * time.Minute,
		ClientExpiration:  10 * time.Minute,
		MaxClients:        100000,
	}
}

func (c *RateLimitConfig) withDefaults() *RateLimitConfig {
	d := DefaultRateLimitConfig()
	if c == nil {
		return d
	}
	out := *c
	if out.RequestsPerSecond <= 0 {
		out.RequestsPerSecond = d.RequestsPerSecond
	}
	if out.BurstSize <= 0 {
		out.BurstSize = max(1, int(math.Ceil(out.RequestsPerSecond)))
	}
	if out.CleanupInterval <= 0 {
		out.CleanupInterval = d.CleanupInterval
	}
	if out.ClientExpiration <= 0 {
		out.ClientExpiration = d.ClientExpiration
	}
	return &out
}

// RetryAfter is the whole number of seconds until one token refills.
func (c *RateLimitConfig) RetryAfter() int {
	return max(1, int(math.Ceil(1/c.RequestsPerSecond)))
}

type bucket struct {
	tokens float64
	seen   time.Time
}

// RateLimiter hands out tokens per client key.
type RateLimiter struct {
	cfg    *RateLimitConfig
	logger logging.Logger
	now    func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
	full    bool // MaxClients reached; logged once per episode

	stop     chan struct{}
	stopOnce sync.Once
}

// NewRateLimiter starts a limiter and its sweeper. Call Stop to release it.
func NewRateLimiter(cfg *RateLimitConfig, logger logging.Logger) *RateLimiter {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	rl := &RateLimiter{
		cfg:     cfg.withDefaults(),
		logger:  logger,
		now:     time.Now,
		buckets: make(map[string]*bucket),
		stop:    make(chan struct{}),
	}
	go rl.sweepLoop()
	return rl
}

// Config returns the effective configuration.
func (rl *RateLimiter) Config() RateLimitConfig {
	return *rl.cfg
}

// Allow takes one token from client's bucket.
func (rl *RateLimiter) Allow(client string) bool {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[client]
	if !ok {
		if rl.cfg.MaxClients > 0 && len(rl.buckets) >= rl.cfg.MaxClients {
			if !rl.full {
				rl.full = true
				rl.logger.Warn("rate limiter full, refusing new clients",
					logging.Int("max_clients", rl.cfg.MaxClients))
			}
			return false
		}
		b = &bucket{tokens: float64(rl.cfg.BurstSize), seen: now}
		rl.buckets[client] = b
	}

	b.tokens = min(float64(rl.cfg.BurstSize), b.tokens+now.Sub(b.seen).Seconds()*rl.cfg.RequestsPerSecond)
	b.seen = now
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// Clients returns the number of tracked buckets.
func (rl *RateLimiter) Clients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}

func (rl *RateLimiter) sweepLoop() {
	ticker := time.NewTicker(rl.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.sweep()
		case <-rl.stop:
			return
		}
	}
}

// sweep drops idle buckets.
func (rl *RateLimiter) sweep() {
	cutoff := rl.now().Add(-rl.cfg.ClientExpiration)

	rl.mu.Lock()
	dropped := 0
	for client, b := range rl.buckets {
		if b.seen.Before(cutoff) {
			delete(rl.buckets, client)
			dropped++
		}
	}
	if dropped > 0 {
		rl.full = false
	}
	rl.mu.Unlock()

	if dropped > 0 {
		rl.logger.Debug("rate limiter sweep", logging.Count(dropped))
	}
}

// Stop ends the sweeper.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// ClientIDFunc names the bucket a request draws from.
type ClientIDFunc func(*http.Request) string

// RemoteIP keys requests by the host part of RemoteAddr.
func RemoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// LimitedFunc writes the response for a refused request. The Retry-After
// header is already set.
type LimitedFunc func(w http.ResponseWriter, r *http.Request, client string)

// RateLimit refuses requests whose client has no tokens left. A nil
// limiter passes everything through; a nil clientID keys by RemoteIP; a
// nil onLimited writes a plain 429.
func RateLimit(limiter *RateLimiter, clientID ClientIDFunc, onLimited LimitedFunc) Middleware {
	if clientID == nil {
		clientID = RemoteIP
	}
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		retryAfter := strconv.Itoa(limiter.cfg.RetryAfter())
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := clientID(r)
			if limiter.Allow(client) {
				next.ServeHTTP(w, r)
				return
			}

			limiter.logger.Debug("rate limited",
				logging.String("client", client),
				logging.Path(r.URL.Path))
			w.Header().Set("Retry-After", retryAfter)
			if onLimited != nil {
				onLimited(w, r, client)
				return
			}
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
		})
	}
}
