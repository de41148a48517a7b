package api

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/okian/drcal/pkg/metrics"
)

const (
	limiterTTL        = 15 * time.Minute
	limiterSweepEvery = 5 * time.Minute
)

// RateLimiter applies a token bucket per client IP.
type RateLimiter struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	exempt    map[string]bool
	clients   map[string]*limiterEntry
	lastSweep time.Time
	now       func() time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimitOption configures a RateLimiter.
type RateLimitOption func(*RateLimiter)

// WithExemptPaths skips limiting for exact paths.
func WithExemptPaths(paths ...string) RateLimitOption {
	return func(l *RateLimiter) {
		for _, p := range paths {
			l.exempt[p] = true
		}
	}
}

// WithLimiterClock overrides the clock used for entry expiry.
func WithLimiterClock(now func() time.Time) RateLimitOption {
	return func(l *RateLimiter) {
		if now != nil {
			l.now = now
		}
	}
}

// NewRateLimiter allows rps requests per second per client with the given
// burst. rps <= 0 disables limiting. /healthz is always exempt.
func NewRateLimiter(rps float64, burst int, opts ...RateLimitOption) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	l := &RateLimiter{
		limit:   rate.Limit(rps),
		burst:   burst,
		exempt:  map[string]bool{"/healthz": true},
		clients: make(map[string]*limiterEntry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.lastSweep = l.now()
	return l
}

// Enabled reports whether the limiter rejects anything.
func (l *RateLimiter) Enabled() bool {
	return l != nil && l.limit > 0
}

// Wrap returns next guarded by the limiter.
func (l *RateLimiter) Wrap(next http.Handler) http.Handler {
	if !l.Enabled() {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if l.exempt[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}
		lim := l.limiter(clientKey(r))
		if !lim.Allow() {
			metrics.RecordRateLimited(r.URL.Path)
			w.Header().Set("Retry-After", strconv.Itoa(l.retryAfter()))
			writeError(w, http.StatusTooManyRequests, MsgTooManyRequest)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// retryAfter is the whole seconds until one token refills.
func (l *RateLimiter) retryAfter() int {
	return max(1, int(math.Ceil(1/float64(l.limit))))
}

func (l *RateLimiter) limiter(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) > limiterSweepEvery {
		for k, e := range l.clients {
			if now.Sub(e.lastSeen) > limiterTTL {
				delete(l.clients, k)
			}
		}
		l.lastSweep = now
	}

	if e, ok := l.clients[key]; ok {
		e.lastSeen = now
		return e.limiter
	}
	lim := rate.NewLimiter(l.limit, l.burst)
	l.clients[key] = &limiterEntry{limiter: lim, lastSeen: now}
	return lim
}

// Clients returns the number of tracked client buckets.
func (l *RateLimiter) Clients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

func clientKey(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
