package api

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultRatePerSecond = 1.0
	defaultRateBurst     = 60

	limiterSweepInterval = 5 * time.Minute
	limiterIdleEviction  = 10 * time.Minute
)

// rateLimitSettings tunes the per-IP token bucket. Zero values fall back
// to the defaults above.
type rateLimitSettings struct {
	PerSecond float64
	Burst     int
}

// ipLimiter applies a token bucket per client IP. Buckets idle past
// limiterIdleEviction are dropped during periodic sweeps that piggyback on
// allow() calls, so no background goroutine is needed.
type ipLimiter struct {
	mu        sync.Mutex
	clients   map[string]*clientBucket
	limit     rate.Limit
	burst     int
	nextSweep time.Time
}

type clientBucket struct {
	bucket   *rate.Limiter
	lastSeen time.Time
}

func newIPLimiter(s rateLimitSettings) *ipLimiter {
	if s.PerSecond <= 0 {
		s.PerSecond = defaultRatePerSecond
	}
	if s.Burst <= 0 {
		s.Burst = defaultRateBurst
	}
	return &ipLimiter{
		clients:   make(map[string]*clientBucket),
		limit:     rate.Limit(s.PerSecond),
		burst:     s.Burst,
		nextSweep: time.Now().Add(limiterSweepInterval),
	}
}

// allow reports whether a request from the given IP may proceed.
func (l *ipLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.After(l.nextSweep) {
		l.sweep(now)
	}

	c := l.clients[ip]
	if c == nil {
		c = &clientBucket{bucket: rate.NewLimiter(l.limit, l.burst)}
		l.clients[ip] = c
	}
	c.lastSeen = now
	return c.bucket.Allow()
}

// sweep evicts buckets idle long enough to have fully refilled. The caller
// holds l.mu.
func (l *ipLimiter) sweep(now time.Time) {
	for ip, c := range l.clients {
		if now.Sub(c.lastSeen) > limiterIdleEviction {
			delete(l.clients, ip)
		}
	}
	l.nextSweep = now.Add(limiterSweepInterval)
}

// rateLimitMiddleware limits requests per client IP with a token bucket.
func rateLimitMiddleware(rl *ipLimiter, trustProxy bool, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r, trustProxy)
			if !rl.allow(ip) {
				logger.Warn("rate limit exceeded",
					"ip", ip,
					"path", r.URL.Path,
					"method", r.Method,
				)
				w.Header().Set("Retry-After", "1")
				WriteError(w, http.StatusTooManyRequests, "rate_limited", "too many requests", logger)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP extracts the client IP from the request.
//
// When trustProxy is true, X-Real-IP is consulted first, then the first
// entry of X-Forwarded-For. Header values are validated with net.ParseIP so
// arbitrary strings never become rate limiter keys. When trustProxy is
// false, only RemoteAddr is used.
func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		for _, header := range []string{"X-Real-IP", "X-Forwarded-For"} {
			raw := r.Header.Get(header)
			if raw == "" {
				continue
			}
			if first, _, ok := strings.Cut(raw, ","); ok {
				raw = first
			}
			if ip := net.ParseIP(strings.TrimSpace(raw)); ip != nil {
				return ip.String()
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
