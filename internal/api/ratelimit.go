package api

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/sqlask/sqlask/internal/auth"
)

const (
	limiterIdleTTL    = 10 * time.Minute
	limiterSweepEvery = 256
)

// RateLimiter keeps one token bucket per client. Authenticated callers are keyed by
// client id, anonymous callers by remote address.
type RateLimiter struct {
	limit rate.Limit
	burst int
	rpm   int
	now   func() time.Time

	mu      sync.Mutex
	clients map[string]*clientLimiter
	seen    int
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter returns nil when requestsPerMinute is not positive.
func NewRateLimiter(requestsPerMinute, burst int) *RateLimiter {
	if requestsPerMinute <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		limit:   rate.Every(time.Minute / time.Duration(requestsPerMinute)),
		burst:   burst,
		rpm:     requestsPerMinute,
		now:     time.Now,
		clients: map[string]*clientLimiter{},
	}
}

func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	if l == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limiter := l.limiterFor(clientKey(r))
		if !limiter.AllowN(l.now(), 1) {
			retryAfter := int(math.Ceil(60 / float64(l.rpm)))
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			writeError(r.Context(), w, http.StatusTooManyRequests, "RATE_LIMITED", "rate limit exceeded", true, map[string]any{
				"requests_per_minute": l.rpm,
				"burst":               l.burst,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (l *RateLimiter) limiterFor(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.seen++
	if l.seen%limiterSweepEvery == 0 {
		for candidate, entry := range l.clients {
			if now.Sub(entry.lastSeen) > limiterIdleTTL {
				delete(l.clients, candidate)
			}
		}
	}

	entry, ok := l.clients[key]
	if !ok {
		entry = &clientLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter
}

func clientKey(r *http.Request) string {
	if client := auth.ClientID(r.Context()); client != "" {
		return "client:" + client
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
