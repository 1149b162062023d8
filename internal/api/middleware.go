package api

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ciclismopt/assist/internal/api/respond"
)

// --------------------------------------------------------------------------
// Request timing middleware
// --------------------------------------------------------------------------

// TimingMiddleware adds X-Process-Time header to responses. SSE streams are
// exempt: headers cannot be amended once the event stream has started
// flushing, and the connection lives for minutes anyway.
func TimingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isEventStream(r) {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		next.ServeHTTP(w, r)
		elapsed := time.Since(start)
		w.Header().Set("X-Process-Time", fmt.Sprintf("%.2fms", float64(elapsed.Microseconds())/1000.0))
	})
}

func isEventStream(r *http.Request) bool {
	return strings.HasSuffix(r.URL.Path, "/events") ||
		strings.Contains(r.Header.Get("Accept"), "text/event-stream")
}

// --------------------------------------------------------------------------
// Rate limiting middleware (token bucket per caller)
// --------------------------------------------------------------------------

type callerLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
}

func newCallerLimiter(requestsPerWindow int, window time.Duration) *callerLimiter {
	rps := float64(requestsPerWindow) / window.Seconds()
	return &callerLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(rps),
		burst:    requestsPerWindow / 2,
	}
}

func (l *callerLimiter) getLimiter(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	if limiter, exists := l.limiters[key]; exists {
		return limiter
	}
	limiter := rate.NewLimiter(l.rate, l.burst)
	l.limiters[key] = limiter
	return limiter
}

// callerKey prefers the gateway-injected user id so one user cannot consume a
// shared NAT address's budget; unauthenticated requests fall back to IP.
func callerKey(r *http.Request) string {
	if uid := r.Header.Get("X-User-ID"); uid != "" {
		return "u:" + uid
	}
	ip, _, _ := net.SplitHostPort(r.RemoteAddr)
	if ip == "" {
		ip = r.RemoteAddr
	}
	return "ip:" + ip
}

// RateLimitMiddleware returns middleware that rate-limits by user id or
// client IP.
func RateLimitMiddleware(requestsPerWindow int, window time.Duration) func(http.Handler) http.Handler {
	limiter := newCallerLimiter(requestsPerWindow, window)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.getLimiter(callerKey(r)).Allow() {
				w.Header().Set("Retry-After", "60")
				respond.WriteError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
