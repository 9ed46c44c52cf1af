package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// RateLimit returns middleware that gives each client IP a token bucket of
// rps requests per second with the given burst. Idle buckets are evicted
// after ten minutes. rps <= 0 disables limiting.
func RateLimit(rps float64, burst int) func(http.Handler) http.Handler {
	if rps <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if burst <= 0 {
		burst = int(rps) + 1
	}
	buckets := gocache.New(10*time.Minute, time.Minute)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := extractClientIP(r)
			var lim *rate.Limiter
			if v, ok := buckets.Get(ip); ok {
				lim = v.(*rate.Limiter)
			} else {
				lim = rate.NewLimiter(rate.Limit(rps), burst)
				if err := buckets.Add(ip, lim, gocache.DefaultExpiration); err != nil {
					// lost a race with another request from the same client
					if v, ok := buckets.Get(ip); ok {
						lim = v.(*rate.Limiter)
					}
				}
			}
			buckets.SetDefault(ip, lim)

			if wait, ok := reserve(lim); !ok {
				w.Header().Set("Content-Type", "application/json; charset=utf-8")
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(`{"error":"rate limit exceeded"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// reserve takes a token if one is available now. Otherwise it returns how
// long until the next one, at least a second.
func reserve(lim *rate.Limiter) (time.Duration, bool) {
	res := lim.Reserve()
	if !res.OK() {
		return time.Second, false
	}
	delay := res.Delay()
	if delay == 0 {
		return 0, true
	}
	res.Cancel()
	return max(delay, time.Second), false
}

// extractClientIP attempts to determine the real client IP from standard
// proxy headers, falling back to the direct remote address.
func extractClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.SplitN(xff, ",", 2)
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
