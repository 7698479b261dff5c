package ratelimit

import (
	"encoding/json"
	"net"
	"net/http"

	"github.com/ConfabulousDev/wakalog/internal/logger"
)

// Middleware rejects requests over the limit with 429. Requests are keyed by
// client IP taken from RemoteAddr, so it belongs after chi's RealIP.
func Middleware(limiter Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := ClientIP(r)
			if !limiter.Allow(key) {
				logger.Ctx(r.Context()).Warn("rate limit exceeded", "client_ip", key)
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]string{"error": "Rate limit exceeded"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP returns the host part of r.RemoteAddr.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
