package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
)

// Limiter is satisfied by ratelimit.Limiter and ratelimit.RedisLimiter.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int) bool
}

// RateLimit enforces per-key rate limits using the limit stored on the
// key. Anonymous requests are limited per client address at publicLimit.
func RateLimit(limiter Limiter, publicLimit int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, "/health") {
				next.ServeHTTP(w, r)
				return
			}

			key, limit := "ip:"+clientAddr(r), publicLimit
			if info := GetKeyInfo(r.Context()); info != nil {
				key, limit = "key:"+strconv.FormatInt(info.ID, 10), info.RateLimit
			}
			if limit > 0 && !limiter.Allow(r.Context(), key, limit) {
				w.Header().Set("Retry-After", "60")
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientAddr(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
