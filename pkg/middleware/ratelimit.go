package middleware

import (
	"context"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/txn2/analytics-gateway/pkg/auth"
)

// Limit describes how many requests a key may make per window.
type Limit struct {
	Requests int
	Window   time.Duration
}

// Result is the outcome of a rate limit check.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Limiter counts requests per key.
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

// KeyFunc derives the rate limit key for a request.
type KeyFunc func(r *http.Request) string

// RejectFunc writes the response for a request over its limit.
type RejectFunc func(w http.ResponseWriter, r *http.Request, retryAfter time.Duration)

// CallerKey keys authenticated requests by user id and everything else by
// client IP.
func CallerKey(r *http.Request) string {
	if c := auth.CallerFromContext(r.Context()); c != nil && c.UserID != "" {
		return "user:" + c.UserID
	}
	return "ip:" + clientIP(r)
}

// RateLimit enforces l per key. Limiter errors are logged and the request
// is let through.
func RateLimit(l Limiter, key KeyFunc, reject RejectFunc, logger *slog.Logger) func(http.Handler) http.Handler {
	if key == nil {
		key = CallerKey
	}
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, err := l.Allow(r.Context(), key(r))
			if err != nil {
				logger.Warn("rate limiter unavailable", "error", err,
					"request_id", RequestIDFromContext(r.Context()))
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(max(res.Remaining, 0)))

			if !res.Allowed {
				w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(res.RetryAfter)))
				reject(w, r, res.RetryAfter)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func retryAfterSeconds(d time.Duration) int {
	return max(1, int(math.Ceil(d.Seconds())))
}

// clientIP extracts the client IP address from the request, stripping the port.
// Only uses RemoteAddr so the key cannot be spoofed with forwarding headers.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
