package middleware

import (
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
)

// LoginRateLimiter throttles login attempts per client IP with a fixed
// window counter in Redis. It holds request counters only, never card or
// account state; the persisted per-card lockout remains the authority on
// failed PINs. Without Redis the limiter is a pass-through.
type LoginRateLimiter struct {
	redis  *redis.Client
	limit  int
	window time.Duration
}

func NewLoginRateLimiter(redisClient *redis.Client, limit int, window time.Duration) *LoginRateLimiter {
	return &LoginRateLimiter{
		redis:  redisClient,
		limit:  limit,
		window: window,
	}
}

func (l *LoginRateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if l.redis == nil {
			next.ServeHTTP(w, r)
			return
		}

		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		key := fmt.Sprintf("ratelimit:login:%s", host)

		ctx := r.Context()
		count, err := l.redis.Incr(ctx, key).Result()
		if err != nil {
			// Redis being down must not block logins.
			log.Printf("[RATELIMIT] Redis error, passing through: %v", err)
			next.ServeHTTP(w, r)
			return
		}
		if count == 1 {
			l.redis.Expire(ctx, key, l.window)
		}

		if count > int64(l.limit) {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", fmt.Sprintf("%d", int(l.window.Seconds())))
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":"Too many login attempts"}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}
