// Package ratelimit implements a fixed-window request limiter backed by Redis
// INCR/EXPIRE. The limiter fails open: without a counter, or when Redis
// errors, requests are let through.
package ratelimit

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"

	"github.com/riteshkumar/core-ledger/internal/auth"
	"github.com/riteshkumar/core-ledger/internal/metrics"
	"github.com/riteshkumar/core-ledger/internal/utils"
)

// Counter increments the hit count for key in the current window.
type Counter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

type RedisCounter struct {
	client *redis.Client
}

func NewRedisCounter(client *redis.Client) *RedisCounter {
	return &RedisCounter{client: client}
}

func (c *RedisCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	val, err := c.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if val == 1 {
		// first hit opens the window
		if err := c.client.Expire(ctx, key, window).Err(); err != nil {
			return val, err
		}
	}
	return val, nil
}

// NewRedisClient connects and pings. A failed ping returns the error so the
// caller can run without a limiter.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

type Limiter struct {
	counter     Counter
	maxRequests int
	window      time.Duration
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

// New returns a limiter allowing maxRequests per window for each caller. A nil
// counter disables limiting.
func New(counter Counter, maxRequests int, window time.Duration, m *metrics.Metrics, logger *slog.Logger) *Limiter {
	return &Limiter{
		counter:     counter,
		maxRequests: maxRequests,
		window:      window,
		metrics:     m,
		logger:      logger,
	}
}

// Middleware limits the wrapped route. Authenticated callers are counted by
// user id, anonymous ones by client IP.
func (l *Limiter) Middleware(route string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if l == nil || l.counter == nil {
				next.ServeHTTP(w, r)
				return
			}

			key := "rl:" + route + ":" + strconv.FormatInt(int64(l.window.Seconds()), 10) + ":" + callerKey(r)
			val, err := l.counter.Incr(r.Context(), key, l.window)
			if err != nil {
				l.logger.Warn("rate limiter unavailable, allowing request",
					"route", route,
					"error", err.Error(),
				)
				w.Header().Set("X-RateLimit-Error", "redis-error")
				next.ServeHTTP(w, r)
				return
			}

			remaining := int64(l.maxRequests) - val
			if remaining < 0 {
				remaining = 0
			}
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.maxRequests))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

			if val > int64(l.maxRequests) {
				l.metrics.RateLimited(route)
				w.Header().Set("Retry-After", strconv.FormatInt(int64(l.window.Seconds()), 10))
				utils.WriteError(w, http.StatusTooManyRequests, "rate_limited", "rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func callerKey(r *http.Request) string {
	if id, ok := auth.IdentityFrom(r.Context()); ok {
		return "user:" + strconv.FormatInt(id.UserID, 10)
	}
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return "ip:" + strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return "ip:" + r.RemoteAddr
	}
	return "ip:" + host
}
