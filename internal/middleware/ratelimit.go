package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"property-market-backend/internal/metrics"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// slidingWindowScript trims the window, then records the hit if there is room.
// Returns {allowed, remaining, reset_at_ms}.
var slidingWindowScript = redis.NewScript(`
	local key = KEYS[1]
	local now = tonumber(ARGV[1])
	local window_start = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])
	local window_ms = tonumber(ARGV[4])

	redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)
	local current = redis.call('ZCARD', key)

	if current < limit then
		local counter = redis.call('INCR', key .. ':seq')
		redis.call('ZADD', key, now, now .. ':' .. counter)
		local expire_seconds = math.ceil(window_ms / 1000)
		redis.call('EXPIRE', key, expire_seconds)
		redis.call('EXPIRE', key .. ':seq', expire_seconds)
		return {1, limit - current - 1, 0}
	end

	local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
	local reset_at = 0
	if oldest and #oldest >= 2 then
		reset_at = tonumber(oldest[2]) + window_ms
	end
	return {0, 0, reset_at}
`)

// RateLimitResult contains the result of a rate limit check
type RateLimitResult struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// WindowLimiter counts hits per key over a sliding window
type WindowLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*RateLimitResult, error)
}

// RedisWindow is a WindowLimiter backed by redis sorted sets
type RedisWindow struct {
	client *redis.Client
}

// NewRedisWindow creates a redis-backed sliding window
func NewRedisWindow(client *redis.Client) *RedisWindow {
	return &RedisWindow{client: client}
}

// Allow records a hit for key and reports whether it fits in the window
func (w *RedisWindow) Allow(ctx context.Context, key string, limit int, window time.Duration) (*RateLimitResult, error) {
	now := time.Now()

	result, err := slidingWindowScript.Run(ctx, w.client, []string{key},
		now.UnixMilli(), now.Add(-window).UnixMilli(), limit, window.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("redis script error: %w", err)
	}
	if len(result) != 3 {
		return nil, fmt.Errorf("unexpected redis response length: %d", len(result))
	}

	resetAt := now.Add(window)
	if result[2] > 0 {
		resetAt = time.UnixMilli(result[2])
	}

	return &RateLimitResult{
		Allowed:   result[0] == 1,
		Remaining: int(result[1]),
		ResetAt:   resetAt,
	}, nil
}

// RateLimiter throttles a route per client IP
type RateLimiter struct {
	window WindowLimiter
	route  string
	limit  int
	period time.Duration
}

// NewRateLimiter creates a per-IP limiter for a route. A nil window disables limiting.
func NewRateLimiter(window WindowLimiter, route string, limit int, period time.Duration) *RateLimiter {
	return &RateLimiter{
		window: window,
		route:  route,
		limit:  limit,
		period: period,
	}
}

// Handler wraps next with the limit
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	if rl == nil || rl.window == nil || rl.limit <= 0 {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := "ratelimit:" + rl.route + ":" + RealIP(r)

		result, err := rl.window.Allow(r.Context(), key, rl.limit, rl.period)
		if err != nil {
			// fail open
			log.Warn().Err(err).Str("route", rl.route).Msg("Rate limit check failed")
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))

		if !result.Allowed {
			retryAfter := int(time.Until(result.ResetAt).Seconds()) + 1
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			metrics.RateLimitHits.WithLabelValues(rl.route).Inc()
			log.Warn().Str("route", rl.route).Str("ip", RealIP(r)).Msg("Rate limit exceeded")
			respondError(w, "Too many attempts, please try again later", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RealIP extracts the client IP from proxy headers or the connection
func RealIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return strings.TrimSpace(strings.Split(ip, ",")[0])
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
