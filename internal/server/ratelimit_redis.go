package server

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/Gio21sr/oberfit/internal/api"
	"github.com/Gio21sr/oberfit/internal/logger"
	"github.com/Gio21sr/oberfit/internal/metrics"
)

// fixedWindowScript increments the counter for KEYS[1] and starts its
// window on the first hit. Returns the count and the window's remaining
// milliseconds.
var fixedWindowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  ttl = tonumber(ARGV[1])
end
return {current, ttl}
`)

// RedisLimiter is a fixed-window limiter shared by every API instance.
type RedisLimiter struct {
	client redis.UniversalClient
	prefix string
	limit  int
	window time.Duration
}

func NewRedisLimiter(client redis.UniversalClient, prefix string, limit int, window time.Duration) *RedisLimiter {
	trimmed := strings.TrimSuffix(strings.TrimSpace(prefix), ":")
	if trimmed == "" {
		trimmed = "oberfit:rate_limit"
	}

	return &RedisLimiter{
		client: client,
		prefix: trimmed,
		limit:  limit,
		window: window,
	}
}

func (r *RedisLimiter) key(scope, subject string) string {
	return fmt.Sprintf("%s:%s:%s", r.prefix, scope, subject)
}

func (r *RedisLimiter) windowMs() int64 {
	ms := r.window.Milliseconds()
	if ms < 1000 {
		ms = 1000
	}
	return ms
}

// Consume counts one hit for subject within scope. When the limit is
// exceeded it reports false along with the seconds until the window resets.
func (r *RedisLimiter) Consume(ctx context.Context, scope, subject string) (allowed bool, retryAfter int, err error) {
	if r == nil || r.client == nil || r.limit <= 0 || r.window <= 0 {
		return true, 0, nil
	}

	scope = strings.TrimSpace(scope)
	subject = strings.TrimSpace(subject)
	if scope == "" || subject == "" {
		return true, 0, nil
	}

	windowMs := r.windowMs()
	raw, err := fixedWindowScript.Run(ctx, r.client, []string{r.key(scope, subject)}, windowMs).Result()
	if err != nil {
		return false, 0, err
	}

	values, ok := raw.([]interface{})
	if !ok || len(values) != 2 {
		return false, 0, fmt.Errorf("unexpected redis limiter response shape: %T", raw)
	}
	count, ok := values[0].(int64)
	if !ok {
		return false, 0, fmt.Errorf("unexpected redis limiter count type: %T", values[0])
	}
	ttlMs, ok := values[1].(int64)
	if !ok {
		return false, 0, fmt.Errorf("unexpected redis limiter ttl type: %T", values[1])
	}
	if ttlMs < 0 {
		ttlMs = windowMs
	}

	retryAfter = int(math.Ceil(float64(ttlMs) / 1000.0))
	if retryAfter < 1 {
		retryAfter = 1
	}

	return count <= int64(r.limit), retryAfter, nil
}

// Middleware limits requests per client IP under scope. Redis failures
// let the request through.
func (r *RedisLimiter) Middleware(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, retryAfter, err := r.Consume(c.Request.Context(), scope, c.ClientIP())
		if err != nil {
			logger.Warn("redis rate limiter unavailable", "scope", scope, "error", err)
			c.Next()
			return
		}
		if !allowed {
			metrics.RecordRateLimited(scope)
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, api.ErrorResponse{
				Error: "too many enrollment attempts, try again later",
			})
			return
		}
		c.Next()
	}
}
