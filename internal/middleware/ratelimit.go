package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/paradox-backend/internal/config"
	"github.com/stemsi/paradox-backend/internal/response"
)

// RateLimiter is a fixed-window per-IP limiter backed by Redis so every
// server instance shares the same counters.
type RateLimiter struct {
	rdb    *redis.Client
	scope  string
	limit  int64
	window time.Duration
	log    zerolog.Logger
}

// NewRateLimiter allows limit requests per window for each client IP in scope.
func NewRateLimiter(rdb *redis.Client, scope string, limit int, window time.Duration, log zerolog.Logger) *RateLimiter {
	return &RateLimiter{
		rdb:    rdb,
		scope:  scope,
		limit:  int64(limit),
		window: window,
		log:    log,
	}
}

func (rl *RateLimiter) key(ip string, now time.Time) string {
	return config.CacheKey.RateLimitKey(rl.scope, ip, now.UnixNano()/int64(rl.window))
}

// Middleware returns a Gin middleware that rate-limits requests by IP.
// Requests pass when Redis is unavailable.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		key := rl.key(c.ClientIP(), time.Now())

		pipe := rl.rdb.TxPipeline()
		incr := pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, rl.window)
		if _, err := pipe.Exec(ctx); err != nil {
			rl.log.Warn().Err(err).Str("scope", rl.scope).Msg("rate limiter unavailable")
			c.Next()
			return
		}

		count := incr.Val()
		remaining := max(rl.limit-count, 0)
		c.Header("X-RateLimit-Limit", strconv.FormatInt(rl.limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if count > rl.limit {
			c.Header("Retry-After", strconv.Itoa(int(rl.window.Seconds())))
			response.AbortFail(c, http.StatusTooManyRequests, response.ErrRateLimitExceeded)
			return
		}
		c.Next()
	}
}
