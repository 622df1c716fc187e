package middleware

import (
	"fmt"
	"strconv"
	"time"

	redisStore "contractor-payouts/internal/adapter/storage/redis"
	"contractor-payouts/pkg/apperror"
	"contractor-payouts/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RateLimitRule defines a rate limit for an endpoint group.
type RateLimitRule struct {
	Limit  int64
	Window time.Duration
}

// Rate limit groups.
const (
	GroupRead   = "read"
	GroupWrite  = "write"
	GroupMoney  = "money"
	GroupPublic = "public"
	GroupWorker = "worker"
)

// RateLimitRules derives the per-group limits from the configured read budget.
// Money movement gets a sixth of it, plain writes half.
func RateLimitRules(requests int64, window time.Duration) map[string]RateLimitRule {
	if requests < 1 {
		requests = 120
	}
	if window <= 0 {
		window = time.Minute
	}
	share := func(div int64) int64 {
		if n := requests / div; n > 0 {
			return n
		}
		return 1
	}
	return map[string]RateLimitRule{
		GroupRead:   {Limit: requests, Window: window},
		GroupWrite:  {Limit: share(2), Window: window},
		GroupMoney:  {Limit: share(6), Window: window},
		GroupPublic: {Limit: 10, Window: window},
		GroupWorker: {Limit: 6, Window: window},
	}
}

// RateLimiter creates a rate-limiting middleware for a given endpoint group.
func RateLimiter(store *redisStore.RateLimitStore, group string, rule RateLimitRule, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("%s:%s", extractIdentifier(c), group)

		result, err := store.Allow(c.Request.Context(), key, rule.Limit, rule.Window)
		if err != nil {
			log.Warn().Err(err).Str("group", group).Msg("rate limit check failed, allowing request (degraded mode)")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(result.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(time.Now().Unix()+int64(result.RetryAfter), 10))

		if !result.Allowed {
			c.Header("Retry-After", strconv.Itoa(result.RetryAfter))
			response.Error(c, apperror.ErrRateLimitExceeded())
			c.Abort()
			return
		}

		c.Next()
	}
}

// extractIdentifier keys authenticated callers by user id and everyone else by IP.
func extractIdentifier(c *gin.Context) string {
	if uid := c.GetString(CtxUserID); uid != "" {
		return "user:" + uid
	}
	return "ip:" + c.ClientIP()
}
