package security

import (
	"fmt"
	"net/http"
	"time"

	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/hook"
	"github.com/redis/go-redis/v9"
)

type RateLimiter struct {
	redis  redis.Cmdable
	limit  int64
	window time.Duration
}

func NewRateLimiter(redisClient redis.Cmdable, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		redis:  redisClient,
		limit:  int64(limit),
		window: window,
	}
}

// TriggerRateLimit caps how often one caller can start a manual maintenance
// run. Counting is skipped while Redis is unreachable.
func (r *RateLimiter) TriggerRateLimit() *hook.Handler[*core.RequestEvent] {
	return &hook.Handler[*core.RequestEvent]{
		Id: "maintenanceTriggerRateLimit",
		Func: func(e *core.RequestEvent) error {
			ctx := e.Request.Context()
			key := fmt.Sprintf("ratelimit:maintenance:%s", r.identifier(e))

			count, err := r.redis.Incr(ctx, key).Result()
			if err == nil {
				if count == 1 {
					r.redis.Expire(ctx, key, r.window)
				}
				if count > r.limit {
					return e.JSON(http.StatusTooManyRequests, map[string]string{
						"error": "Too many maintenance runs requested. Please try again later.",
					})
				}
			}

			return e.Next()
		},
	}
}

// Rate limit by user for authenticated requests, by IP otherwise
func (r *RateLimiter) identifier(e *core.RequestEvent) string {
	if e.Auth != nil {
		return "user:" + e.Auth.Id
	}
	return "ip:" + e.RemoteIP()
}
