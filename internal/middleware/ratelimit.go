package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/voicemint/api/pkg/response"
)

// RateLimiter is a per-user sliding counter on Redis. It guards the outer
// HTTP surface; the orchestrator keeps its own per-project cooldown on top.
type RateLimiter struct {
	redis *redis.Client
}

func NewRateLimiter(redisClient *redis.Client) *RateLimiter {
	return &RateLimiter{redis: redisClient}
}

// Limit creates a rate limiting middleware
func (rl *RateLimiter) Limit(keyPrefix string, maxRequests int, window time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := GetUserID(c)
		if userID == "" {
			return c.Next() // auth middleware rejects anonymous callers
		}

		key := fmt.Sprintf("ratelimit:%s:%s", keyPrefix, userID)
		ctx := context.Background()

		count, err := rl.redis.Incr(ctx, key).Result()
		if err != nil {
			// Redis down: let the request through rather than block users.
			return c.Next()
		}

		if count == 1 {
			rl.redis.Expire(ctx, key, window)
		}

		if count > int64(maxRequests) {
			ttl, _ := rl.redis.TTL(ctx, key).Result()
			c.Set("Retry-After", fmt.Sprintf("%d", int(ttl.Seconds())))
			return response.RateLimited(c)
		}

		c.Set("X-RateLimit-Limit", fmt.Sprintf("%d", maxRequests))
		c.Set("X-RateLimit-Remaining", fmt.Sprintf("%d", maxRequests-int(count)))

		return c.Next()
	}
}

// GenerateLimit bounds generation triggers per user per hour.
func (rl *RateLimiter) GenerateLimit(maxPerHour int) fiber.Handler {
	return rl.Limit("generate", maxPerHour, time.Hour)
}

// UploadLimit bounds sample uploads per user per hour.
func (rl *RateLimiter) UploadLimit(maxPerHour int) fiber.Handler {
	return rl.Limit("upload", maxPerHour, time.Hour)
}

// ScriptsLimit bounds script suggestions per user per minute.
func (rl *RateLimiter) ScriptsLimit(maxPerMin int) fiber.Handler {
	return rl.Limit("scripts", maxPerMin, time.Minute)
}
