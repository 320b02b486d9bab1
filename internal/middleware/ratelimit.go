package middleware

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/influencer-campaigns/backend/internal/http/dto"
)

// RateLimitMiddleware is a fixed-window counter per path and client in Redis.
// It fails open when Redis is unavailable.
func RateLimitMiddleware(rdb *redis.Client, limit int, window time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if rdb == nil || limit <= 0 {
			return c.Next()
		}

		client := c.IP()
		if uid := GetUserID(c); uid != uuid.Nil {
			client = uid.String()
		}
		key := fmt.Sprintf("rl:%s:%s", c.Path(), client)

		ctx := c.UserContext()
		count, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			return c.Next()
		}

		if count == 1 {
			rdb.Expire(ctx, key, window)
		}

		if count > int64(limit) {
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.ErrorResponse{
				Error:     "rate limit exceeded",
				Code:      dto.CodeRateLimited,
				RequestID: GetRequestID(c),
			})
		}

		return c.Next()
	}
}
