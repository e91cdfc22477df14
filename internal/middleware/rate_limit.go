package middleware

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/examark/examark-api/internal/utils"
)

// GradingRateLimit throttles grading requests. Model calls are the most
// expensive operation in the system, so the limit is keyed per user when a
// token is present and per client IP otherwise.
func GradingRateLimit(max int, window time.Duration) fiber.Handler {
	if max <= 0 {
		max = 10
	}
	if window <= 0 {
		window = time.Minute
	}

	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			if userID, ok := c.Locals("user_id").(uint); ok {
				return fmt.Sprintf("user:%d", userID)
			}
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return utils.SendError(c, fiber.StatusTooManyRequests, "too many grading requests, slow down")
		},
	})
}
