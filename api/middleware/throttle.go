package middleware

import (
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// Throttle limits request frequency per actor (falling back to the client IP
// for unauthenticated requests) using a fixed redis counter window
type Throttle struct {
	redis  *redis.Client
	limit  int64
	window time.Duration
	logger *log.Logger
}

// NewThrottle creates a request throttle. A nil redis client disables it.
func NewThrottle(redisClient *redis.Client, limit int64, window time.Duration, logger *log.Logger) *Throttle {
	return &Throttle{
		redis:  redisClient,
		limit:  limit,
		window: window,
		logger: logger,
	}
}

func (t *Throttle) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if t.redis == nil {
			return c.Next()
		}

		identity := ActorID(c)
		if identity == "" {
			identity = c.IP()
		}
		key := fmt.Sprintf("throttle:%s", identity)

		ctx := c.UserContext()
		count, err := t.redis.Incr(ctx, key).Result()
		if err != nil {
			// A redis outage must not take the API down
			t.logger.Printf("Throttle counter unavailable: %v", err)
			return c.Next()
		}
		if count == 1 {
			t.redis.Expire(ctx, key, t.window)
		}
		if count > t.limit {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "Too many requests"})
		}

		return c.Next()
	}
}
