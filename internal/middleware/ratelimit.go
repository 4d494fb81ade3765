package middleware

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// limiterIdleTTL is how long a client's limiter survives without requests.
const limiterIdleTTL = 10 * time.Minute

// RateLimiter keeps one token bucket per client IP.
type RateLimiter struct {
	mu       sync.Mutex
	limiters *cache.Cache
	limit    rate.Limit
	burst    int
}

// NewRateLimiter allows perMinute requests per client with a burst of the same size.
func NewRateLimiter(perMinute int) *RateLimiter {
	return &RateLimiter{
		limiters: cache.New(limiterIdleTTL, limiterIdleTTL),
		limit:    rate.Limit(float64(perMinute) / 60),
		burst:    max(perMinute, 1),
	}
}

func (rl *RateLimiter) limiterFor(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if v, ok := rl.limiters.Get(key); ok {
		rl.limiters.Set(key, v, cache.DefaultExpiration)
		return v.(*rate.Limiter)
	}
	limiter := rate.NewLimiter(rl.limit, rl.burst)
	rl.limiters.Set(key, limiter, cache.DefaultExpiration)
	return limiter
}

// Allow reports whether key may make a request now.
func (rl *RateLimiter) Allow(key string) bool {
	return rl.limiterFor(key).Allow()
}

// Handler rejects requests over the limit with 429.
func (rl *RateLimiter) Handler() fiber.Handler {
	return func(c fiber.Ctx) error {
		if !rl.Allow(c.IP()) {
			c.Set(fiber.HeaderRetryAfter, "60")
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate limit exceeded"})
		}
		return c.Next()
	}
}
