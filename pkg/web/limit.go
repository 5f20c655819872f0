package web

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// limiters hands out one token bucket per client IP. Idle buckets expire.
type limiters struct {
	buckets *cache.Cache
	rate    rate.Limit
	burst   int
}

func newLimiters(perSecond float64, burst int) *limiters {
	return &limiters{
		buckets: cache.New(10*time.Minute, 10*time.Minute),
		rate:    rate.Limit(perSecond),
		burst:   burst,
	}
}

func (l *limiters) get(ip string) *rate.Limiter {
	if v, ok := l.buckets.Get(ip); ok {
		return v.(*rate.Limiter)
	}
	lim := rate.NewLimiter(l.rate, l.burst)
	if err := l.buckets.Add(ip, lim, cache.DefaultExpiration); err != nil {
		// Another request created it first.
		if v, ok := l.buckets.Get(ip); ok {
			return v.(*rate.Limiter)
		}
	}
	return lim
}

func (l *limiters) middleware(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ip := c.IP()
		if !l.get(ip).Allow() {
			logger.Warn("too many requests", "ip", ip)
			return fiber.NewError(fiber.StatusTooManyRequests, "too many requests")
		}
		return c.Next()
	}
}
