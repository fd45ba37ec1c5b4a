package middleware

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/time/rate"

	"github.com/storges/tapminer/backend/utils"
)

const visitorTTL = 3 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64
}

// RateLimiter hands out one token bucket per client key.
type RateLimiter struct {
	visitors *xsync.MapOf[string, *visitor]
	limit    rate.Limit
	burst    int
	done     chan struct{}
}

// NewRateLimiter starts a cleanup loop that runs until ctx is done.
func NewRateLimiter(ctx context.Context, limit rate.Limit, burst int) *RateLimiter {
	rl := &RateLimiter{
		visitors: xsync.NewMapOf[string, *visitor](),
		limit:    limit,
		burst:    burst,
		done:     make(chan struct{}),
	}

	go rl.cleanup(ctx)

	return rl
}

func (rl *RateLimiter) Allow(key string) bool {
	v, _ := rl.visitors.LoadOrCompute(key, func() *visitor {
		return &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
	})
	v.lastSeen.Store(time.Now().UnixNano())
	return v.limiter.Allow()
}

// cleanup forgets clients not seen for visitorTTL
func (rl *RateLimiter) cleanup(ctx context.Context) {
	defer close(rl.done)

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.evict(time.Now().Add(-visitorTTL))
		}
	}
}

func (rl *RateLimiter) evict(before time.Time) {
	cutoff := before.UnixNano()
	rl.visitors.Range(func(key string, v *visitor) bool {
		if v.lastSeen.Load() < cutoff {
			rl.visitors.Delete(key)
		}
		return true
	})
}

// RateLimit middleware limits requests per IP address
func RateLimit(ctx context.Context, limit float64, burst int) fiber.Handler {
	limiter := NewRateLimiter(ctx, rate.Limit(limit), burst)

	return func(c *fiber.Ctx) error {
		ip := utils.GetIPAddress(c)

		if !limiter.Allow(ip) {
			slog.Warn("Rate limit exceeded",
				slog.String("ip", ip),
				slog.String("path", c.Path()),
				slog.String("method", c.Method()),
				slog.Float64("limit", limit),
				slog.Int("burst", burst))

			return utils.SendError(c, fiber.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED",
				"Too many requests. Please try again later.", nil)
		}

		return c.Next()
	}
}
