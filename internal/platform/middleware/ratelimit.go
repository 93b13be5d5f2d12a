package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/clinic/clinic/internal/platform/auth"
)

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
}

// DefaultRateLimitConfig returns default rate limiting settings.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 100,
		BurstSize:         200,
	}
}

type bucket struct {
	tokens float64
	last   time.Time
}

// limiter is a keyed token bucket limiter. All buckets share one mutex;
// contention is acceptable because take holds it only for arithmetic.
type limiter struct {
	mu      sync.Mutex
	cfg     RateLimitConfig
	buckets map[string]*bucket
	now     func() time.Time
}

func newLimiter(cfg RateLimitConfig) *limiter {
	return &limiter{
		cfg:     cfg,
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

// take consumes one token for key. When the bucket is empty it reports the
// whole seconds a client should wait before retrying.
func (l *limiter) take(key string) (allowed bool, retryAfter int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: float64(l.cfg.BurstSize), last: now}
		l.buckets[key] = b
	}

	b.tokens += now.Sub(b.last).Seconds() * l.cfg.RequestsPerSecond
	if b.tokens > float64(l.cfg.BurstSize) {
		b.tokens = float64(l.cfg.BurstSize)
	}
	b.last = now

	if b.tokens >= 1 {
		b.tokens--
		return true, 0
	}

	if l.cfg.RequestsPerSecond <= 0 {
		return false, 1
	}
	return false, int(math.Ceil((1 - b.tokens) / l.cfg.RequestsPerSecond))
}

// RateLimit throttles requests per authenticated user, falling back to the
// client IP for anonymous traffic.
func RateLimit(cfg RateLimitConfig) echo.MiddlewareFunc {
	lim := newLimiter(cfg)
	limitHeader := strconv.FormatFloat(cfg.RequestsPerSecond, 'f', 0, 64)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := c.RealIP()
			if uid := auth.UserIDFromContext(c.Request().Context()); uid != "" {
				key = uid + ":" + key
			}

			allowed, retryAfter := lim.take(key)
			c.Response().Header().Set("X-RateLimit-Limit", limitHeader)
			if !allowed {
				c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfter))
				c.Response().Header().Set("X-RateLimit-Remaining", "0")
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}
