package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// RateLimitConfig sets the per-caller token bucket.
type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
}

// limiterStore holds one token bucket per caller key.
type limiterStore struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	config   RateLimitConfig
}

func newLimiterStore(cfg RateLimitConfig) *limiterStore {
	return &limiterStore{
		limiters: make(map[string]*rate.Limiter),
		config:   cfg,
	}
}

func (s *limiterStore) get(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.limiters[key]
	if !ok {
		l = rate.NewLimiter(rate.Limit(s.config.RequestsPerSecond), s.config.BurstSize)
		s.limiters[key] = l
	}
	return l
}

// retryAfter is the whole number of seconds until l grants another token.
func retryAfter(l *rate.Limiter) int {
	if l.Limit() <= 0 {
		return 1
	}
	r := l.Reserve()
	defer r.Cancel()
	if !r.OK() {
		return 1
	}
	return int(math.Ceil(r.Delay().Seconds()))
}

// RateLimit throttles each remote IP within its clinic. It runs after
// TenantMiddleware so "tenant_id" is already resolved. Rejected requests get
// 429 with a Retry-After header.
func RateLimit(cfg RateLimitConfig) echo.MiddlewareFunc {
	store := newLimiterStore(cfg)
	limit := strconv.FormatFloat(cfg.RequestsPerSecond, 'f', 0, 64)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := c.RealIP()
			if tid, ok := c.Get("tenant_id").(string); ok && tid != "" {
				key = tid + ":" + key
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", limit)

			l := store.get(key)
			if !l.Allow() {
				wait := retryAfter(l)
				if wait < 1 {
					wait = 1
				}
				h.Set("Retry-After", strconv.Itoa(wait))
				h.Set("X-RateLimit-Remaining", "0")
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}
