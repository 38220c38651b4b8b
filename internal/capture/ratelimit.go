package capture

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/eleven-am/menu-capture/internal/shared"
	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

type RateLimiterConfig struct {
	RequestsPerSecond float64
	Burst             int
	IdleTimeout       time.Duration
}

func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		RequestsPerSecond: 1,
		Burst:             5,
		IdleTimeout:       10 * time.Minute,
	}
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client IP. Transcriptions cost an
// upstream call each, so they are limited separately from file operations.
type RateLimiter struct {
	mu       sync.Mutex
	clients  map[string]*clientLimiter
	config   RateLimiterConfig
	now      func() time.Time
	lastScan time.Time
}

func NewRateLimiter(cfg RateLimiterConfig) *RateLimiter {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultRateLimiterConfig().IdleTimeout
	}
	return &RateLimiter{
		clients: make(map[string]*clientLimiter),
		config:  cfg,
		now:     time.Now,
	}
}

func (r *RateLimiter) Enabled() bool {
	return r.config.RequestsPerSecond > 0
}

func (r *RateLimiter) reserve(key string) (bool, time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.evictIdle(now)

	cl, ok := r.clients[key]
	if !ok {
		burst := r.config.Burst
		if burst <= 0 {
			burst = 1
		}
		cl = &clientLimiter{limiter: rate.NewLimiter(rate.Limit(r.config.RequestsPerSecond), burst)}
		r.clients[key] = cl
	}
	cl.lastSeen = now

	res := cl.limiter.ReserveN(now, 1)
	if !res.OK() {
		return false, 0
	}
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		return false, delay
	}
	return true, 0
}

func (r *RateLimiter) evictIdle(now time.Time) {
	if now.Sub(r.lastScan) < r.config.IdleTimeout {
		return
	}
	r.lastScan = now
	for key, cl := range r.clients {
		if now.Sub(cl.lastSeen) >= r.config.IdleTimeout {
			delete(r.clients, key)
		}
	}
}

func (r *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !r.Enabled() {
				return next(c)
			}

			allowed, retryAfter := r.reserve(c.RealIP())
			if !allowed {
				if retryAfter > 0 {
					secs := int(retryAfter.Seconds())
					if retryAfter > time.Duration(secs)*time.Second {
						secs++
					}
					c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
				}
				return shared.NewAPIError("rate_limit_exceeded", "too many transcription requests").ToHTTP(http.StatusTooManyRequests)
			}

			return next(c)
		}
	}
}
