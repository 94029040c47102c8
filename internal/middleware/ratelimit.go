package middleware

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/hybrid-auth/internal/apperr"
	"github.com/iliyamo/hybrid-auth/internal/config"
	"github.com/iliyamo/hybrid-auth/internal/logging"
	"github.com/iliyamo/hybrid-auth/internal/metrics"
)

// Decision is the outcome of one counted attempt.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	Reset     time.Duration // time until the current window closes
}

// Limiter counts attempts per key in fixed windows.  Allow must increment
// atomically so concurrent bursts from one client are never undercounted.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// fixedWindowScript increments the counter and starts the window on the
// first hit.  A key that somehow lost its TTL gets one again.
var fixedWindowScript = redis.NewScript(`
	local current = redis.call('INCR', KEYS[1])
	if current == 1 then
		redis.call('PEXPIRE', KEYS[1], ARGV[1])
	end
	local ttl = redis.call('PTTL', KEYS[1])
	if ttl < 0 then
		redis.call('PEXPIRE', KEYS[1], ARGV[1])
		ttl = tonumber(ARGV[1])
	end
	return { current, ttl }
`)

// RedisLimiter shares counters between server instances.
type RedisLimiter struct {
	rdb    redis.Scripter
	window time.Duration
	max    int
}

func NewRedisLimiter(rdb redis.Scripter, window time.Duration, max int) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, window: window, max: max}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	vals, err := fixedWindowScript.Run(ctx, l.rdb, []string{key}, l.window.Milliseconds()).Int64Slice()
	if err != nil {
		return Decision{}, err
	}
	if len(vals) != 2 {
		return Decision{}, fmt.Errorf("ratelimit: unexpected script result %v", vals)
	}
	return decide(int(vals[0]), l.max, time.Duration(vals[1])*time.Millisecond), nil
}

// MemoryLimiter keeps counters in process.  It is the fallback when Redis is
// not configured or fails.
type MemoryLimiter struct {
	mu      sync.Mutex
	window  time.Duration
	max     int
	now     func() time.Time
	windows map[string]memWindow
	calls   int
}

type memWindow struct {
	count int
	start time.Time
}

func NewMemoryLimiter(window time.Duration, max int) *MemoryLimiter {
	return &MemoryLimiter{window: window, max: max, now: time.Now, windows: make(map[string]memWindow)}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.calls++
	if l.calls%1024 == 0 {
		l.sweep(now)
	}

	w, ok := l.windows[key]
	if !ok || now.Sub(w.start) >= l.window {
		w = memWindow{start: now}
	}
	w.count++
	l.windows[key] = w
	return decide(w.count, l.max, w.start.Add(l.window).Sub(now)), nil
}

func (l *MemoryLimiter) sweep(now time.Time) {
	for k, w := range l.windows {
		if now.Sub(w.start) >= l.window {
			delete(l.windows, k)
		}
	}
}

// FallbackLimiter tries primary and, when it errors, answers from
// secondary instead of failing the request.
type FallbackLimiter struct {
	Primary   Limiter
	Secondary Limiter
	Log       logging.Logger
}

func (l *FallbackLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	d, err := l.Primary.Allow(ctx, key)
	if err == nil {
		return d, nil
	}
	l.Log.Warn(ctx, "ratelimit: primary limiter failed, using fallback", "err", err)
	return l.Secondary.Allow(ctx, key)
}

func decide(count, max int, reset time.Duration) Decision {
	if reset < 0 {
		reset = 0
	}
	remaining := max - count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{Allowed: count <= max, Limit: max, Remaining: remaining, Reset: reset}
}

// NewLimiter picks the limiter for cfg: Redis with an in-memory fallback
// when a client is available, in-memory otherwise.
func NewLimiter(cfg config.RateLimitConfig, rdb *redis.Client, log logging.Logger) Limiter {
	mem := NewMemoryLimiter(cfg.Window, cfg.Max)
	if rdb == nil {
		return mem
	}
	return &FallbackLimiter{Primary: NewRedisLimiter(rdb, cfg.Window, cfg.Max), Secondary: mem, Log: log}
}

// RateLimit counts every request it guards against the client address and
// rejects those over the limit with RateLimited.  The RateLimit-Limit,
// RateLimit-Remaining and RateLimit-Reset headers are always set;
// Retry-After is added on rejection.
func RateLimit(cfg config.RateLimitConfig, l Limiter, m *metrics.Metrics) echo.MiddlewareFunc {
	if !cfg.Enabled {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()
			if ip == "" {
				ip = "unknown"
			}
			d, err := l.Allow(c.Request().Context(), cfg.Prefix+":ip:"+ip)
			if err != nil {
				return apperr.Wrap(apperr.KindInternal, "rate limit", err)
			}

			resetSecs := int(math.Ceil(d.Reset.Seconds()))
			h := c.Response().Header()
			h.Set("RateLimit-Limit", strconv.Itoa(d.Limit))
			h.Set("RateLimit-Remaining", strconv.Itoa(d.Remaining))
			h.Set("RateLimit-Reset", strconv.Itoa(resetSecs))

			if !d.Allowed {
				h.Set("Retry-After", strconv.Itoa(resetSecs))
				m.Rejected("rate_limit")
				return apperr.ErrRateLimited
			}
			return next(c)
		}
	}
}
