package middleware

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/iliyamo/service-marketplace/internal/config"
	"github.com/iliyamo/service-marketplace/internal/monitoring"
)

// tokenBucketScript refills the bucket in whole intervals, takes one token
// when available and returns {allowed, remaining, retry_after_ms}.
var tokenBucketScript = redis.NewScript(`
    local key = KEYS[1]
    local now_ms = tonumber(ARGV[1])
    local capacity = tonumber(ARGV[2])
    local refill_tokens = tonumber(ARGV[3])
    local interval_ms = tonumber(ARGV[4])
    local ttl_seconds = tonumber(ARGV[5])

    local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
    local tokens = tonumber(state[1])
    local last_refill = tonumber(state[2])

    if tokens == nil or last_refill == nil then
        tokens = capacity
        last_refill = now_ms
    end

    if interval_ms > 0 and refill_tokens > 0 then
        local elapsed = math.max(0, now_ms - last_refill)
        local intervals = math.floor(elapsed / interval_ms)
        if intervals > 0 then
            tokens = math.min(capacity, tokens + (intervals * refill_tokens))
            last_refill = last_refill + (intervals * interval_ms)
        end
    end

    local allowed = 0
    local retry_after_ms = 0
    if tokens > 0 then
        allowed = 1
        tokens = tokens - 1
    else
        local until_next = interval_ms - (now_ms - last_refill)
        if until_next < 0 then until_next = 0 end
        retry_after_ms = until_next
    end

    redis.call('HMSET', key, 'tokens', tokens, 'last_refill_ms', last_refill, 'capacity', capacity)
    redis.call('EXPIRE', key, ttl_seconds)

    return { allowed, tokens, retry_after_ms }
`)

// decision is the outcome of one bucket check.
type decision struct {
	allowed   bool
	remaining int64
	retry     time.Duration
}

// limiter takes a token for key.  An error means the limiter could not
// decide and the request is let through.
type limiter interface {
	take(ctx context.Context, key string) (decision, error)
}

// NewTokenBucket returns a rate limiting middleware.  With a Redis client
// the bucket state is shared across instances; without one each process
// keeps its own buckets.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client, log zerolog.Logger) echo.MiddlewareFunc {
	if !cfg.Enabled {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	var lim limiter
	if rdb != nil {
		lim = &redisLimiter{cfg: cfg, rdb: rdb}
	} else {
		lim = newLocalLimiter(cfg)
	}
	return rateLimit(cfg, lim, log)
}

func rateLimit(cfg config.RateLimitConfig, lim limiter, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := buildRateKey(cfg, c)
			d, err := lim.take(c.Request().Context(), key)
			if err != nil {
				if cfg.Debug {
					log.Warn().Err(err).Str("key", key).Msg("rate limiter unavailable")
				}
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(d.remaining, 10))

			if !d.allowed {
				secs := int(math.Ceil(d.retry.Seconds()))
				if secs < 0 {
					secs = 0
				}
				h.Set("Retry-After", strconv.Itoa(secs))
				monitoring.RecordRateLimitHit(c.Path())
				if cfg.Debug {
					log.Info().Str("key", key).Dur("retry", d.retry).Msg("rate limit block")
				}
				return c.JSON(http.StatusTooManyRequests, echo.Map{
					"error":       "too_many_requests",
					"message":     "rate limit exceeded",
					"retry_after": secs,
				})
			}

			if cfg.Debug {
				h.Set("X-RateLimit-Key", key)
			}
			return next(c)
		}
	}
}

type redisLimiter struct {
	cfg config.RateLimitConfig
	rdb *redis.Client
}

func (l *redisLimiter) take(ctx context.Context, key string) (decision, error) {
	args := []interface{}{
		time.Now().UnixMilli(),
		l.cfg.Capacity,
		l.cfg.RefillTokens,
		l.cfg.RefillInterval.Milliseconds(),
		int64(l.cfg.TTL / time.Second),
	}
	vals, err := tokenBucketScript.Run(ctx, l.rdb, []string{key}, args...).Result()
	if err != nil {
		return decision{}, err
	}
	arr, ok := vals.([]interface{})
	if !ok || len(arr) != 3 {
		return decision{}, fmt.Errorf("unexpected script result %#v", vals)
	}
	return decision{
		allowed:   asInt64(arr[0]) == 1,
		remaining: asInt64(arr[1]),
		retry:     time.Duration(asInt64(arr[2])) * time.Millisecond,
	}, nil
}

// localLimiter keeps one rate.Limiter per key.  Buckets idle for longer
// than the configured TTL are dropped on the next sweep.
type localLimiter struct {
	cfg   config.RateLimitConfig
	every rate.Limit

	mu        sync.Mutex
	buckets   map[string]*localBucket
	lastSweep time.Time
	now       func() time.Time
}

type localBucket struct {
	lim  *rate.Limiter
	seen time.Time
}

func newLocalLimiter(cfg config.RateLimitConfig) *localLimiter {
	per := cfg.RefillInterval / time.Duration(cfg.RefillTokens)
	return &localLimiter{
		cfg:     cfg,
		every:   rate.Every(per),
		buckets: make(map[string]*localBucket),
		now:     time.Now,
	}
}

func (l *localLimiter) take(_ context.Context, key string) (decision, error) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) > l.cfg.TTL {
		for k, b := range l.buckets {
			if now.Sub(b.seen) > l.cfg.TTL {
				delete(l.buckets, k)
			}
		}
		l.lastSweep = now
	}

	b, ok := l.buckets[key]
	if !ok {
		b = &localBucket{lim: rate.NewLimiter(l.every, l.cfg.Capacity)}
		l.buckets[key] = b
	}
	b.seen = now

	if b.lim.AllowN(now, 1) {
		return decision{allowed: true, remaining: int64(b.lim.TokensAt(now))}, nil
	}
	r := b.lim.ReserveN(now, 1)
	delay := r.DelayFrom(now)
	r.CancelAt(now)
	return decision{retry: delay}, nil
}

func asInt64(v interface{}) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int32:
		return int64(t)
	case int:
		return int64(t)
	case float64:
		return int64(t)
	case string:
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return n
		}
	}
	return 0
}

func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
	parts := []string{cfg.Prefix}
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	actor := actorKey(c)
	route := c.Request().Method + " " + c.Path()

	switch strings.ToLower(cfg.KeyStrategy) {
	case "ip":
		parts = append(parts, "ip", ip)
	case "actor":
		parts = append(parts, "actor", actor)
	case "route":
		parts = append(parts, "route", route)
	case "ip_actor":
		parts = append(parts, "ip", ip, "actor", actor)
	case "ip_route":
		parts = append(parts, "ip", ip, "route", route)
	case "actor_route":
		parts = append(parts, "actor", actor, "route", route)
	default:
		parts = append(parts, "ip", ip, "actor", actor, "route", route)
	}
	return strings.Join(parts, ":")
}
