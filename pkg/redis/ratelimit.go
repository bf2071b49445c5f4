package redis

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// Wait polling bounds
const (
	minPollInterval = 50 * time.Millisecond
	maxPollInterval = time.Second
)

// slidingWindow admits a request when fewer than limit members fall inside the window.
// KEYS[1] window key; ARGV: now_ms, window_ms, limit, member
var slidingWindow = redis.NewScript(`
	local key = KEYS[1]
	local now = tonumber(ARGV[1])
	local window_ms = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])

	redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window_ms)

	local count = redis.call('ZCARD', key)
	if count >= limit then
		return {0, 0}
	end

	redis.call('ZADD', key, now, ARGV[4])
	redis.call('PEXPIRE', key, window_ms)
	return {1, limit - count - 1}
`)

// RateLimiter shares a request budget across processes through Redis
// ⭐ SSOT: 레이트 리밋은 여기서만
type RateLimiter struct {
	client *Client
	prefix string
	seq    atomic.Uint64
}

// RateLimitConfig is a budget of Limit requests per Window under Key
type RateLimitConfig struct {
	Key    string
	Limit  int
	Window time.Duration
}

// PerMinute builds a budget of n requests per minute
func PerMinute(key string, n int) RateLimitConfig {
	return RateLimitConfig{Key: key, Limit: n, Window: time.Minute}
}

// AlphaVantageRateLimit is the provider budget; the free tier allows 5 per minute
func AlphaVantageRateLimit(requestsPerMinute int) RateLimitConfig {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 5
	}
	return PerMinute("alphavantage", requestsPerMinute)
}

// NewRateLimiter creates a limiter whose keys live under prefix
func NewRateLimiter(client *Client, prefix string) *RateLimiter {
	return &RateLimiter{client: client, prefix: prefix}
}

// Allow takes one slot from the budget if available.
// Returns (allowed, remaining, error); a disabled client or a non-positive limit always allows.
func (r *RateLimiter) Allow(ctx context.Context, cfg RateLimitConfig) (bool, int, error) {
	if !r.client.Enabled() || cfg.Limit <= 0 {
		return true, cfg.Limit, nil
	}

	now := time.Now().UnixMilli()
	key := fmt.Sprintf("%s:ratelimit:%s", r.prefix, cfg.Key)
	// 같은 ms에 들어온 요청도 각각 집계되도록 member에 순번을 붙임
	member := fmt.Sprintf("%d-%d", now, r.seq.Add(1))

	result, err := slidingWindow.Run(ctx, r.client.Redis(), []string{key},
		now, cfg.Window.Milliseconds(), cfg.Limit, member,
	).Int64Slice()
	if err != nil {
		return false, 0, fmt.Errorf("rate limit %s: %w", cfg.Key, err)
	}

	return result[0] == 1, int(result[1]), nil
}

// Wait blocks until a slot is taken or ctx is done
func (r *RateLimiter) Wait(ctx context.Context, cfg RateLimitConfig) error {
	interval := pollInterval(cfg)
	for {
		allowed, _, err := r.Allow(ctx, cfg)
		if err != nil {
			return err
		}
		if allowed {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

// pollInterval spaces retries at the budget's average spacing, clamped
func pollInterval(cfg RateLimitConfig) time.Duration {
	if cfg.Limit <= 0 {
		return minPollInterval
	}
	d := cfg.Window / time.Duration(cfg.Limit)
	if d < minPollInterval {
		return minPollInterval
	}
	if d > maxPollInterval {
		return maxPollInterval
	}
	return d
}
