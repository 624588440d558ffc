package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Lua script for an atomic sliding-window check.
// Scores are request times in milliseconds; entries at or before
// now-window fall out of the window.
const slidingWindowLuaScript = `
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local member = ARGV[4]

redis.call("ZREMRANGEBYSCORE", key, "-inf", now - window)

local count = redis.call("ZCARD", key)
if count >= limit then
    return {0, count}  -- denied
end

redis.call("ZADD", key, now, member)
redis.call("PEXPIRE", key, window)

return {1, count + 1}  -- allowed
`

// RedisLimiter keeps a sorted set of request times per IP.
type RedisLimiter struct {
	redis    *redis.Client
	script   *redis.Script
	settings Settings
	prefix   string
	now      func() time.Time
}

// NewRedisLimiter creates a limiter with a pre-compiled Lua script.
func NewRedisLimiter(rdb *redis.Client, s Settings) *RedisLimiter {
	return &RedisLimiter{
		redis:    rdb,
		script:   redis.NewScript(slidingWindowLuaScript),
		settings: s,
		prefix:   "leadfunnel:ratelimit:",
		now:      time.Now,
	}
}

// Allow records the request and reports whether it fits in the window.
func (l *RedisLimiter) Allow(ctx context.Context, ip string) (bool, error) {
	res, err := l.script.Run(ctx, l.redis, []string{l.prefix + ip},
		l.now().UnixMilli(),
		l.settings.Window.Milliseconds(),
		l.settings.MaxRequests,
		uuid.NewString(),
	).Slice()
	if err != nil {
		return true, fmt.Errorf("ratelimit: redis script: %w", err)
	}
	if len(res) < 1 {
		return true, fmt.Errorf("ratelimit: unexpected script result %v", res)
	}
	allowed, _ := res[0].(int64)
	return allowed == 1, nil
}
