package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// windowCounterScript bumps the counter for the current window and returns
// {count, pttl}. A key that lost its TTL gets a fresh one.
var windowCounterScript = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
local ttl = redis.call('PTTL', KEYS[1])
if n == 1 or ttl < 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {n, ttl}
`)

type redisLimiter struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewRedisLimiter counts requests in fixed windows stored in Redis so every
// API instance draws from the same budget.
func NewRedisLimiter(client redis.UniversalClient, prefix string) Limiter {
	if prefix == "" {
		prefix = "rl"
	}
	return &redisLimiter{client: client, prefix: prefix, now: time.Now}
}

func (l *redisLimiter) Take(ctx context.Context, key string, q Quota) (Verdict, error) {
	q = q.orDefault()
	reply, err := windowCounterScript.Run(ctx, l.client, []string{l.prefix + ":" + key}, q.Window.Milliseconds()).Int64Slice()
	if err != nil {
		return Verdict{}, fmt.Errorf("rate limit counter: %w", err)
	}
	if len(reply) != 2 {
		return Verdict{}, fmt.Errorf("rate limit counter: unexpected reply %v", reply)
	}
	used := int(reply[0])
	ttl := time.Duration(reply[1]) * time.Millisecond
	reset := l.now().Add(ttl)
	if used > q.Limit {
		return Verdict{RetryAfter: ttl, ResetAt: reset}, nil
	}
	return Verdict{Allowed: true, Remaining: q.Limit - used, ResetAt: reset}, nil
}
