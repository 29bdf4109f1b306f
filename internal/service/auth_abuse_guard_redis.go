package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// registerFailureScript increments the failure counter stored in a hash and
// returns the resulting cooldown in milliseconds.
var registerFailureScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local free = tonumber(ARGV[2])
local base = tonumber(ARGV[3])
local mult = tonumber(ARGV[4])
local maxd = tonumber(ARGV[5])
local window = tonumber(ARGV[6])
local failures = tonumber(redis.call('HGET', key, 'failures') or '0')
local last = tonumber(redis.call('HGET', key, 'last_failure_ms') or '0')
if failures == nil or last == nil then
  return redis.error_reply('malformed abuse state')
end
if last > 0 and now - last > window then
  failures = 0
end
failures = failures + 1
local delay = 0
if failures > free then
  delay = base * (mult ^ (failures - free - 1))
  if delay > maxd then
    delay = maxd
  end
end
delay = math.floor(delay)
local untilms = 0
if delay > 0 then
  untilms = now + delay
end
redis.call('HSET', key, 'failures', failures, 'last_failure_ms', now, 'cooldown_until_ms', untilms)
redis.call('PEXPIRE', key, window + maxd)
return delay
`)

type RedisAuthAbuseGuard struct {
	client redis.UniversalClient
	prefix string
	policy AuthAbusePolicy
}

func NewRedisAuthAbuseGuard(client redis.UniversalClient, prefix string, policy AuthAbusePolicy) *RedisAuthAbuseGuard {
	if prefix == "" {
		prefix = "auth_abuse"
	}
	return &RedisAuthAbuseGuard{client: client, prefix: prefix, policy: normalizeAuthAbusePolicy(policy)}
}

func (g *RedisAuthAbuseGuard) Check(ctx context.Context, scope AuthAbuseScope, identity, ip string) (time.Duration, error) {
	nowMS := time.Now().UnixMilli()
	var longest time.Duration
	for _, d := range abuseDimensions(identity, ip) {
		raw, err := g.client.HGet(ctx, g.stateKey(scope, d.name, d.value), "cooldown_until_ms").Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return 0, err
		}
		until, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse cooldown_until_ms: %w", err)
		}
		if remaining := time.Duration(until-nowMS) * time.Millisecond; remaining > longest {
			longest = remaining
		}
	}
	return longest, nil
}

func (g *RedisAuthAbuseGuard) RegisterFailure(ctx context.Context, scope AuthAbuseScope, identity, ip string) (time.Duration, error) {
	nowMS := time.Now().UnixMilli()
	var longest time.Duration
	for _, d := range abuseDimensions(identity, ip) {
		delayMS, err := registerFailureScript.Run(ctx, g.client, []string{g.stateKey(scope, d.name, d.value)},
			nowMS,
			g.policy.FreeAttempts,
			g.policy.BaseDelay.Milliseconds(),
			g.policy.Multiplier,
			g.policy.MaxDelay.Milliseconds(),
			g.policy.ResetWindow.Milliseconds(),
		).Int64()
		if err != nil {
			return 0, err
		}
		if delay := time.Duration(delayMS) * time.Millisecond; delay > longest {
			longest = delay
		}
	}
	return longest, nil
}

func (g *RedisAuthAbuseGuard) Reset(ctx context.Context, scope AuthAbuseScope, identity, ip string) error {
	dims := abuseDimensions(identity, ip)
	if len(dims) == 0 {
		return nil
	}
	keys := make([]string, 0, len(dims))
	for _, d := range dims {
		keys = append(keys, g.stateKey(scope, d.name, d.value))
	}
	return g.client.Del(ctx, keys...).Err()
}

func (g *RedisAuthAbuseGuard) stateKey(scope AuthAbuseScope, dimension, value string) string {
	return fmt.Sprintf("%s:%s:%s:%s", g.prefix, normalizeToken(string(scope)), dimension, hashToken(value))
}
