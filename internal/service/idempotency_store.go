package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

type IdempotencyState string

const (
	IdempotencyStateNew        IdempotencyState = "new"
	IdempotencyStateInProgress IdempotencyState = "in_progress"
	IdempotencyStateConflict   IdempotencyState = "conflict"
	IdempotencyStateReplay     IdempotencyState = "replay"
)

type CachedHTTPResponse struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

type IdempotencyBeginResult struct {
	State  IdempotencyState
	Cached *CachedHTTPResponse
}

type IdempotencyStore interface {
	Begin(ctx context.Context, scope, key, fingerprint string, ttl time.Duration) (IdempotencyBeginResult, error)
	Complete(ctx context.Context, scope, key, fingerprint string, resp CachedHTTPResponse, ttl time.Duration) error
	Abort(ctx context.Context, scope, key, fingerprint string) error
}

var ErrIdempotencyFingerprintMismatch = errors.New("idempotency fingerprint mismatch")

// beginScript claims a key for the first caller and reports the stored state
// to everyone else as {status, fingerprint, response_status, content_type, response_body}.
var beginScript = redis.NewScript(`
local key = KEYS[1]
local fp = ARGV[1]
local ttl = tonumber(ARGV[2])
if redis.call('EXISTS', key) == 0 then
  redis.call('HSET', key, 'fingerprint', fp, 'status', 'in_progress')
  redis.call('PEXPIRE', key, ttl)
  return {'new', fp, '', '', ''}
end
local v = redis.call('HMGET', key, 'status', 'fingerprint', 'response_status', 'content_type', 'response_body')
for i = 1, 5 do
  if not v[i] then v[i] = '' end
end
return v
`)

var completeScript = redis.NewScript(`
local key = KEYS[1]
if redis.call('HGET', key, 'fingerprint') ~= ARGV[1] then
  return 0
end
redis.call('HSET', key, 'status', 'completed', 'response_status', ARGV[2], 'content_type', ARGV[3], 'response_body', ARGV[4])
redis.call('PEXPIRE', key, tonumber(ARGV[5]))
return 1
`)

var abortScript = redis.NewScript(`
if redis.call('HGET', KEYS[1], 'fingerprint') == ARGV[1] and redis.call('HGET', KEYS[1], 'status') == 'in_progress' then
  return redis.call('DEL', KEYS[1])
end
return 0
`)

type RedisIdempotencyStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisIdempotencyStore(client redis.UniversalClient, prefix string) *RedisIdempotencyStore {
	if prefix == "" {
		prefix = "idem"
	}
	return &RedisIdempotencyStore{client: client, prefix: prefix}
}

func (s *RedisIdempotencyStore) Begin(ctx context.Context, scope, key, fingerprint string, ttl time.Duration) (IdempotencyBeginResult, error) {
	vals, err := beginScript.Run(ctx, s.client, []string{s.redisKey(scope, key)}, fingerprint, ttl.Milliseconds()).StringSlice()
	if err != nil {
		return IdempotencyBeginResult{}, err
	}
	if len(vals) != 5 {
		return IdempotencyBeginResult{}, fmt.Errorf("unexpected idempotency state length %d", len(vals))
	}
	status, storedFP := vals[0], vals[1]
	if status == "new" {
		return IdempotencyBeginResult{State: IdempotencyStateNew}, nil
	}
	if storedFP != fingerprint {
		return IdempotencyBeginResult{State: IdempotencyStateConflict}, nil
	}
	if status != "completed" {
		return IdempotencyBeginResult{State: IdempotencyStateInProgress}, nil
	}
	code, err := strconv.Atoi(vals[2])
	if err != nil {
		return IdempotencyBeginResult{}, fmt.Errorf("parse replay status: %w", err)
	}
	body, err := base64.StdEncoding.DecodeString(vals[4])
	if err != nil {
		return IdempotencyBeginResult{}, fmt.Errorf("decode replay body: %w", err)
	}
	return IdempotencyBeginResult{
		State:  IdempotencyStateReplay,
		Cached: &CachedHTTPResponse{StatusCode: code, ContentType: vals[3], Body: body},
	}, nil
}

func (s *RedisIdempotencyStore) Complete(ctx context.Context, scope, key, fingerprint string, resp CachedHTTPResponse, ttl time.Duration) error {
	ok, err := completeScript.Run(ctx, s.client, []string{s.redisKey(scope, key)},
		fingerprint,
		resp.StatusCode,
		resp.ContentType,
		base64.StdEncoding.EncodeToString(resp.Body),
		ttl.Milliseconds(),
	).Int()
	if err != nil {
		return err
	}
	if ok == 0 {
		return ErrIdempotencyFingerprintMismatch
	}
	return nil
}

// Abort releases an in-progress claim so the client may retry.
func (s *RedisIdempotencyStore) Abort(ctx context.Context, scope, key, fingerprint string) error {
	return abortScript.Run(ctx, s.client, []string{s.redisKey(scope, key)}, fingerprint).Err()
}

func (s *RedisIdempotencyStore) redisKey(scope, key string) string {
	return fmt.Sprintf("%s:%s:%s", s.prefix, normalizeToken(scope), hashToken(key))
}
