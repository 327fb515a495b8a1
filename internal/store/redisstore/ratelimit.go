package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/projectauth/pkg/ratelimiter"
)

// DefaultRateLimitPrefix namespaces bucket keys.
const DefaultRateLimitPrefix = "auth:ratelimit:"

// consumeScript refills and charges a bucket atomically. It mirrors the
// in-memory store: denied attempts leave the bucket untouched and the key
// expires once a full refill would have happened anyway.
var consumeScript = redis.NewScript(`
local capacity = tonumber(ARGV[1])
local rate     = tonumber(ARGV[2])
local interval = tonumber(ARGV[3])
local now      = tonumber(ARGV[4])
local cost     = tonumber(ARGV[5])

local state  = redis.call('HMGET', KEYS[1], 'tokens', 'refill')
local tokens = tonumber(state[1])
local refill = tonumber(state[2])
if tokens == nil or refill == nil then
  tokens = capacity
  refill = now
end

local intervals = math.floor((now - refill) / interval)
if intervals > 0 then
  tokens = math.min(tokens + intervals * rate, capacity)
  if tokens == capacity then
    refill = now
  else
    refill = refill + intervals * interval
  end
end

local remaining = tokens - cost
if remaining >= 0 then
  tokens = remaining
end

redis.call('HSET', KEYS[1], 'tokens', tokens, 'refill', refill)
redis.call('PEXPIRE', KEYS[1], (math.ceil(capacity / rate) + 1) * interval)
return {remaining, refill + interval}
`)

// RateLimitStore is a ratelimiter.Store shared by every process using the
// same Redis.
type RateLimitStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRateLimitStore wraps client. An empty prefix uses DefaultRateLimitPrefix.
func NewRateLimitStore(client redis.UniversalClient, prefix string) *RateLimitStore {
	if prefix == "" {
		prefix = DefaultRateLimitPrefix
	}
	return &RateLimitStore{client: client, prefix: prefix}
}

func (s *RateLimitStore) ConsumeTokens(ctx context.Context, key string, tokens int, cfg ratelimiter.Config, now time.Time) (int, time.Time, error) {
	out, err := consumeScript.Run(ctx, s.client, []string{s.prefix + key},
		cfg.Capacity, cfg.RefillRate, cfg.RefillInterval.Milliseconds(), now.UnixMilli(), tokens,
	).Int64Slice()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("rate limit consume: %w", err)
	}
	if len(out) != 2 {
		return 0, time.Time{}, fmt.Errorf("rate limit consume: unexpected reply %v", out)
	}
	return int(out[0]), time.UnixMilli(out[1]).UTC(), nil
}

func (s *RateLimitStore) Reset(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("rate limit reset: %w", err)
	}
	return nil
}
