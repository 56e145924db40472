package storage

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/storefront/internal/port"
)

const (
	sequenceKeyPrefix    = "orderseq:"
	idempotencyKeyPrefix = "idem:"
	idempotencyKeyTTL    = 24 * time.Hour
	sequenceKeyTTL       = 48 * time.Hour
)

// nextSequenceScript increments the day counter and sets its expiry on the
// first increment of the day.
var nextSequenceScript = redis.NewScript(`
local key = KEYS[1]
local ttl = tonumber(ARGV[1])

local current = redis.call('INCR', key)
if current == 1 then
	redis.call('EXPIRE', key, ttl)
end

return current
`)

// resyncSequenceScript moves the day counter up to ARGV[1] when it is behind.
var resyncSequenceScript = redis.NewScript(`
local key = KEYS[1]
local floor = tonumber(ARGV[1])
local ttl = tonumber(ARGV[2])

local current = tonumber(redis.call('GET', key) or '0')
if current < floor then
	redis.call('SET', key, floor, 'EX', ttl)
	return floor
end

return current
`)

type RedisAdapter struct {
	client *redis.Client
}

func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client}
}

var (
	_ port.SequenceRepository    = (*RedisAdapter)(nil)
	_ port.IdempotencyRepository = (*RedisAdapter)(nil)
)

func (r *RedisAdapter) Next(ctx context.Context, day string) (int64, error) {
	key := sequenceKeyPrefix + day
	return nextSequenceScript.Run(ctx, r.client, []string{key}, int(sequenceKeyTTL.Seconds())).Int64()
}

func (r *RedisAdapter) Resync(ctx context.Context, day string, floor int64) error {
	key := sequenceKeyPrefix + day
	return resyncSequenceScript.Run(ctx, r.client, []string{key}, floor, int(sequenceKeyTTL.Seconds())).Err()
}

func (r *RedisAdapter) SetIdempotency(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, idempotencyKeyPrefix+key, 1, idempotencyKeyTTL).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

func (r *RedisAdapter) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
