package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sneakpeek-dev/sneakpeek-go/pkg/model"
	"github.com/sneakpeek-dev/sneakpeek-go/pkg/observability"
)

// acquireScript grants the lease if unheld, or renews it for the current
// owner; it never steals a lease held by someone else.
var acquireScript = redis.NewScript(`
local key = KEYS[1]
local owner = ARGV[1]
local ttl = ARGV[2]
local cur = redis.call("GET", key)
if cur == false or cur == owner then
	redis.call("SET", key, owner, "PX", ttl)
	return 1
end
return 0
`)

// releaseScript deletes the lease only if still held by owner.
var releaseScript = redis.NewScript(`
local key = KEYS[1]
local owner = ARGV[1]
if redis.call("GET", key) == owner then
	redis.call("DEL", key)
end
return 1
`)

// RedisLeaseStorage implements LeaseStorage with one compare-and-set Lua
// script (GET then SET PX) for both first acquisition and renewal, and a
// second for release, per the scheduler's single-writer lease contract.
type RedisLeaseStorage struct {
	rdb *redis.Client
}

func NewRedisLeaseStorage(rdb *redis.Client) *RedisLeaseStorage {
	return &RedisLeaseStorage{rdb: rdb}
}

func (s *RedisLeaseStorage) MaybeAcquire(ctx context.Context, name, owner string, ttlMillis int64) (bool, error) {
	start := time.Now()
	defer func() {
		observability.RedisOpLatency.WithLabelValues("lease_acquire").Observe(time.Since(start).Seconds())
	}()

	res, err := acquireScript.Run(ctx, s.rdb, []string{leaseKey(name)}, owner, ttlMillis).Int()
	if err != nil {
		return false, model.NewError(model.KindStorageUnavailable, "acquire lease "+name, err)
	}
	return res == 1, nil
}

func (s *RedisLeaseStorage) Release(ctx context.Context, name, owner string) error {
	start := time.Now()
	defer func() {
		observability.RedisOpLatency.WithLabelValues("lease_release").Observe(time.Since(start).Seconds())
	}()

	if _, err := releaseScript.Run(ctx, s.rdb, []string{leaseKey(name)}, owner).Result(); err != nil {
		return model.NewError(model.KindStorageUnavailable, "release lease "+name, err)
	}
	return nil
}

func (s *RedisLeaseStorage) Get(ctx context.Context, name string) (*model.Lease, error) {
	owner, err := s.rdb.Get(ctx, leaseKey(name)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, model.NewError(model.KindStorageUnavailable, "get lease "+name, err)
	}
	ttl, err := s.rdb.PTTL(ctx, leaseKey(name)).Result()
	if err != nil {
		return nil, model.NewError(model.KindStorageUnavailable, "get lease ttl "+name, err)
	}
	return &model.Lease{
		Name:          name,
		Owner:         owner,
		AcquiredUntil: time.Now().Add(ttl),
	}, nil
}
