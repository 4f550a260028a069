package store

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupTestRedisLease(t *testing.T) *RedisLeaseStorage {
	t.Helper()
	s, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run: %v", err)
	}
	t.Cleanup(s.Close)
	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	return NewRedisLeaseStorage(rdb)
}

func TestRedisLeaseAcquireRenewRelease(t *testing.T) {
	ls := setupTestRedisLease(t)
	ctx := context.Background()

	ok, err := ls.MaybeAcquire(ctx, "scheduler", "owner-a", 60000)
	if err != nil || !ok {
		t.Fatalf("first acquire should succeed: %v, %v", ok, err)
	}

	ok, err = ls.MaybeAcquire(ctx, "scheduler", "owner-b", 60000)
	if err != nil || ok {
		t.Fatalf("second owner must not acquire: %v, %v", ok, err)
	}

	ok, err = ls.MaybeAcquire(ctx, "scheduler", "owner-a", 60000)
	if err != nil || !ok {
		t.Fatalf("owner should be able to renew: %v, %v", ok, err)
	}

	if err := ls.Release(ctx, "scheduler", "owner-b"); err != nil {
		t.Fatalf("release by non-owner should not error: %v", err)
	}
	lease, err := ls.Get(ctx, "scheduler")
	if err != nil || lease == nil || lease.Owner != "owner-a" {
		t.Fatalf("lease should still be held by owner-a, got %v, %v", lease, err)
	}

	if err := ls.Release(ctx, "scheduler", "owner-a"); err != nil {
		t.Fatal(err)
	}
	lease, err = ls.Get(ctx, "scheduler")
	if err != nil || lease != nil {
		t.Fatalf("expected no lease after owner release, got %v, %v", lease, err)
	}
}

func TestRedisLeaseGetMissingReturnsNil(t *testing.T) {
	ls := setupTestRedisLease(t)
	lease, err := ls.Get(context.Background(), "scheduler")
	if err != nil || lease != nil {
		t.Fatalf("expected nil lease, no error, got %v, %v", lease, err)
	}
}
