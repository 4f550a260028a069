package store

import (
	"context"
	"testing"
	"time"
)

func TestLeaseAcquireAndRenew(t *testing.T) {
	ls := NewMemoryLeaseStorage()
	ctx := context.Background()

	ok, err := ls.MaybeAcquire(ctx, "scheduler", "owner-a", 1000)
	if err != nil || !ok {
		t.Fatalf("first acquire should succeed: %v, %v", ok, err)
	}

	ok, err = ls.MaybeAcquire(ctx, "scheduler", "owner-b", 1000)
	if err != nil || ok {
		t.Fatalf("second owner must not acquire a held lease: %v, %v", ok, err)
	}

	ok, err = ls.MaybeAcquire(ctx, "scheduler", "owner-a", 1000)
	if err != nil || !ok {
		t.Fatalf("owning process must be able to renew: %v, %v", ok, err)
	}
}

func TestLeaseAcquireAfterExpiry(t *testing.T) {
	ls := NewMemoryLeaseStorage()
	ctx := context.Background()

	if ok, err := ls.MaybeAcquire(ctx, "scheduler", "owner-a", 1); err != nil || !ok {
		t.Fatalf("first acquire should succeed: %v, %v", ok, err)
	}
	time.Sleep(5 * time.Millisecond)

	ok, err := ls.MaybeAcquire(ctx, "scheduler", "owner-b", 1000)
	if err != nil || !ok {
		t.Fatalf("expired lease should be acquirable by a new owner: %v, %v", ok, err)
	}
}

// TestReleaseByNonOwnerIsNoop covers the round-trip property in spec.md
// §8: "release_lease by non-owner is a no-op."
func TestReleaseByNonOwnerIsNoop(t *testing.T) {
	ls := NewMemoryLeaseStorage()
	ctx := context.Background()

	if _, err := ls.MaybeAcquire(ctx, "scheduler", "owner-a", 1000); err != nil {
		t.Fatal(err)
	}
	if err := ls.Release(ctx, "scheduler", "owner-b"); err != nil {
		t.Fatalf("release by non-owner should not error: %v", err)
	}

	ok, err := ls.MaybeAcquire(ctx, "scheduler", "owner-b", 1000)
	if err != nil || ok {
		t.Fatalf("lease must still be held by owner-a after a non-owner release: %v, %v", ok, err)
	}
}

func TestLeaseCardinalityAtMostOne(t *testing.T) {
	ls := NewMemoryLeaseStorage()
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		owner := "owner-" + string(rune('a'+i))
		ok, err := ls.MaybeAcquire(ctx, "scheduler", owner, 10000)
		if err != nil {
			t.Fatal(err)
		}
		if i == 0 && !ok {
			t.Fatal("first acquirer should succeed")
		}
		if i > 0 && ok {
			t.Fatalf("owner %s should not acquire an already-held lease", owner)
		}
	}

	lease, err := ls.Get(ctx, "scheduler")
	if err != nil || lease == nil || lease.Owner != "owner-a" {
		t.Fatalf("expected lease held by owner-a, got %v, %v", lease, err)
	}
}
