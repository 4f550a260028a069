package store

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sneakpeek-dev/sneakpeek-go/pkg/model"
)

func setupTestRedisScraper(t *testing.T) *RedisScraperStorage {
	t.Helper()
	s, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run: %v", err)
	}
	t.Cleanup(s.Close)
	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	return NewRedisScraperStorage(rdb)
}

func TestRedisScraperCreateGetRoundTrip(t *testing.T) {
	s := setupTestRedisScraper(t)
	ctx := context.Background()

	sc := &model.Scraper{Name: "news", HandlerName: "html_links", ScheduleKind: model.ScheduleEveryHour}
	if err := s.Create(ctx, sc); err != nil {
		t.Fatal(err)
	}
	if sc.ID == "" {
		t.Fatal("expected assigned id")
	}

	got, err := s.Get(ctx, sc.ID)
	if err != nil || got.Name != "news" {
		t.Fatalf("round trip mismatch: %v, %v", got, err)
	}
}

func TestRedisScraperUpdateMissingFails(t *testing.T) {
	s := setupTestRedisScraper(t)
	sc := &model.Scraper{ID: "missing", Name: "x", HandlerName: "h", ScheduleKind: model.ScheduleInactive}
	if err := s.Update(context.Background(), sc); model.KindOf(err) != model.KindNotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestRedisScraperDeleteRemovesFromListing(t *testing.T) {
	s := setupTestRedisScraper(t)
	ctx := context.Background()
	sc := &model.Scraper{Name: "news", HandlerName: "html_links", ScheduleKind: model.ScheduleInactive}
	if err := s.Create(ctx, sc); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, sc.ID); err != nil {
		t.Fatal(err)
	}
	all, err := s.List(ctx)
	if err != nil || len(all) != 0 {
		t.Fatalf("expected empty list after delete, got %v, %v", all, err)
	}
}

func TestRedisScraperReadOnly(t *testing.T) {
	s, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run: %v", err)
	}
	defer s.Close()
	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	ro := NewReadOnlyRedisScraperStorage(rdb)

	if !ro.IsReadOnly() {
		t.Fatal("expected read-only")
	}
	err = ro.Create(context.Background(), &model.Scraper{Name: "x", HandlerName: "h", ScheduleKind: model.ScheduleInactive})
	if model.KindOf(err) != model.KindReadOnly {
		t.Fatalf("expected ReadOnly, got %v", err)
	}
}
