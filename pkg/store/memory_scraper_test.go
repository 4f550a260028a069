package store

import (
	"context"
	"testing"

	"github.com/sneakpeek-dev/sneakpeek-go/pkg/model"
)

func TestScraperCreateGetRoundTrip(t *testing.T) {
	s := NewMemoryScraperStorage()
	ctx := context.Background()

	sc := &model.Scraper{
		Name: "news-scraper", HandlerName: "html_links",
		ScheduleKind: model.ScheduleEveryHour, SchedulePriority: model.PriorityNormal,
	}
	if err := s.Create(ctx, sc); err != nil {
		t.Fatal(err)
	}
	if sc.ID == "" {
		t.Fatal("expected server-assigned id")
	}

	got, err := s.Get(ctx, sc.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != sc.Name || got.HandlerName != sc.HandlerName {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, sc)
	}
}

func TestScraperGetMissingFails(t *testing.T) {
	s := NewMemoryScraperStorage()
	if _, err := s.Get(context.Background(), "missing"); model.KindOf(err) != model.KindNotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestScraperMaybeGetMissingReturnsNilNoError(t *testing.T) {
	s := NewMemoryScraperStorage()
	got, err := s.MaybeGet(context.Background(), "missing")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil scraper, got %v", got)
	}
}

func TestReadOnlyStorageRejectsMutation(t *testing.T) {
	ctx := context.Background()
	seed := []*model.Scraper{{ID: "s1", Name: "s1", HandlerName: "h", ScheduleKind: model.ScheduleInactive}}
	s := NewReadOnlyMemoryScraperStorage(seed)

	if !s.IsReadOnly() {
		t.Fatal("expected IsReadOnly true")
	}
	if err := s.Create(ctx, &model.Scraper{Name: "x", HandlerName: "h", ScheduleKind: model.ScheduleInactive}); model.KindOf(err) != model.KindReadOnly {
		t.Fatalf("expected ReadOnly on Create, got %v", err)
	}
	if err := s.Update(ctx, seed[0]); model.KindOf(err) != model.KindReadOnly {
		t.Fatalf("expected ReadOnly on Update, got %v", err)
	}
	if err := s.Delete(ctx, "s1"); model.KindOf(err) != model.KindReadOnly {
		t.Fatalf("expected ReadOnly on Delete, got %v", err)
	}

	got, err := s.Get(ctx, "s1")
	if err != nil || got.Name != "s1" {
		t.Fatalf("reads should still work on a read-only store: %v, %v", got, err)
	}
}

func TestScraperSearchFilters(t *testing.T) {
	s := NewMemoryScraperStorage()
	ctx := context.Background()
	for _, sc := range []*model.Scraper{
		{Name: "news-a", HandlerName: "html_links", ScheduleKind: model.ScheduleEveryHour},
		{Name: "news-b", HandlerName: "dynamic_scraper", ScheduleKind: model.ScheduleEveryDay},
		{Name: "other", HandlerName: "html_links", ScheduleKind: model.ScheduleInactive},
	} {
		if err := s.Create(ctx, sc); err != nil {
			t.Fatal(err)
		}
	}

	out, err := s.Search(ctx, model.ScraperFilter{NamePrefix: "news-"})
	if err != nil || len(out) != 2 {
		t.Fatalf("expected 2 matches for prefix, got %d, %v", len(out), err)
	}

	out, err = s.Search(ctx, model.ScraperFilter{HandlerName: "html_links"})
	if err != nil || len(out) != 2 {
		t.Fatalf("expected 2 matches for handler, got %d, %v", len(out), err)
	}
}
