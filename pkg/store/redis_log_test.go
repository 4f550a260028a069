package store

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sneakpeek-dev/sneakpeek-go/pkg/model"
)

func TestRedisLogAppendAndRead(t *testing.T) {
	s, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run: %v", err)
	}
	defer s.Close()
	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	logs := NewRedisLogStorage(rdb)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		line := &model.LogLine{Level: "info", Message: "line"}
		if err := logs.Append(ctx, "task-1", line); err != nil {
			t.Fatal(err)
		}
		if line.ID != int64(i+1) {
			t.Fatalf("expected id %d, got %d", i+1, line.ID)
		}
	}

	got, err := logs.Read(ctx, "task-1", 1, 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 lines after id 1, got %d", len(got))
	}
}
