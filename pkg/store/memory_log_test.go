package store

import (
	"context"
	"testing"

	"github.com/sneakpeek-dev/sneakpeek-go/pkg/model"
)

func TestLogAppendAssignsMonotonicIDs(t *testing.T) {
	s := NewMemoryLogStorage()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		line := &model.LogLine{Level: "info", Message: "line"}
		if err := s.Append(ctx, "task-1", line); err != nil {
			t.Fatal(err)
		}
		if line.ID != int64(i+1) {
			t.Fatalf("expected id %d, got %d", i+1, line.ID)
		}
	}
}

func TestLogReadAfterID(t *testing.T) {
	s := NewMemoryLogStorage()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if err := s.Append(ctx, "task-1", &model.LogLine{Message: "x"}); err != nil {
			t.Fatal(err)
		}
	}

	lines, err := s.Read(ctx, "task-1", 2, 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines after id 2, got %d", len(lines))
	}
	if lines[0].ID != 3 {
		t.Fatalf("expected first returned line id 3, got %d", lines[0].ID)
	}
}

func TestLogReadRespectsMaxLines(t *testing.T) {
	s := NewMemoryLogStorage()
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		if err := s.Append(ctx, "task-1", &model.LogLine{Message: "x"}); err != nil {
			t.Fatal(err)
		}
	}

	lines, err := s.Read(ctx, "task-1", 0, 4)
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d", len(lines))
	}
}

func TestLogLinesAreIsolatedPerTask(t *testing.T) {
	s := NewMemoryLogStorage()
	ctx := context.Background()
	if err := s.Append(ctx, "task-a", &model.LogLine{Message: "a"}); err != nil {
		t.Fatal(err)
	}

	lines, err := s.Read(ctx, "task-b", 0, 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 0 {
		t.Fatalf("expected no lines for an unrelated task, got %d", len(lines))
	}
}
