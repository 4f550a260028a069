package workerpool

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/sneakpeek-dev/sneakpeek-go/pkg/handler"
	"github.com/sneakpeek-dev/sneakpeek-go/pkg/model"
	"github.com/sneakpeek-dev/sneakpeek-go/pkg/queue"
	"github.com/sneakpeek-dev/sneakpeek-go/pkg/scrapectx"
	"github.com/sneakpeek-dev/sneakpeek-go/pkg/store"
)

func noopResolver(cfg model.ScraperConfig) ([]scrapectx.Middleware, map[string]json.RawMessage) {
	return nil, nil
}

func newTestPool(registry *handler.Registry, cfg Config) (*Pool, *queue.Queue) {
	q := queue.New(store.NewMemoryQueueStorage())
	p := New(q, store.NewMemoryLogStorage(), registry, noopResolver, cfg)
	return p, q
}

func TestExecuteSucceedsAndMarshalsResult(t *testing.T) {
	registry := handler.NewRegistry()
	registry.Register("echo", func(ctx context.Context, sctx *scrapectx.Context) (interface{}, error) {
		return map[string]string{"ok": "yes"}, nil
	})
	registry.Freeze()

	p, q := newTestPool(registry, DefaultConfig())
	task, err := q.Enqueue(context.Background(), "s1", "echo", model.ScraperConfig{}, model.PriorityNormal)
	if err != nil {
		t.Fatal(err)
	}

	p.execute(context.Background(), task)

	got, err := q.Get(context.Background(), task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != model.StatusSucceeded {
		t.Fatalf("expected SUCCEEDED, got %s", got.Status)
	}
	if got.Result == "" {
		t.Fatal("expected a marshalled result")
	}
}

func TestExecuteRecoversPanicAsFailed(t *testing.T) {
	registry := handler.NewRegistry()
	registry.Register("boom", func(ctx context.Context, sctx *scrapectx.Context) (interface{}, error) {
		panic("kaboom")
	})
	registry.Freeze()

	p, q := newTestPool(registry, DefaultConfig())
	task, err := q.Enqueue(context.Background(), "s1", "boom", model.ScraperConfig{}, model.PriorityNormal)
	if err != nil {
		t.Fatal(err)
	}

	p.execute(context.Background(), task)

	got, err := q.Get(context.Background(), task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != model.StatusFailed {
		t.Fatalf("expected FAILED after panic recovery, got %s", got.Status)
	}
}

// TestExecuteTaskTimeoutKillsTask covers the per-scraper
// config.task_timeout_seconds override: a handler that outlives it is
// cancelled and marked KILLED, not FAILED.
func TestExecuteTaskTimeoutKillsTask(t *testing.T) {
	registry := handler.NewRegistry()
	registry.Register("slow", func(ctx context.Context, sctx *scrapectx.Context) (interface{}, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	registry.Freeze()

	cfg := DefaultConfig()
	cfg.HeartbeatInterval = time.Hour // keep the heartbeat goroutine out of the way
	p, q := newTestPool(registry, cfg)

	task, err := q.Enqueue(context.Background(), "s1", "slow", model.ScraperConfig{TaskTimeoutSeconds: 1}, model.PriorityNormal)
	if err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	p.execute(context.Background(), task)
	if time.Since(start) > 3*time.Second {
		t.Fatalf("execute took unexpectedly long: %v", time.Since(start))
	}

	got, err := q.Get(context.Background(), task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != model.StatusKilled {
		t.Fatalf("expected KILLED on timeout, got %s", got.Status)
	}
}

// TestExecuteHeartbeatObservesExternalKill covers the manual-kill
// source: when another process flips the task to KILLED mid-run, the
// heartbeat loop must notice and cancel the handler's context. The
// heartbeat reacts to KILLED only; a task the reaper has marked DEAD is
// not cancelled by it.
func TestExecuteHeartbeatObservesExternalKill(t *testing.T) {
	registry := handler.NewRegistry()
	started := make(chan struct{})
	registry.Register("slow", func(ctx context.Context, sctx *scrapectx.Context) (interface{}, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	})
	registry.Freeze()

	cfg := DefaultConfig()
	cfg.HeartbeatInterval = 10 * time.Millisecond
	p, q := newTestPool(registry, cfg)

	task, err := q.Enqueue(context.Background(), "s1", "slow", model.ScraperConfig{}, model.PriorityNormal)
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		p.execute(context.Background(), task)
		close(done)
	}()

	<-started
	killed, err := q.Get(context.Background(), task.ID)
	if err != nil {
		t.Fatal(err)
	}
	killed.Status = model.StatusKilled
	if err := q.Update(context.Background(), killed); err != nil {
		t.Fatal(err)
	}

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("expected execute to return once the heartbeat observes the external kill")
	}

	got, err := q.Get(context.Background(), task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != model.StatusKilled {
		t.Fatalf("expected KILLED to stick, got %s", got.Status)
	}
}

func TestExecuteParentShutdownKillsInFlightTask(t *testing.T) {
	registry := handler.NewRegistry()
	started := make(chan struct{})
	registry.Register("slow", func(ctx context.Context, sctx *scrapectx.Context) (interface{}, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	})
	registry.Freeze()

	cfg := DefaultConfig()
	cfg.HeartbeatInterval = time.Hour
	p, q := newTestPool(registry, cfg)

	task, err := q.Enqueue(context.Background(), "s1", "slow", model.ScraperConfig{}, model.PriorityNormal)
	if err != nil {
		t.Fatal(err)
	}

	parentCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.execute(parentCtx, task)
		close(done)
	}()

	<-started
	cancel()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("expected execute to return once the parent context is cancelled")
	}

	got, err := q.Get(context.Background(), task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != model.StatusKilled {
		t.Fatalf("expected KILLED on worker shutdown, got %s", got.Status)
	}
}
