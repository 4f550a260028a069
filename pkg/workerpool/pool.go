// Package workerpool runs a fixed-size pool of workers that dequeue
// tasks, execute the bound handler through its middleware chain, emit
// heartbeats, and persist the terminal outcome, per spec.md §5.
package workerpool

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sneakpeek-dev/sneakpeek-go/pkg/handler"
	"github.com/sneakpeek-dev/sneakpeek-go/pkg/logger"
	"github.com/sneakpeek-dev/sneakpeek-go/pkg/model"
	"github.com/sneakpeek-dev/sneakpeek-go/pkg/observability"
	"github.com/sneakpeek-dev/sneakpeek-go/pkg/queue"
	"github.com/sneakpeek-dev/sneakpeek-go/pkg/scrapectx"
	"github.com/sneakpeek-dev/sneakpeek-go/pkg/store"
)

var log = logger.Component("workerpool")

// ChainResolver builds the ordered middleware chain and per-middleware
// config overrides to use for a given scraper's config.
type ChainResolver func(cfg model.ScraperConfig) ([]scrapectx.Middleware, map[string]json.RawMessage)

// Config bounds one worker pool instance.
type Config struct {
	Size              int
	PollInterval      time.Duration
	MaxPollBackoff    time.Duration
	HeartbeatInterval time.Duration
	DefaultTaskTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		Size:               50,
		PollInterval:       200 * time.Millisecond,
		MaxPollBackoff:     5 * time.Second,
		HeartbeatInterval:  5 * time.Second,
		// Unlimited by default, per spec.md §5; a scraper opts into a
		// task-wide timeout via config.task_timeout_seconds.
		DefaultTaskTimeout: 0,
	}
}

// Pool dequeues and executes tasks with Config.Size concurrent workers.
type Pool struct {
	queue     *queue.Queue
	logs      store.LogStorage
	registry  *handler.Registry
	resolveMw ChainResolver
	cfg       Config

	active int64
}

func New(q *queue.Queue, logs store.LogStorage, registry *handler.Registry, resolveMw ChainResolver, cfg Config) *Pool {
	return &Pool{queue: q, logs: logs, registry: registry, resolveMw: resolveMw, cfg: cfg}
}

// ActiveCount is read by the scheduler's circuit breaker to compute
// worker-pool saturation.
func (p *Pool) ActiveCount() int { return int(atomic.LoadInt64(&p.active)) }

// Run starts Config.Size workers and blocks until ctx is cancelled.
func (p *Pool) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(p.cfg.Size)
	for i := 0; i < p.cfg.Size; i++ {
		go func(id int) {
			defer wg.Done()
			p.worker(ctx, id)
		}(i)
	}
	wg.Wait()
}

func (p *Pool) worker(ctx context.Context, id int) {
	backoff := p.cfg.PollInterval
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		task, err := p.queue.Dequeue(ctx)
		if err != nil {
			log.Warn().Err(err).Int("worker", id).Msg("dequeue failed")
			sleep(ctx, backoff)
			continue
		}
		if task == nil {
			backoff *= 2
			if backoff > p.cfg.MaxPollBackoff {
				backoff = p.cfg.MaxPollBackoff
			}
			sleep(ctx, backoff)
			continue
		}
		backoff = p.cfg.PollInterval
		p.execute(ctx, task)
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func (p *Pool) execute(parentCtx context.Context, task *model.Task) {
	atomic.AddInt64(&p.active, 1)
	defer atomic.AddInt64(&p.active, -1)

	// Deriving from parentCtx (not context.Background()) means worker
	// process shutdown cancels every in-flight task, per spec.md §5's
	// cancellation sources. A zero per-scraper timeout means unlimited;
	// DefaultTaskTimeout only applies when the scraper didn't set one.
	timeout := p.cfg.DefaultTaskTimeout
	if s := task.Config.TaskTimeoutSeconds; s > 0 {
		timeout = time.Duration(s) * time.Second
	}
	var taskCtx context.Context
	var cancel context.CancelFunc
	if timeout > 0 {
		taskCtx, cancel = context.WithTimeout(parentCtx, timeout)
	} else {
		taskCtx, cancel = context.WithCancel(parentCtx)
	}
	defer cancel()

	var killed int32
	stop := make(chan struct{})
	var hbWg sync.WaitGroup
	hbWg.Add(1)
	go func() {
		defer hbWg.Done()
		p.heartbeat(taskCtx, task.ID, cancel, stop, &killed)
	}()
	defer func() {
		close(stop)
		hbWg.Wait()
	}()

	start := time.Now()
	result, runErr := p.run(taskCtx, task)
	duration := time.Since(start)
	observability.TaskDurationSeconds.Observe(duration.Seconds())

	now := time.Now().UTC()
	task.FinishedAt = &now

	switch {
	case runErr == nil:
		task.Status = model.StatusSucceeded
		if result != nil {
			if err := task.MarshalResult(result); err != nil {
				log.Warn().Err(err).Str("task_id", task.ID).Msg("failed to marshal task result")
			}
		}
	case atomic.LoadInt32(&killed) == 1:
		task.Status = model.StatusKilled
	case taskCtx.Err() == context.DeadlineExceeded:
		// Exceeding the task-wide timeout cancels the context with
		// KILLED, same as a manual kill, per spec.md §5.
		task.Status = model.StatusKilled
		task.Result = fmt.Sprintf(`{"error":%q}`, "task exceeded its timeout")
	case parentCtx.Err() != nil:
		// Worker process shutdown is a cancellation source too.
		task.Status = model.StatusKilled
		task.Result = fmt.Sprintf(`{"error":%q}`, "worker shutting down")
	default:
		task.Status = model.StatusFailed
		kind := model.KindOf(runErr)
		if kind == "" {
			kind = model.KindHandlerError
		}
		task.Result = fmt.Sprintf(`{"error":%q,"kind":%q}`, runErr.Error(), kind)
	}

	if err := p.queue.Update(context.Background(), task); err != nil {
		log.Warn().Err(err).Str("task_id", task.ID).Msg("failed to persist task result")
	}
	observability.TasksTotal.WithLabelValues(string(task.Status)).Inc()
}

// run resolves the handler and middleware chain and invokes the
// handler, recovering from a panic as a HandlerError so one bad
// scraper never takes down a worker goroutine.
func (p *Pool) run(ctx context.Context, task *model.Task) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = model.NewError(model.KindHandlerError, fmt.Sprintf("handler panicked: %v", r), nil)
		}
	}()

	h, err := p.registry.Resolve(task.HandlerName)
	if err != nil {
		return nil, err
	}

	chain, overrides := p.resolveMw(task.Config)
	sctx := scrapectx.New(ctx, task.Config.Params, task.ScraperID, task.ID, chain, overrides)

	return h(ctx, sctx)
}

// maxHeartbeatFailures bounds the consecutive storage faults a
// heartbeat tolerates before giving up and killing the task, per
// spec.md §7's StorageUnavailable propagation policy (3 attempts).
const maxHeartbeatFailures = 3

// heartbeat periodically re-stamps the task's last_active_at so the
// reaper doesn't mistake a live task for dead, and watches for an
// external KILLED transition (e.g. via the API) to cancel taskCtx. A
// storage fault is tolerated up to maxHeartbeatFailures in a row;
// beyond that the task is cancelled with KILLED rather than left to
// drift silently toward the reaper's longer dead-threshold.
func (p *Pool) heartbeat(ctx context.Context, taskID string, cancel context.CancelFunc, stop chan struct{}, killed *int32) {
	ticker := time.NewTicker(p.cfg.HeartbeatInterval)
	defer ticker.Stop()
	failures := 0
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			t, err := p.queue.Get(context.Background(), taskID)
			if err != nil {
				failures++
				log.Warn().Err(err).Str("task_id", taskID).Int("failures", failures).Msg("heartbeat read failed")
				if failures >= maxHeartbeatFailures {
					atomic.StoreInt32(killed, 1)
					cancel()
					return
				}
				continue
			}
			if t.Status == model.StatusKilled {
				atomic.StoreInt32(killed, 1)
				cancel()
				return
			}
			now := time.Now().UTC()
			t.LastActiveAt = &now
			if err := p.queue.Update(context.Background(), t); err != nil {
				failures++
				log.Warn().Err(err).Str("task_id", taskID).Int("failures", failures).Msg("heartbeat update failed")
				if failures >= maxHeartbeatFailures {
					atomic.StoreInt32(killed, 1)
					cancel()
					return
				}
				continue
			}
			failures = 0
		}
	}
}
