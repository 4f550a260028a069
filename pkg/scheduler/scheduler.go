// Package scheduler evaluates scraper schedules and enqueues due tasks,
// subject to the at-most-one-concurrent-execution-per-scraper invariant,
// backpressure, and a circuit breaker, per spec.md §4.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/sneakpeek-dev/sneakpeek-go/pkg/logger"
	"github.com/sneakpeek-dev/sneakpeek-go/pkg/model"
	"github.com/sneakpeek-dev/sneakpeek-go/pkg/observability"
	"github.com/sneakpeek-dev/sneakpeek-go/pkg/queue"
	"github.com/sneakpeek-dev/sneakpeek-go/pkg/store"
)

var log = logger.Component("scheduler")

// Scheduler is the single active instance (per pkg/lease) that fires
// due scraper schedules into the queue and runs the reaper and history
// GC background jobs.
type Scheduler struct {
	scrapers store.ScraperStorage
	queue    *queue.Queue
	cfg      Config
	breaker  *CircuitBreaker

	mu       sync.Mutex
	nextFire map[string]time.Time

	activeTaskCount func() int
}

func New(scrapers store.ScraperStorage, q *queue.Queue, cfg Config) *Scheduler {
	return &Scheduler{
		scrapers:        scrapers,
		queue:           q,
		cfg:             cfg,
		breaker:         NewCircuitBreaker(cfg.PendingHighWaterMark),
		nextFire:        make(map[string]time.Time),
		activeTaskCount: func() int { return 0 },
	}
}

// SetActiveTaskCountFunc wires in the worker pool's live concurrency
// count for the circuit breaker's saturation check.
func (s *Scheduler) SetActiveTaskCountFunc(f func() int) {
	s.activeTaskCount = f
}

// Run drives trigger evaluation, the dead-task reaper, history GC and
// metrics refresh until ctx is cancelled (typically the lease manager's
// active-context, so all four stop the instant leadership is lost).
func (s *Scheduler) Run(ctx context.Context) {
	log.Info().Msg("scheduler became active")
	var wg sync.WaitGroup
	wg.Add(4)
	go func() { defer wg.Done(); s.triggerLoop(ctx) }()
	go func() { defer wg.Done(); s.reaperLoop(ctx) }()
	go func() { defer wg.Done(); s.gcLoop(ctx) }()
	go func() { defer wg.Done(); s.metricsLoop(ctx) }()
	wg.Wait()
	log.Info().Msg("scheduler stopped")
}

func (s *Scheduler) triggerLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.TriggerPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.evaluateAll(ctx)
		}
	}
}

func (s *Scheduler) evaluateAll(ctx context.Context) {
	scrapers, err := s.scrapers.List(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("list scrapers for trigger evaluation failed")
		return
	}
	now := time.Now().UTC()
	for _, sc := range scrapers {
		if sc.ScheduleKind == model.ScheduleInactive {
			continue
		}
		if ctx.Err() != nil {
			return
		}
		s.evaluateOne(ctx, sc, now)
	}
}

func (s *Scheduler) evaluateOne(ctx context.Context, sc *model.Scraper, now time.Time) {
	s.mu.Lock()
	due, ok := s.nextFire[sc.ID]
	if !ok {
		first, err := nextFireAfter(sc, now)
		if err != nil {
			s.mu.Unlock()
			log.Warn().Err(err).Str("scraper_id", sc.ID).Msg("skipping scraper with invalid schedule")
			return
		}
		s.nextFire[sc.ID] = first
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	if now.Before(due) {
		return
	}

	s.fire(ctx, sc)

	// Computed from due, not now: the next fire time is prev_fire +
	// interval regardless of how late this tick observed it, so poll-loop
	// latency never compounds into permanent schedule drift.
	next, err := nextFireAfter(sc, due)
	if err == nil && !next.After(now) {
		// Several periods were missed (pause, downtime): skip to the first
		// slot after now so the backlog yields this one catch-up fire.
		if interval, ok := fixedInterval(sc.ScheduleKind); ok {
			next = next.Add((now.Sub(next)/interval + 1) * interval)
		} else {
			next, err = nextFireAfter(sc, now)
		}
	}
	if err != nil {
		log.Warn().Err(err).Str("scraper_id", sc.ID).Msg("failed to compute next fire time")
		return
	}
	s.mu.Lock()
	s.nextFire[sc.ID] = next
	s.mu.Unlock()
}

func (s *Scheduler) fire(ctx context.Context, sc *model.Scraper) {
	active, err := s.queue.HasActive(ctx, sc.ID)
	if err != nil {
		log.Warn().Err(err).Str("scraper_id", sc.ID).Msg("active-task check failed")
		return
	}
	if active {
		observability.SchedulerSkips.WithLabelValues("already_running").Inc()
		return
	}

	depth, err := s.queue.PendingDepth(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("pending depth check failed")
		return
	}
	if depth >= s.cfg.PendingHighWaterMark {
		observability.SchedulerSkips.WithLabelValues("backpressure").Inc()
		return
	}

	saturation := float64(s.activeTaskCount()) / float64(s.cfg.MaxConcurrency)
	if !s.breaker.ShouldAdmit(depth, saturation) {
		observability.SchedulerSkips.WithLabelValues("circuit_open").Inc()
		return
	}

	if _, err := s.queue.Enqueue(ctx, sc.ID, sc.HandlerName, sc.Config, sc.SchedulePriority); err != nil {
		log.Warn().Err(err).Str("scraper_id", sc.ID).Msg("enqueue from trigger failed")
		s.breaker.RecordFailure()
		return
	}
	s.breaker.RecordSuccess()
}

func (s *Scheduler) reaperLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.ReaperInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().UTC().Add(-s.cfg.ReaperDeadThreshold)
			n, err := s.queue.ReapStale(ctx, cutoff)
			if err != nil {
				log.Warn().Err(err).Msg("reaper pass failed")
				continue
			}
			if n > 0 {
				log.Info().Int("count", n).Msg("reaped dead tasks")
			}
		}
	}
}

func (s *Scheduler) gcLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.HistoryGCInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.queue.CollectGarbage(ctx, s.cfg.HistoryRetentionPerScraper)
			if err != nil {
				log.Warn().Err(err).Msg("history gc pass failed")
				continue
			}
			if n > 0 {
				log.Info().Int("count", n).Msg("garbage-collected terminal tasks")
			}
		}
	}
}

func (s *Scheduler) metricsLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.MetricsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, p := range model.Priorities {
				n, err := s.queue.PendingCount(ctx, p)
				if err != nil {
					log.Warn().Err(err).Msg("pending count refresh failed")
					continue
				}
				observability.PendingTasks.WithLabelValues(p.String()).Set(float64(n))
			}
		}
	}
}
