// Package queue wraps a store.QueueStorage with the priority-ordering and
// observability concerns spec.md §2 assigns to the task queue itself,
// independent of which backend durably holds the tasks.
package queue

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sneakpeek-dev/sneakpeek-go/pkg/model"
	"github.com/sneakpeek-dev/sneakpeek-go/pkg/observability"
	"github.com/sneakpeek-dev/sneakpeek-go/pkg/store"
)

// Queue is the durable priority task queue: strict-priority, FIFO within
// a priority, at-most-once atomic handoff on dequeue.
type Queue struct {
	storage    store.QueueStorage
	priorities []model.Priority
}

func New(storage store.QueueStorage) *Queue {
	return &Queue{storage: storage, priorities: model.Priorities}
}

// Enqueue creates a new PENDING task for handlerName with the given
// config and priority. scraperID may be model.EphemeralScraperID for
// ad-hoc runs outside any persisted scraper.
func (q *Queue) Enqueue(ctx context.Context, scraperID, handlerName string, cfg model.ScraperConfig, priority model.Priority) (*model.Task, error) {
	t := &model.Task{
		ID:          uuid.NewString(),
		ScraperID:   scraperID,
		HandlerName: handlerName,
		Config:      cfg,
		Priority:    priority,
		Status:      model.StatusPending,
		CreatedAt:   time.Now().UTC(),
	}
	if err := q.storage.Enqueue(ctx, t); err != nil {
		return nil, err
	}
	observability.PendingTasks.WithLabelValues(priority.String()).Inc()
	observability.TasksTotal.WithLabelValues(string(model.StatusPending)).Inc()
	return t, nil
}

// Dequeue atomically claims the oldest PENDING task in the
// highest-urgency non-empty priority, or returns (nil, nil) if the
// queue is empty.
func (q *Queue) Dequeue(ctx context.Context) (*model.Task, error) {
	t, err := q.storage.Dequeue(ctx, q.priorities)
	if err != nil || t == nil {
		return t, err
	}
	observability.PendingTasks.WithLabelValues(t.Priority.String()).Dec()
	observability.ActiveTasks.Inc()
	return t, nil
}

func (q *Queue) Update(ctx context.Context, t *model.Task) error {
	return q.storage.Update(ctx, t)
}

func (q *Queue) Get(ctx context.Context, taskID string) (*model.Task, error) {
	return q.storage.Get(ctx, taskID)
}

func (q *Queue) ListByScraper(ctx context.Context, scraperID string) ([]*model.Task, error) {
	return q.storage.ListByScraper(ctx, scraperID)
}

// HasActive reports whether scraperID already has a PENDING or STARTED
// task, the invariant the scheduler uses to skip a trigger rather than
// run a scraper concurrently with itself.
func (q *Queue) HasActive(ctx context.Context, scraperID string) (bool, error) {
	return q.storage.HasPendingOrStarted(ctx, scraperID)
}

// PendingDepth returns the current backlog size across all priorities,
// used by the scheduler's high-water-mark admission check.
func (q *Queue) PendingDepth(ctx context.Context) (int, error) {
	total := 0
	for _, p := range q.priorities {
		n, err := q.storage.PendingCount(ctx, p)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

// PendingCount returns the backlog size of a single priority, used to
// refresh the per-priority gauge periodically and correct any drift
// from a multi-process deployment's incremental updates.
func (q *Queue) PendingCount(ctx context.Context, p model.Priority) (int, error) {
	return q.storage.PendingCount(ctx, p)
}

// ReapStale marks every STARTED task whose last_active_at is older than
// cutoff as DEAD, and returns how many were reaped.
func (q *Queue) ReapStale(ctx context.Context, cutoff time.Time) (int, error) {
	stale, err := q.storage.ListStale(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	for _, t := range stale {
		now := time.Now().UTC()
		t.Status = model.StatusDead
		t.FinishedAt = &now
		if err := q.storage.Update(ctx, t); err != nil {
			return 0, err
		}
		observability.ActiveTasks.Dec()
		observability.ReaperDeadTasks.Inc()
		observability.TasksTotal.WithLabelValues(string(model.StatusDead)).Inc()
	}
	return len(stale), nil
}

// CollectGarbage deletes terminal tasks beyond retentionPerScraper,
// oldest first, per scraper.
func (q *Queue) CollectGarbage(ctx context.Context, retentionPerScraper int) (int, error) {
	n, err := q.storage.DeleteOld(ctx, retentionPerScraper)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		observability.HistoryGCDeleted.Add(float64(n))
	}
	return n, nil
}
