// Package store defines the storage contracts for scrapers, the task
// queue, scheduler leases, and per-task logs, plus in-memory and Redis
// implementations of each.
package store

import (
	"context"
	"time"

	"github.com/sneakpeek-dev/sneakpeek-go/pkg/model"
)

// ScraperStorage persists scraper definitions. create/update/delete fail
// with model.ReadOnly when IsReadOnly() is true.
type ScraperStorage interface {
	List(ctx context.Context) ([]*model.Scraper, error)
	Get(ctx context.Context, id string) (*model.Scraper, error)
	MaybeGet(ctx context.Context, id string) (*model.Scraper, error)
	Search(ctx context.Context, filter model.ScraperFilter) ([]*model.Scraper, error)
	Create(ctx context.Context, s *model.Scraper) error
	Update(ctx context.Context, s *model.Scraper) error
	Delete(ctx context.Context, id string) error
	IsReadOnly() bool
}

// QueueStorage is the durable priority task queue. Dequeue is the single
// atomic PENDING -> STARTED handoff the whole system's crash-safety
// depends on: a crash between the two sides of that transition must never
// leave a task both pending and owned.
type QueueStorage interface {
	Enqueue(ctx context.Context, t *model.Task) error
	// Dequeue scans priorities in the given order and atomically claims the
	// oldest PENDING task in the highest non-empty priority, stamping
	// started_at = last_active_at = now. Returns (nil, nil) when empty.
	Dequeue(ctx context.Context, priorities []model.Priority) (*model.Task, error)
	Update(ctx context.Context, t *model.Task) error
	Get(ctx context.Context, taskID string) (*model.Task, error)
	ListByScraper(ctx context.Context, scraperID string) ([]*model.Task, error)
	DeleteOld(ctx context.Context, retentionPerScraper int) (int, error)
	PendingCount(ctx context.Context, p model.Priority) (int, error)
	// ListStale returns STARTED tasks whose last_active_at is before cutoff,
	// for the reaper to mark DEAD.
	ListStale(ctx context.Context, cutoff time.Time) ([]*model.Task, error)
	// HasPendingOrStarted backs the scheduler's at-most-one-concurrent-
	// execution-per-scraper check.
	HasPendingOrStarted(ctx context.Context, scraperID string) (bool, error)
}

// LeaseStorage is a single-writer lock with TTL, used by the scheduler to
// elect one active instance.
type LeaseStorage interface {
	// MaybeAcquire succeeds iff there is no current owner, or the current
	// owner equals the requester (renewal).
	MaybeAcquire(ctx context.Context, name, owner string, ttlMillis int64) (bool, error)
	// Release is a compare-and-delete; releasing as a non-owner is a no-op.
	Release(ctx context.Context, name, owner string) error
	Get(ctx context.Context, name string) (*model.Lease, error)
}

// LogStorage stores per-task log lines, fetchable after a given ID.
type LogStorage interface {
	Append(ctx context.Context, taskID string, line *model.LogLine) error
	Read(ctx context.Context, taskID string, afterID int64, maxLines int) ([]*model.LogLine, error)
}
