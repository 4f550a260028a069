package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sneakpeek-dev/sneakpeek-go/pkg/model"
)

// MemoryQueueStorage is a single-process QueueStorage. A single mutex
// serializes enqueue/dequeue so the PENDING->STARTED handoff is atomic,
// matching the in-memory realization spec.md §4.2 invariant 2 calls for.
type MemoryQueueStorage struct {
	mu    sync.Mutex
	tasks map[string]*model.Task
}

func NewMemoryQueueStorage() *MemoryQueueStorage {
	return &MemoryQueueStorage{tasks: make(map[string]*model.Task)}
}

func (m *MemoryQueueStorage) Enqueue(ctx context.Context, t *model.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	t.Status = model.StatusPending
	cp := *t
	m.tasks[t.ID] = &cp
	return nil
}

func (m *MemoryQueueStorage) Dequeue(ctx context.Context, priorities []model.Priority) (*model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range priorities {
		var best *model.Task
		for _, t := range m.tasks {
			if t.Status != model.StatusPending || t.Priority != p {
				continue
			}
			if best == nil || t.CreatedAt.Before(best.CreatedAt) {
				best = t
			}
		}
		if best != nil {
			now := time.Now().UTC()
			best.Status = model.StatusStarted
			best.StartedAt = &now
			best.LastActiveAt = &now
			cp := *best
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *MemoryQueueStorage) Update(ctx context.Context, t *model.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[t.ID]; !ok {
		return model.NewError(model.KindNotFound, "task "+t.ID+" not found", nil)
	}
	cp := *t
	m.tasks[t.ID] = &cp
	return nil
}

func (m *MemoryQueueStorage) Get(ctx context.Context, taskID string) (*model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[taskID]
	if !ok {
		return nil, model.NewError(model.KindNotFound, "task "+taskID+" not found", nil)
	}
	cp := *t
	return &cp, nil
}

func (m *MemoryQueueStorage) ListByScraper(ctx context.Context, scraperID string) ([]*model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.Task, 0)
	for _, t := range m.tasks {
		if t.ScraperID == scraperID {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryQueueStorage) DeleteOld(ctx context.Context, retentionPerScraper int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	byScraper := make(map[string][]*model.Task)
	for _, t := range m.tasks {
		if t.Status.IsTerminal() {
			byScraper[t.ScraperID] = append(byScraper[t.ScraperID], t)
		}
	}

	deleted := 0
	for _, terminal := range byScraper {
		sort.Slice(terminal, func(i, j int) bool { return terminal[i].CreatedAt.After(terminal[j].CreatedAt) })
		if len(terminal) <= retentionPerScraper {
			continue
		}
		for _, t := range terminal[retentionPerScraper:] {
			delete(m.tasks, t.ID)
			deleted++
		}
	}
	return deleted, nil
}

func (m *MemoryQueueStorage) PendingCount(ctx context.Context, p model.Priority) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.tasks {
		if t.Status == model.StatusPending && t.Priority == p {
			n++
		}
	}
	return n, nil
}

func (m *MemoryQueueStorage) ListStale(ctx context.Context, cutoff time.Time) ([]*model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.Task, 0)
	for _, t := range m.tasks {
		if t.Status != model.StatusStarted {
			continue
		}
		if t.LastActiveAt != nil && t.LastActiveAt.Before(cutoff) {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

// HasPendingOrStarted reports whether a scraper already has a task in
// PENDING or STARTED, used by the scheduler's at-most-one-concurrent check.
func (m *MemoryQueueStorage) HasPendingOrStarted(ctx context.Context, scraperID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tasks {
		if t.ScraperID == scraperID && (t.Status == model.StatusPending || t.Status == model.StatusStarted) {
			return true, nil
		}
	}
	return false, nil
}
