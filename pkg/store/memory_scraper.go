package store

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/sneakpeek-dev/sneakpeek-go/pkg/model"
)

// MemoryScraperStorage is a single-process ScraperStorage for development.
type MemoryScraperStorage struct {
	mu       sync.RWMutex
	scrapers map[string]*model.Scraper
	readOnly bool
}

func NewMemoryScraperStorage() *MemoryScraperStorage {
	return &MemoryScraperStorage{scrapers: make(map[string]*model.Scraper)}
}

// NewReadOnlyMemoryScraperStorage seeds a read-only store, e.g. for a
// standby API replica that mirrors scrapers defined elsewhere.
func NewReadOnlyMemoryScraperStorage(seed []*model.Scraper) *MemoryScraperStorage {
	m := NewMemoryScraperStorage()
	for _, s := range seed {
		m.scrapers[s.ID] = s
	}
	m.readOnly = true
	return m
}

func (m *MemoryScraperStorage) IsReadOnly() bool { return m.readOnly }

func (m *MemoryScraperStorage) List(ctx context.Context) ([]*model.Scraper, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*model.Scraper, 0, len(m.scrapers))
	for _, s := range m.scrapers {
		cp := *s
		out = append(out, &cp)
	}
	return out, nil
}

func (m *MemoryScraperStorage) Get(ctx context.Context, id string) (*model.Scraper, error) {
	s, err := m.MaybeGet(ctx, id)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, model.NewError(model.KindNotFound, "scraper "+id+" not found", nil)
	}
	return s, nil
}

func (m *MemoryScraperStorage) MaybeGet(ctx context.Context, id string) (*model.Scraper, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.scrapers[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (m *MemoryScraperStorage) Search(ctx context.Context, filter model.ScraperFilter) ([]*model.Scraper, error) {
	all, _ := m.List(ctx)
	out := make([]*model.Scraper, 0, len(all))
	for _, s := range all {
		if filter.NamePrefix != "" && !strings.HasPrefix(s.Name, filter.NamePrefix) {
			continue
		}
		if filter.HandlerName != "" && s.HandlerName != filter.HandlerName {
			continue
		}
		if filter.Schedule != "" && s.ScheduleKind != filter.Schedule {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (m *MemoryScraperStorage) Create(ctx context.Context, s *model.Scraper) error {
	if m.readOnly {
		return model.ReadOnly
	}
	if err := s.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	cp := *s
	m.scrapers[s.ID] = &cp
	return nil
}

func (m *MemoryScraperStorage) Update(ctx context.Context, s *model.Scraper) error {
	if m.readOnly {
		return model.ReadOnly
	}
	if err := s.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.scrapers[s.ID]; !ok {
		return model.NewError(model.KindNotFound, "scraper "+s.ID+" not found", nil)
	}
	cp := *s
	m.scrapers[s.ID] = &cp
	return nil
}

func (m *MemoryScraperStorage) Delete(ctx context.Context, id string) error {
	if m.readOnly {
		return model.ReadOnly
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.scrapers[id]; !ok {
		return model.NewError(model.KindNotFound, "scraper "+id+" not found", nil)
	}
	delete(m.scrapers, id)
	return nil
}
