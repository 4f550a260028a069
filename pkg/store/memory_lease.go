package store

import (
	"context"
	"sync"
	"time"

	"github.com/sneakpeek-dev/sneakpeek-go/pkg/model"
)

// MemoryLeaseStorage is a single-process LeaseStorage.
type MemoryLeaseStorage struct {
	mu     sync.Mutex
	leases map[string]*model.Lease
}

func NewMemoryLeaseStorage() *MemoryLeaseStorage {
	return &MemoryLeaseStorage{leases: make(map[string]*model.Lease)}
}

func (m *MemoryLeaseStorage) MaybeAcquire(ctx context.Context, name, owner string, ttlMillis int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	cur, ok := m.leases[name]
	if ok && cur.Owner != owner && now.Before(cur.AcquiredUntil) {
		return false, nil
	}
	m.leases[name] = &model.Lease{
		Name:          name,
		Owner:         owner,
		AcquiredUntil: now.Add(time.Duration(ttlMillis) * time.Millisecond),
	}
	return true, nil
}

func (m *MemoryLeaseStorage) Release(ctx context.Context, name, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.leases[name]
	if !ok || cur.Owner != owner {
		return nil
	}
	delete(m.leases, name)
	return nil
}

func (m *MemoryLeaseStorage) Get(ctx context.Context, name string) (*model.Lease, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.leases[name]
	if !ok {
		return nil, nil
	}
	cp := *cur
	return &cp, nil
}
