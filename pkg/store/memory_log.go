package store

import (
	"context"
	"sync"

	"github.com/sneakpeek-dev/sneakpeek-go/pkg/model"
)

// MemoryLogStorage is a single-process LogStorage.
type MemoryLogStorage struct {
	mu    sync.Mutex
	lines map[string][]*model.LogLine
	next  map[string]int64
}

func NewMemoryLogStorage() *MemoryLogStorage {
	return &MemoryLogStorage{
		lines: make(map[string][]*model.LogLine),
		next:  make(map[string]int64),
	}
}

func (m *MemoryLogStorage) Append(ctx context.Context, taskID string, line *model.LogLine) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next[taskID]++
	line.ID = m.next[taskID]
	line.TaskID = taskID
	cp := *line
	m.lines[taskID] = append(m.lines[taskID], &cp)
	return nil
}

func (m *MemoryLogStorage) Read(ctx context.Context, taskID string, afterID int64, maxLines int) ([]*model.LogLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.lines[taskID]
	out := make([]*model.LogLine, 0, maxLines)
	for _, l := range all {
		if l.ID <= afterID {
			continue
		}
		out = append(out, l)
		if len(out) >= maxLines {
			break
		}
	}
	return out, nil
}
