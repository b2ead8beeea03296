package audit

import (
	"context"
	"sync"
)

// MemoryRepository keeps entries in memory. It backs daemons running
// without a database, and tests.
type MemoryRepository struct {
	mu      sync.RWMutex
	entries []Entry
}

// NewMemoryRepository creates an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

// Record appends e.
func (m *MemoryRepository) Record(_ context.Context, e *Entry) error {
	fill(e)
	m.mu.Lock()
	m.entries = append(m.entries, *e)
	m.mu.Unlock()
	return nil
}

// List returns entries matching filter, most recent first.
func (m *MemoryRepository) List(_ context.Context, filter Filter) (*ListResult, error) {
	filter = filter.clamped()
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []Entry
	for i := len(m.entries) - 1; i >= 0; i-- {
		if filter.matches(&m.entries[i]) {
			matched = append(matched, m.entries[i])
		}
	}
	page := []Entry{}
	if filter.Offset < len(matched) {
		end := min(filter.Offset+filter.Limit, len(matched))
		page = append(page, matched[filter.Offset:end]...)
	}
	return &ListResult{Entries: page, Total: len(matched), Limit: filter.Limit, Offset: filter.Offset}, nil
}
