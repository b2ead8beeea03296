package store

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"
)

// MemoryRepository keeps snapshots in memory. It is used when persistence
// is disabled and in tests.
type MemoryRepository struct {
	mu        sync.RWMutex
	snapshots map[string]Snapshot
}

// NewMemoryRepository returns an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{snapshots: make(map[string]Snapshot)}
}

// Get implements Repository.
func (m *MemoryRepository) Get(_ context.Context, id string) (*Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.snapshots[id]
	if !ok {
		return nil, ErrSnapshotNotFound
	}
	s.Data = slices.Clone(s.Data)
	return &s, nil
}

// List implements Repository.
func (m *MemoryRepository) List(_ context.Context) ([]Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Snapshot, 0, len(m.snapshots))
	for _, s := range m.snapshots {
		s.Data = slices.Clone(s.Data)
		out = append(out, s)
	}
	slices.SortFunc(out, func(a, b Snapshot) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

// Create implements Repository.
func (m *MemoryRepository) Create(_ context.Context, s *Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.snapshots[s.ID]; ok || m.nameTaken(s.ID, s.Name) {
		return ErrSnapshotExists
	}
	m.put(s)
	return nil
}

// Save implements Repository.
func (m *MemoryRepository) Save(_ context.Context, s *Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.nameTaken(s.ID, s.Name) {
		return ErrSnapshotExists
	}
	if existing, ok := m.snapshots[s.ID]; ok {
		s.CreatedAt = existing.CreatedAt
	}
	m.put(s)
	return nil
}

// Delete implements Repository.
func (m *MemoryRepository) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.snapshots[id]; !ok {
		return ErrSnapshotNotFound
	}
	delete(m.snapshots, id)
	return nil
}

func (m *MemoryRepository) nameTaken(id, name string) bool {
	for _, s := range m.snapshots {
		if s.Name == name && s.ID != id {
			return true
		}
	}
	return false
}

func (m *MemoryRepository) put(s *Snapshot) {
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now
	stored := *s
	stored.Data = slices.Clone(s.Data)
	m.snapshots[s.ID] = stored
}
