// ABOUTME: Mock pool Store implementation for testing
// ABOUTME: Allows worker and submission tests to run without SQLite

package pool

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MockStore is an in-memory Store implementation for testing.
type MockStore struct {
	mu      sync.RWMutex
	entries map[int64]*Entry
	nextID  int64

	// Err, when set, is returned by every operation.
	Err error
}

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{entries: make(map[int64]*Entry)}
}

// Create stores a copy of e and assigns its ID.
func (m *MockStore) Create(ctx context.Context, e *Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}

	m.nextID++
	e.ID = m.nextID
	e.Sent = time.Time{}
	e.Expired = time.Time{}

	stored := *e
	m.entries[stored.ID] = &stored
	return nil
}

// Get retrieves a copy of an entry.
func (m *MockStore) Get(ctx context.Context, id int64) (*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}

	e, ok := m.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	result := *e
	return &result, nil
}

// ListPending returns copies of pending entries ordered by ID.
func (m *MockStore) ListPending(ctx context.Context) ([]*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}

	var result []*Entry
	for _, e := range m.entries {
		if e.IsPending() {
			c := *e
			result = append(result, &c)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// MarkSent moves a pending entry to sent.
func (m *MockStore) MarkSent(ctx context.Context, id int64, at time.Time) error {
	return m.transition(id, func(e *Entry) { e.Sent = at })
}

// MarkExpired moves a pending entry to expired.
func (m *MockStore) MarkExpired(ctx context.Context, id int64, at time.Time) error {
	return m.transition(id, func(e *Entry) { e.Expired = at })
}

func (m *MockStore) transition(id int64, apply func(*Entry)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}

	e, ok := m.entries[id]
	if !ok {
		return ErrNotFound
	}
	if !e.IsPending() {
		return ErrNotPending
	}
	apply(e)
	return nil
}

// Close is a no-op.
func (m *MockStore) Close() error {
	return nil
}

// Compile-time check
var _ Store = (*MockStore)(nil)
