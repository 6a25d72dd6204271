package repository

import (
	"context"
	"sync"

	"github.com/notifyhub/xnft-notify/internal/domain"
)

// MockUserCache is a hand-written, in-memory implementation of UserCache
// used in unit tests. No mock-generation library needed.
type MockUserCache struct {
	mu  sync.Mutex
	ids []domain.UserID

	// Optional error override, set in tests to simulate a failing write.
	AppendErr error

	LoadCalls   int
	AppendCalls int
}

func NewMockUserCache(initial ...domain.UserID) *MockUserCache {
	return &MockUserCache{ids: append([]domain.UserID{}, initial...)}
}

func (m *MockUserCache) Load(_ context.Context) []domain.UserID {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LoadCalls++
	return append([]domain.UserID{}, m.ids...)
}

func (m *MockUserCache) Append(_ context.Context, ids []domain.UserID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AppendCalls++
	if m.AppendErr != nil {
		return m.AppendErr
	}
	m.ids = append(m.ids, ids...)
	return nil
}

var _ UserCache = (*MockUserCache)(nil)
