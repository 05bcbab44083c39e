package presence

import (
	"context"
	"sync"
)

// MockInstance is an in-memory presence store for tests.
type MockInstance struct {
	mtx     sync.Mutex
	records map[string]string
}

func NewMock() *MockInstance {
	return &MockInstance{
		records: map[string]string{},
	}
}

func (m *MockInstance) Get(ctx context.Context, userID string) (string, error) {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	h, ok := m.records[userID]
	if !ok {
		return "", ErrNoRecord
	}

	return h, nil
}

func (m *MockInstance) Set(ctx context.Context, userID string, handle string) error {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	m.records[userID] = handle

	return nil
}

func (m *MockInstance) Delete(ctx context.Context, userID string) error {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	delete(m.records, userID)

	return nil
}

func (m *MockInstance) List(ctx context.Context) ([]string, error) {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	users := make([]string, 0, len(m.records))
	for u := range m.records {
		users = append(users, u)
	}

	return users, nil
}
