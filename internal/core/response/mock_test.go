package response

import (
	"context"
	"sync"
)

// MockCompletion is a test double for the upstream completion client.
// Set Response for a fixed reply, ResponseQueue to serve replies in
// order, or Err to simulate an upstream failure.
type MockCompletion struct {
	mu            sync.Mutex
	Response      string
	ResponseQueue []string
	Err           error

	Calls      int
	LastSystem string
	LastUser   string
}

func (m *MockCompletion) Generate(_ context.Context, system, user string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls++
	m.LastSystem = system
	m.LastUser = user

	if m.Err != nil {
		return "", m.Err
	}
	if len(m.ResponseQueue) > 0 {
		next := m.ResponseQueue[0]
		m.ResponseQueue = m.ResponseQueue[1:]
		return next, nil
	}
	return m.Response, nil
}
