package core

import (
	"context"
	"sync"
)

// mockCompletion stands in for the upstream completion client. Set
// Response for a fixed reply or Err to simulate an outage; every call is
// counted and the last prompt pair is kept for inspection.
type mockCompletion struct {
	mu       sync.Mutex
	Response string
	Err      error

	Calls      int
	LastSystem string
	LastUser   string
}

func (m *mockCompletion) Generate(_ context.Context, system, user string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls++
	m.LastSystem = system
	m.LastUser = user

	if m.Err != nil {
		return "", m.Err
	}
	return m.Response, nil
}
