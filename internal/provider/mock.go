package provider

import (
	"context"
	"sync"
)

// Mock is a scripted Completer for tests. Each call pops the next step;
// a step either returns text or fails with an error.
type Mock struct {
	mu    sync.Mutex
	steps []MockStep
	calls []Request
}

// MockStep is one scripted response.
type MockStep struct {
	Text string
	Err  error
}

// NewMock creates a mock completer that replays the given steps in order.
func NewMock(steps ...MockStep) *Mock {
	return &Mock{steps: steps}
}

// Complete records the request and replays the next scripted step. Once the
// script is exhausted the last step repeats.
func (m *Mock) Complete(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, req)
	if len(m.steps) == 0 {
		return "", ErrEmptyResponse
	}
	step := m.steps[0]
	if len(m.steps) > 1 {
		m.steps = m.steps[1:]
	}
	if step.Err != nil {
		return "", step.Err
	}
	return step.Text, nil
}

// Calls returns the recorded requests.
func (m *Mock) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request(nil), m.calls...)
}
