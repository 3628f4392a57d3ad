package llm

import (
	"context"
	"sync"
)

// Mock is a canned-response Client for tests. Responses are returned in the
// order they were added; when the queue is exhausted the last response
// repeats. A non-nil Err takes precedence over responses.
type Mock struct {
	mu        sync.Mutex
	responses []string
	idx       int
	Err       error
	Requests  []Request
}

func NewMock(responses ...string) *Mock {
	return &Mock{responses: responses}
}

func (m *Mock) AddResponse(text string) *Mock {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, text)
	return m
}

func (m *Mock) Generate(_ context.Context, req Request) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requests = append(m.Requests, req)
	if m.Err != nil {
		return "", m.Err
	}
	if len(m.responses) == 0 {
		return "", ErrEmptyCompletion
	}
	resp := m.responses[m.idx]
	if m.idx < len(m.responses)-1 {
		m.idx++
	}
	return resp, nil
}

// CallCount reports how many Generate calls were made.
func (m *Mock) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}
