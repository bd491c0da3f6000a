package provider

import (
	"context"
	"sync"
)

func init() {
	RegisterFactory("mock", func(config map[string]any) (Provider, error) {
		return NewMockProvider("mock"), nil
	})
}

// MockProvider is a scripted provider for tests. Responses and errors are
// consumed in order; once exhausted it returns a fixed default response.
type MockProvider struct {
	name string

	mu        sync.Mutex
	Responses []*CompletionResponse
	Errors    []error
	Calls     []CompletionRequest
	index     int
}

// NewMockProvider creates a new mock provider
func NewMockProvider(name string) *MockProvider {
	return &MockProvider{name: name}
}

// Name returns the provider name
func (m *MockProvider) Name() string { return m.name }

// EnqueueResponse appends a scripted response.
func (m *MockProvider) EnqueueResponse(content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Responses = append(m.Responses, &CompletionResponse{
		Content:      content,
		FinishReason: "stop",
		Usage:        Usage{PromptTokens: 10, CompletionTokens: 20, TotalTokens: 30},
	})
	m.Errors = append(m.Errors, nil)
}

// EnqueueError appends a scripted failure.
func (m *MockProvider) EnqueueError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Responses = append(m.Responses, nil)
	m.Errors = append(m.Errors, err)
}

// CreateCompletion implements Provider.
func (m *MockProvider) CreateCompletion(ctx context.Context, request CompletionRequest) (*CompletionResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, request)

	if m.index < len(m.Errors) {
		err := m.Errors[m.index]
		resp := m.Responses[m.index]
		m.index++
		if err != nil {
			return nil, err
		}
		return resp, nil
	}

	return &CompletionResponse{
		Content:      "Mock response",
		FinishReason: "stop",
		Usage:        Usage{PromptTokens: 10, CompletionTokens: 20, TotalTokens: 30},
	}, nil
}

// CallCount returns how many completions have been requested.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
