package ai

import (
	"context"
	"sync"
)

// MockResponse is a canned result for MockProvider.
type MockResponse struct {
	Content string
	Err     error
}

// MockProvider is a test double for AI providers. Queued responses are
// returned first in FIFO order; after that every call returns Response or
// Err.
type MockProvider struct {
	mu          sync.Mutex
	Response    string
	Err         error
	Chunks      []string           // streamed in order; defaults to Response
	LastRequest *CompletionRequest // captures the last request for inspection
	queue       []MockResponse
	calls       int
}

// NewMockProvider creates a MockProvider that returns the given response.
func NewMockProvider(response string) *MockProvider {
	return &MockProvider{Response: response}
}

// Enqueue appends canned responses returned before the default one.
func (m *MockProvider) Enqueue(responses ...MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, responses...)
}

// CallCount returns the number of Complete and StreamComplete calls.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockProvider) next(req CompletionRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	m.LastRequest = &req
	if len(m.queue) > 0 {
		r := m.queue[0]
		m.queue = m.queue[1:]
		return r.Content, r.Err
	}
	return m.Response, m.Err
}

func (m *MockProvider) Complete(_ context.Context, req CompletionRequest) (CompletionResponse, error) {
	content, err := m.next(req)
	if err != nil {
		return CompletionResponse{}, err
	}
	return CompletionResponse{
		Content:      content,
		Model:        "mock",
		InputTokens:  10,
		OutputTokens: len(content),
	}, nil
}

func (m *MockProvider) StreamComplete(_ context.Context, req CompletionRequest) (<-chan StreamChunk, error) {
	content, err := m.next(req)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	chunks := append([]string(nil), m.Chunks...)
	m.mu.Unlock()
	if len(chunks) == 0 && content != "" {
		chunks = []string{content}
	}

	ch := make(chan StreamChunk, len(chunks)+1)
	for _, c := range chunks {
		ch <- StreamChunk{Content: c}
	}
	ch <- StreamChunk{Done: true}
	close(ch)
	return ch, nil
}

func (m *MockProvider) Models() []ModelInfo {
	return []ModelInfo{
		{ID: "mock", Name: "Mock Model", MaxTokens: 4096, Description: "Test mock"},
	}
}

func (m *MockProvider) HealthCheck(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Err
}
