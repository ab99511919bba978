package ai

import (
	"context"
	"strings"
	"sync"
)

// MockProvider is a test double for AI providers.
type MockProvider struct {
	Response string
	// Chunks, when set, is streamed instead of Response in one piece.
	Chunks []string
	Err    error
	// StreamErr is delivered as an error chunk after Chunks.
	StreamErr error

	mu          sync.Mutex
	LastRequest *CompletionRequest // captures the last request for inspection
	calls       int
}

// NewMockProvider creates a MockProvider that returns the given response.
func NewMockProvider(response string) *MockProvider {
	return &MockProvider{Response: response}
}

func (m *MockProvider) record(req CompletionRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastRequest = &req
	m.calls++
}

// Last returns the last request seen, or nil.
func (m *MockProvider) Last() *CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.LastRequest
}

// Calls reports how many requests the mock has served.
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockProvider) Complete(_ context.Context, req CompletionRequest) (CompletionResponse, error) {
	m.record(req)
	if m.Err != nil {
		return CompletionResponse{}, m.Err
	}
	content := m.Response
	if len(m.Chunks) > 0 {
		content = strings.Join(m.Chunks, "")
	}
	return CompletionResponse{
		Content:      content,
		Model:        "mock",
		InputTokens:  10,
		OutputTokens: len(content),
	}, nil
}

func (m *MockProvider) StreamComplete(ctx context.Context, req CompletionRequest) (<-chan StreamChunk, error) {
	m.record(req)
	if m.Err != nil {
		return nil, m.Err
	}

	chunks := m.Chunks
	if len(chunks) == 0 {
		chunks = []string{m.Response}
	}

	ch := make(chan StreamChunk)
	go func() {
		defer close(ch)
		for _, c := range chunks {
			select {
			case ch <- StreamChunk{Content: c}:
			case <-ctx.Done():
				return
			}
		}
		last := StreamChunk{Done: true, Model: "mock"}
		if m.StreamErr != nil {
			last = StreamChunk{Error: m.StreamErr}
		}
		select {
		case ch <- last:
		case <-ctx.Done():
		}
	}()
	return ch, nil
}

func (m *MockProvider) Models() []ModelInfo {
	return []ModelInfo{
		{ID: "mock", Name: "Mock Model", MaxTokens: 4096, Description: "Test mock"},
	}
}

func (m *MockProvider) HealthCheck(_ context.Context) error {
	return m.Err
}
