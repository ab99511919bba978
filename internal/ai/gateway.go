// Package ai provides the chat completion transport: a provider interface,
// a fallback router and the concrete providers behind it.
package ai

import "context"

// TaskType tags a request with what it is for.
type TaskType int

const (
	TaskChat TaskType = iota
	TaskSummary
)

func (t TaskType) String() string {
	switch t {
	case TaskChat:
		return "chat"
	case TaskSummary:
		return "summary"
	default:
		return "unknown"
	}
}

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is the input to an AI completion.
type CompletionRequest struct {
	Messages    []Message `json:"messages"`
	Model       string    `json:"model,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
	Task        TaskType  `json:"task,omitempty"`
}

// CompletionResponse is the output from an AI completion.
type CompletionResponse struct {
	Content      string `json:"content"`
	Model        string `json:"model"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
}

// TotalTokens returns the sum of input and output tokens.
func (r CompletionResponse) TotalTokens() int {
	return r.InputTokens + r.OutputTokens
}

// StreamChunk is one piece of a streamed reply. A chunk with Error set is
// the last one sent. The Done chunk carries the model that answered, when
// the provider reports one.
type StreamChunk struct {
	Content string
	Done    bool
	Model   string
	Error   error
}

// ModelInfo describes an available model.
type ModelInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	MaxTokens   int    `json:"max_tokens"`
	Description string `json:"description"`
}

// Provider is the interface all AI providers must implement.
//
// StreamComplete returns an error only when the request fails before any
// content is produced. Later failures arrive as a chunk with Error set. The
// channel is closed when the stream ends.
type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
	StreamComplete(ctx context.Context, req CompletionRequest) (<-chan StreamChunk, error)
	Models() []ModelInfo
	HealthCheck(ctx context.Context) error
}
