// Package ai provides a provider-agnostic AI gateway with ordered fallback
// between providers.
package ai

import "context"

// TaskType names the kind of study task a request serves. It is carried for
// logging and usage accounting.
type TaskType int

const (
	TaskStudyNotes TaskType = iota
	TaskSearch
	TaskQuiz
	TaskChat
)

func (t TaskType) String() string {
	switch t {
	case TaskStudyNotes:
		return "study_notes"
	case TaskSearch:
		return "search"
	case TaskQuiz:
		return "quiz"
	case TaskChat:
		return "chat"
	default:
		return "unknown"
	}
}

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Schema is a JSON Schema the response must satisfy. Name identifies the
// compiled schema in the validation cache and must be unique per
// Definition.
type Schema struct {
	Name       string
	Definition map[string]any
}

// CompletionRequest is the input to an AI completion.
type CompletionRequest struct {
	Messages    []Message `json:"messages"`
	System      string    `json:"system,omitempty"`
	Model       string    `json:"model,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
	Task        TaskType  `json:"task,omitempty"`
	Schema      *Schema   `json:"-"`
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

// StreamChunk represents a streaming response chunk. The last chunk on a
// channel has Done set; a chunk with Error set is always the last.
type StreamChunk struct {
	Content string
	Done    bool
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
type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
	StreamComplete(ctx context.Context, req CompletionRequest) (<-chan StreamChunk, error)
	Models() []ModelInfo
	HealthCheck(ctx context.Context) error
}
