package llm

import (
	"context"
	"encoding/json"
)

// Provider is the core abstraction for chat-completion backends.
// Callers hand it a Request and receive the model's JSON payload.
type Provider interface {
	// Generate sends the conversation to the model. When the request
	// carries a Schema the returned Content has already been validated
	// against it.
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID returns the model identifier this provider is configured to use.
	ModelID() string
}

// Request describes what to send to the model.
type Request struct {
	// System is the system prompt. Chat turns flattened through Chat
	// have their system messages merged here.
	System string

	// Messages is the conversation after the system prompt, alternating
	// user and assistant turns and ending with a user turn.
	Messages []Message

	// Schema is the JSON Schema the response must conform to. Providers
	// use their native JSON mode when the schema describes an object and
	// always validate locally.
	Schema *Schema

	// MaxTokens is the maximum number of tokens in the response.
	MaxTokens int

	// Temperature controls randomness. Range: 0.0 - 1.0.
	Temperature float64
}

// Message represents a single chat turn.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Role is the message sender role.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Schema defines the JSON structure expected from the model.
type Schema struct {
	// Name identifies this schema, kebab-case, e.g. "coding-question".
	Name string

	// Description is a human-readable description of what this schema
	// represents.
	Description string

	// Definition is the JSON Schema definition as a map.
	Definition map[string]any
}

// IsObject reports whether the schema's top-level type is "object".
func (s *Schema) IsObject() bool {
	if s == nil {
		return false
	}
	t, _ := s.Definition["type"].(string)
	return t == "object"
}

// Response holds the model's output.
type Response struct {
	// Content is the generated payload with any markdown fences removed.
	Content json.RawMessage

	// Usage reports token consumption for this request.
	Usage Usage

	// Model is the actual model that served the request.
	Model string

	// StopReason is normalized to "end", "max_tokens" or "error".
	StopReason string
}

// Usage tracks token consumption for a single request.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}
