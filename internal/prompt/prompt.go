// Package prompt builds the chat message sequences used to generate
// questions, hints and lessons, and parses the model's replies.
package prompt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Devprenuer/ai-tutor/internal/llm"
)

// Prompt is a fully validated chat request.
type Prompt interface {
	// Messages returns the ordered conversation to send.
	Messages() []llm.Message

	// SystemPrompt returns the instructions, schema and worked example.
	SystemPrompt() string

	// UserPrompt returns the first-turn request.
	UserPrompt() string

	// Schema is the JSON Schema the reply must satisfy.
	Schema() *llm.Schema

	// Purpose labels the request in logs and metrics.
	Purpose() string
}

// MissingParameterError reports a required parameter that was not set.
type MissingParameterError struct {
	Field    string
	Supplier string
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("%s is required (set %s)", e.Field, e.Supplier)
}

// InvalidParameterError reports a parameter outside its allowed range.
type InvalidParameterError struct {
	Field  string
	Reason string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// MalformedResponseError reports a model reply that is not valid JSON or
// does not match what the prompt asked for.
type MalformedResponseError struct {
	Kind    string
	Content string
	Err     error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed %s response: %v", e.Kind, e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

func malformed(kind string, raw []byte, format string, args ...any) error {
	return &MalformedResponseError{Kind: kind, Content: string(raw), Err: fmt.Errorf(format, args...)}
}

// Options tunes the chat call made by Complete.
type Options struct {
	MaxTokens   int
	Temperature float64
}

// Complete sends p to the provider and returns the validated payload.
// A reply that fails schema validation comes back as
// *MalformedResponseError; transport errors are returned unchanged.
func Complete(ctx context.Context, provider llm.Provider, p Prompt, opts Options) (json.RawMessage, error) {
	ctx = llm.WithPurpose(ctx, p.Purpose())

	resp, err := llm.Chat(ctx, provider, p.Messages(), llm.ChatOptions{
		Schema:      p.Schema(),
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	})
	if err != nil {
		var inv *llm.ErrInvalidResponse
		if errors.As(err, &inv) {
			return nil, &MalformedResponseError{Kind: p.Schema().Name, Content: string(inv.Content), Err: err}
		}
		return nil, err
	}
	return resp.Content, nil
}

// encode renders v as indented JSON without HTML escaping, the form used
// both in worked examples and in replayed assistant turns.
func encode(v any) string {
	var b bytes.Buffer
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		// Only plain structs, maps and strings are encoded here.
		panic(fmt.Sprintf("prompt: encode %T: %v", v, err))
	}
	return strings.TrimRight(b.String(), "\n")
}

func levelInRange(field string, v int) error {
	if v < 1 || v > 10 {
		return &InvalidParameterError{Field: field, Reason: fmt.Sprintf("%d is outside 1-10", v)}
	}
	return nil
}
