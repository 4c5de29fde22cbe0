package llm

import (
	"context"
	"strings"
)

// ChatOptions tunes a single Chat call.
type ChatOptions struct {
	Schema      *Schema
	MaxTokens   int
	Temperature float64
}

// Chat dispatches an ordered role/content sequence to the provider.
// System turns are merged into Request.System in order; the remaining
// turns are passed through untouched. An empty sequence is rejected
// before any network call is made.
func Chat(ctx context.Context, p Provider, msgs []Message, opts ChatOptions) (*Response, error) {
	if len(msgs) == 0 {
		return nil, ErrEmptyPrompt
	}

	var system []string
	turns := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == RoleSystem {
			system = append(system, m.Content)
			continue
		}
		turns = append(turns, m)
	}
	if len(turns) == 0 {
		return nil, ErrEmptyPrompt
	}

	return p.Generate(ctx, Request{
		System:      strings.Join(system, "\n\n"),
		Messages:    turns,
		Schema:      opts.Schema,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	})
}
