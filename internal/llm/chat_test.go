package llm

import (
	"context"
	"errors"
	"testing"
)

func TestChat_EmptySequence(t *testing.T) {
	mock := NewMockProvider(MockText(`{}`))

	_, err := Chat(context.Background(), mock, nil, ChatOptions{})
	if !errors.Is(err, ErrEmptyPrompt) {
		t.Fatalf("expected ErrEmptyPrompt, got %v", err)
	}
	if mock.CallCount() != 0 {
		t.Fatalf("provider should not be called, got %d calls", mock.CallCount())
	}
}

func TestChat_OnlySystemMessages(t *testing.T) {
	mock := NewMockProvider(MockText(`{}`))

	_, err := Chat(context.Background(), mock, []Message{{Role: RoleSystem, Content: "rules"}}, ChatOptions{})
	if !errors.Is(err, ErrEmptyPrompt) {
		t.Fatalf("expected ErrEmptyPrompt, got %v", err)
	}
}

func TestChat_SplitsSystemTurns(t *testing.T) {
	mock := NewMockProvider(MockText(`{"ok":true}`))

	msgs := []Message{
		{Role: RoleSystem, Content: "one"},
		{Role: RoleUser, Content: "q1"},
		{Role: RoleAssistant, Content: "a1"},
		{Role: RoleSystem, Content: "two"},
		{Role: RoleUser, Content: "q2"},
	}
	resp, err := Chat(context.Background(), mock, msgs, ChatOptions{MaxTokens: 100, Temperature: 0.5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(resp.Content) != `{"ok":true}` {
		t.Fatalf("unexpected content %s", resp.Content)
	}

	req, _ := mock.LastCall()
	if req.System != "one\n\ntwo" {
		t.Fatalf("system = %q", req.System)
	}
	if len(req.Messages) != 3 {
		t.Fatalf("expected 3 turns, got %d", len(req.Messages))
	}
	for i, want := range []string{"q1", "a1", "q2"} {
		if req.Messages[i].Content != want {
			t.Fatalf("turn %d = %q, want %q", i, req.Messages[i].Content, want)
		}
	}
	if req.MaxTokens != 100 || req.Temperature != 0.5 {
		t.Fatalf("options not forwarded: %+v", req)
	}
}
