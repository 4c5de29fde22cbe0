package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"google.golang.org/genai"
)

// hintsFixture mirrors the hint list schema the prompt package sends.
func hintsFixture() *Schema {
	return &Schema{
		Name: "fixture-hints",
		Definition: map[string]any{
			"type":     "array",
			"minItems": 2,
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"hint":              map[string]any{"type": "string", "minLength": 1},
					"helpfulness_level": map[string]any{"type": "integer", "minimum": 1, "maximum": 10},
				},
				"required": []any{"hint", "helpfulness_level"},
			},
		},
	}
}

// multipleChoiceFixture mirrors the multiple-choice question schema.
func multipleChoiceFixture() *Schema {
	option := map[string]any{"type": "string"}
	return &Schema{
		Name: "fixture-multiple-choice-question",
		Definition: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"question":         map[string]any{"type": "string", "minLength": 1},
				"difficulty_level": map[string]any{"type": "integer", "minimum": 1, "maximum": 10},
				"topic":            map[string]any{"type": "string"},
				"options": map[string]any{
					"type":                 "object",
					"properties":           map[string]any{"a": option, "b": option, "c": option, "d": option},
					"required":             []any{"a", "b", "c", "d"},
					"additionalProperties": false,
				},
				"answer": map[string]any{"type": "string", "pattern": `^\s*[a-dA-D]\s*$`},
			},
			"required": []any{"question", "difficulty_level", "topic", "options", "answer"},
		},
	}
}

func newTestGeminiProvider(t *testing.T, handler http.HandlerFunc) *GeminiProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	p, err := NewGeminiProvider(context.Background(), GeminiConfig{
		APIKey:  "gemini-test",
		Model:   "gemini-flash",
		BaseURL: server.URL + "/",
	})
	if err != nil {
		t.Fatalf("NewGeminiProvider: %v", err)
	}
	return p
}

func geminiReply(text, finish string) map[string]any {
	return map[string]any{
		"candidates": []map[string]any{
			{
				"content":      map[string]any{"role": "model", "parts": []map[string]any{{"text": text}}},
				"finishReason": finish,
			},
		},
		"usageMetadata": map[string]any{
			"promptTokenCount":     120,
			"candidatesTokenCount": 48,
			"totalTokenCount":      168,
		},
		"modelVersion": "gemini-2.5-flash",
	}
}

func TestGeminiModelMapping(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"gemini-flash", "gemini-2.5-flash"},
		{"gemini-flash-lite", "gemini-2.0-flash-lite"},
		{"gemini-pro", "gemini-2.5-pro"},
		{"gemini-2.0-flash", "gemini-2.0-flash"},
	}
	for _, tt := range tests {
		got := resolveModel(tt.input, geminiModels)
		if got != tt.expected {
			t.Errorf("resolveModel(%q) = %q, want %q", tt.input, got, tt.expected)
		}
		if LookupCost(got) == nil {
			t.Errorf("no pricing for %q", got)
		}
	}
}

func TestNewGeminiProvider_RequiresKey(t *testing.T) {
	_, err := NewGeminiProvider(context.Background(), GeminiConfig{Model: "gemini-flash"})
	if err == nil || !strings.Contains(err.Error(), "API key is required") {
		t.Fatalf("expected missing key error, got %v", err)
	}
}

func TestBuildGeminiSchema_Hints(t *testing.T) {
	schema := buildGeminiSchema(hintsFixture().Definition)

	if schema.Type != genai.TypeArray {
		t.Fatalf("expected ARRAY, got %s", schema.Type)
	}
	if schema.MinItems == nil || *schema.MinItems != 2 {
		t.Fatalf("minItems = %v, want 2", schema.MinItems)
	}
	item := schema.Items
	if item == nil || item.Type != genai.TypeObject {
		t.Fatalf("items = %+v, want OBJECT", item)
	}
	level := item.Properties["helpfulness_level"]
	if level.Type != genai.TypeInteger {
		t.Fatalf("helpfulness_level type = %s", level.Type)
	}
	if level.Minimum == nil || *level.Minimum != 1 || level.Maximum == nil || *level.Maximum != 10 {
		t.Fatalf("helpfulness_level bounds = %v..%v", level.Minimum, level.Maximum)
	}
	if hint := item.Properties["hint"]; hint.MinLength == nil || *hint.MinLength != 1 {
		t.Fatalf("hint minLength = %v", hint.MinLength)
	}
	if len(item.Required) != 2 {
		t.Fatalf("required = %v", item.Required)
	}
}

func TestBuildGeminiSchema_MultipleChoice(t *testing.T) {
	schema := buildGeminiSchema(multipleChoiceFixture().Definition)

	if schema.Type != genai.TypeObject {
		t.Fatalf("expected OBJECT, got %s", schema.Type)
	}
	if len(schema.Required) != 5 {
		t.Fatalf("required = %v", schema.Required)
	}
	options := schema.Properties["options"]
	if len(options.Properties) != 4 || len(options.Required) != 4 {
		t.Fatalf("options = %d properties, required %v", len(options.Properties), options.Required)
	}
	if got := schema.Properties["answer"].Pattern; got != `^\s*[a-dA-D]\s*$` {
		t.Fatalf("answer pattern = %q", got)
	}
}

func TestBuildGeminiSchema_RequiredAsStrings(t *testing.T) {
	schema := buildGeminiSchema(map[string]any{
		"type":     "object",
		"required": []string{"title", "body"},
		"properties": map[string]any{
			"title": map[string]any{"type": "string"},
			"body":  map[string]any{"type": "string"},
		},
	})
	if len(schema.Required) != 2 {
		t.Fatalf("required = %v", schema.Required)
	}
}

func TestGeminiProvider_Hints(t *testing.T) {
	var (
		path string
		key  string
		body map[string]any
	)
	hints := `[{"hint":"Look at the loop bounds","helpfulness_level":3},{"hint":"The last index is len-1","helpfulness_level":8}]`
	p := newTestGeminiProvider(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		key = r.Header.Get("x-goog-api-key")
		json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(geminiReply("```json\n"+hints+"\n```", "STOP"))
	})

	resp, err := p.Generate(context.Background(), Request{
		System:      "You are a programming tutor. Reply with hints only.",
		Messages:    []Message{{Role: RoleUser, Content: "Question: why does my loop skip the last item?"}},
		Schema:      hintsFixture(),
		MaxTokens:   512,
		Temperature: 0.4,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.HasSuffix(path, "/models/gemini-2.5-flash:generateContent") {
		t.Errorf("path = %q", path)
	}
	if key != "gemini-test" {
		t.Errorf("x-goog-api-key = %q", key)
	}
	if _, ok := body["systemInstruction"]; !ok {
		t.Error("system prompt not sent as systemInstruction")
	}
	gen, _ := body["generationConfig"].(map[string]any)
	if gen["responseMimeType"] != "application/json" {
		t.Errorf("generationConfig = %v", gen)
	}

	if string(resp.Content) != hints {
		t.Errorf("content = %s", resp.Content)
	}
	if resp.StopReason != "end" {
		t.Errorf("stop reason = %q", resp.StopReason)
	}
	if resp.Usage.InputTokens != 120 || resp.Usage.OutputTokens != 48 || resp.Usage.TotalTokens != 168 {
		t.Errorf("usage = %+v", resp.Usage)
	}
	if resp.Model != "gemini-2.5-flash" {
		t.Errorf("model = %q", resp.Model)
	}
}

func TestGeminiProvider_QuestionFailingSchemaIsInvalid(t *testing.T) {
	reply := `{"question":"Which keyword declares a constant?","difficulty_level":2,"topic":"PHP",` +
		`"options":{"a":"var","b":"const","c":"let","d":"static"},"answer":"e"}`
	p := newTestGeminiProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(geminiReply(reply, "STOP"))
	})

	_, err := p.Generate(context.Background(), Request{
		Messages: []Message{{Role: RoleUser, Content: "Topic: PHP"}},
		Schema:   multipleChoiceFixture(),
	})
	var invalid *ErrInvalidResponse
	if !errors.As(err, &invalid) {
		t.Fatalf("expected ErrInvalidResponse, got: %T (%v)", err, err)
	}
}

func TestGeminiProvider_MaxTokens(t *testing.T) {
	p := newTestGeminiProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(geminiReply(`[{"hint":"Look at`, "MAX_TOKENS"))
	})

	_, err := p.Generate(context.Background(), Request{
		Messages: []Message{{Role: RoleUser, Content: "Question: reverse a string"}},
		Schema:   hintsFixture(),
	})
	var maxTok *ErrMaxTokensExceeded
	if !errors.As(err, &maxTok) {
		t.Fatalf("expected ErrMaxTokensExceeded, got: %T (%v)", err, err)
	}
}

func TestGeminiProvider_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(error) bool
	}{
		{"rate limit", http.StatusTooManyRequests, func(err error) bool {
			var e *ErrRateLimit
			return errors.As(err, &e)
		}},
		{"unavailable", http.StatusServiceUnavailable, func(err error) bool {
			var e *ErrProviderUnavailable
			return errors.As(err, &e)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestGeminiProvider(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				json.NewEncoder(w).Encode(map[string]any{
					"error": map[string]any{"code": tt.status, "message": "try later", "status": "UNAVAILABLE"},
				})
			})

			_, err := p.Generate(context.Background(), Request{
				Messages: []Message{{Role: RoleUser, Content: "Topic: PHP"}},
			})
			if !tt.check(err) {
				t.Fatalf("unexpected error type: %T (%v)", err, err)
			}
		})
	}
}

func TestMapGeminiStopReason(t *testing.T) {
	tests := []struct {
		reason genai.FinishReason
		want   string
	}{
		{genai.FinishReasonStop, "end"},
		{"", "end"},
		{genai.FinishReasonMaxTokens, "max_tokens"},
		{genai.FinishReasonSafety, "error"},
	}
	for _, tt := range tests {
		if got := mapGeminiStopReason(tt.reason); got != tt.want {
			t.Errorf("mapGeminiStopReason(%q) = %q, want %q", tt.reason, got, tt.want)
		}
	}
}
