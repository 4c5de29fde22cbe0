package prompt

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/Devprenuer/ai-tutor/internal/llm"
)

// MinHints is how many hints one generation must produce.
const MinHints = 10

// HintsParams configures a HintsPrompt.
type HintsParams struct {
	Question string // required
}

// HintsPrompt asks for a batch of increasingly revealing hints.
type HintsPrompt struct {
	params HintsParams
}

// NewHintsPrompt validates params and builds the prompt.
func NewHintsPrompt(params HintsParams) (*HintsPrompt, error) {
	if strings.TrimSpace(params.Question) == "" {
		return nil, &MissingParameterError{Field: "question", Supplier: "HintsParams.Question"}
	}
	return &HintsPrompt{params: params}, nil
}

func (p *HintsPrompt) Purpose() string { return llm.PurposeHints }

func (p *HintsPrompt) UserPrompt() string {
	return fmt.Sprintf("Please generate at least %d hints for the question '%s' with helpfulness levels from 1 to 10.",
		MinHints, p.params.Question)
}

func (p *HintsPrompt) SystemPrompt() string {
	var b strings.Builder

	b.WriteString("You are a chat assistant that generates hints for given questions.\n")
	b.WriteString("The hints have a helpfulness level from 1 to 10, with 1 adding more clarity to the question\n")
	b.WriteString("and 10 almost answering the question. Each hint includes an example. Any code included in a hint\n")
	b.WriteString("should be valid code, wrapped in a code block, e.g. ```code goes here```.\n")
	fmt.Fprintf(&b, "Return at least %d hints as a single JSON array and nothing else, matching this schema:\n", MinHints)
	b.WriteString(encode(p.Schema().Definition))
	fmt.Fprintf(&b, "\nFor example, if the user prompt was: %q you would respond with something like:\n", p.UserPrompt())
	b.WriteString(encode(p.exampleResponse()))

	return b.String()
}

func (p *HintsPrompt) exampleResponse() []GeneratedHint {
	return []GeneratedHint{
		{Hint: "A hint that clarifies what the question asks", HelpfulnessLevel: 1},
		{Hint: "...", HelpfulnessLevel: 2},
		{Hint: "A hint that almost answers the question", HelpfulnessLevel: 10},
	}
}

func (p *HintsPrompt) Messages() []llm.Message {
	return []llm.Message{
		{Role: llm.RoleSystem, Content: p.SystemPrompt()},
		{Role: llm.RoleUser, Content: p.UserPrompt()},
	}
}

func (p *HintsPrompt) Schema() *llm.Schema {
	return hintsSchema
}

var hintsSchema = &llm.Schema{
	Name:        "hints",
	Description: "Hints for a question ordered from least to most revealing",
	Definition: map[string]any{
		"type":     "array",
		"minItems": MinHints,
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

// GeneratedHint is one parsed hint.
type GeneratedHint struct {
	Hint             string `json:"hint"`
	HelpfulnessLevel int    `json:"helpfulness_level"`
}

// ParseHints decodes a hints reply, ordered by helpfulness level with
// the model's order kept among equal levels.
func ParseHints(raw []byte) ([]GeneratedHint, error) {
	kind := "hints"
	var hints []GeneratedHint
	if err := json.Unmarshal(raw, &hints); err != nil {
		return nil, malformed(kind, raw, "invalid JSON: %w", err)
	}
	if len(hints) < MinHints {
		return nil, malformed(kind, raw, "got %d hints, want at least %d", len(hints), MinHints)
	}
	for i, h := range hints {
		if strings.TrimSpace(h.Hint) == "" {
			return nil, malformed(kind, raw, "hint %d is empty", i)
		}
		if h.HelpfulnessLevel < 1 || h.HelpfulnessLevel > 10 {
			return nil, malformed(kind, raw, "hint %d has helpfulness level %d", i, h.HelpfulnessLevel)
		}
	}
	sort.SliceStable(hints, func(i, j int) bool {
		return hints[i].HelpfulnessLevel < hints[j].HelpfulnessLevel
	})
	return hints, nil
}
