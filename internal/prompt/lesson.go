package prompt

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/Devprenuer/ai-tutor/internal/llm"
)

// LessonParams configures a LessonPrompt.
type LessonParams struct {
	Topic string // required

	// DifficultyLevel pitches the lesson; 0 leaves it unspecified.
	DifficultyLevel int

	// Questions the lesson should help with, without quoting them.
	Questions []string
}

// LessonPrompt asks for one HTML lesson.
type LessonPrompt struct {
	params LessonParams
}

// NewLessonPrompt validates params and builds the prompt.
func NewLessonPrompt(params LessonParams) (*LessonPrompt, error) {
	if strings.TrimSpace(params.Topic) == "" {
		return nil, &MissingParameterError{Field: "topic", Supplier: "LessonParams.Topic"}
	}
	if params.DifficultyLevel != 0 {
		if err := levelInRange("difficulty_level", params.DifficultyLevel); err != nil {
			return nil, err
		}
	}
	return &LessonPrompt{params: params}, nil
}

func (p *LessonPrompt) Purpose() string { return llm.PurposeLesson }

func (p *LessonPrompt) UserPrompt() string {
	if p.params.DifficultyLevel > 0 {
		return fmt.Sprintf("Generate a level %d %s lesson", p.params.DifficultyLevel, p.params.Topic)
	}
	return fmt.Sprintf("Generate a %s lesson", p.params.Topic)
}

func (p *LessonPrompt) SystemPrompt() string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are an AI that generates a single %s lesson", p.params.Topic)
	if len(p.params.Questions) > 0 {
		b.WriteString(" that helps answer the question(s) without directly answering or mentioning them:\n")
		b.WriteString(strings.Join(p.params.Questions, ", "))
	}
	b.WriteString(".\n")
	if p.params.DifficultyLevel > 0 {
		fmt.Fprintf(&b, "Pitch the lesson at difficulty level %d on a scale from 1 to 10.\n", p.params.DifficultyLevel)
	}
	b.WriteString("Include examples in html format with <pre> tags for code, <p> for text etc.\n")
	b.WriteString("Escape html special characters inside code and encode entities (ex: `<` should be encoded as `&lt;`).\n")
	b.WriteString("Title should not use a prefix such as \"Lesson Topic: \" or \"Lesson Topic - \".\n")
	b.WriteString("The lesson must include a short plain text excerpt 1-2 sentences long.\n")
	b.WriteString("Return the lesson as a single JSON object and nothing else, matching this schema:\n")
	b.WriteString(encode(p.Schema().Definition))
	fmt.Fprintf(&b, "\nFor example, if the user prompt was: %q you would respond with something like:\n", p.UserPrompt())
	b.WriteString(encode(GeneratedLesson{
		Title:   fmt.Sprintf("(ex: Loops in %s)", p.params.Topic),
		Excerpt: "plain text",
		Body:    "<p>Lesson body html</p>",
	}))

	return b.String()
}

func (p *LessonPrompt) Messages() []llm.Message {
	return []llm.Message{
		{Role: llm.RoleSystem, Content: p.SystemPrompt()},
		{Role: llm.RoleUser, Content: p.UserPrompt()},
	}
}

func (p *LessonPrompt) Schema() *llm.Schema {
	return lessonSchema
}

var lessonSchema = &llm.Schema{
	Name:        "lesson",
	Description: "A single HTML lesson",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title":   map[string]any{"type": "string", "minLength": 1},
			"excerpt": map[string]any{"type": "string"},
			"body":    map[string]any{"type": "string", "minLength": 1},
		},
		"required": []any{"title", "excerpt", "body"},
	},
}

// GeneratedLesson is a parsed lesson reply.
type GeneratedLesson struct {
	Title   string `json:"title"`
	Excerpt string `json:"excerpt"`
	Body    string `json:"body"`
}

var titlePrefix = regexp.MustCompile(`(?i)^lesson(\s+topic)?\s*[:\-–]\s*`)

// ParseLesson decodes a lesson reply and strips any "Lesson Topic:"
// style title prefix the model added anyway.
func ParseLesson(raw []byte) (*GeneratedLesson, error) {
	kind := "lesson"
	var l GeneratedLesson
	if err := json.Unmarshal(raw, &l); err != nil {
		return nil, malformed(kind, raw, "invalid JSON: %w", err)
	}
	l.Title = strings.TrimSpace(titlePrefix.ReplaceAllString(strings.TrimSpace(l.Title), ""))
	l.Excerpt = strings.TrimSpace(l.Excerpt)
	if l.Title == "" {
		return nil, malformed(kind, raw, "title is empty")
	}
	if strings.TrimSpace(l.Body) == "" {
		return nil, malformed(kind, raw, "body is empty")
	}
	return &l, nil
}
