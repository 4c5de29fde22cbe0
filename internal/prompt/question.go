package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Devprenuer/ai-tutor/internal/llm"
	"github.com/Devprenuer/ai-tutor/internal/store"
)

// NextQuestion is the follow-up user turn asking for another question.
const NextQuestion = "next"

var multipleChoiceKeys = []string{"a", "b", "c", "d"}

// QuestionParams configures a QuestionPrompt.
type QuestionParams struct {
	Topic           string // required
	Industry        string // required
	DifficultyLevel int    // required, 1-10
	QuestionType    store.QuestionType

	// PreviousQuestions are replayed as chat history, oldest first, so
	// the model does not repeat itself.
	PreviousQuestions []PreviousQuestion
}

// PreviousQuestion is a question already asked, in the shape the model
// produces.
type PreviousQuestion struct {
	Question        string        `json:"question"`
	DifficultyLevel int           `json:"difficulty_level"`
	Topic           string        `json:"topic"`
	Options         store.Options `json:"options,omitempty"`
	Answer          string        `json:"answer,omitempty"`
}

// FromQuestion converts a stored question for replay. The correct answer
// is included so the model sees complete turns.
func FromQuestion(q *store.Question, topic string) PreviousQuestion {
	pq := PreviousQuestion{
		Question:        q.Text,
		DifficultyLevel: q.DifficultyLevel,
		Topic:           topic,
	}
	if q.QuestionType == store.QuestionTypeMultipleChoice {
		pq.Options = q.Options()
		pq.Answer = q.MultipleChoiceAnswer
	}
	return pq
}

// QuestionPrompt asks the model for one question at a time.
type QuestionPrompt struct {
	params QuestionParams
}

// NewQuestionPrompt validates params and builds the prompt.
func NewQuestionPrompt(params QuestionParams) (*QuestionPrompt, error) {
	if strings.TrimSpace(params.Topic) == "" {
		return nil, &MissingParameterError{Field: "topic", Supplier: "QuestionParams.Topic"}
	}
	if params.DifficultyLevel == 0 {
		return nil, &MissingParameterError{Field: "difficulty_level", Supplier: "QuestionParams.DifficultyLevel"}
	}
	if strings.TrimSpace(params.Industry) == "" {
		return nil, &MissingParameterError{Field: "industry", Supplier: "QuestionParams.Industry"}
	}
	if err := levelInRange("difficulty_level", params.DifficultyLevel); err != nil {
		return nil, err
	}
	switch params.QuestionType {
	case store.QuestionTypeCoding, store.QuestionTypeMultipleChoice:
	default:
		return nil, &InvalidParameterError{Field: "question_type", Reason: params.QuestionType.String()}
	}
	return &QuestionPrompt{params: params}, nil
}

func (p *QuestionPrompt) Purpose() string { return llm.PurposeQuestion }

func (p *QuestionPrompt) multipleChoice() bool {
	return p.params.QuestionType == store.QuestionTypeMultipleChoice
}

func (p *QuestionPrompt) UserPrompt() string {
	kind := "question"
	if p.multipleChoice() {
		kind = "multiple choice question"
	}
	return fmt.Sprintf("Please generate a %d level %s %s about %s.",
		p.params.DifficultyLevel, p.params.Industry, kind, p.params.Topic)
}

// UserNextQuestionPrompt is the short turn used after the first one.
func (p *QuestionPrompt) UserNextQuestionPrompt() string {
	return NextQuestion
}

func (p *QuestionPrompt) SystemPrompt() string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are a chat assistant api that generates %s questions\n", p.params.Industry)
	b.WriteString("at increasing levels of difficulty ranging from 1 to 10, 10 being the most difficult.\n")
	b.WriteString("You return each question as a single JSON object and nothing else. ")
	b.WriteString("The `question` key contains the question, the `difficulty_level` key contains ")
	b.WriteString("the difficulty level and the `topic` key contains the topic.\n")
	if p.multipleChoice() {
		b.WriteString("Every question is multiple choice: the `options` key maps the keys \"a\", \"b\", \"c\" and \"d\" ")
		b.WriteString("to four possible answers and the `answer` key contains the key of the correct one.\n")
	}
	b.WriteString("The JSON object must match this schema:\n")
	b.WriteString(encode(p.Schema().Definition))
	fmt.Fprintf(&b, "\nFor example, if the user prompt was: %q you would respond with something like:\n", p.UserPrompt())
	b.WriteString(encode(p.exampleResponse()))
	fmt.Fprintf(&b, "\nEven though you accept user prompts in plain text, you return questions in JSON format. ")
	fmt.Fprintf(&b, "If the user prompt is %q you return the next question in the series, ", NextQuestion)
	b.WriteString("different from every question already asked.")

	return b.String()
}

func (p *QuestionPrompt) exampleResponse() PreviousQuestion {
	ex := PreviousQuestion{
		Question:        "...",
		DifficultyLevel: p.params.DifficultyLevel,
		Topic:           p.params.Topic,
	}
	if p.multipleChoice() {
		ex.Options = store.Options{}
		for _, k := range multipleChoiceKeys {
			ex.Options[k] = "..."
		}
		ex.Answer = "a"
	}
	return ex
}

// ChatHistoryMessages replays PreviousQuestions as user/assistant pairs.
// The first user turn is the full prompt and later ones are "next".
func (p *QuestionPrompt) ChatHistoryMessages() []llm.Message {
	if len(p.params.PreviousQuestions) == 0 {
		return nil
	}

	out := make([]llm.Message, 0, 2*len(p.params.PreviousQuestions))
	user := p.UserPrompt()
	for i, pq := range p.params.PreviousQuestions {
		if i > 0 {
			user = p.UserNextQuestionPrompt()
		}
		out = append(out,
			llm.Message{Role: llm.RoleUser, Content: user},
			llm.Message{Role: llm.RoleAssistant, Content: encode(pq)},
		)
	}
	return out
}

// Messages returns [system] + history + final user turn. With history
// present the final turn is "next".
func (p *QuestionPrompt) Messages() []llm.Message {
	history := p.ChatHistoryMessages()

	final := p.UserPrompt()
	if len(history) > 0 {
		final = p.UserNextQuestionPrompt()
	}

	msgs := make([]llm.Message, 0, len(history)+2)
	msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: p.SystemPrompt()})
	msgs = append(msgs, history...)
	msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: final})
	return msgs
}

func (p *QuestionPrompt) Schema() *llm.Schema {
	if p.multipleChoice() {
		return multipleChoiceQuestionSchema
	}
	return questionSchema
}

var questionSchema = &llm.Schema{
	Name:        "question",
	Description: "A single open coding question",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"question":         map[string]any{"type": "string", "minLength": 1},
			"difficulty_level": map[string]any{"type": "integer", "minimum": 1, "maximum": 10},
			"topic":            map[string]any{"type": "string"},
		},
		"required": []any{"question", "difficulty_level", "topic"},
	},
}

var multipleChoiceQuestionSchema = &llm.Schema{
	Name:        "multiple-choice-question",
	Description: "A single multiple choice question with four options",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"question":         map[string]any{"type": "string", "minLength": 1},
			"difficulty_level": map[string]any{"type": "integer", "minimum": 1, "maximum": 10},
			"topic":            map[string]any{"type": "string"},
			"options": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"a": map[string]any{"type": "string"},
					"b": map[string]any{"type": "string"},
					"c": map[string]any{"type": "string"},
					"d": map[string]any{"type": "string"},
				},
				"required":             []any{"a", "b", "c", "d"},
				"additionalProperties": false,
			},
			// Case and padding are normalized by ParseQuestion.
			"answer": map[string]any{"type": "string", "pattern": `^\s*[a-dA-D]\s*$`},
		},
		"required": []any{"question", "difficulty_level", "topic", "options", "answer"},
	},
}

// GeneratedQuestion is a parsed model reply.
type GeneratedQuestion struct {
	Question        string        `json:"question"`
	DifficultyLevel int           `json:"difficulty_level"`
	Topic           string        `json:"topic"`
	Options         store.Options `json:"options"`
	Answer          string        `json:"answer"`
}

// ParseQuestion decodes a question reply. Multiple-choice replies must
// carry exactly the options a-d and an answer naming one of them.
func ParseQuestion(raw []byte, qt store.QuestionType) (*GeneratedQuestion, error) {
	kind := "question"
	var q GeneratedQuestion
	if err := json.Unmarshal(raw, &q); err != nil {
		return nil, malformed(kind, raw, "invalid JSON: %w", err)
	}
	q.Question = strings.TrimSpace(q.Question)
	if q.Question == "" {
		return nil, malformed(kind, raw, "question is empty")
	}
	if qt != store.QuestionTypeMultipleChoice {
		q.Options, q.Answer = nil, ""
		return &q, nil
	}

	if len(q.Options) == 0 {
		return nil, malformed(kind, raw, "multiple choice question has no options")
	}
	for _, k := range multipleChoiceKeys {
		if _, ok := q.Options[k]; !ok {
			return nil, malformed(kind, raw, "option %q is missing", k)
		}
	}
	if len(q.Options) != len(multipleChoiceKeys) {
		return nil, malformed(kind, raw, "got options %v, want %v", q.Options.Keys(), multipleChoiceKeys)
	}
	q.Answer = strings.ToLower(strings.TrimSpace(q.Answer))
	if q.Answer == "" {
		return nil, malformed(kind, raw, "multiple choice question has no answer")
	}
	if _, ok := q.Options[q.Answer]; !ok {
		return nil, malformed(kind, raw, "answer %q is not one of the options %v", q.Answer, q.Options.Keys())
	}
	return &q, nil
}
