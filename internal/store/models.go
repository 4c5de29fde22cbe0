package store

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ErrInvalidQuestion is returned when a question fails its creation
// checks, e.g. a multiple-choice question without options.
var ErrInvalidQuestion = errors.New("invalid question")

// QuestionType discriminates how a question is answered and graded.
type QuestionType int

const (
	QuestionTypeCoding         QuestionType = 0
	QuestionTypeMultipleChoice QuestionType = 1
)

func (t QuestionType) String() string {
	switch t {
	case QuestionTypeCoding:
		return "CODING"
	case QuestionTypeMultipleChoice:
		return "MULTIPLE_CHOICE"
	default:
		return fmt.Sprintf("QuestionType(%d)", int(t))
	}
}

// ParseQuestionType accepts either the numeric code or the name.
func ParseQuestionType(s string) (QuestionType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "0", "CODING":
		return QuestionTypeCoding, nil
	case "1", "MULTIPLE_CHOICE":
		return QuestionTypeMultipleChoice, nil
	}
	return 0, fmt.Errorf("unknown question type %q", s)
}

// Options maps a multiple-choice option key ("a".."d") to its text.
type Options map[string]string

// Keys returns the option keys in display order.
func (o Options) Keys() []string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Industry is static reference data grouping topics.
type Industry struct {
	ID     uint    `gorm:"primaryKey" json:"id"`
	Name   string  `gorm:"size:120;uniqueIndex;not null" json:"name"`
	Topics []Topic `json:"topics,omitempty"`
}

// Topic is static reference data; questions and lessons belong to one.
type Topic struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Name       string    `gorm:"size:120;not null;uniqueIndex:idx_topic_name" json:"name"`
	IndustryID uint      `gorm:"not null;uniqueIndex:idx_topic_name" json:"industry_id"`
	Industry   *Industry `json:"industry,omitempty"`
}

// User is a learner. QuestionsAnsweredCount counts distinct questions
// answered.
type User struct {
	ID                     uint      `gorm:"primaryKey" json:"id"`
	Name                   string    `gorm:"size:120" json:"name"`
	Email                  string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	QuestionsAnsweredCount int       `gorm:"not null;default:0" json:"questions_answered_count"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

// Question is a stored quiz question.
type Question struct {
	ID                    uint                       `gorm:"primaryKey" json:"id"`
	Text                  string                     `gorm:"type:text;not null" json:"question"`
	DifficultyLevel       int                        `gorm:"not null;index:idx_question_filter" json:"difficulty_level"`
	TopicID               uint                       `gorm:"not null;index:idx_question_filter" json:"topic_id"`
	Topic                 *Topic                     `json:"topic,omitempty"`
	QuestionType          QuestionType               `gorm:"not null;default:0;index:idx_question_filter" json:"question_type"`
	MultipleChoiceOptions datatypes.JSONType[Options] `json:"multiple_choice_options"`
	MultipleChoiceAnswer  string                     `gorm:"size:16" json:"-"`
	ViewCount             int                        `gorm:"not null;default:0" json:"view_count"`
	AnswersCount          int                        `gorm:"not null;default:0" json:"answers_count"`
	CreatedAt             time.Time                  `gorm:"index" json:"created_at"`
	UpdatedAt             time.Time                  `json:"updated_at"`

	Hints []Hint         `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Views []QuestionView `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// Options returns the multiple-choice options, nil for coding questions.
func (q *Question) Options() Options {
	return q.MultipleChoiceOptions.Data()
}

// Validate checks the multiple-choice invariant: options and a matching
// answer key are required.
func (q *Question) Validate() error {
	if strings.TrimSpace(q.Text) == "" {
		return fmt.Errorf("%w: text is empty", ErrInvalidQuestion)
	}
	if q.QuestionType != QuestionTypeMultipleChoice {
		return nil
	}
	opts := q.Options()
	if len(opts) == 0 {
		return fmt.Errorf("%w: multiple choice question has no options", ErrInvalidQuestion)
	}
	if q.MultipleChoiceAnswer == "" {
		return fmt.Errorf("%w: multiple choice question has no answer", ErrInvalidQuestion)
	}
	if _, ok := opts[q.MultipleChoiceAnswer]; !ok {
		return fmt.Errorf("%w: answer %q is not one of the options %v", ErrInvalidQuestion, q.MultipleChoiceAnswer, opts.Keys())
	}
	return nil
}

// BeforeCreate rejects questions that break the multiple-choice invariant.
func (q *Question) BeforeCreate(*gorm.DB) error {
	return q.Validate()
}

func (q *Question) GetID() uint        { return q.ID }
func (q *Question) GetViewCount() int  { return q.ViewCount }
func (q *Question) AddViewCount(n int) { q.ViewCount += n }

// Hint is one of a batch of increasingly revealing hints for a question.
type Hint struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	Text             string    `gorm:"type:text;not null" json:"hint"`
	QuestionID       uint      `gorm:"not null;index" json:"question_id"`
	HelpfulnessLevel int       `gorm:"not null" json:"helpfulness_level"`
	ViewCount        int       `gorm:"not null;default:0" json:"view_count"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`

	Views []HintView `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

func (h *Hint) GetID() uint        { return h.ID }
func (h *Hint) GetViewCount() int  { return h.ViewCount }
func (h *Hint) AddViewCount(n int) { h.ViewCount += n }

// Lesson is a short HTML article that supports zero or more questions.
type Lesson struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	Title           string     `gorm:"size:255;not null" json:"title"`
	Body            string     `gorm:"type:text" json:"body,omitempty"`
	Excerpt         string     `gorm:"type:text" json:"excerpt"`
	DifficultyLevel int        `gorm:"not null;index:idx_lesson_filter" json:"difficulty_level"`
	TopicID         uint       `gorm:"not null;index:idx_lesson_filter" json:"topic_id"`
	Topic           *Topic     `json:"topic,omitempty"`
	ViewCount       int        `gorm:"not null;default:0" json:"view_count"`
	CreatedAt       time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	Questions       []Question `gorm:"many2many:lesson_questions;constraint:OnDelete:CASCADE" json:"questions,omitempty"`

	Views []LessonView `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

func (l *Lesson) GetID() uint        { return l.ID }
func (l *Lesson) GetViewCount() int  { return l.ViewCount }
func (l *Lesson) AddViewCount(n int) { l.ViewCount += n }

// Answer is one submission by a user. Repeats are allowed.
type Answer struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"not null;index:idx_answer_user_question" json:"user_id"`
	QuestionID uint      `gorm:"not null;index:idx_answer_user_question" json:"question_id"`
	AnswerText string    `gorm:"type:text" json:"answer"`
	Score      int       `json:"score"`
	TimeTaken  int64     `json:"time_taken"`
	CreatedAt  time.Time `json:"created_at"`
}

// QuestionView records one view of a question by a user.
type QuestionView struct {
	ID         uint      `gorm:"primaryKey"`
	UserID     uint      `gorm:"not null;index:idx_question_view_lookup"`
	QuestionID uint      `gorm:"not null;index:idx_question_view_lookup"`
	CreatedAt  time.Time `gorm:"index"`
}

func (v QuestionView) ViewedAt() time.Time { return v.CreatedAt }

// HintView records one view of a hint by a user.
type HintView struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"not null;index:idx_hint_view_lookup"`
	HintID    uint      `gorm:"not null;index:idx_hint_view_lookup"`
	CreatedAt time.Time `gorm:"index"`
}

func (v HintView) ViewedAt() time.Time { return v.CreatedAt }

// LessonView records one view of a lesson by a user.
type LessonView struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"not null;index:idx_lesson_view_lookup"`
	LessonID  uint      `gorm:"not null;index:idx_lesson_view_lookup"`
	CreatedAt time.Time `gorm:"index"`
}

func (v LessonView) ViewedAt() time.Time { return v.CreatedAt }

// LLMRequestEvent is one audited chat completion call.
type LLMRequestEvent struct {
	ID           uint      `gorm:"primaryKey"`
	CreatedAt    time.Time `gorm:"index"`
	Provider     string    `gorm:"size:64"`
	Model        string    `gorm:"size:128;index"`
	Purpose      string    `gorm:"size:32;index"`
	UserID       uint
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string `gorm:"type:text"`
	RequestBody  string `gorm:"type:text"`
	ResponseBody string `gorm:"type:text"`
}

// Models lists every table for auto-migration.
func Models() []any {
	return []any{
		&Industry{},
		&Topic{},
		&User{},
		&Question{},
		&Hint{},
		&Lesson{},
		&Answer{},
		&QuestionView{},
		&HintView{},
		&LessonView{},
		&LLMRequestEvent{},
	}
}
