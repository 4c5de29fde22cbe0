// Package questions serves a user the next question they have not seen,
// generating a new one when the stored pool runs dry.
package questions

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Devprenuer/ai-tutor/internal/llm"
	"github.com/Devprenuer/ai-tutor/internal/prompt"
	"github.com/Devprenuer/ai-tutor/internal/selector"
	"github.com/Devprenuer/ai-tutor/internal/store"
	"github.com/Devprenuer/ai-tutor/internal/views"
)

// ErrInvalidRequest is returned for a request with a bad topic or
// difficulty level.
var ErrInvalidRequest = errors.New("invalid question request")

// Config holds question generation settings.
type Config struct {
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`

	// HistoryLimit caps how many previously seen questions are replayed
	// to the model.
	HistoryLimit int `mapstructure:"history_limit"`
}

// DefaultConfig returns sensible defaults for question generation.
func DefaultConfig() Config {
	return Config{
		MaxTokens:    1024,
		Temperature:  0.7,
		HistoryLimit: 50,
	}
}

// Request selects which question pool to draw from.
type Request struct {
	TopicID         uint
	DifficultyLevel int
	QuestionType    store.QuestionType
	Page            int
}

func (r Request) validate() error {
	if r.TopicID == 0 {
		return fmt.Errorf("%w: topic_id is required", ErrInvalidRequest)
	}
	if r.DifficultyLevel < 1 || r.DifficultyLevel > 10 {
		return fmt.Errorf("%w: difficulty_level %d is outside 1-10", ErrInvalidRequest, r.DifficultyLevel)
	}
	switch r.QuestionType {
	case store.QuestionTypeCoding, store.QuestionTypeMultipleChoice:
	default:
		return fmt.Errorf("%w: question_type %s", ErrInvalidRequest, r.QuestionType)
	}
	return nil
}

func (r Request) filters() selector.Filters {
	return selector.Filters{
		"topic_id":         r.TopicID,
		"difficulty_level": r.DifficultyLevel,
		"question_type":    r.QuestionType,
	}
}

// Service hands out questions.
type Service struct {
	db       *gorm.DB
	views    *views.Trackers
	provider llm.Provider
	cfg      Config
	log      *zap.Logger
}

// NewService creates a question service.
func NewService(db *gorm.DB, tr *views.Trackers, provider llm.Provider, cfg Config, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{db: db, views: tr, provider: provider, cfg: cfg, log: log.Named("questions")}
}

// Next returns the page-th newest question matching req that userID has
// not seen, generating one if none exists. The returned question has
// been marked viewed by userID.
func (s *Service) Next(ctx context.Context, userID uint, req Request) (*store.Question, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	q, err := selector.NextUnseen[store.Question](ctx, s.db, s.views.Questions, userID, req.filters(), req.Page)
	if err != nil {
		return nil, err
	}
	if q != nil {
		if _, err := s.views.Questions.RecordView(ctx, s.db, q, userID); err != nil {
			return nil, err
		}
		s.log.Debug("served stored question", zap.Uint("user_id", userID), zap.Uint("question_id", q.ID))
		return q, nil
	}

	return s.generate(ctx, userID, req)
}

func (s *Service) generate(ctx context.Context, userID uint, req Request) (*store.Question, error) {
	topic, err := store.TopicWithIndustry(s.db.WithContext(ctx), req.TopicID)
	if err != nil {
		return nil, fmt.Errorf("load topic %d: %w", req.TopicID, err)
	}

	seen, err := selector.PreviouslySeen[store.Question](ctx, s.db, s.views.Questions, userID, req.filters(), s.cfg.HistoryLimit)
	if err != nil {
		return nil, err
	}
	// Replay oldest first.
	slices.Reverse(seen)
	history := make([]prompt.PreviousQuestion, len(seen))
	for i := range seen {
		history[i] = prompt.FromQuestion(&seen[i], topic.Name)
	}

	p, err := prompt.NewQuestionPrompt(prompt.QuestionParams{
		Topic:             topic.Name,
		Industry:          topic.Industry.Name,
		DifficultyLevel:   req.DifficultyLevel,
		QuestionType:      req.QuestionType,
		PreviousQuestions: history,
	})
	if err != nil {
		return nil, err
	}

	raw, err := prompt.Complete(llm.WithUser(ctx, userID), s.provider, p, prompt.Options{
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("generate question: %w", err)
	}
	gen, err := prompt.ParseQuestion(raw, req.QuestionType)
	if err != nil {
		return nil, err
	}

	q := &store.Question{
		Text:            gen.Question,
		DifficultyLevel: req.DifficultyLevel,
		TopicID:         topic.ID,
		QuestionType:    req.QuestionType,
	}
	if req.QuestionType == store.QuestionTypeMultipleChoice {
		q.MultipleChoiceOptions = datatypes.NewJSONType(gen.Options)
		q.MultipleChoiceAnswer = gen.Answer
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(q).Error; err != nil {
			return fmt.Errorf("create question: %w", err)
		}
		_, err := s.views.Questions.RecordView(ctx, tx, q, userID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("generated question",
		zap.Uint("user_id", userID),
		zap.Uint("question_id", q.ID),
		zap.Uint("topic_id", topic.ID),
		zap.Int("difficulty_level", q.DifficultyLevel),
		zap.Stringer("question_type", q.QuestionType),
		zap.Int("history", len(history)),
	)
	return q, nil
}
