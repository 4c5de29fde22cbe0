// Package lessons serves, generates, lists and links lessons.
package lessons

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Devprenuer/ai-tutor/internal/llm"
	"github.com/Devprenuer/ai-tutor/internal/prompt"
	"github.com/Devprenuer/ai-tutor/internal/selector"
	"github.com/Devprenuer/ai-tutor/internal/store"
	"github.com/Devprenuer/ai-tutor/internal/views"
)

// ErrInvalidRequest is returned for a request with a bad topic or
// difficulty level.
var ErrInvalidRequest = errors.New("invalid lesson request")

// Request selects which lesson pool to draw from. QuestionIDs, when set,
// restricts the pool to lessons attached to those questions and is passed
// to the model when a lesson has to be generated.
type Request struct {
	TopicID         uint
	DifficultyLevel int
	QuestionIDs     []uint
	Page            int
}

func (r Request) validate() error {
	if r.TopicID == 0 {
		return fmt.Errorf("%w: topic_id is required", ErrInvalidRequest)
	}
	if r.DifficultyLevel < 1 || r.DifficultyLevel > 10 {
		return fmt.Errorf("%w: difficulty_level %d is outside 1-10", ErrInvalidRequest, r.DifficultyLevel)
	}
	return nil
}

// Page is a lesson with its neighbors.
type Page struct {
	Lesson *store.Lesson `json:"lesson"`
	Links
}

// Service hands out lessons.
type Service struct {
	db       *gorm.DB
	views    *views.Trackers
	provider llm.Provider
	cfg      Config
	log      *zap.Logger
}

// NewService creates a lesson service.
func NewService(db *gorm.DB, tr *views.Trackers, provider llm.Provider, cfg Config, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{db: db, views: tr, provider: provider, cfg: cfg, log: log.Named("lessons")}
}

// Next returns the page-th newest lesson matching req that userID has not
// seen, generating one if none exists. The returned lesson has been
// marked viewed by userID.
func (s *Service) Next(ctx context.Context, userID uint, req Request) (*store.Lesson, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	if err := checkQuestions(ctx, s.db, req.TopicID, req.QuestionIDs); err != nil {
		return nil, err
	}

	filters := selector.Filters{
		"topic_id":         req.TopicID,
		"difficulty_level": req.DifficultyLevel,
	}
	if len(req.QuestionIDs) > 0 {
		filters["id"] = linkedTo(s.db, req.QuestionIDs)
	}

	l, err := selector.NextUnseen[store.Lesson](ctx, s.db, s.views.Lessons, userID, filters, req.Page)
	if err != nil {
		return nil, err
	}
	if l != nil {
		if _, err := s.views.Lessons.RecordView(ctx, s.db, l, userID); err != nil {
			return nil, err
		}
		return l, nil
	}

	topic, err := store.TopicWithIndustry(s.db.WithContext(ctx), req.TopicID)
	if err != nil {
		return nil, fmt.Errorf("load topic %d: %w", req.TopicID, err)
	}
	var questions []store.Question
	if len(req.QuestionIDs) > 0 {
		if err := s.db.WithContext(ctx).Where("id IN ?", req.QuestionIDs).Order("id").Find(&questions).Error; err != nil {
			return nil, fmt.Errorf("load questions: %w", err)
		}
	}

	l, err = s.generate(llm.WithUser(ctx, userID), topic, req.DifficultyLevel, questions)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Questions.*").Create(l).Error; err != nil {
			return fmt.Errorf("create lesson: %w", err)
		}
		_, err := s.views.Lessons.RecordView(ctx, tx, l, userID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("generated lesson",
		zap.Uint("user_id", userID),
		zap.Uint("lesson_id", l.ID),
		zap.Uint("topic_id", l.TopicID),
		zap.Int("difficulty_level", l.DifficultyLevel),
		zap.Int("questions", len(questions)),
	)
	return l, nil
}

// generate asks the model for a lesson. The result is not persisted;
// questions become its associations when it is created.
func (s *Service) generate(ctx context.Context, topic *store.Topic, difficulty int, questions []store.Question) (*store.Lesson, error) {
	texts := make([]string, len(questions))
	for i, q := range questions {
		texts[i] = q.Text
	}

	p, err := prompt.NewLessonPrompt(prompt.LessonParams{
		Topic:           topic.Name,
		DifficultyLevel: difficulty,
		Questions:       texts,
	})
	if err != nil {
		return nil, err
	}
	raw, err := prompt.Complete(ctx, s.provider, p, prompt.Options{
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("generate lesson: %w", err)
	}
	gen, err := prompt.ParseLesson(raw)
	if err != nil {
		return nil, err
	}

	return &store.Lesson{
		Title:           gen.Title,
		Excerpt:         gen.Excerpt,
		Body:            gen.Body,
		DifficultyLevel: difficulty,
		TopicID:         topic.ID,
		Questions:       questions,
	}, nil
}

// Show loads a lesson, records that userID viewed it and links its
// neighbors under sort.
func (s *Service) Show(ctx context.Context, userID, lessonID uint, sort SortSpec) (*Page, error) {
	if _, err := sort.resolve(); err != nil {
		return nil, err
	}

	var l store.Lesson
	if err := s.db.WithContext(ctx).Preload("Topic").First(&l, lessonID).Error; err != nil {
		return nil, fmt.Errorf("load lesson %d: %w", lessonID, store.NotFound(err))
	}
	if _, err := s.views.Lessons.RecordView(ctx, s.db, &l, userID); err != nil {
		return nil, err
	}

	links, err := Neighbors(ctx, s.db, &l, sort)
	if err != nil {
		return nil, err
	}
	return &Page{Lesson: &l, Links: links}, nil
}

// Search lists lessons; see the package-level Search.
func (s *Service) Search(ctx context.Context, params SearchParams) (*SearchResult, error) {
	return Search(ctx, s.db, params)
}

// GenerateResult reports what GenerateForQuestions did for one question.
type GenerateResult struct {
	QuestionID uint
	Lesson     *store.Lesson
	Skipped    bool
}

// GenerateForQuestions creates one lesson per question that has none,
// pitched at the question's difficulty and topic. All ids must exist.
// Lessons created before a failure are kept.
func (s *Service) GenerateForQuestions(ctx context.Context, ids []uint, progress func(GenerateResult)) ([]GenerateResult, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no question ids", ErrInvalidRequest)
	}
	if err := checkQuestions(ctx, s.db, 0, ids); err != nil {
		return nil, err
	}

	var questions []store.Question
	err := s.db.WithContext(ctx).
		Preload("Topic.Industry").
		Where("id IN ?", ids).
		Order("id").
		Find(&questions).Error
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}

	results := make([]GenerateResult, 0, len(questions))
	for _, q := range questions {
		res, err := s.generateFor(ctx, q)
		if err != nil {
			return results, fmt.Errorf("question %d: %w", q.ID, err)
		}
		results = append(results, res)
		if progress != nil {
			progress(res)
		}
	}
	return results, nil
}

func (s *Service) generateFor(ctx context.Context, q store.Question) (GenerateResult, error) {
	res := GenerateResult{QuestionID: q.ID}

	var linked int64
	err := s.db.WithContext(ctx).Table("lesson_questions").Where("question_id = ?", q.ID).Count(&linked).Error
	if err != nil {
		return res, fmt.Errorf("count lessons: %w", err)
	}
	if linked > 0 {
		res.Skipped = true
		return res, nil
	}
	if q.Topic == nil {
		return res, fmt.Errorf("topic %d: %w", q.TopicID, store.ErrNotFound)
	}

	l, err := s.generate(ctx, q.Topic, q.DifficultyLevel, []store.Question{q})
	if err != nil {
		return res, err
	}
	if err := s.db.WithContext(ctx).Omit("Questions.*").Create(l).Error; err != nil {
		return res, fmt.Errorf("create lesson: %w", err)
	}

	s.log.Info("generated lesson for question",
		zap.Uint("question_id", q.ID),
		zap.Uint("lesson_id", l.ID),
	)
	res.Lesson = l
	return res, nil
}
