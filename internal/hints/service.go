// Package hints pages through the hints of a question, generating a
// batch when a question has run out of them.
package hints

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Devprenuer/ai-tutor/internal/llm"
	"github.com/Devprenuer/ai-tutor/internal/prompt"
	"github.com/Devprenuer/ai-tutor/internal/selector"
	"github.com/Devprenuer/ai-tutor/internal/store"
	"github.com/Devprenuer/ai-tutor/internal/views"
)

// Order is the paging order: batches oldest first, then least helpful
// first within a batch.
const Order = "created_at asc, helpfulness_level asc, id asc"

// Config holds hint generation settings.
type Config struct {
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
}

// DefaultConfig returns sensible defaults for hint generation.
func DefaultConfig() Config {
	return Config{
		MaxTokens:   2048,
		Temperature: 0.5,
	}
}

// Service hands out hints.
type Service struct {
	db       *gorm.DB
	views    *views.Trackers
	provider llm.Provider
	cfg      Config
	log      *zap.Logger
	now      func() time.Time
}

// NewService creates a hint service.
func NewService(db *gorm.DB, tr *views.Trackers, provider llm.Provider, cfg Config, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		db:       db,
		views:    tr,
		provider: provider,
		cfg:      cfg,
		log:      log.Named("hints"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Next returns the page-th hint of questionID. A stored hint is marked
// viewed the first time userID sees it. When the page lies just past the
// stored hints a new batch is generated and the page is served from it;
// a page further out is store.ErrNotFound.
func (s *Service) Next(ctx context.Context, userID, questionID uint, page int) (*store.Hint, error) {
	if page < 1 {
		return nil, fmt.Errorf("%w: got %d", selector.ErrInvalidPage, page)
	}

	var q store.Question
	if err := s.db.WithContext(ctx).First(&q, questionID).Error; err != nil {
		return nil, fmt.Errorf("load question %d: %w", questionID, store.NotFound(err))
	}

	filters := selector.Filters{"question_id": q.ID}
	h, err := selector.Nth[store.Hint](ctx, s.db, filters, Order, page)
	if err != nil {
		return nil, err
	}
	if h != nil {
		seen, err := s.views.Hints.HasViewed(ctx, s.db, h, userID)
		if err != nil {
			return nil, err
		}
		if !seen {
			if _, err := s.views.Hints.RecordView(ctx, s.db, h, userID); err != nil {
				return nil, err
			}
		}
		return h, nil
	}

	var stored int64
	if err := s.db.WithContext(ctx).Model(&store.Hint{}).Where("question_id = ?", q.ID).Count(&stored).Error; err != nil {
		return nil, fmt.Errorf("count hints: %w", err)
	}
	if int64(page) > stored+prompt.MinHints {
		return nil, fmt.Errorf("hint page %d of question %d: %w", page, q.ID, store.ErrNotFound)
	}

	return s.generate(ctx, userID, &q, page)
}

func (s *Service) generate(ctx context.Context, userID uint, q *store.Question, page int) (*store.Hint, error) {
	p, err := prompt.NewHintsPrompt(prompt.HintsParams{Question: q.Text})
	if err != nil {
		return nil, err
	}
	raw, err := prompt.Complete(llm.WithUser(ctx, userID), s.provider, p, prompt.Options{
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("generate hints: %w", err)
	}
	generated, err := prompt.ParseHints(raw)
	if err != nil {
		return nil, err
	}

	at := s.now()
	batch := make([]store.Hint, len(generated))
	for i, g := range generated {
		batch[i] = store.Hint{
			Text:             g.Hint,
			QuestionID:       q.ID,
			HelpfulnessLevel: g.HelpfulnessLevel,
			CreatedAt:        at,
		}
	}

	var served *store.Hint
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&batch).Error; err != nil {
			return fmt.Errorf("create hints: %w", err)
		}
		h, err := selector.Nth[store.Hint](ctx, tx, selector.Filters{"question_id": q.ID}, Order, page)
		if err != nil {
			return err
		}
		if h == nil {
			return fmt.Errorf("hint page %d of question %d: %w", page, q.ID, store.ErrNotFound)
		}
		if _, err := s.views.Hints.RecordView(ctx, tx, h, userID); err != nil {
			return err
		}
		served = h
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("generated hints",
		zap.Uint("user_id", userID),
		zap.Uint("question_id", q.ID),
		zap.Int("count", len(batch)),
		zap.Int("page", page),
	)
	return served, nil
}
