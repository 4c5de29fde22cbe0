// Package answers grades and records answer submissions.
package answers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Devprenuer/ai-tutor/internal/grader"
	"github.com/Devprenuer/ai-tutor/internal/store"
	"github.com/Devprenuer/ai-tutor/internal/views"
)

var (
	// ErrPriorViewRequired is returned when a user answers a question
	// they were never shown.
	ErrPriorViewRequired = errors.New("you must view the question before answering it")

	// ErrEmptyAnswer is returned for a blank submission.
	ErrEmptyAnswer = errors.New("answer is required")
)

// Result is a graded submission.
type Result struct {
	Answer    *store.Answer `json:"answer"`
	Score     int           `json:"score"`
	TimeTaken int64         `json:"time_taken"`
	// First reports whether this was the user's first answer to the
	// question.
	First bool `json:"first"`
}

// Service grades answers.
type Service struct {
	db    *gorm.DB
	views *views.Trackers
	log   *zap.Logger
	now   func() time.Time
}

// NewService creates an answer service.
func NewService(db *gorm.DB, tr *views.Trackers, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		db:    db,
		views: tr,
		log:   log.Named("answers"),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Submit grades raw against questionID for userID and stores the answer.
// The user must have viewed the question; time taken is measured from
// their most recent view. Only a user's first answer to a question
// counts towards the answered totals.
func (s *Service) Submit(ctx context.Context, userID, questionID uint, raw string) (*Result, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, ErrEmptyAnswer
	}

	var q store.Question
	if err := s.db.WithContext(ctx).First(&q, questionID).Error; err != nil {
		return nil, fmt.Errorf("load question %d: %w", questionID, store.NotFound(err))
	}

	view, err := s.views.Questions.MostRecentView(ctx, s.db, &q, userID)
	if err != nil {
		return nil, err
	}
	if view == nil {
		return nil, ErrPriorViewRequired
	}

	score, err := grader.Score(&q, raw)
	if err != nil {
		return nil, err
	}

	taken := int64(s.now().Sub(view.ViewedAt()) / time.Second)
	if taken < 0 {
		taken = 0
	}
	answer := &store.Answer{
		UserID:     userID,
		QuestionID: q.ID,
		AnswerText: raw,
		Score:      score,
		TimeTaken:  taken,
	}

	var first bool
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var prior int64
		if err := tx.Model(&store.Answer{}).
			Where("user_id = ? AND question_id = ?", userID, q.ID).
			Count(&prior).Error; err != nil {
			return fmt.Errorf("count answers: %w", err)
		}
		if err := tx.Create(answer).Error; err != nil {
			return fmt.Errorf("create answer: %w", err)
		}
		if prior > 0 {
			return nil
		}

		first = true
		if err := tx.Model(&store.User{}).Where("id = ?", userID).
			UpdateColumn("questions_answered_count", gorm.Expr("questions_answered_count + ?", 1)).Error; err != nil {
			return fmt.Errorf("increment user answers: %w", err)
		}
		return tx.Model(&store.Question{}).Where("id = ?", q.ID).
			UpdateColumn("answers_count", gorm.Expr("answers_count + ?", 1)).Error
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("answer submitted",
		zap.Uint("user_id", userID),
		zap.Uint("question_id", q.ID),
		zap.Int("score", score),
		zap.Int64("time_taken", taken),
		zap.Bool("first", first),
	)
	return &Result{Answer: answer, Score: score, TimeTaken: taken, First: first}, nil
}
