package views

import (
	"gorm.io/gorm"

	"github.com/Devprenuer/ai-tutor/internal/store"
)

// Trackers bundles the trackers for every viewable entity.
type Trackers struct {
	Questions *Tracker[*store.Question, store.QuestionView]
	Hints     *Tracker[*store.Hint, store.HintView]
	Lessons   *Tracker[*store.Lesson, store.LessonView]
}

// NewTrackers resolves the registries for all viewable entities.
func NewTrackers(db *gorm.DB) (*Trackers, error) {
	qr, err := NewRegistry(db, &store.Question{}, &store.QuestionView{})
	if err != nil {
		return nil, err
	}
	hr, err := NewRegistry(db, &store.Hint{}, &store.HintView{})
	if err != nil {
		return nil, err
	}
	lr, err := NewRegistry(db, &store.Lesson{}, &store.LessonView{})
	if err != nil {
		return nil, err
	}

	return &Trackers{
		Questions: NewTracker[*store.Question](qr, func(userID, id uint) store.QuestionView {
			return store.QuestionView{UserID: userID, QuestionID: id}
		}),
		Hints: NewTracker[*store.Hint](hr, func(userID, id uint) store.HintView {
			return store.HintView{UserID: userID, HintID: id}
		}),
		Lessons: NewTracker[*store.Lesson](lr, func(userID, id uint) store.LessonView {
			return store.LessonView{UserID: userID, LessonID: id}
		}),
	}, nil
}
