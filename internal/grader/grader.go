// Package grader scores submitted answers.
package grader

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Devprenuer/ai-tutor/internal/store"
)

// Scores awarded for a multiple-choice answer. There is no partial credit.
const (
	CorrectScore   = 10
	IncorrectScore = 0
)

// ErrUnsupported is returned for question types without a scoring
// strategy.
var ErrUnsupported = errors.New("question type is not supported for grading")

// UnsupportedError names the question type that could not be graded.
type UnsupportedError struct {
	Type store.QuestionType
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("grading %s questions is not supported", e.Type)
}

func (e *UnsupportedError) Unwrap() error { return ErrUnsupported }

// Score grades raw against q. It has no side effects; the caller checks
// that the user has seen q and persists the result.
func Score(q *store.Question, raw string) (int, error) {
	switch q.QuestionType {
	case store.QuestionTypeMultipleChoice:
		if normalize(raw) == normalize(q.MultipleChoiceAnswer) {
			return CorrectScore, nil
		}
		return IncorrectScore, nil
	default:
		return 0, &UnsupportedError{Type: q.QuestionType}
	}
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
