package grader

import (
	"errors"
	"testing"

	"github.com/Devprenuer/ai-tutor/internal/store"
)

func TestScore_MultipleChoice(t *testing.T) {
	q := &store.Question{QuestionType: store.QuestionTypeMultipleChoice, MultipleChoiceAnswer: "a"}

	tests := []struct {
		raw  string
		want int
	}{
		{"a", 10},
		{"A ", 10},
		{"  a\n", 10},
		{"b", 0},
		{"", 0},
		{"ab", 0},
	}
	for _, tt := range tests {
		got, err := Score(q, tt.raw)
		if err != nil {
			t.Fatalf("Score(%q): %v", tt.raw, err)
		}
		if got != tt.want {
			t.Errorf("Score(%q) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}

func TestScore_StoredAnswerIsNormalized(t *testing.T) {
	q := &store.Question{QuestionType: store.QuestionTypeMultipleChoice, MultipleChoiceAnswer: " C"}
	if got, _ := Score(q, "c"); got != CorrectScore {
		t.Errorf("Score = %d, want %d", got, CorrectScore)
	}
}

func TestScore_CodingUnsupported(t *testing.T) {
	q := &store.Question{QuestionType: store.QuestionTypeCoding}

	_, err := Score(q, "fmt.Println(1)")
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("err = %v, want ErrUnsupported", err)
	}
	var unsupported *UnsupportedError
	if !errors.As(err, &unsupported) || unsupported.Type != store.QuestionTypeCoding {
		t.Errorf("err = %#v", err)
	}
}
