package lessons

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/Devprenuer/ai-tutor/internal/selector"
	"github.com/Devprenuer/ai-tutor/internal/store"
)

// ErrInvalidQuestionIDs is returned when some question ids do not exist
// or belong to a different topic than the one searched.
var ErrInvalidQuestionIDs = errors.New("invalid question ids")

// ErrInvalidSearch is returned for malformed search parameters.
var ErrInvalidSearch = errors.New("invalid lesson search")

// MaxQueryLength bounds the title search string.
const MaxQueryLength = 50

// listColumns are the columns returned by listings; the body is omitted.
var listColumns = []string{"id", "title", "excerpt", "difficulty_level", "topic_id", "view_count", "created_at", "updated_at"}

// SearchParams filters and orders a lesson listing. Zero values mean
// "no filter".
type SearchParams struct {
	TopicID     uint
	QuestionIDs []uint

	DifficultyLevel int
	// GrowingDifficulty widens DifficultyLevel to an open range in the
	// direction of Sort.Difficulty.
	GrowingDifficulty bool

	// Query matches a substring of the title.
	Query string

	Sort SortSpec
	Page int
}

// SearchResult is one page of lessons.
type SearchResult struct {
	Lessons []store.Lesson `json:"lessons"`
	Page    int            `json:"page"`
	Total   int64          `json:"total"`
}

// Search lists lessons matching params, PageSize per page, without
// bodies.
func Search(ctx context.Context, db *gorm.DB, params SearchParams) (*SearchResult, error) {
	if params.Page == 0 {
		params.Page = 1
	}
	if params.Page < 1 {
		return nil, fmt.Errorf("%w: got %d", selector.ErrInvalidPage, params.Page)
	}
	if len(params.Query) > MaxQueryLength {
		return nil, fmt.Errorf("%w: query longer than %d characters", ErrInvalidSearch, MaxQueryLength)
	}
	sort, err := params.Sort.resolve()
	if err != nil {
		return nil, err
	}
	if err := checkQuestions(ctx, db, params.TopicID, params.QuestionIDs); err != nil {
		return nil, err
	}

	q := db.WithContext(ctx).Model(&store.Lesson{})
	if params.TopicID != 0 {
		q = q.Where("lessons.topic_id = ?", params.TopicID)
	}
	if len(params.QuestionIDs) > 0 {
		q = q.Where("lessons.id IN (?)", linkedTo(db, params.QuestionIDs))
	}
	if params.DifficultyLevel < 0 || params.DifficultyLevel > 10 {
		return nil, fmt.Errorf("%w: difficulty_level %d is outside 1-10", ErrInvalidSearch, params.DifficultyLevel)
	}
	if params.DifficultyLevel != 0 {
		op := "="
		if params.GrowingDifficulty {
			op = ">="
			if sort.Difficulty == Desc {
				op = "<="
			}
		}
		q = q.Where("lessons.difficulty_level "+op+" ?", params.DifficultyLevel)
	}
	if params.Query != "" {
		q = q.Where(`lessons.title LIKE ? ESCAPE '\'`, "%"+escapeLike(params.Query)+"%")
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count lessons: %w", err)
	}

	var lessons []store.Lesson
	err = q.Select(listColumns).
		Order("difficulty_level " + string(sort.Difficulty)).
		Order("created_at " + string(sort.CreatedAt)).
		Order("id " + string(sort.CreatedAt)).
		Offset((params.Page - 1) * PageSize).
		Limit(PageSize).
		Find(&lessons).Error
	if err != nil {
		return nil, fmt.Errorf("search lessons: %w", err)
	}
	return &SearchResult{Lessons: lessons, Page: params.Page, Total: total}, nil
}

// checkQuestions verifies every id exists and, when topicID is set,
// belongs to that topic.
func checkQuestions(ctx context.Context, db *gorm.DB, topicID uint, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	unique := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		unique[id] = struct{}{}
	}

	q := db.WithContext(ctx).Model(&store.Question{}).Where("id IN ?", ids)
	if topicID != 0 {
		q = q.Where("topic_id = ?", topicID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return fmt.Errorf("check question ids: %w", err)
	}
	if n != int64(len(unique)) {
		return ErrInvalidQuestionIDs
	}
	return nil
}

// linkedTo selects the ids of lessons attached to any of questionIDs.
func linkedTo(db *gorm.DB, questionIDs []uint) *gorm.DB {
	return db.Session(&gorm.Session{NewDB: true}).
		Table("lesson_questions").
		Select("lesson_id").
		Where("question_id IN ?", questionIDs)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
