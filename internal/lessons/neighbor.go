package lessons

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/Devprenuer/ai-tutor/internal/store"
)

var (
	// ErrInvalidDirection is returned for a direction other than next or prev.
	ErrInvalidDirection = errors.New(`invalid direction, must be "next" or "prev"`)

	// ErrInvalidSortDirection is returned for a sort direction other than
	// asc or desc.
	ErrInvalidSortDirection = errors.New(`invalid sort direction, must be "asc" or "desc"`)
)

// Direction selects which neighbor to find.
type Direction string

const (
	Next Direction = "next"
	Prev Direction = "prev"
)

// SortDirection is a column sort direction.
type SortDirection string

const (
	Asc  SortDirection = "asc"
	Desc SortDirection = "desc"
)

func (d SortDirection) flip() SortDirection {
	if d == Asc {
		return Desc
	}
	return Asc
}

// ParseSortDirection accepts "asc" or "desc"; "" yields def.
func ParseSortDirection(s string, def SortDirection) (SortDirection, error) {
	switch SortDirection(s) {
	case "":
		return def, nil
	case Asc, Desc:
		return SortDirection(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSortDirection, s)
}

// SortSpec orders lessons by difficulty level, then creation time.
// Zero fields take the defaults: newest first, easiest first.
type SortSpec struct {
	CreatedAt  SortDirection
	Difficulty SortDirection
}

// DefaultSort is the listing order used when none is given.
var DefaultSort = SortSpec{CreatedAt: Desc, Difficulty: Asc}

func (s SortSpec) resolve() (SortSpec, error) {
	var err error
	if s.CreatedAt, err = ParseSortDirection(string(s.CreatedAt), DefaultSort.CreatedAt); err != nil {
		return s, err
	}
	if s.Difficulty, err = ParseSortDirection(string(s.Difficulty), DefaultSort.Difficulty); err != nil {
		return s, err
	}
	return s, nil
}

// keyset holds the comparison operators and orders for one lookup.
type keyset struct {
	createdAtOp     string
	createdAtOrder  SortDirection
	difficultyOp    string
	difficultyOrder SortDirection
}

func keysetFor(dir Direction, sort SortSpec) (keyset, error) {
	switch dir {
	case Next:
		k := keyset{createdAtOp: ">", createdAtOrder: sort.CreatedAt, difficultyOp: ">=", difficultyOrder: sort.Difficulty}
		if sort.CreatedAt == Desc {
			k.createdAtOp = "<"
		}
		if sort.Difficulty == Desc {
			k.difficultyOp = "<="
		}
		return k, nil
	case Prev:
		k := keyset{createdAtOp: "<", createdAtOrder: sort.CreatedAt.flip(), difficultyOp: "<=", difficultyOrder: sort.Difficulty.flip()}
		if sort.CreatedAt == Desc {
			k.createdAtOp = ">"
		}
		if sort.Difficulty == Desc {
			k.difficultyOp = ">="
		}
		return k, nil
	}
	return keyset{}, fmt.Errorf("%w: %q", ErrInvalidDirection, dir)
}

// Neighbor returns the lesson immediately before or after current in the
// same topic under sort, or nil at either end. Candidates must be on the
// far side of current on both keys.
func Neighbor(ctx context.Context, db *gorm.DB, current *store.Lesson, dir Direction, sort SortSpec) (*store.Lesson, error) {
	sort, err := sort.resolve()
	if err != nil {
		return nil, err
	}
	k, err := keysetFor(dir, sort)
	if err != nil {
		return nil, err
	}

	var found []store.Lesson
	err = db.WithContext(ctx).
		Select(listColumns).
		Where("topic_id = ?", current.TopicID).
		Where("created_at "+k.createdAtOp+" ?", current.CreatedAt).
		Where("difficulty_level "+k.difficultyOp+" ?", current.DifficultyLevel).
		Order("difficulty_level " + string(k.difficultyOrder)).
		Order("created_at " + string(k.createdAtOrder)).
		Order("id " + string(k.createdAtOrder)).
		Limit(1).
		Find(&found).Error
	if err != nil {
		return nil, fmt.Errorf("find %s lesson of %d: %w", dir, current.ID, err)
	}
	if len(found) == 0 {
		return nil, nil
	}
	return &found[0], nil
}

// Links holds the neighbors of a lesson; either may be nil.
type Links struct {
	Next *store.Lesson `json:"next_lesson"`
	Prev *store.Lesson `json:"prev_lesson"`
}

// Neighbors returns both neighbors of current under sort.
func Neighbors(ctx context.Context, db *gorm.DB, current *store.Lesson, sort SortSpec) (Links, error) {
	next, err := Neighbor(ctx, db, current, Next, sort)
	if err != nil {
		return Links{}, err
	}
	prev, err := Neighbor(ctx, db, current, Prev, sort)
	if err != nil {
		return Links{}, err
	}
	return Links{Next: next, Prev: prev}, nil
}
