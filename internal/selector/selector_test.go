package selector

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Devprenuer/ai-tutor/internal/store"
	"github.com/Devprenuer/ai-tutor/internal/views"
)

type fixture struct {
	db      *gorm.DB
	tr      *views.Trackers
	topicID uint
}

func setup(t *testing.T) *fixture {
	t.Helper()
	s, err := store.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	require.NoError(t, s.Seed(context.Background(), []store.SeedIndustry{{Name: "Web Development", Topics: []string{"PHP"}}}))
	var topic store.Topic
	require.NoError(t, s.DB().First(&topic).Error)

	tr, err := views.NewTrackers(s.DB())
	require.NoError(t, err)
	return &fixture{db: s.DB(), tr: tr, topicID: topic.ID}
}

// questions creates n questions one minute apart, oldest first, and
// returns them newest first.
func (f *fixture) questions(t *testing.T, n, difficulty int) []*store.Question {
	t.Helper()
	base := time.Now().UTC().Add(-time.Duration(n) * time.Hour)
	out := make([]*store.Question, n)
	for i := 0; i < n; i++ {
		q := &store.Question{
			Text:            fmt.Sprintf("question %d/%d", difficulty, i),
			TopicID:         f.topicID,
			DifficultyLevel: difficulty,
			CreatedAt:       base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, f.db.Create(q).Error)
		out[n-1-i] = q
	}
	return out
}

func (f *fixture) filters(difficulty int) Filters {
	return Filters{
		"topic_id":         f.topicID,
		"difficulty_level": difficulty,
		"question_type":    store.QuestionTypeCoding,
	}
}

func TestNextUnseenPagination(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	newest := f.questions(t, 5, 1)
	f.questions(t, 3, 2) // different difficulty, never selected

	// User 1 has seen the 2nd newest; user 2 the newest.
	_, err := f.tr.Questions.RecordView(ctx, f.db, newest[1], 1)
	require.NoError(t, err)
	_, err = f.tr.Questions.RecordView(ctx, f.db, newest[0], 2)
	require.NoError(t, err)

	unseen := []*store.Question{newest[0], newest[2], newest[3], newest[4]}
	for k := 1; k <= len(unseen); k++ {
		got, err := NextUnseen[store.Question](ctx, f.db, f.tr.Questions, 1, f.filters(1), k)
		require.NoError(t, err)
		require.NotNil(t, got, "page %d", k)
		assert.Equal(t, unseen[k-1].ID, got.ID, "page %d", k)
	}

	got, err := NextUnseen[store.Question](ctx, f.db, f.tr.Questions, 1, f.filters(1), len(unseen)+1)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = NextUnseen[store.Question](ctx, f.db, f.tr.Questions, 2, f.filters(1), 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, newest[1].ID, got.ID)
}

func TestNextUnseenNeverReturnsViewed(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	qs := f.questions(t, 3, 4)

	// Viewing page 1 each time walks the whole set exactly once.
	var served []uint
	for {
		q, err := NextUnseen[store.Question](ctx, f.db, f.tr.Questions, 7, f.filters(4), 1)
		require.NoError(t, err)
		if q == nil {
			break
		}
		served = append(served, q.ID)
		_, err = f.tr.Questions.RecordView(ctx, f.db, q, 7)
		require.NoError(t, err)
	}
	assert.Equal(t, []uint{qs[0].ID, qs[1].ID, qs[2].ID}, served)
}

func TestInvalidPage(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	for _, page := range []int{0, -1} {
		_, err := NextUnseen[store.Question](ctx, f.db, f.tr.Questions, 1, f.filters(1), page)
		assert.True(t, errors.Is(err, ErrInvalidPage), "page %d: %v", page, err)

		_, err = Nth[store.Hint](ctx, f.db, Filters{"question_id": 1}, "created_at asc", page)
		assert.True(t, errors.Is(err, ErrInvalidPage), "page %d: %v", page, err)
	}
}

func TestPreviouslySeen(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	qs := f.questions(t, 4, 1)

	for _, q := range []*store.Question{qs[3], qs[1], qs[0]} {
		_, err := f.tr.Questions.RecordView(ctx, f.db, q, 1)
		require.NoError(t, err)
	}
	// Seen twice still appears once.
	_, err := f.tr.Questions.RecordView(ctx, f.db, qs[1], 1)
	require.NoError(t, err)

	seen, err := PreviouslySeen[store.Question](ctx, f.db, f.tr.Questions, 1, f.filters(1), 50)
	require.NoError(t, err)
	require.Len(t, seen, 3)
	assert.Equal(t, []uint{qs[0].ID, qs[1].ID, qs[3].ID}, []uint{seen[0].ID, seen[1].ID, seen[2].ID})

	capped, err := PreviouslySeen[store.Question](ctx, f.db, f.tr.Questions, 1, f.filters(1), 2)
	require.NoError(t, err)
	assert.Len(t, capped, 2)

	none, err := PreviouslySeen[store.Question](ctx, f.db, f.tr.Questions, 2, f.filters(1), 50)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestNthHintOrder(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	q := f.questions(t, 1, 1)[0]

	at := time.Now().UTC().Truncate(time.Second)
	for _, level := range []int{3, 1, 2} {
		require.NoError(t, f.db.Create(&store.Hint{
			Text: fmt.Sprintf("hint %d", level), QuestionID: q.ID, HelpfulnessLevel: level, CreatedAt: at,
		}).Error)
	}

	order := "created_at asc, helpfulness_level asc"
	for page, want := range []int{1, 2, 3} {
		h, err := Nth[store.Hint](ctx, f.db, Filters{"question_id": q.ID}, order, page+1)
		require.NoError(t, err)
		require.NotNil(t, h)
		assert.Equal(t, want, h.HelpfulnessLevel)
	}

	h, err := Nth[store.Hint](ctx, f.db, Filters{"question_id": q.ID}, order, 4)
	require.NoError(t, err)
	assert.Nil(t, h)
}

func TestNextUnseenSetFilters(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	newest := f.questions(t, 4, 1)

	byIDs := Filters{"id": []uint{newest[1].ID, newest[3].ID}}
	got, err := NextUnseen[store.Question](ctx, f.db, f.tr.Questions, 1, byIDs, 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, newest[1].ID, got.ID)

	sub := f.db.Session(&gorm.Session{NewDB: true}).
		Model(&store.Question{}).Select("id").Where("text = ?", newest[2].Text)
	got, err = NextUnseen[store.Question](ctx, f.db, f.tr.Questions, 1, Filters{"id": sub}, 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, newest[2].ID, got.ID)

	got, err = NextUnseen[store.Question](ctx, f.db, f.tr.Questions, 1, byIDs, 3)
	require.NoError(t, err)
	assert.Nil(t, got)
}
