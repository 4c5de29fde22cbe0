package views

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Devprenuer/ai-tutor/internal/store"
)

func setup(t *testing.T) (*gorm.DB, *Trackers, uint) {
	t.Helper()
	s, err := store.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	ctx := context.Background()
	require.NoError(t, s.Seed(ctx, []store.SeedIndustry{{Name: "Web Development", Topics: []string{"PHP"}}}))
	var topic store.Topic
	require.NoError(t, s.DB().First(&topic).Error)

	tr, err := NewTrackers(s.DB())
	require.NoError(t, err)
	return s.DB(), tr, topic.ID
}

func newQuestion(t *testing.T, db *gorm.DB, topicID uint, text string) *store.Question {
	t.Helper()
	q := &store.Question{Text: text, TopicID: topicID, DifficultyLevel: 1}
	require.NoError(t, db.Create(q).Error)
	return q
}

func TestNewRegistry(t *testing.T) {
	_, tr, _ := setup(t)

	assert.Equal(t, Registry{Table: "questions", ViewTable: "question_views", ForeignKey: "question_id"}, tr.Questions.Registry())
	assert.Equal(t, Registry{Table: "hints", ViewTable: "hint_views", ForeignKey: "hint_id"}, tr.Hints.Registry())
	assert.Equal(t, Registry{Table: "lessons", ViewTable: "lesson_views", ForeignKey: "lesson_id"}, tr.Lessons.Registry())
}

func TestNewRegistryMissingForeignKey(t *testing.T) {
	db, _, _ := setup(t)

	_, err := NewRegistry(db, &store.Question{}, &store.HintView{})
	require.Error(t, err)
}

func TestRecordViewKeepsCountInSync(t *testing.T) {
	db, tr, topicID := setup(t)
	ctx := context.Background()
	q := newQuestion(t, db, topicID, "What is a variable?")

	users := []uint{1, 2, 1, 3, 1}
	for _, u := range users {
		_, err := tr.Questions.RecordView(ctx, db, q, u)
		require.NoError(t, err)
	}

	assert.Equal(t, len(users), q.ViewCount, "in-memory count")

	var stored store.Question
	require.NoError(t, db.First(&stored, q.ID).Error)
	assert.Equal(t, len(users), stored.ViewCount, "stored count")

	var rows int64
	require.NoError(t, db.Model(&store.QuestionView{}).Where("question_id = ?", q.ID).Count(&rows).Error)
	assert.Equal(t, int64(len(users)), rows)
}

func TestHasViewed(t *testing.T) {
	db, tr, topicID := setup(t)
	ctx := context.Background()
	q := newQuestion(t, db, topicID, "What is a class?")

	seen, err := tr.Questions.HasViewed(ctx, db, q, 1)
	require.NoError(t, err)
	assert.False(t, seen)

	_, err = tr.Questions.RecordView(ctx, db, q, 1)
	require.NoError(t, err)

	seen, err = tr.Questions.HasViewed(ctx, db, q, 1)
	require.NoError(t, err)
	assert.True(t, seen)

	seen, err = tr.Questions.HasViewed(ctx, db, q, 2)
	require.NoError(t, err)
	assert.False(t, seen, "other users are unaffected")
}

func TestMostRecentView(t *testing.T) {
	db, tr, topicID := setup(t)
	ctx := context.Background()
	q := newQuestion(t, db, topicID, "What is a closure?")

	v, err := tr.Questions.MostRecentView(ctx, db, q, 1)
	require.NoError(t, err)
	assert.Nil(t, v)

	first, err := tr.Questions.RecordView(ctx, db, q, 1)
	require.NoError(t, err)
	// Push the first view into the past so ordering is by time, not id.
	past := time.Now().UTC().Add(-time.Hour)
	require.NoError(t, db.Model(&store.QuestionView{}).Where("id = ?", first.ID).Update("created_at", past).Error)

	second, err := tr.Questions.RecordView(ctx, db, q, 1)
	require.NoError(t, err)

	v, err = tr.Questions.MostRecentView(ctx, db, q, 1)
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, second.ID, v.ID)
	assert.WithinDuration(t, time.Now(), v.ViewedAt(), time.Minute)
}

func TestUnseenAndSeenScopes(t *testing.T) {
	db, tr, topicID := setup(t)
	ctx := context.Background()

	fresh := newQuestion(t, db, topicID, "never viewed")
	mine := newQuestion(t, db, topicID, "viewed by user 1")
	theirs := newQuestion(t, db, topicID, "viewed by user 2")

	_, err := tr.Questions.RecordView(ctx, db, mine, 1)
	require.NoError(t, err)
	_, err = tr.Questions.RecordView(ctx, db, theirs, 2)
	require.NoError(t, err)

	ids := func(scope func(*gorm.DB) *gorm.DB) []uint {
		var out []uint
		require.NoError(t, db.Model(&store.Question{}).
			Where("topic_id = ?", topicID).
			Scopes(scope).
			Order("id").
			Pluck("id", &out).Error)
		return out
	}

	assert.Equal(t, []uint{fresh.ID, theirs.ID}, ids(tr.Questions.Unseen(1)))
	assert.Equal(t, []uint{mine.ID}, ids(tr.Questions.Seen(1)))
	assert.Equal(t, []uint{fresh.ID, mine.ID}, ids(tr.Questions.Unseen(2)))
	assert.Equal(t, []uint{theirs.ID}, ids(tr.Questions.Seen(2)))
	assert.Len(t, ids(tr.Questions.Unseen(3)), 3)
	assert.Empty(t, ids(tr.Questions.Seen(3)))
}

func TestViewRowsCascadeOnDelete(t *testing.T) {
	db, tr, topicID := setup(t)
	ctx := context.Background()
	q := newQuestion(t, db, topicID, "to be deleted")

	_, err := tr.Questions.RecordView(ctx, db, q, 1)
	require.NoError(t, err)
	require.NoError(t, db.Delete(&store.Question{}, q.ID).Error)

	var rows int64
	require.NoError(t, db.Model(&store.QuestionView{}).Where("question_id = ?", q.ID).Count(&rows).Error)
	assert.Zero(t, rows)
}

func TestRecordViewInsideOuterTransaction(t *testing.T) {
	db, tr, topicID := setup(t)
	ctx := context.Background()

	err := db.Transaction(func(tx *gorm.DB) error {
		q := &store.Question{Text: "rolled back", TopicID: topicID, DifficultyLevel: 1}
		if err := tx.Create(q).Error; err != nil {
			return err
		}
		if _, err := tr.Questions.RecordView(ctx, tx, q, 1); err != nil {
			return err
		}
		return gorm.ErrInvalidTransaction
	})
	require.ErrorIs(t, err, gorm.ErrInvalidTransaction)

	var questions, rows int64
	db.Model(&store.Question{}).Count(&questions)
	db.Model(&store.QuestionView{}).Count(&rows)
	assert.Zero(t, questions)
	assert.Zero(t, rows)
}
