// Package views records which users have seen which questions, hints
// and lessons, and exposes that history as query filters.
package views

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Viewable is an entity that keeps a denormalized count of its views.
type Viewable interface {
	GetID() uint
	GetViewCount() int
	AddViewCount(n int)
}

// Record is a single view row.
type Record interface {
	ViewedAt() time.Time
}

// Tracker records and queries views of entity type E stored as view rows
// of type V. A Tracker is safe for concurrent use.
type Tracker[E Viewable, V Record] struct {
	reg    Registry
	newRow func(userID, entityID uint) V
}

// NewTracker builds a Tracker. newRow constructs the view row for a user
// and entity; it must set the user and foreign-key fields.
func NewTracker[E Viewable, V Record](reg Registry, newRow func(userID, entityID uint) V) *Tracker[E, V] {
	return &Tracker[E, V]{reg: reg, newRow: newRow}
}

// Registry returns the table metadata the tracker was built with.
func (t *Tracker[E, V]) Registry() Registry {
	return t.reg
}

// HasViewed reports whether userID has viewed entity. An entity with a
// zero view count is answered without a query.
func (t *Tracker[E, V]) HasViewed(ctx context.Context, db *gorm.DB, entity E, userID uint) (bool, error) {
	if entity.GetViewCount() == 0 {
		return false, nil
	}

	var found int
	err := db.WithContext(ctx).
		Table(t.reg.ViewTable).
		Select("1").
		Where(t.reg.ForeignKey+" = ? AND user_id = ?", entity.GetID(), userID).
		Limit(1).
		Scan(&found).Error
	if err != nil {
		return false, fmt.Errorf("check %s view: %w", t.reg.Table, err)
	}
	return found == 1, nil
}

// MostRecentView returns the latest view of entity by userID, or nil.
func (t *Tracker[E, V]) MostRecentView(ctx context.Context, db *gorm.DB, entity E, userID uint) (*V, error) {
	var row V
	err := db.WithContext(ctx).
		Where(t.reg.ForeignKey+" = ? AND user_id = ?", entity.GetID(), userID).
		Order("created_at desc, id desc").
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load latest %s view: %w", t.reg.Table, err)
	}
	return &row, nil
}

// RecordView inserts a view row and increments the entity's view count
// in one transaction. Repeated views are all recorded. When db is
// already a transaction the work joins it as a savepoint.
func (t *Tracker[E, V]) RecordView(ctx context.Context, db *gorm.DB, entity E, userID uint) (*V, error) {
	row := t.newRow(userID, entity.GetID())

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		return tx.Table(t.reg.Table).
			Where("id = ?", entity.GetID()).
			UpdateColumn("view_count", gorm.Expr("view_count + ?", 1)).Error
	})
	if err != nil {
		return nil, fmt.Errorf("record %s view: %w", t.reg.Table, err)
	}

	entity.AddViewCount(1)
	return &row, nil
}

// Unseen returns a scope keeping rows userID has never viewed.
func (t *Tracker[E, V]) Unseen(userID uint) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(
			fmt.Sprintf("(%s.view_count = ? OR NOT EXISTS (?))", t.reg.Table),
			0, t.viewedBy(db, userID),
		)
	}
}

// Seen returns a scope keeping rows userID has viewed at least once.
func (t *Tracker[E, V]) Seen(userID uint) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(
			fmt.Sprintf("(%s.view_count > ? AND EXISTS (?))", t.reg.Table),
			0, t.viewedBy(db, userID),
		)
	}
}

// viewedBy is the correlated subquery matching a view of the outer row.
func (t *Tracker[E, V]) viewedBy(db *gorm.DB, userID uint) *gorm.DB {
	vt := t.reg.ViewTable
	return db.Session(&gorm.Session{NewDB: true}).
		Table(vt).
		Select("1").
		Where(fmt.Sprintf("%s.%s = %s.id", vt, t.reg.ForeignKey, t.reg.Table)).
		Where(vt+".user_id = ?", userID)
}
