// Package selector picks the next stored item a user has not seen yet.
//
// Pages are 1-indexed offsets into the unseen set ordered newest first.
// Because every returned item is marked viewed, page 1 usually advances
// on its own; a larger page skips ahead without viewing the skipped rows.
package selector

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"gorm.io/gorm"
)

// ErrInvalidPage is returned for a page number below 1.
var ErrInvalidPage = errors.New("page must be 1 or greater")

// Filters is an exact-match conjunction over column values. Zero values
// are kept, so only set the columns you mean to filter on. A []uint value
// matches any of its ids and a *gorm.DB value is used as an IN subquery.
type Filters map[string]any

// Scoper supplies the seen/unseen scopes of a view tracker.
type Scoper interface {
	Unseen(userID uint) func(*gorm.DB) *gorm.DB
	Seen(userID uint) func(*gorm.DB) *gorm.DB
}

// NextUnseen returns the page-th newest item matching filters that
// userID has not viewed, or nil when fewer than page such items exist.
func NextUnseen[E any](ctx context.Context, db *gorm.DB, views Scoper, userID uint, filters Filters, page int) (*E, error) {
	if page < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidPage, page)
	}
	table, err := tableOf[E](db)
	if err != nil {
		return nil, err
	}

	var items []E
	err = where(db.WithContext(ctx).Model(new(E)), table, filters).
		Scopes(views.Unseen(userID)).
		Order(newestFirst(table)).
		Offset(page - 1).
		Limit(1).
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("select unseen %s: %w", table, err)
	}
	if len(items) == 0 {
		return nil, nil
	}
	return &items[0], nil
}

// PreviouslySeen returns up to limit items matching filters that userID
// has viewed, newest first. limit <= 0 means no cap.
func PreviouslySeen[E any](ctx context.Context, db *gorm.DB, views Scoper, userID uint, filters Filters, limit int) ([]E, error) {
	table, err := tableOf[E](db)
	if err != nil {
		return nil, err
	}

	q := where(db.WithContext(ctx).Model(new(E)), table, filters).
		Scopes(views.Seen(userID)).
		Order(newestFirst(table))
	if limit > 0 {
		q = q.Limit(limit)
	}

	var items []E
	if err := q.Find(&items).Error; err != nil {
		return nil, fmt.Errorf("select seen %s: %w", table, err)
	}
	return items, nil
}

// Nth returns the page-th item matching filters under order, regardless
// of view history, or nil when there are fewer than page items.
func Nth[E any](ctx context.Context, db *gorm.DB, filters Filters, order string, page int) (*E, error) {
	if page < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidPage, page)
	}
	table, err := tableOf[E](db)
	if err != nil {
		return nil, err
	}

	var items []E
	err = where(db.WithContext(ctx).Model(new(E)), table, filters).
		Order(order).
		Offset(page - 1).
		Limit(1).
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("select %s page %d: %w", table, page, err)
	}
	if len(items) == 0 {
		return nil, nil
	}
	return &items[0], nil
}

// where adds one equality predicate per filter, qualified by table so
// the correlated view subqueries cannot shadow it. Columns are applied
// in sorted order for stable SQL.
func where(q *gorm.DB, table string, filters Filters) *gorm.DB {
	cols := make([]string, 0, len(filters))
	for col := range filters {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	for _, col := range cols {
		switch v := filters[col].(type) {
		case *gorm.DB:
			q = q.Where(fmt.Sprintf("%s.%s IN (?)", table, col), v)
		case []uint:
			q = q.Where(fmt.Sprintf("%s.%s IN ?", table, col), v)
		default:
			q = q.Where(fmt.Sprintf("%s.%s = ?", table, col), v)
		}
	}
	return q
}

func newestFirst(table string) string {
	return fmt.Sprintf("%s.created_at desc, %s.id desc", table, table)
}

func tableOf[E any](db *gorm.DB) (string, error) {
	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(new(E)); err != nil {
		return "", fmt.Errorf("parse %T: %w", new(E), err)
	}
	return stmt.Schema.Table, nil
}
