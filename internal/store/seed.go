package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// SeedIndustry is one industry with its topics.
type SeedIndustry struct {
	Name   string
	Topics []string
}

// DefaultSeed is the reference data a fresh install starts with.
var DefaultSeed = []SeedIndustry{
	{Name: "Coding", Topics: []string{"PHP", "JavaScript", "Python", "Rust", "Go"}},
}

// Seed inserts industries and topics that do not exist yet. Running it
// twice is a no-op.
func (s *Store) Seed(ctx context.Context, data []SeedIndustry) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, si := range data {
			var ind Industry
			if err := tx.Where(Industry{Name: si.Name}).FirstOrCreate(&ind).Error; err != nil {
				return fmt.Errorf("seed industry %q: %w", si.Name, err)
			}
			for _, name := range si.Topics {
				var t Topic
				err := tx.Where(Topic{Name: name, IndustryID: ind.ID}).FirstOrCreate(&t).Error
				if err != nil {
					return fmt.Errorf("seed topic %q: %w", name, err)
				}
			}
		}
		return nil
	})
}

// TopicWithIndustry loads a topic and its industry, which prompts need.
func TopicWithIndustry(db *gorm.DB, id uint) (*Topic, error) {
	var t Topic
	if err := db.Preload("Industry").First(&t, id).Error; err != nil {
		return nil, NotFound(err)
	}
	if t.Industry == nil {
		return nil, fmt.Errorf("topic %d has no industry: %w", id, ErrNotFound)
	}
	return &t, nil
}
