package views

import (
	"fmt"

	"gorm.io/gorm"
)

// Registry names the tables a Tracker works against. It is computed
// once at startup and never mutated.
type Registry struct {
	// Table holds the viewable entities.
	Table string

	// ViewTable holds one row per view.
	ViewTable string

	// ForeignKey is the column in ViewTable referencing Table.id.
	ForeignKey string
}

// NewRegistry derives table and column names from the gorm models, e.g.
// (&Question{}, &QuestionView{}) gives questions, question_views and
// question_id.
func NewRegistry(db *gorm.DB, entity, view any) (Registry, error) {
	es, err := parse(db, entity)
	if err != nil {
		return Registry{}, err
	}
	vs, err := parse(db, view)
	if err != nil {
		return Registry{}, err
	}

	fkName := es.Schema.Name + "ID"
	fk := vs.Schema.LookUpField(fkName)
	if fk == nil {
		return Registry{}, fmt.Errorf("%s has no %s field", vs.Schema.Name, fkName)
	}

	return Registry{
		Table:      es.Schema.Table,
		ViewTable:  vs.Schema.Table,
		ForeignKey: fk.DBName,
	}, nil
}

func parse(db *gorm.DB, model any) (*gorm.Statement, error) {
	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(model); err != nil {
		return nil, fmt.Errorf("parse %T: %w", model, err)
	}
	return stmt, nil
}
