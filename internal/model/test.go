package model

import (
	"time"

	"gorm.io/gorm"
)

type Test struct {
	ID                   uint               `gorm:"primarykey" json:"id"`
	TrainingDefinitionID uint               `json:"training_definition_id" gorm:"not null;index;uniqueIndex:idx_tests_one_active,where:is_active = true"`
	TrainingDefinition   TrainingDefinition `json:"training_definition,omitempty" gorm:"foreignKey:TrainingDefinitionID"`
	Title                string             `json:"title" gorm:"not null"`
	Description          string             `json:"description,omitempty" gorm:"type:text"`
	PassingScore         int                `json:"passing_score" gorm:"not null;default:80"`
	TimeLimitMinutes     *int               `json:"time_limit_minutes,omitempty"`
	IsActive             bool               `json:"is_active" gorm:"not null;default:false;uniqueIndex:idx_tests_one_active"`
	Questions            []Question         `json:"questions,omitempty" gorm:"foreignKey:TestID"`
	CreatedAt            time.Time          `json:"created_at"`
	UpdatedAt            time.Time          `json:"updated_at"`
	DeletedAt            gorm.DeletedAt     `gorm:"index" json:"-"`
}

// Deadline returns when an attempt started at startedAt runs out of time, or
// nil if the test has no time limit.
func (t *Test) Deadline(startedAt time.Time) *time.Time {
	if t.TimeLimitMinutes == nil || *t.TimeLimitMinutes <= 0 {
		return nil
	}
	d := startedAt.Add(time.Duration(*t.TimeLimitMinutes) * time.Minute)
	return &d
}
