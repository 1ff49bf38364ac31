package model

import (
	"time"

	"gorm.io/gorm"
)

// TrainingDefinition is the normalized view of a training inferred from the
// legacy employee table (or created by an admin).
type TrainingDefinition struct {
	ID             uint           `gorm:"primarykey" json:"id"`
	Code           string         `json:"code" gorm:"not null;uniqueIndex;size:64"`
	Name           string         `json:"name" gorm:"not null"`
	Description    string         `json:"description,omitempty" gorm:"type:text"`
	ValidityMonths int            `json:"validity_months" gorm:"not null;default:12"`
	Tests          []Test         `json:"tests,omitempty" gorm:"foreignKey:TrainingDefinitionID"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}
